package verifier

import (
	"net/url"
	"slices"
	"strings"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/oautherr"
)

// maxRequestObjectLifetime bounds exp - nbf on FAPI Advance request objects.
const maxRequestObjectLifetime = 3600.0 // seconds

func DefaultBases() map[domain.Profile]BaseVerifier {
	return map[domain.Profile]BaseVerifier{
		domain.ProfileOAuth2:       BaseFunc(VerifyOAuth2),
		domain.ProfileOIDC:         BaseFunc(VerifyOIDC),
		domain.ProfileFAPIBaseline: BaseFunc(VerifyFAPIBaseline),
		domain.ProfileFAPIAdvance:  BaseFunc(VerifyFAPIAdvance),
	}
}

func badRequest(desc string) error {
	return oautherr.BadRequest(oautherr.CodeInvalidRequest, desc)
}

// target is where errors go once the redirect URI is trusted. An
// unsupported response_mode falls back to the response type default.
func target(c Context) oautherr.Target {
	mode := c.Request.EffectiveResponseMode()
	if c.Request.ResponseMode != "" && !c.Tenant.Server.SupportsResponseMode(c.Request.ResponseMode) {
		mode = c.Request.ResponseType.DefaultResponseMode()
	}
	return oautherr.Target{
		RedirectURI:  c.Request.RedirectTarget(c.Client),
		State:        c.Request.State,
		ResponseMode: mode,
	}
}

func redirectable(c Context, code, desc string) error {
	return oautherr.Redirectable(code, desc, target(c))
}

// verifyRedirectURI establishes the redirect target. Every failure here is a
// plain bad request because there is nowhere safe to send it.
func verifyRedirectURI(c Context) error {
	if c.Request.RedirectURI == "" {
		if len(c.Client.RedirectURIs) != 1 {
			return badRequest("redirect_uri is required")
		}
		return nil
	}
	if !c.Client.HasRedirectURI(c.Request.RedirectURI) {
		return badRequest("redirect_uri does not match a registered redirect uri")
	}
	return nil
}

// VerifyOAuth2 applies RFC 6749 section 4.1.1 checks.
func VerifyOAuth2(c Context) error {
	if err := verifyRedirectURI(c); err != nil {
		return err
	}
	return verifyOAuth2Params(c)
}

func verifyOAuth2Params(c Context) error {
	req, server := c.Request, c.Tenant.Server

	switch {
	case req.ResponseType.IsEmpty():
		return redirectable(c, oautherr.CodeInvalidRequest, "response_type is required")
	case !server.SupportsResponseType(req.ResponseType):
		return redirectable(c, oautherr.CodeUnsupportedResponseType, "response_type is not supported")
	case !c.Client.AllowsResponseType(req.ResponseType):
		return redirectable(c, oautherr.CodeUnauthorizedClient, "client may not use this response_type")
	case req.ResponseType.IssuesIDToken() && !req.IsOpenID():
		return redirectable(c, oautherr.CodeInvalidRequest, "id_token response types require the openid scope")
	case req.ResponseMode != "" && !server.SupportsResponseMode(req.ResponseMode):
		return redirectable(c, oautherr.CodeInvalidRequest, "response_mode is not supported")
	case len(req.Scopes) == 0:
		return redirectable(c, oautherr.CodeInvalidScope, "no requested scope is allowed for this client")
	}
	return nil
}

var (
	displayValues = []string{"page", "popup", "touch", "wap"}
	promptValues  = []string{"none", "login", "consent", "select_account"}
)

// VerifyOIDC applies OpenID Connect Core section 3.1.2.2 checks on top of
// the OAuth 2.0 ones.
func VerifyOIDC(c Context) error {
	if c.Request.RedirectURI == "" {
		return badRequest("redirect_uri is required")
	}
	if err := VerifyOAuth2(c); err != nil {
		return err
	}

	req := c.Request
	if !req.IsOpenID() {
		return redirectable(c, oautherr.CodeInvalidRequest, "scope must include openid")
	}
	if req.ResponseType.IssuesIDToken() && req.Nonce == "" {
		return redirectable(c, oautherr.CodeInvalidRequest, "nonce is required when an id_token is returned")
	}
	if req.Display != "" && !slices.Contains(displayValues, req.Display) {
		return redirectable(c, oautherr.CodeInvalidRequest, "display is invalid")
	}
	if req.Prompt != "" {
		prompts := strings.Fields(req.Prompt)
		for _, p := range prompts {
			if !slices.Contains(promptValues, p) {
				return redirectable(c, oautherr.CodeInvalidRequest, "prompt is invalid")
			}
		}
		if slices.Contains(prompts, "none") && len(prompts) > 1 {
			return redirectable(c, oautherr.CodeInvalidRequest, "prompt=none must not be combined")
		}
	}
	if req.MaxAge != nil && *req.MaxAge < 0 {
		return redirectable(c, oautherr.CodeInvalidRequest, "max_age must not be negative")
	}
	return nil
}

// VerifyFAPIBaseline applies FAPI 1.0 Baseline section 5.2.2 redirect URI
// rules before the OIDC or OAuth 2.0 checks.
func VerifyFAPIBaseline(c Context) error {
	switch {
	case len(c.Client.RedirectURIs) == 0:
		return badRequest("client has no registered redirect_uri")
	case c.Request.RedirectURI == "":
		return badRequest("redirect_uri is required")
	case !c.Client.HasRedirectURI(c.Request.RedirectURI):
		return badRequest("redirect_uri does not match a registered redirect uri")
	}
	if u, err := url.Parse(c.Request.RedirectURI); err != nil || u.Scheme != "https" {
		return badRequest("redirect_uri must use https")
	}

	if c.Request.IsOpenID() {
		return VerifyOIDC(c)
	}
	return VerifyOAuth2(c)
}

// VerifyFAPIAdvance applies FAPI 1.0 Advanced section 5.2.2 request object,
// response type and sender constraint rules, then the Baseline ones.
func VerifyFAPIAdvance(c Context) error {
	req := c.Request

	if !c.Jose.Present() || !req.HasRequestObject() {
		return badRequest("request object is required")
	}

	jarm := req.ResponseType.Equal(domain.ResponseTypeCode) && domain.IsJARM(req.ResponseMode)
	if !req.ResponseType.Equal(domain.ResponseTypeCodeIDToken) && !jarm {
		return badRequest("response_type must be code id_token, or code with response_mode=jwt")
	}

	if !c.Tenant.Server.TLSClientCertificateBoundAccessTokens || !c.Client.TLSClientCertificateBoundAccessTokens {
		return badRequest("certificate bound access tokens must be enabled for both server and client")
	}

	claims := c.Jose.Claims
	exp, hasExp := claims.NumericDate("exp")
	nbf, hasNbf := claims.NumericDate("nbf")
	if !hasExp || !hasNbf {
		return badRequest("request object must contain exp and nbf")
	}
	if exp-nbf > maxRequestObjectLifetime {
		return badRequest("request object lifetime must not exceed 60 minutes")
	}

	if !slices.Contains(claims.Audience(), c.Tenant.Issuer) {
		return badRequest("request object aud must contain the issuer")
	}

	return VerifyFAPIBaseline(c)
}
