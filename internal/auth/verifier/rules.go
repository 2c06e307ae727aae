package verifier

import (
	"regexp"
	"slices"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/oautherr"
	"github.com/aussiebroadwan/tollgate/internal/auth/request"
)

// Rule ids.
const (
	RulePKCE                 = "pkce"
	RuleRequestObject        = "request_object"
	RuleAuthorizationDetails = "authorization_details"
	RuleSenderConstraint     = "sender_constraint"
)

const (
	PKCEMethodPlain = "plain"
	PKCEMethodS256  = "S256"
)

// RFC 7636 section 4.2.
var codeChallengePattern = regexp.MustCompile(`^[A-Za-z0-9\-._~]{43,128}$`)

func DefaultRules() []Rule {
	return []Rule{PKCERule(), RequestObjectRule(), AuthorizationDetailsRule(), SenderConstraintRule()}
}

// PKCERule requires a code_challenge from public clients and validates any
// challenge that is sent.
func PKCERule() Rule {
	return Rule{
		ID: RulePKCE,
		Skip: func(c Context) bool {
			return !c.Request.ResponseType.Has(string(domain.ResponseTypeCode))
		},
		Check: func(c Context) error {
			req := c.Request
			if req.CodeChallenge == "" {
				if c.Client.IsPublic() {
					return redirectable(c, oautherr.CodeInvalidRequest, "code_challenge is required for public clients")
				}
				if req.CodeChallengeMethod != "" {
					return redirectable(c, oautherr.CodeInvalidRequest, "code_challenge_method without code_challenge")
				}
				return nil
			}
			if !codeChallengePattern.MatchString(req.CodeChallenge) {
				return redirectable(c, oautherr.CodeInvalidRequest, "code_challenge is malformed")
			}
			switch req.CodeChallengeMethod {
			case "", PKCEMethodPlain, PKCEMethodS256:
				return nil
			}
			return redirectable(c, oautherr.CodeInvalidRequest, "code_challenge_method is not supported")
		},
	}
}

// RequestObjectRule checks that a verified request object agrees with the
// request it was sent with.
func RequestObjectRule() Rule {
	return Rule{
		ID:   RuleRequestObject,
		Skip: func(c Context) bool { return !c.Jose.Present() },
		Check: func(c Context) error {
			obj := c.Jose.Values()
			outer := c.Params.Values()
			clientID := c.Request.ClientID

			if obj.ClientID() != "" && obj.ClientID() != clientID {
				return redirectable(c, oautherr.CodeInvalidRequestObject, "request object client_id does not match")
			}
			if outer.ClientID() != "" && outer.ClientID() != clientID {
				return redirectable(c, oautherr.CodeInvalidRequestObject, "client_id does not match the request object")
			}
			if iss := c.Jose.Claims.Issuer(); iss != "" && iss != clientID {
				return redirectable(c, oautherr.CodeInvalidRequestObject, "request object iss must be the client_id")
			}
			if !outer.ResponseType().IsEmpty() && !obj.ResponseType().IsEmpty() &&
				!outer.ResponseType().Equal(obj.ResponseType()) {
				return redirectable(c, oautherr.CodeInvalidRequestObject, "response_type does not match the request object")
			}
			return nil
		},
	}
}

// AuthorizationDetailsRule restricts RAR types to the server's allow-list
// and, when configured, the client's.
func AuthorizationDetailsRule() Rule {
	return Rule{
		ID:   RuleAuthorizationDetails,
		Skip: func(c Context) bool { return !c.Values.HasAuthorizationDetails() },
		Check: func(c Context) error {
			details, err := domain.ParseAuthorizationDetails(c.Values.AuthorizationDetails())
			if err != nil {
				return redirectable(c, oautherr.CodeInvalidAuthorizationDetails, "authorization_details is malformed")
			}
			for _, typ := range domain.AuthorizationDetailTypes(details) {
				if !slices.Contains(c.Tenant.Server.AuthorizationDetailsTypesSupported, typ) {
					return redirectable(c, oautherr.CodeInvalidAuthorizationDetails, "authorization_details type "+typ+" is not supported")
				}
				if len(c.Client.AuthorizationDetailsTypes) > 0 && !slices.Contains(c.Client.AuthorizationDetailsTypes, typ) {
					return redirectable(c, oautherr.CodeInvalidAuthorizationDetails, "client may not request authorization_details type "+typ)
				}
			}
			return nil
		},
	}
}

// SenderConstraintRule refuses front channel access tokens when tokens for
// the client must be certificate bound. The browser carries no client
// certificate to bind them to.
func SenderConstraintRule() Rule {
	return Rule{
		ID: RuleSenderConstraint,
		Skip: func(c Context) bool {
			return !c.Request.ResponseType.Has(string(domain.ResponseTypeToken))
		},
		Check: func(c Context) error {
			if c.Tenant.Server.TLSClientCertificateBoundAccessTokens && c.Client.TLSClientCertificateBoundAccessTokens {
				return redirectable(c, oautherr.CodeUnauthorizedClient, "certificate bound access tokens cannot be issued from the authorization endpoint")
			}
			return nil
		},
	}
}

// NewContext builds a verification context with the factory's source view.
func NewContext(tenant domain.Tenant, client domain.Client, req domain.AuthorizationRequest, params request.Parameters, jc *request.JoseContext, f request.Factory) Context {
	return Context{
		Tenant:  tenant,
		Client:  client,
		Request: req,
		Params:  params,
		Jose:    jc,
		Values:  f.Source(params, jc),
	}
}
