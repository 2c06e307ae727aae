package service

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/oautherr"
)

// ResponseSigner signs JARM responses.
type ResponseSigner interface {
	AuthorizationResponse(tenant domain.Tenant, clientID string, params map[string]string) (string, error)
}

// buildRedirect encodes params onto target the way mode asks. JARM modes
// wrap params in a signed "response" parameter first.
func buildRedirect(signer ResponseSigner, tenant domain.Tenant, clientID, target, mode string, params map[string]string) (string, error) {
	if target == "" {
		return "", oautherr.ServerError("no redirect target", nil)
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", oautherr.ServerError("malformed redirect target", err)
	}

	if domain.IsJARM(mode) {
		jwt, err := signer.AuthorizationResponse(tenant, clientID, params)
		if err != nil {
			return "", oautherr.ServerError("sign authorization response", err)
		}
		params = map[string]string{"response": jwt}
		mode = strings.TrimSuffix(mode, ".jwt")
		if mode == domain.ResponseModeJWT {
			mode = domain.ResponseModeQuery
		}
	}

	values := url.Values{}
	for k, v := range params {
		if v != "" {
			values.Set(k, v)
		}
	}

	switch mode {
	case domain.ResponseModeQuery, "":
		q := u.Query()
		for k, vs := range values {
			q[k] = vs
		}
		u.RawQuery = q.Encode()
	case domain.ResponseModeFragment:
		u.Fragment, u.RawFragment = "", ""
		return u.String() + "#" + values.Encode(), nil
	default:
		return "", oautherr.ServerError(fmt.Sprintf("response mode %q cannot be delivered by redirect", mode), nil)
	}
	return u.String(), nil
}

// errorParams is the RFC 6749 section 4.1.2.1 error response.
func errorParams(e *oautherr.Error) map[string]string {
	return map[string]string{
		"error":             e.Code,
		"error_description": e.Description,
		"state":             e.State,
	}
}
