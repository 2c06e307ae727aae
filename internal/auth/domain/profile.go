package domain

import (
	"slices"
	"strings"
)

// Profile is the security profile an authorization request is verified
// under. It is fixed when the request is created.
type Profile string

const (
	ProfileOAuth2       Profile = "OAUTH2"
	ProfileOIDC         Profile = "OIDC"
	ProfileFAPIBaseline Profile = "FAPI_BASELINE"
	ProfileFAPIAdvance  Profile = "FAPI_ADVANCE"
)

func (p Profile) Valid() bool {
	switch p {
	case ProfileOAuth2, ProfileOIDC, ProfileFAPIBaseline, ProfileFAPIAdvance:
		return true
	}
	return false
}

type GrantType string

const (
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantRefreshToken      GrantType = "refresh_token"
	GrantClientCredentials GrantType = "client_credentials"
	GrantPassword          GrantType = "password"
)

// Token endpoint client authentication methods.
const (
	AuthMethodClientSecretBasic = "client_secret_basic"
	AuthMethodClientSecretPost  = "client_secret_post"
	AuthMethodTLSClientAuth     = "tls_client_auth"
	AuthMethodNone              = "none"
)

// Response modes.
const (
	ResponseModeQuery       = "query"
	ResponseModeFragment    = "fragment"
	ResponseModeFormPost    = "form_post"
	ResponseModeJWT         = "jwt"
	ResponseModeQueryJWT    = "query.jwt"
	ResponseModeFragmentJWT = "fragment.jwt"
)

// IsJARM reports whether mode asks for a JWT secured authorization response.
func IsJARM(mode string) bool {
	return mode == ResponseModeJWT || mode == ResponseModeQueryJWT || mode == ResponseModeFragmentJWT
}

const ScopeOpenID = "openid"

// ResponseType is a space separated set of response type values. Two
// response types are equal when they contain the same values in any order.
type ResponseType string

const (
	ResponseTypeCode        ResponseType = "code"
	ResponseTypeToken       ResponseType = "token"
	ResponseTypeIDToken     ResponseType = "id_token"
	ResponseTypeCodeIDToken ResponseType = "code id_token"
)

func (rt ResponseType) Parts() []string {
	parts := strings.Fields(string(rt))
	slices.Sort(parts)
	return slices.Compact(parts)
}

func (rt ResponseType) IsEmpty() bool { return len(rt.Parts()) == 0 }

func (rt ResponseType) Has(part string) bool {
	return slices.Contains(strings.Fields(string(rt)), part)
}

func (rt ResponseType) Equal(other ResponseType) bool {
	return slices.Equal(rt.Parts(), other.Parts())
}

// In reports whether rt equals any entry of set.
func (rt ResponseType) In(set []string) bool {
	for _, s := range set {
		if rt.Equal(ResponseType(s)) {
			return true
		}
	}
	return false
}

// IssuesIDToken reports whether the authorization endpoint returns an ID
// token directly for rt.
func (rt ResponseType) IssuesIDToken() bool { return rt.Has(string(ResponseTypeIDToken)) }

// DefaultResponseMode is fragment for anything that returns tokens from the
// authorization endpoint, query otherwise.
func (rt ResponseType) DefaultResponseMode() string {
	if rt.Has(string(ResponseTypeToken)) || rt.Has(string(ResponseTypeIDToken)) {
		return ResponseModeFragment
	}
	return ResponseModeQuery
}
