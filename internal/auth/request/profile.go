package request

import "github.com/aussiebroadwan/tollgate/internal/auth/domain"

// RequestedScopes prefers the request object's scope when the object carries
// one.
func RequestedScopes(params Parameters, jc *JoseContext) []string {
	if jc.Present() && jc.Values().Has(ParamScope) {
		return jc.Values().Scopes()
	}
	return params.Values().Scopes()
}

// IdentifyProfile picks the strictest profile the requested scopes select.
func IdentifyProfile(scopes []string, server domain.ServerConfiguration) domain.Profile {
	switch {
	case domain.ScopesOverlap(scopes, server.FAPIAdvanceScopes):
		return domain.ProfileFAPIAdvance
	case domain.ScopesOverlap(scopes, server.FAPIBaselineScopes):
		return domain.ProfileFAPIBaseline
	case domain.ScopesSubset([]string{domain.ScopeOpenID}, scopes):
		return domain.ProfileOIDC
	default:
		return domain.ProfileOAuth2
	}
}
