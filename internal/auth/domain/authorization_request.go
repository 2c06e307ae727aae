package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"
)

var ErrInvalidAuthorizationRequest = errors.New("domain: invalid authorization request")

// AuthorizationRequest is an accepted authorization request awaiting user
// authentication. Obtain one through NewAuthorizationRequest; it is not
// modified afterwards and is deleted when its code is redeemed.
type AuthorizationRequest struct {
	ID       string
	TenantID string
	Profile  Profile
	ClientID string

	RedirectURI  string
	Scopes       []string
	ResponseType ResponseType
	ResponseMode string
	State        string
	Nonce        string
	Display      string
	Prompt       string
	// MaxAge in seconds. Nil when neither the request nor the tenant set one.
	MaxAge *int

	CodeChallenge       string
	CodeChallengeMethod string

	AuthorizationDetails []AuthorizationDetail
	// Claims is the OIDC "claims" request parameter. Empty when absent or
	// unparseable.
	Claims json.RawMessage

	Request      string
	RequestURI   string
	CustomParams map[string]string

	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewAuthorizationRequest validates r and returns a copy that shares no
// slices or maps with the input.
func NewAuthorizationRequest(r AuthorizationRequest) (AuthorizationRequest, error) {
	switch {
	case r.ID == "":
		return AuthorizationRequest{}, fmt.Errorf("%w: missing id", ErrInvalidAuthorizationRequest)
	case r.TenantID == "":
		return AuthorizationRequest{}, fmt.Errorf("%w: missing tenant", ErrInvalidAuthorizationRequest)
	case !r.Profile.Valid():
		return AuthorizationRequest{}, fmt.Errorf("%w: unknown profile %q", ErrInvalidAuthorizationRequest, r.Profile)
	case r.ClientID == "":
		return AuthorizationRequest{}, fmt.Errorf("%w: missing client_id", ErrInvalidAuthorizationRequest)
	case r.CreatedAt.IsZero():
		return AuthorizationRequest{}, fmt.Errorf("%w: missing creation time", ErrInvalidAuthorizationRequest)
	case !r.ExpiresAt.After(r.CreatedAt):
		return AuthorizationRequest{}, fmt.Errorf("%w: expiry must follow creation", ErrInvalidAuthorizationRequest)
	}

	r.Scopes = slices.Clone(r.Scopes)
	r.AuthorizationDetails = slices.Clone(r.AuthorizationDetails)
	r.Claims = slices.Clone(r.Claims)
	r.CustomParams = maps.Clone(r.CustomParams)
	if r.MaxAge != nil {
		v := *r.MaxAge
		r.MaxAge = &v
	}
	return r, nil
}

func (r AuthorizationRequest) HasScope(s string) bool { return slices.Contains(r.Scopes, s) }

func (r AuthorizationRequest) IsOpenID() bool { return r.HasScope(ScopeOpenID) }

func (r AuthorizationRequest) HasRequestObject() bool { return r.Request != "" || r.RequestURI != "" }

func (r AuthorizationRequest) IsExpired(now time.Time) bool { return !now.Before(r.ExpiresAt) }

// RedirectTarget is the URI the authorization response goes to: the one in
// the request, or the client's only registered URI when it was omitted.
func (r AuthorizationRequest) RedirectTarget(c Client) string {
	if r.RedirectURI != "" {
		return r.RedirectURI
	}
	if len(c.RedirectURIs) == 1 {
		return c.RedirectURIs[0]
	}
	return ""
}

// EffectiveResponseMode falls back to the response type default.
func (r AuthorizationRequest) EffectiveResponseMode() string {
	switch {
	case r.ResponseMode == ResponseModeJWT:
		if r.ResponseType.DefaultResponseMode() == ResponseModeFragment {
			return ResponseModeFragmentJWT
		}
		return ResponseModeQueryJWT
	case r.ResponseMode != "":
		return r.ResponseMode
	default:
		return r.ResponseType.DefaultResponseMode()
	}
}
