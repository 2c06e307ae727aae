package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"
)

const TokenTypeBearer = "Bearer"

var (
	ErrInvalidToken = errors.New("domain: invalid token")
	// ErrUnboundSenderConstrainedToken is an invariant violation: the
	// issuance context required mTLS binding but no thumbprint was set.
	ErrUnboundSenderConstrainedToken = errors.New("domain: sender constrained token without certificate thumbprint")
)

// OAuthToken is the unit of issuance: one access token plus whatever
// refresh token, ID token and c_nonce were issued alongside it.
type OAuthToken struct {
	ID        string
	TenantID  string
	Issuer    string
	TokenType string

	Subject              string
	ClientID             string
	Scopes               []string
	AuthorizationDetails []AuthorizationDetail

	AccessToken  AccessToken
	RefreshToken *RefreshToken
	IDToken      *IDToken
	CNonce       *CNonce

	CreatedAt time.Time
}

type AccessToken struct {
	Value string
	// Payload holds the signed claims, kept for introspection.
	Payload   json.RawMessage
	CreatedAt time.Time
	ExpiresAt time.Time
	// ClientCertThumbprint is the RFC 8705 x5t#S256 binding, empty when
	// the token is not sender constrained.
	ClientCertThumbprint string
}

type RefreshToken struct {
	Value     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type IDToken struct {
	Value string
}

type CNonce struct {
	Value     string
	ExpiresAt time.Time
}

// NewOAuthToken validates t. requireSenderConstraint is true when both the
// tenant and the client declare certificate bound access tokens.
func NewOAuthToken(t OAuthToken, requireSenderConstraint bool) (OAuthToken, error) {
	switch {
	case t.ID == "" || t.TenantID == "" || t.Issuer == "":
		return OAuthToken{}, fmt.Errorf("%w: missing identity", ErrInvalidToken)
	case t.ClientID == "":
		return OAuthToken{}, fmt.Errorf("%w: missing client_id", ErrInvalidToken)
	case t.AccessToken.Value == "":
		return OAuthToken{}, fmt.Errorf("%w: missing access token", ErrInvalidToken)
	case !t.AccessToken.ExpiresAt.After(t.AccessToken.CreatedAt):
		return OAuthToken{}, fmt.Errorf("%w: access token expiry must follow creation", ErrInvalidToken)
	case t.RefreshToken != nil && t.RefreshToken.Value == "":
		return OAuthToken{}, fmt.Errorf("%w: empty refresh token", ErrInvalidToken)
	case requireSenderConstraint && t.AccessToken.ClientCertThumbprint == "":
		return OAuthToken{}, ErrUnboundSenderConstrainedToken
	}

	if t.TokenType == "" {
		t.TokenType = TokenTypeBearer
	}
	t.Scopes = slices.Clone(t.Scopes)
	return t, nil
}

func (t OAuthToken) HasRefreshToken() bool { return t.RefreshToken != nil }

func (t OAuthToken) IsSenderConstrained() bool { return t.AccessToken.ClientCertThumbprint != "" }

func (t OAuthToken) AccessExpired(now time.Time) bool { return !now.Before(t.AccessToken.ExpiresAt) }

// RefreshActive reports whether a refresh token exists and is unexpired.
func (t OAuthToken) RefreshActive(now time.Time) bool {
	return t.RefreshToken != nil && now.Before(t.RefreshToken.ExpiresAt)
}

// ExpiresAt is when the whole row can be swept.
func (t OAuthToken) ExpiresAt() time.Time {
	if t.RefreshToken != nil && t.RefreshToken.ExpiresAt.After(t.AccessToken.ExpiresAt) {
		return t.RefreshToken.ExpiresAt
	}
	return t.AccessToken.ExpiresAt
}
