package domain

import "time"

// AuthorizationCode is a single use code issued once the user has
// authenticated. Only the fingerprint of the code is stored.
type AuthorizationCode struct {
	ID                     string
	TenantID               string
	CodeHash               string
	AuthorizationRequestID string
	ClientID               string
	UserID                 string
	Username               string

	// RedirectURI as sent in the authorization request, empty when omitted.
	RedirectURI          string
	Scopes               []string
	Nonce                string
	CodeChallenge        string
	CodeChallengeMethod  string
	AuthorizationDetails []AuthorizationDetail
	AMR                  []string

	AuthTime  time.Time
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (c AuthorizationCode) IsExpired(now time.Time) bool { return !now.Before(c.ExpiresAt) }
