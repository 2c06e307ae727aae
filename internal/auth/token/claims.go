// Package token builds the signed artefacts handed to clients: access
// tokens, refresh tokens, ID tokens and JARM responses.
package token

import (
	"encoding/json"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
)

// Confirmation is the RFC 8705 cnf claim.
type Confirmation struct {
	X5TS256 string `json:"x5t#S256"`
}

// AccessClaims are the claims of an access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	TenantID             string                       `json:"tid"`
	ClientID             string                       `json:"client_id"`
	Scope                string                       `json:"scope,omitempty"`
	Username             string                       `json:"username,omitempty"`
	AuthorizationDetails []domain.AuthorizationDetail `json:"authorization_details,omitempty"`
	Cnf                  *Confirmation                `json:"cnf,omitempty"`
	// Extra carries the grant's custom properties.
	Extra map[string]any `json:"ext,omitempty"`
}

// IDClaims are the claims of an OpenID Connect ID token.
type IDClaims struct {
	jwt.RegisteredClaims
	AuthorizedParty   string   `json:"azp,omitempty"`
	Nonce             string   `json:"nonce,omitempty"`
	AuthTime          int64    `json:"auth_time,omitempty"`
	AMR               []string `json:"amr,omitempty"`
	AccessTokenHash   string   `json:"at_hash,omitempty"`
	CodeHash          string   `json:"c_hash,omitempty"`
	StateHash         string   `json:"s_hash,omitempty"`
	PreferredUsername string   `json:"preferred_username,omitempty"`
}

// ResponseClaims are the claims of a JARM authorization response.
type ResponseClaims struct {
	jwt.RegisteredClaims
	Params map[string]string `json:"-"`
}

// MarshalJSON flattens Params next to the registered claims, as JARM
// requires.
func (c ResponseClaims) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	for k, v := range c.Params {
		out[k] = v
	}
	out["iss"] = c.Issuer
	out["aud"] = c.Audience
	if c.ExpiresAt != nil {
		out["exp"] = c.ExpiresAt.Unix()
	}
	if c.IssuedAt != nil {
		out["iat"] = c.IssuedAt.Unix()
	}
	return json.Marshal(out)
}
