package authsdk

import "encoding/json"

// TokenResponse is the RFC 6749 section 5.1 success body.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	Scope        string `json:"scope,omitempty"`

	// AuthorizationDetails echoes granted RAR entries.
	AuthorizationDetails json.RawMessage `json:"authorization_details,omitempty"`
}

// IntrospectionResponse is the RFC 7662 body. Inactive tokens carry only
// Active=false.
type IntrospectionResponse struct {
	Active    bool     `json:"active"`
	Scope     string   `json:"scope,omitempty"`
	ClientID  string   `json:"client_id,omitempty"`
	Username  string   `json:"username,omitempty"`
	TokenType string   `json:"token_type,omitempty"`
	Exp       int64    `json:"exp,omitempty"`
	Iat       int64    `json:"iat,omitempty"`
	Sub       string   `json:"sub,omitempty"`
	Aud       []string `json:"aud,omitempty"`
	Iss       string   `json:"iss,omitempty"`

	// Cnf carries the certificate binding, {"x5t#S256": "..."}.
	Cnf map[string]string `json:"cnf,omitempty"`
}

// AuthorizationResponse is returned by the authorization endpoint when the
// request has been accepted and is awaiting user authentication.
type AuthorizationResponse struct {
	ID       string `json:"id"`
	Profile  string `json:"profile"`
	LoginURI string `json:"login_uri,omitempty"`
}

// RedirectResponse is returned by the authorize and deny endpoints.
type RedirectResponse struct {
	RedirectURI string `json:"redirect_uri"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// RotateKeyRequest is the body of the admin key rotation endpoint.
type RotateKeyRequest struct {
	RetireExisting bool `json:"retire_existing"`
}

type RotateKeyResponse struct {
	NewKID      string   `json:"new_kid"`
	RetiredKIDs []string `json:"retired_kids,omitempty"`
	ActiveKeys  int      `json:"active_keys"`
}
