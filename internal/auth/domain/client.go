package domain

import (
	"encoding/json"
	"slices"
	"time"
)

// Client is a registered OAuth client within one tenant.
type Client struct {
	TenantID   string
	ClientID   string
	Name       string
	SecretHash string // argon2id PHC string, empty for public clients

	TokenEndpointAuthMethod string
	RedirectURIs            []string
	GrantTypes              []GrantType
	ResponseTypes           []string
	Scopes                  []string

	// AuthorizationDetailsTypes narrows the tenant RAR allow-list. Empty
	// means the tenant list applies unchanged.
	AuthorizationDetailsTypes []string

	TLSClientCertificateBoundAccessTokens bool
	// TLSClientAuthSubjectDN is matched against the presented certificate
	// for tls_client_auth.
	TLSClientAuthSubjectDN string

	// JWKS verifies signed request objects.
	JWKS json.RawMessage
	// RequestURIs are the prefixes a request_uri must start with.
	RequestURIs []string

	RefreshRotation RefreshRotationOverride

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPublic reports whether the client cannot hold a secret.
func (c Client) IsPublic() bool {
	return c.TokenEndpointAuthMethod == AuthMethodNone
}

func (c Client) AllowsGrant(gt GrantType) bool {
	return slices.Contains(c.GrantTypes, gt)
}

func (c Client) AllowsResponseType(rt ResponseType) bool {
	return rt.In(c.ResponseTypes)
}

// HasRedirectURI is an exact string match against the registered URIs.
func (c Client) HasRedirectURI(uri string) bool {
	return slices.Contains(c.RedirectURIs, uri)
}
