package domain

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Tenant is an isolated authorization server. Every token, code and client
// belongs to exactly one tenant and the issuer differs per tenant.
type Tenant struct {
	ID        string
	Issuer    string
	Server    ServerConfiguration
	CreatedAt time.Time
}

// ServerConfiguration is the tenant wide authorization server metadata plus
// the knobs that drive verification and issuance.
type ServerConfiguration struct {
	GrantTypesSupported                []GrantType `json:"grant_types_supported" yaml:"grant_types_supported"`
	ResponseTypesSupported             []string    `json:"response_types_supported" yaml:"response_types_supported"`
	ResponseModesSupported             []string    `json:"response_modes_supported" yaml:"response_modes_supported"`
	ScopesSupported                    []string    `json:"scopes_supported" yaml:"scopes_supported"`
	AuthorizationDetailsTypesSupported []string    `json:"authorization_details_types_supported,omitempty" yaml:"authorization_details_types_supported,omitempty"`

	// Scopes that select the FAPI profiles for a request.
	FAPIBaselineScopes []string `json:"fapi_baseline_scopes,omitempty" yaml:"fapi_baseline_scopes,omitempty"`
	FAPIAdvanceScopes  []string `json:"fapi_advance_scopes,omitempty" yaml:"fapi_advance_scopes,omitempty"`

	TLSClientCertificateBoundAccessTokens bool `json:"tls_client_certificate_bound_access_tokens" yaml:"tls_client_certificate_bound_access_tokens"`

	// DefaultMaxAge applies when a request does not carry max_age. Zero
	// means no default.
	DefaultMaxAge time.Duration `json:"default_max_age,omitempty" yaml:"default_max_age,omitempty"`

	AccessTokenDuration          time.Duration `json:"access_token_duration" yaml:"access_token_duration"`
	IDTokenDuration              time.Duration `json:"id_token_duration" yaml:"id_token_duration"`
	AuthorizationCodeDuration    time.Duration `json:"authorization_code_duration" yaml:"authorization_code_duration"`
	AuthorizationRequestDuration time.Duration `json:"authorization_request_duration" yaml:"authorization_request_duration"`

	// CNonceDuration enables c_nonce issuance for credential issuers.
	CNonceDuration time.Duration `json:"c_nonce_duration,omitempty" yaml:"c_nonce_duration,omitempty"`

	RefreshRotation RefreshRotationPolicy `json:"refresh_rotation" yaml:"refresh_rotation"`

	// LoginURI is where the user agent is sent to authenticate once an
	// authorization request has been accepted. The request id is appended
	// as ?id=.
	LoginURI string `json:"login_uri,omitempty" yaml:"login_uri,omitempty"`
}

// DefaultServerConfiguration is the baseline a tenant starts from.
func DefaultServerConfiguration() ServerConfiguration {
	return ServerConfiguration{
		GrantTypesSupported: []GrantType{
			GrantAuthorizationCode, GrantRefreshToken, GrantClientCredentials, GrantPassword,
		},
		ResponseTypesSupported: []string{"code", "code id_token"},
		ResponseModesSupported: []string{
			ResponseModeQuery, ResponseModeFragment, ResponseModeJWT, ResponseModeQueryJWT, ResponseModeFragmentJWT,
		},
		ScopesSupported:              []string{ScopeOpenID, "profile", "email", "offline_access"},
		AccessTokenDuration:          15 * time.Minute,
		IDTokenDuration:              time.Hour,
		AuthorizationCodeDuration:    time.Minute,
		AuthorizationRequestDuration: 10 * time.Minute,
		RefreshRotation: RefreshRotationPolicy{
			Strategy: RefreshFixed,
			Rotate:   true,
			Duration: 7 * 24 * time.Hour,
		},
	}
}

func (c ServerConfiguration) SupportsGrant(gt GrantType) bool {
	return slices.Contains(c.GrantTypesSupported, gt)
}

func (c ServerConfiguration) SupportsResponseType(rt ResponseType) bool {
	return rt.In(c.ResponseTypesSupported)
}

func (c ServerConfiguration) SupportsResponseMode(mode string) bool {
	return slices.Contains(c.ResponseModesSupported, mode)
}

func (c ServerConfiguration) Validate() error {
	var errs []error
	if c.AccessTokenDuration <= 0 {
		errs = append(errs, errors.New("access_token_duration must be positive"))
	}
	if c.IDTokenDuration <= 0 {
		errs = append(errs, errors.New("id_token_duration must be positive"))
	}
	if c.AuthorizationCodeDuration <= 0 {
		errs = append(errs, errors.New("authorization_code_duration must be positive"))
	}
	if c.AuthorizationRequestDuration <= 0 {
		errs = append(errs, errors.New("authorization_request_duration must be positive"))
	}
	if err := c.RefreshRotation.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("domain: server configuration: %w", err)
	}
	return nil
}
