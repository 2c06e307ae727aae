// Package introspect decides whether a presented access or refresh token is
// usable: it exists, is unexpired, is presented with the certificate it is
// bound to, covers the required scopes and belongs to an active user.
package introspect

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
)

var (
	ErrTokenInvalid              = errors.New("introspect: token invalid")
	ErrAccessExpiredRefreshValid = errors.New("introspect: access token expired, refresh token still valid")
	ErrCertificateBindingInvalid = errors.New("introspect: certificate binding invalid")
	ErrInsufficientScope         = errors.New("introspect: insufficient scope")
	ErrUserInactive              = errors.New("introspect: user inactive")
)

// BindingVerifier checks RFC 8705 certificate bound access tokens.
type BindingVerifier struct{}

// Verify passes unbound tokens. A bound token needs the certificate whose
// SHA-256 thumbprint was stamped on it at issuance.
func (BindingVerifier) Verify(cert *x509.Certificate, tok domain.OAuthToken) error {
	if !tok.IsSenderConstrained() {
		return nil
	}
	if cert == nil {
		return fmt.Errorf("%w: missing client certificate", ErrCertificateBindingInvalid)
	}
	if !cryptox.ThumbprintEqual(cryptox.CertificateThumbprint(cert), tok.AccessToken.ClientCertThumbprint) {
		return fmt.Errorf("%w: thumbprint mismatch", ErrCertificateBindingInvalid)
	}
	return nil
}

// Input is one introspection question.
type Input struct {
	TenantID    string
	Token       string
	Scopes      []string
	Certificate *x509.Certificate
}

// Match is the stored token a presented value resolved to.
type Match struct {
	Token domain.OAuthToken
	// Refresh is set when the value was the refresh token.
	Refresh bool
}

// ExpiresAt and IssuedAt describe the presented value, not the whole row.
func (m Match) ExpiresAt() time.Time {
	if m.Refresh {
		return m.Token.RefreshToken.ExpiresAt
	}
	return m.Token.AccessToken.ExpiresAt
}

func (m Match) IssuedAt() time.Time {
	if m.Refresh {
		return m.Token.RefreshToken.CreatedAt
	}
	return m.Token.AccessToken.CreatedAt
}

type Verifier struct {
	Store   store.Store
	Binding BindingVerifier
	Now     func() time.Time
}

func NewVerifier(s store.Store) *Verifier {
	return &Verifier{Store: s, Now: time.Now}
}

// Verify returns the stored token when every check passes, in order:
// existence, expiry, certificate binding, scope, subject status. Values
// are looked up as access tokens first, then as refresh tokens. Binding
// only applies to access tokens.
func (v *Verifier) Verify(ctx context.Context, in Input) (Match, error) {
	if in.Token == "" {
		return Match{}, ErrTokenInvalid
	}

	m, ok, err := v.find(ctx, in.TenantID, in.Token)
	if err != nil {
		return Match{}, err
	}
	if !ok {
		return Match{}, ErrTokenInvalid
	}
	tok := m.Token

	now := v.Now()
	switch {
	case m.Refresh:
		if !tok.RefreshActive(now) {
			return m, ErrTokenInvalid
		}
	case tok.AccessExpired(now):
		if tok.RefreshActive(now) {
			return m, ErrAccessExpiredRefreshValid
		}
		return m, ErrTokenInvalid
	default:
		if err := v.Binding.Verify(in.Certificate, tok); err != nil {
			return m, err
		}
	}

	if !domain.ScopesSubset(in.Scopes, tok.Scopes) {
		return m, ErrInsufficientScope
	}

	if tok.Subject != "" {
		u, err := v.Store.Users().Get(ctx, in.TenantID, tok.Subject)
		if errors.Is(err, store.ErrNotFound) {
			return m, ErrUserInactive
		}
		if err != nil {
			return m, err
		}
		if !u.IsActive() {
			return m, ErrUserInactive
		}
	}
	return m, nil
}

func (v *Verifier) find(ctx context.Context, tenantID, value string) (Match, bool, error) {
	tok, ok, err := v.Store.Tokens().FindByAccessToken(ctx, tenantID, value)
	if err != nil || ok {
		return Match{Token: tok}, ok, err
	}
	tok, ok, err = v.Store.Tokens().FindByRefreshToken(ctx, tenantID, value)
	if err != nil || !ok {
		return Match{}, false, err
	}
	return Match{Token: tok, Refresh: true}, true, nil
}
