package introspect_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/introspect"
	"github.com/aussiebroadwan/tollgate/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox/cryptoxtest"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newVerifier(t *testing.T) (*introspect.Verifier, *sqlite.Store) {
	t.Helper()
	ctx := context.Background()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	require.NoError(t, s.Tenants().Upsert(ctx, domain.Tenant{
		ID: "acme", Issuer: "https://auth.example/acme", Server: domain.DefaultServerConfiguration(), CreatedAt: now,
	}))
	require.NoError(t, s.Users().Upsert(ctx, domain.User{
		ID: "user-1", TenantID: "acme", Username: "alice", PasswordHash: "x",
		Status: domain.UserRegistered, CreatedAt: now, UpdatedAt: now,
	}))

	v := introspect.NewVerifier(s)
	v.Now = func() time.Time { return now }
	return v, s
}

func register(t *testing.T, s *sqlite.Store, id, access string, mutate func(*domain.OAuthToken)) {
	t.Helper()
	tok := domain.OAuthToken{
		ID: id, TenantID: "acme", Issuer: "https://auth.example/acme", TokenType: domain.TokenTypeBearer,
		Subject: "user-1", ClientID: "web", Scopes: []string{"read", "write"},
		AccessToken: domain.AccessToken{
			Value: access, Payload: []byte(`{}`), CreatedAt: now.Add(-time.Minute), ExpiresAt: now.Add(time.Minute),
		},
		CreatedAt: now.Add(-time.Minute),
	}
	if mutate != nil {
		mutate(&tok)
	}
	require.NoError(t, s.Tokens().Register(context.Background(), tok))
}

func TestBindingVerifier(t *testing.T) {
	t.Parallel()

	cert, _ := cryptoxtest.SelfSigned(t, "web")
	other, _ := cryptoxtest.SelfSigned(t, "web")
	bound := domain.OAuthToken{AccessToken: domain.AccessToken{ClientCertThumbprint: cryptox.CertificateThumbprint(cert)}}

	var b introspect.BindingVerifier
	require.NoError(t, b.Verify(nil, domain.OAuthToken{}), "unbound tokens pass without a certificate")
	require.NoError(t, b.Verify(other, domain.OAuthToken{}))
	require.NoError(t, b.Verify(cert, bound))

	err := b.Verify(nil, bound)
	require.ErrorIs(t, err, introspect.ErrCertificateBindingInvalid)
	require.ErrorContains(t, err, "missing client certificate")

	require.ErrorIs(t, b.Verify(other, bound), introspect.ErrCertificateBindingInvalid)

	malformed := domain.OAuthToken{AccessToken: domain.AccessToken{ClientCertThumbprint: "%%%"}}
	require.ErrorIs(t, b.Verify(cert, malformed), introspect.ErrCertificateBindingInvalid)
}

func TestVerify(t *testing.T) {
	t.Parallel()

	v, s := newVerifier(t)
	ctx := context.Background()
	cert, _ := cryptoxtest.SelfSigned(t, "web")

	register(t, s, "active", "at-active", nil)
	register(t, s, "expired", "at-expired", func(tok *domain.OAuthToken) {
		tok.AccessToken.ExpiresAt = now
	})
	register(t, s, "refreshable", "at-refreshable", func(tok *domain.OAuthToken) {
		tok.AccessToken.ExpiresAt = now.Add(-time.Second)
		tok.RefreshToken = &domain.RefreshToken{Value: "rt", CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour)}
	})
	register(t, s, "bound", "at-bound", func(tok *domain.OAuthToken) {
		tok.AccessToken.ClientCertThumbprint = cryptox.CertificateThumbprint(cert)
	})
	register(t, s, "orphan", "at-orphan", func(tok *domain.OAuthToken) { tok.Subject = "ghost" })
	register(t, s, "machine", "at-machine", func(tok *domain.OAuthToken) { tok.Subject = "" })
	register(t, s, "stale", "at-stale", func(tok *domain.OAuthToken) {
		tok.AccessToken.ExpiresAt = now.Add(-time.Hour)
		tok.RefreshToken = &domain.RefreshToken{Value: "rt-stale", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now}
	})
	register(t, s, "bound-refresh", "at-bound-refresh", func(tok *domain.OAuthToken) {
		tok.AccessToken.ClientCertThumbprint = cryptox.CertificateThumbprint(cert)
		tok.RefreshToken = &domain.RefreshToken{Value: "rt-bound", CreatedAt: now.Add(-time.Minute), ExpiresAt: now.Add(time.Hour)}
	})

	tests := []struct {
		name string
		in   introspect.Input
		want error
	}{
		{"active", introspect.Input{Token: "at-active"}, nil},
		{"scope subset", introspect.Input{Token: "at-active", Scopes: []string{"read"}}, nil},
		{"empty token", introspect.Input{}, introspect.ErrTokenInvalid},
		{"unknown", introspect.Input{Token: "nope"}, introspect.ErrTokenInvalid},
		{"expired at boundary", introspect.Input{Token: "at-expired"}, introspect.ErrTokenInvalid},
		{"refresh still valid", introspect.Input{Token: "at-refreshable"}, introspect.ErrAccessExpiredRefreshValid},
		{"bound without cert", introspect.Input{Token: "at-bound"}, introspect.ErrCertificateBindingInvalid},
		{"bound with cert", introspect.Input{Token: "at-bound", Certificate: cert}, nil},
		{"insufficient scope", introspect.Input{Token: "at-active", Scopes: []string{"admin"}}, introspect.ErrInsufficientScope},
		{"unknown subject", introspect.Input{Token: "at-orphan"}, introspect.ErrUserInactive},
		{"client token", introspect.Input{Token: "at-machine"}, nil},
		{"refresh token", introspect.Input{Token: "rt"}, nil},
		{"refresh token scope", introspect.Input{Token: "rt", Scopes: []string{"admin"}}, introspect.ErrInsufficientScope},
		{"expired refresh token", introspect.Input{Token: "rt-stale"}, introspect.ErrTokenInvalid},
		{"refresh token of a bound grant", introspect.Input{Token: "rt-bound"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.TenantID = "acme"
			_, err := v.Verify(ctx, tt.in)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("match reports which value was presented", func(t *testing.T) {
		m, err := v.Verify(ctx, introspect.Input{TenantID: "acme", Token: "rt"})
		require.NoError(t, err)
		require.True(t, m.Refresh)
		require.Equal(t, "refreshable", m.Token.ID)
		require.Equal(t, now.Add(time.Hour), m.ExpiresAt())
		require.Equal(t, now.Add(-time.Hour), m.IssuedAt())

		m, err = v.Verify(ctx, introspect.Input{TenantID: "acme", Token: "at-active"})
		require.NoError(t, err)
		require.False(t, m.Refresh)
		require.Equal(t, now.Add(time.Minute), m.ExpiresAt())
	})

	t.Run("other tenant", func(t *testing.T) {
		_, err := v.Verify(ctx, introspect.Input{TenantID: "other", Token: "at-active"})
		require.ErrorIs(t, err, introspect.ErrTokenInvalid)
	})
}

func TestVerifyChecksOrder(t *testing.T) {
	t.Parallel()

	v, s := newVerifier(t)
	ctx := context.Background()

	register(t, s, "t1", "at-1", func(tok *domain.OAuthToken) {
		tok.AccessToken.ClientCertThumbprint = "thumb"
	})
	require.NoError(t, s.Users().Upsert(ctx, domain.User{
		ID: "user-1", TenantID: "acme", Username: "alice", PasswordHash: "x",
		Status: domain.UserDisabled, CreatedAt: now, UpdatedAt: now,
	}))

	// Binding is checked before scope, scope before the subject.
	_, err := v.Verify(ctx, introspect.Input{TenantID: "acme", Token: "at-1", Scopes: []string{"admin"}})
	require.ErrorIs(t, err, introspect.ErrCertificateBindingInvalid)

	register(t, s, "t2", "at-2", nil)
	_, err = v.Verify(ctx, introspect.Input{TenantID: "acme", Token: "at-2", Scopes: []string{"admin"}})
	require.ErrorIs(t, err, introspect.ErrInsufficientScope)

	_, err = v.Verify(ctx, introspect.Input{TenantID: "acme", Token: "at-2"})
	require.ErrorIs(t, err, introspect.ErrUserInactive)
}
