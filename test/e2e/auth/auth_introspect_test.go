package auth_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
)

// TestIntrospection verifies RFC 7662 behaviour: any failure to validate the
// token is reported as inactive, never as an error.
func TestIntrospection(t *testing.T) {
	t.Parallel()
	srv := startServer(t)

	billing := srv.sdk(tenantID, billingClientID, billingClientSecret)
	tok, err := billing.ClientCredentials(t.Context(), "invoices:read")
	require.NoError(t, err)

	t.Run("active", func(t *testing.T) {
		info, err := billing.Introspect(t.Context(), tok.AccessToken)
		require.NoError(t, err)
		require.True(t, info.Active)
		require.Equal(t, "Bearer", info.TokenType)
		require.Greater(t, info.Exp, info.Iat)
	})

	t.Run("required scope held", func(t *testing.T) {
		info, err := billing.Introspect(t.Context(), tok.AccessToken, "invoices:read")
		require.NoError(t, err)
		require.True(t, info.Active)
	})

	t.Run("required scope missing", func(t *testing.T) {
		info, err := billing.Introspect(t.Context(), tok.AccessToken, "invoices:write")
		require.NoError(t, err)
		require.False(t, info.Active)
	})

	t.Run("garbage token", func(t *testing.T) {
		info, err := billing.Introspect(t.Context(), "not-a-token")
		require.NoError(t, err)
		require.Equal(t, authsdk.IntrospectionResponse{Active: false}, *info, "inactive responses carry nothing else")
	})

	t.Run("another tenant", func(t *testing.T) {
		info, err := srv.sdk("globex", "web", "").Introspect(t.Context(), tok.AccessToken)
		require.NoError(t, err)
		require.False(t, info.Active)
	})

	t.Run("caller must authenticate", func(t *testing.T) {
		_, err := srv.sdk(tenantID, billingClientID, "wrong").Introspect(t.Context(), tok.AccessToken)
		assertOAuthError(t, err, http.StatusUnauthorized, "invalid_client")
	})

	t.Run("unreadable forwarded certificate", func(t *testing.T) {
		resp := postForm(t, srv.URL+"/acme/v1/tokens/introspection", url.Values{
			"client_id":          {"web"},
			"token":              {tok.AccessToken},
			"client_certificate": {"garbage"},
		}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.False(t, decodeJSON[authsdk.IntrospectionResponse](t, resp).Active)
	})
}

// TestRevocation verifies RFC 7009 revocation of access and refresh tokens.
func TestRevocation(t *testing.T) {
	t.Parallel()
	srv := startServer(t)
	web := srv.sdk(tenantID, "web", "")

	t.Run("refresh token", func(t *testing.T) {
		tok := loginWithCode(t, srv, "nonce-revoke")

		require.NoError(t, web.Revoke(t.Context(), tok.RefreshToken, "refresh_token"))

		info, err := web.Introspect(t.Context(), tok.AccessToken)
		require.NoError(t, err)
		require.False(t, info.Active, "revoking the refresh token also drops its access token")

		_, err = web.Refresh(t.Context(), tok.RefreshToken)
		assertOAuthError(t, err, http.StatusBadRequest, "invalid_grant")
	})

	t.Run("access token without hint", func(t *testing.T) {
		tok := loginWithCode(t, srv, "nonce-revoke-2")

		require.NoError(t, web.Revoke(t.Context(), tok.AccessToken, ""))

		info, err := web.Introspect(t.Context(), tok.AccessToken)
		require.NoError(t, err)
		require.False(t, info.Active)
	})

	t.Run("unknown token succeeds", func(t *testing.T) {
		require.NoError(t, web.Revoke(t.Context(), "never-issued", ""))
	})

	t.Run("another client's token is left alone", func(t *testing.T) {
		billing := srv.sdk(tenantID, billingClientID, billingClientSecret)
		tok, err := billing.ClientCredentials(t.Context())
		require.NoError(t, err)

		require.NoError(t, web.Revoke(t.Context(), tok.AccessToken, "access_token"))

		info, err := billing.Introspect(t.Context(), tok.AccessToken)
		require.NoError(t, err)
		require.True(t, info.Active)
	})

	t.Run("unsupported hint", func(t *testing.T) {
		err := web.Revoke(t.Context(), "whatever", "id_token")
		assertOAuthError(t, err, http.StatusBadRequest, "unsupported_token_type")
	})
}
