package auth_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TestClientCredentialsFlow tests the client_credentials grant with a stock
// OAuth client:
// 1. Billing service authenticates with HTTP Basic
// 2. Token carries only the requested scope and no refresh token
// 3. Billing service introspects its own token
func TestClientCredentialsFlow(t *testing.T) {
	t.Parallel()
	srv := startServer(t)

	conf := clientcredentials.Config{
		ClientID:     billingClientID,
		ClientSecret: billingClientSecret,
		TokenURL:     srv.URL + "/acme/v1/tokens",
		Scopes:       []string{"invoices:read"},
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	tok, err := conf.Token(t.Context())
	require.NoError(t, err)
	require.NotEmpty(t, tok.AccessToken)
	require.Equal(t, "Bearer", tok.TokenType)
	require.Empty(t, tok.RefreshToken, "client credentials should NOT return a refresh token")
	require.Equal(t, "invoices:read", tok.Extra("scope"))
	require.True(t, tok.Valid())

	info, err := srv.sdk(tenantID, billingClientID, billingClientSecret).Introspect(t.Context(), tok.AccessToken)
	require.NoError(t, err)
	require.True(t, info.Active, "bot token should be active")
	require.Equal(t, billingClientID, info.ClientID)
	require.Equal(t, "invoices:read", info.Scope)
	require.Equal(t, srv.issuer(tenantID), info.Iss)

	t.Logf("client credentials token introspected, expires %d", info.Exp)
}

// TestClientCredentialsAllScopes verifies that omitting scope grants every
// registered scope.
func TestClientCredentialsAllScopes(t *testing.T) {
	t.Parallel()
	srv := startServer(t)

	resp, err := srv.sdk(tenantID, billingClientID, billingClientSecret).ClientCredentials(t.Context())
	require.NoError(t, err)
	require.Equal(t, "invoices:read invoices:write", resp.Scope)
	require.Positive(t, resp.ExpiresIn)
}

// TestClientCredentialsSecretPost verifies clients registered for
// client_secret_post and that they cannot switch to Basic.
func TestClientCredentialsSecretPost(t *testing.T) {
	t.Parallel()
	srv := startServer(t)

	conf := clientcredentials.Config{
		ClientID:     posterClientID,
		ClientSecret: posterClientSecret,
		TokenURL:     srv.URL + "/acme/v1/tokens",
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	tok, err := conf.Token(t.Context())
	require.NoError(t, err)
	require.NotEmpty(t, tok.AccessToken)

	conf.AuthStyle = oauth2.AuthStyleInHeader
	_, err = conf.Token(t.Context())
	var re *oauth2.RetrieveError
	require.ErrorAs(t, err, &re)
	require.Equal(t, http.StatusUnauthorized, re.Response.StatusCode)
	require.Equal(t, "invalid_client", re.ErrorCode)
}

// TestClientCredentialsRejected covers the ways a client_credentials call
// fails.
func TestClientCredentialsRejected(t *testing.T) {
	t.Parallel()
	srv := startServer(t)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := srv.sdk(tenantID, billingClientID, "wrong-secret").ClientCredentials(t.Context())
		assertOAuthError(t, err, http.StatusUnauthorized, "invalid_client")
	})

	t.Run("public client", func(t *testing.T) {
		_, err := srv.sdk(tenantID, "web", "").ClientCredentials(t.Context())
		assertOAuthError(t, err, http.StatusBadRequest, "unauthorized_client")
	})

	t.Run("scope not registered", func(t *testing.T) {
		_, err := srv.sdk(tenantID, billingClientID, billingClientSecret).ClientCredentials(t.Context(), "admin:write")
		assertOAuthError(t, err, http.StatusBadRequest, "invalid_scope")
	})

	t.Run("client from another tenant", func(t *testing.T) {
		_, err := srv.sdk("globex", billingClientID, billingClientSecret).ClientCredentials(t.Context())
		assertOAuthError(t, err, http.StatusUnauthorized, "invalid_client")
	})

	t.Run("basic and post together", func(t *testing.T) {
		header := http.Header{}
		req, _ := http.NewRequest(http.MethodPost, "/", nil)
		req.SetBasicAuth(billingClientID, billingClientSecret)
		header.Set("Authorization", req.Header.Get("Authorization"))

		resp := postForm(t, srv.URL+"/acme/v1/tokens", url.Values{
			"grant_type":    {"client_credentials"},
			"client_secret": {billingClientSecret},
		}, header)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
