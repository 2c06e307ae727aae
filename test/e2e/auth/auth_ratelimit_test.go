package auth_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRateLimit boots a server with a tiny strict limit and verifies the
// token and login endpoints start refusing requests. It cannot run in
// parallel because limits are read from the environment.
func TestRateLimit(t *testing.T) {
	t.Setenv("RATELIMIT_STRICT_REQUESTS", "3")
	t.Setenv("RATELIMIT_STRICT_BURST", "3")
	t.Setenv("RATELIMIT_STRICT_WINDOW_SEC", "3600")
	srv := startServer(t)

	t.Run("token endpoint by IP", func(t *testing.T) {
		var codes []int
		for range 5 {
			resp := postForm(t, srv.URL+"/acme/v1/tokens", url.Values{"grant_type": {"client_credentials"}},
				http.Header{"X-Forwarded-For": {"203.0.113.7"}})
			_ = resp.Body.Close()
			codes = append(codes, resp.StatusCode)
		}
		require.Equal(t, http.StatusTooManyRequests, codes[len(codes)-1], "status codes: %v", codes)

		// Another address has its own bucket
		resp := postForm(t, srv.URL+"/acme/v1/tokens", url.Values{"grant_type": {"client_credentials"}},
			http.Header{"X-Forwarded-For": {"203.0.113.8"}})
		_ = resp.Body.Close()
		require.NotEqual(t, http.StatusTooManyRequests, resp.StatusCode)
	})

	t.Run("login by IP and username", func(t *testing.T) {
		login := func(username string) int {
			resp := postForm(t, srv.URL+"/acme/v1/authorizations/missing/authorize",
				url.Values{"username": {username}, "password": {"guess"}},
				http.Header{"X-Forwarded-For": {"203.0.113.9"}})
			_ = resp.Body.Close()
			return resp.StatusCode
		}

		var last int
		for range 5 {
			last = login(aliceUsername)
		}
		require.Equal(t, http.StatusTooManyRequests, last)
		require.Equal(t, http.StatusNotFound, login("bob"), "other usernames from the same address are unaffected")
	})

	t.Run("public endpoints use their own limit", func(t *testing.T) {
		resp := get(t, srv.URL+"/acme/v1/jwks")
		_ = resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
