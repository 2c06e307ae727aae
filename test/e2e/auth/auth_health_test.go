package auth_test

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func get(t *testing.T, target string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, target, nil)
	require.NoError(t, err)
	resp, err := noRedirectClient().Do(req)
	require.NoError(t, err)
	return resp
}

// TestHealthEndpoints verifies liveness and readiness.
func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	srv := startServer(t)

	assertHealthy(t, get(t, srv.URL+"/livez"))
	assertHealthy(t, get(t, srv.URL+"/readyz"))
}

// TestMetricsEndpoint verifies token issuance shows up in the Prometheus
// exposition.
func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	srv := startServer(t)

	_, err := srv.sdk(tenantID, billingClientID, billingClientSecret).ClientCredentials(t.Context())
	require.NoError(t, err)
	_, err = srv.sdk(tenantID, billingClientID, "wrong").ClientCredentials(t.Context())
	require.Error(t, err)

	resp := get(t, srv.URL+"/metrics")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `tollgate_tokens_issued_total{grant_type="client_credentials",tenant="acme"} 1`)
	require.Contains(t, string(body), `tollgate_token_errors_total{error="invalid_client",grant_type="client_credentials"} 1`)
}

// TestSwaggerUI verifies the API documentation is served.
func TestSwaggerUI(t *testing.T) {
	t.Parallel()
	srv := startServer(t)

	resp := get(t, srv.URL+"/swagger/doc.json")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "/{tenant}/v1/tokens")
}
