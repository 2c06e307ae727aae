package http_test

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tollgate/internal/auth/grant"
	authhttp "github.com/aussiebroadwan/tollgate/internal/auth/http"
	"github.com/aussiebroadwan/tollgate/internal/auth/introspect"
	"github.com/aussiebroadwan/tollgate/internal/auth/metrics"
	"github.com/aussiebroadwan/tollgate/internal/auth/request"
	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tollgate/internal/auth/token"
	"github.com/aussiebroadwan/tollgate/internal/auth/verifier"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox/cryptoxtest"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

const (
	adminToken    = "admin-token"
	certHeader    = "X-Client-Cert"
	callback      = "https://app.example/cb"
	codeVerifier  = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	alicePassword = "correct horse battery staple"
	billingSecret = "billing-secret"
)

const seedYAML = `
tenants:
  - id: acme
    issuer: https://auth.example/acme
    clients:
      - client_id: web
        redirect_uris: [https://app.example/cb]
        grant_types: [authorization_code, refresh_token]
        response_types: [code]
        scopes: [openid, profile, email]
      - client_id: billing
        secret: billing-secret
        grant_types: [client_credentials]
        scopes: ["invoices:read", "invoices:write"]
      - client_id: poster
        secret: billing-secret
        token_endpoint_auth_method: client_secret_post
        grant_types: [client_credentials]
        scopes: ["invoices:read"]
    users:
      - id: user-1
        username: alice
        password: correct horse battery staple
        status: IDENTITY_VERIFIED
  - id: portal
    server:
      login_uri: https://login.example/signin
    clients:
      - client_id: web
        redirect_uris: [https://app.example/cb]
        grant_types: [authorization_code]
        response_types: [code]
        scopes: [openid]
`

type server struct {
	handler http.Handler
	keys    *jwtx.KeyManager
}

func newServer(t *testing.T, mtlsSubject string) *server {
	t.Helper()
	ctx := context.Background()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	seed, err := service.ParseSeed(strings.NewReader(seedYAML))
	require.NoError(t, err)
	if mtlsSubject != "" {
		seed.Tenants[0].Clients = append(seed.Tenants[0].Clients, service.SeedClient{
			ClientID:                "mtls",
			TokenEndpointAuthMethod: "tls_client_auth",
			TLSClientAuthSubjectDN:  mtlsSubject,
			GrantTypes:              seed.Tenants[0].Clients[1].GrantTypes,
			Scopes:                  []string{"invoices:read"},
		})
	}
	bootstrap := &service.BootstrapService{Store: s, PublicURL: "https://auth.example"}
	require.NoError(t, bootstrap.Apply(ctx, seed))

	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmES256, NumKeys: 1})
	require.NoError(t, err)

	builder := token.NewBuilder(km)
	password := service.PasswordAuthenticator{}
	registry, err := grant.NewRegistry(
		grant.NewAuthorizationCodeService(builder),
		grant.NewRefreshTokenService(builder),
		grant.NewClientCredentialsService(builder),
		grant.NewPasswordService(builder, password),
	)
	require.NoError(t, err)

	m := metrics.New()
	clients := &service.ClientAuthenticator{Store: s}

	router := authhttp.NewRouter(km, s, m, slogx.Discard())
	router.CertHeader = certHeader
	router.AdminToken = adminToken
	lenient := httpx.RateLimit{Requests: 10000, Window: time.Minute, Burst: 10000}
	router.Limits = authhttp.Limits{Strict: lenient, Moderate: lenient, Public: lenient}
	router.AuthorizeService = &service.AuthorizeService{
		Store:         s,
		Pipeline:      verifier.Default().WithObserver(m),
		Jose:          request.NewJoseHandler(),
		Tokens:        builder,
		Authenticator: password,
		Observer:      m,
	}
	router.TokenService = &service.TokenService{Store: s, Clients: clients, Grants: registry, Observer: m}
	router.IntrospectionService = &service.IntrospectionService{Clients: clients, Verifier: introspect.NewVerifier(s), Observer: m}
	router.RevocationService = &service.RevocationService{Store: s, Clients: clients}
	router.KeyRotationService = &service.KeyRotationService{KeyManager: km}
	router.ApplyRoutes()

	return &server{handler: router, keys: km}
}

func (s *server) do(t *testing.T, method, target string, form url.Values, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	r := httptest.NewRequest(method, target, body)
	if form != nil {
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range header {
		r.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)
	return rec
}

func basic(id, secret string) http.Header {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.SetBasicAuth(url.QueryEscape(id), url.QueryEscape(secret))
	return http.Header{"Authorization": r.Header["Authorization"]}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func s256(v string) string {
	sum := sha256.Sum256([]byte(v))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func codeRequest(extra url.Values) url.Values {
	q := url.Values{
		"client_id":             {"web"},
		"response_type":         {"code"},
		"redirect_uri":          {callback},
		"scope":                 {"openid profile"},
		"state":                 {"af0ifjsldkj"},
		"nonce":                 {"n-0S6_WzA2Mj"},
		"code_challenge":        {s256(codeVerifier)},
		"code_challenge_method": {"S256"},
	}
	for k, v := range extra {
		if len(v) == 0 || v[0] == "" {
			q.Del(k)
			continue
		}
		q[k] = v
	}
	return q
}

func TestClientCredentialsOverHTTP(t *testing.T) {
	t.Parallel()

	srv := newServer(t, "")

	t.Run("basic", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/acme/v1/tokens",
			url.Values{"grant_type": {"client_credentials"}, "scope": {"invoices:read"}},
			basic("billing", billingSecret))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		tok := decode[authsdk.TokenResponse](t, rec)
		require.NotEmpty(t, tok.AccessToken)
		require.Equal(t, "invoices:read", tok.Scope)
		require.Positive(t, tok.ExpiresIn)
		require.Empty(t, tok.RefreshToken)
	})

	t.Run("post", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/acme/v1/tokens", url.Values{
			"grant_type":    {"client_credentials"},
			"client_id":     {"poster"},
			"client_secret": {billingSecret},
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})
}

func TestTokenEndpointErrors(t *testing.T) {
	t.Parallel()

	srv := newServer(t, "")
	ccForm := url.Values{"grant_type": {"client_credentials"}}

	tests := []struct {
		name   string
		target string
		form   url.Values
		header http.Header
		status int
		code   string
	}{
		{"wrong secret", "/acme/v1/tokens", ccForm, basic("billing", "nope"), http.StatusUnauthorized, "invalid_client"},
		{"unknown client", "/acme/v1/tokens", ccForm, basic("ghost", "x"), http.StatusUnauthorized, "invalid_client"},
		{"basic and post together", "/acme/v1/tokens", url.Values{
			"grant_type": {"client_credentials"}, "client_secret": {billingSecret},
		}, basic("billing", billingSecret), http.StatusBadRequest, "invalid_request"},
		{"unsupported grant", "/acme/v1/tokens", url.Values{"grant_type": {"urn:example:magic"}},
			basic("billing", billingSecret), http.StatusBadRequest, "unsupported_grant_type"},
		{"grant not registered for client", "/acme/v1/tokens", url.Values{
			"grant_type": {"password"}, "username": {"alice"}, "password": {alicePassword},
		}, basic("billing", billingSecret), http.StatusBadRequest, "unauthorized_client"},
		{"scope outside registration", "/acme/v1/tokens", url.Values{
			"grant_type": {"client_credentials"}, "scope": {"admin"},
		}, basic("billing", billingSecret), http.StatusBadRequest, "invalid_scope"},
		{"unknown tenant", "/nowhere/v1/tokens", ccForm, basic("billing", billingSecret), http.StatusNotFound, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPost, tt.target, tt.form, tt.header)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			e := decode[authsdk.OAuth2Error](t, rec)
			require.Equal(t, tt.code, e.Code)
			if tt.code == "invalid_client" {
				require.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}

	t.Run("json body is rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/acme/v1/tokens", strings.NewReader(`{"grant_type":"client_credentials"}`))
		r.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		srv.handler.ServeHTTP(rec, r)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuthorizationCodeOverHTTP(t *testing.T) {
	t.Parallel()

	srv := newServer(t, "")

	rec := srv.do(t, http.MethodGet, "/acme/v1/authorizations?"+codeRequest(nil).Encode(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	accepted := decode[authsdk.AuthorizationResponse](t, rec)
	require.NotEmpty(t, accepted.ID)
	require.Equal(t, "OIDC", accepted.Profile)

	loginPath := "/acme/v1/authorizations/" + accepted.ID + "/authorize"

	t.Run("wrong password keeps the request pending", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, loginPath, url.Values{"username": {"alice"}, "password": {"wrong"}}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "access_denied", decode[authsdk.OAuth2Error](t, rec).Code)
	})

	rec = srv.do(t, http.MethodPost, loginPath, url.Values{"username": {"alice"}, "password": {alicePassword}}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	redirect := decode[authsdk.RedirectResponse](t, rec)
	u, err := url.Parse(redirect.RedirectURI)
	require.NoError(t, err)
	require.Equal(t, "af0ifjsldkj", u.Query().Get("state"))
	code := u.Query().Get("code")
	require.NotEmpty(t, code)

	rec = srv.do(t, http.MethodPost, loginPath, url.Values{"username": {"alice"}, "password": {alicePassword}}, nil)
	require.Equal(t, http.StatusNotFound, rec.Code, "the request was answered by the first login")

	rec = srv.do(t, http.MethodPost, "/acme/v1/tokens", url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {"web"},
		"code":          {code},
		"redirect_uri":  {callback},
		"code_verifier": {codeVerifier},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tok := decode[authsdk.TokenResponse](t, rec)
	require.NotEmpty(t, tok.RefreshToken)
	require.NotEmpty(t, tok.IDToken)

	var claims token.IDClaims
	require.NoError(t, srv.keys.Verifier("https://auth.example/acme").Verify(tok.IDToken, &claims))
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "n-0S6_WzA2Mj", claims.Nonce)

	t.Run("code is single use", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/acme/v1/tokens", url.Values{
			"grant_type":    {"authorization_code"},
			"client_id":     {"web"},
			"code":          {code},
			"redirect_uri":  {callback},
			"code_verifier": {codeVerifier},
		}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "invalid_grant", decode[authsdk.OAuth2Error](t, rec).Code)
	})

	introspect := func(t *testing.T, value string) authsdk.IntrospectionResponse {
		t.Helper()
		rec := srv.do(t, http.MethodPost, "/acme/v1/tokens/introspection",
			url.Values{"client_id": {"web"}, "token": {value}}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decode[authsdk.IntrospectionResponse](t, rec)
	}

	info := introspect(t, tok.AccessToken)
	require.True(t, info.Active)
	require.Equal(t, "user-1", info.Sub)
	require.Equal(t, "web", info.ClientID)
	require.Equal(t, "https://auth.example/acme", info.Iss)

	require.False(t, introspect(t, "not-a-token").Active)

	refreshInfo := introspect(t, tok.RefreshToken)
	require.True(t, refreshInfo.Active)
	require.Equal(t, "user-1", refreshInfo.Sub)
	require.Empty(t, refreshInfo.TokenType, "token_type describes access tokens")
	require.Greater(t, refreshInfo.Exp, info.Exp)

	rec = srv.do(t, http.MethodPost, "/acme/v1/tokens/revocation",
		url.Values{"client_id": {"web"}, "token": {tok.RefreshToken}, "token_type_hint": {"refresh_token"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.JSONEq(t, `{}`, rec.Body.String())

	require.False(t, introspect(t, tok.AccessToken).Active, "revoking the refresh token drops the grant")

	rec = srv.do(t, http.MethodPost, "/acme/v1/tokens", url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {"web"},
		"refresh_token": {tok.RefreshToken},
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_grant", decode[authsdk.OAuth2Error](t, rec).Code)
}

func TestAuthorizationRequestOverHTTP(t *testing.T) {
	t.Parallel()

	srv := newServer(t, "")

	t.Run("post form", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/acme/v1/authorizations", codeRequest(nil), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.NotEmpty(t, decode[authsdk.AuthorizationResponse](t, rec).ID)
	})

	t.Run("tenant login uri gets a redirect", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/portal/v1/authorizations?"+codeRequest(url.Values{"scope": {"openid"}}).Encode(), nil, nil)
		require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "login.example", loc.Host)
		require.NotEmpty(t, loc.Query().Get("id"))
	})

	t.Run("missing pkce redirects the error", func(t *testing.T) {
		q := codeRequest(url.Values{"code_challenge": nil, "code_challenge_method": nil})
		rec := srv.do(t, http.MethodGet, "/acme/v1/authorizations?"+q.Encode(), nil, nil)
		require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(loc.String(), callback))
		require.Equal(t, "invalid_request", loc.Query().Get("error"))
		require.Equal(t, "af0ifjsldkj", loc.Query().Get("state"))
	})

	t.Run("unregistered redirect uri is not followed", func(t *testing.T) {
		q := codeRequest(url.Values{"redirect_uri": {"https://evil.example/cb"}})
		rec := srv.do(t, http.MethodGet, "/acme/v1/authorizations?"+q.Encode(), nil, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		require.Empty(t, rec.Header().Get("Location"))
	})

	t.Run("deny", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/acme/v1/authorizations?"+codeRequest(nil).Encode(), nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		id := decode[authsdk.AuthorizationResponse](t, rec).ID

		rec = srv.do(t, http.MethodPost, "/acme/v1/authorizations/"+id+"/deny", url.Values{}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		u, err := url.Parse(decode[authsdk.RedirectResponse](t, rec).RedirectURI)
		require.NoError(t, err)
		require.Equal(t, "access_denied", u.Query().Get("error"))

		rec = srv.do(t, http.MethodPost, "/acme/v1/authorizations/"+id+"/deny", url.Values{}, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown request", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/acme/v1/authorizations/missing/authorize",
			url.Values{"username": {"alice"}, "password": {alicePassword}}, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing credentials", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/acme/v1/authorizations/missing/authorize", url.Values{"username": {"alice"}}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMutualTLSViaProxyHeader(t *testing.T) {
	t.Parallel()

	cert, pemBytes := cryptoxtest.SelfSigned(t, "billing-service")
	_, otherPEM := cryptoxtest.SelfSigned(t, "someone-else")
	srv := newServer(t, cert.Subject.String())

	form := url.Values{"grant_type": {"client_credentials"}, "client_id": {"mtls"}}

	rec := srv.do(t, http.MethodPost, "/acme/v1/tokens", form,
		http.Header{certHeader: {url.QueryEscape(string(pemBytes))}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/acme/v1/tokens", form,
		http.Header{certHeader: {url.QueryEscape(string(otherPEM))}})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodPost, "/acme/v1/tokens", form,
		http.Header{certHeader: {"garbage"}})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSystemEndpoints(t *testing.T) {
	t.Parallel()

	srv := newServer(t, "")

	t.Run("jwks", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/acme/v1/jwks", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var set struct {
			Keys []map[string]any `json:"keys"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
		require.Len(t, set.Keys, 1)
		require.Equal(t, "ES256", set.Keys[0]["alg"])
		require.NotContains(t, set.Keys[0], "d", "private material must never be published")
	})

	t.Run("jwks unknown tenant", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/nowhere/v1/jwks", nil, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("livez", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/livez", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "ok", decode[authsdk.HealthResponse](t, rec).Status)
	})

	t.Run("readyz", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/readyz", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		srv.do(t, http.MethodPost, "/acme/v1/tokens", url.Values{"grant_type": {"client_credentials"}}, basic("billing", billingSecret))
		rec := srv.do(t, http.MethodGet, "/metrics", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "tollgate_tokens_issued_total")
	})
}

func TestAdminKeyRotation(t *testing.T) {
	t.Parallel()

	srv := newServer(t, "")
	before := srv.keys.KIDs()
	require.Len(t, before, 1)

	rec := srv.do(t, http.MethodPost, "/admin/keys/rotate", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodPost, "/admin/keys/rotate", nil,
		http.Header{"Authorization": {"Bearer wrong"}})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	auth := http.Header{"Authorization": {"Bearer " + adminToken}}
	r := httptest.NewRequest(http.MethodPost, "/admin/keys/rotate", strings.NewReader(`{"retire_existing":true}`))
	r.Header = auth.Clone()
	r.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, r)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[authsdk.RotateKeyResponse](t, rec)
	require.NotEmpty(t, res.NewKID)
	require.Equal(t, before, res.RetiredKIDs)
	require.Equal(t, 1, res.ActiveKeys)

	// Retired keys stay published so outstanding tokens still verify.
	rec = srv.do(t, http.MethodGet, "/acme/v1/jwks", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), before[0])
	require.Contains(t, rec.Body.String(), res.NewKID)

	rec = srv.do(t, http.MethodPost, "/admin/keys/"+res.NewKID+"/retire", nil, auth)
	require.Equal(t, http.StatusBadRequest, rec.Code, "the last signing key cannot be retired")
}
