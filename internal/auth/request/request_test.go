package request_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/oautherr"
	"github.com/aussiebroadwan/tollgate/internal/auth/request"
	"github.com/aussiebroadwan/tollgate/internal/auth/request/requesttest"
)

func params(kv ...string) request.Parameters {
	p := request.Parameters{}
	for i := 0; i+1 < len(kv); i += 2 {
		p[kv[i]] = []string{kv[i+1]}
	}
	return p
}

func requireCode(t *testing.T, err error, kind oautherr.Kind, code string) {
	t.Helper()
	require.Error(t, err)
	e := oautherr.As(err)
	require.Equal(t, kind, e.Kind, e.Error())
	require.Equal(t, code, e.Code)
}

func TestIdentifyProfile(t *testing.T) {
	t.Parallel()

	server := domain.ServerConfiguration{
		FAPIBaselineScopes: []string{"read"},
		FAPIAdvanceScopes:  []string{"write"},
	}

	cases := []struct {
		scopes []string
		want   domain.Profile
	}{
		{[]string{"openid", "write", "read"}, domain.ProfileFAPIAdvance},
		{[]string{"openid", "read"}, domain.ProfileFAPIBaseline},
		{[]string{"openid", "email"}, domain.ProfileOIDC},
		{[]string{"email"}, domain.ProfileOAuth2},
		{nil, domain.ProfileOAuth2},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, request.IdentifyProfile(tc.scopes, server), tc.scopes)
	}
}

func TestRequestedScopesPrefersObject(t *testing.T) {
	t.Parallel()

	p := params("scope", "email")
	require.Equal(t, []string{"email"}, request.RequestedScopes(p, &request.JoseContext{}))

	jc := &request.JoseContext{Claims: request.ClaimsObject{"scope": "openid write"}}
	require.Equal(t, []string{"openid", "write"}, request.RequestedScopes(p, jc))
}

func TestFactories(t *testing.T) {
	t.Parallel()

	now := time.Now()
	server := domain.DefaultServerConfiguration()
	server.DefaultMaxAge = 5 * time.Minute

	outer := params(
		"client_id", "web",
		"redirect_uri", "https://outer/cb",
		"response_type", "code",
		"state", "outer-state",
		"request", "eyJ.outer.jws",
		"custom_tracking", "abc",
		"claims", "not-json",
	)
	jc := &request.JoseContext{Claims: request.ClaimsObject{
		"client_id":     "web",
		"redirect_uri":  "https://object/cb",
		"response_type": "code id_token",
		"nonce":         "n-1",
		"max_age":       float64(30),
		"request":       "ignored",
		"claims":        map[string]any{"id_token": map[string]any{"acr": nil}},
	}}

	in := request.Input{
		TenantID:       "acme",
		Profile:        domain.ProfileOIDC,
		Params:         outer,
		Jose:           jc,
		FilteredScopes: []string{"openid"},
		Server:         server,
		Now:            now,
	}

	t.Run("normal reads parameters", func(t *testing.T) {
		in := in
		in.Jose = &request.JoseContext{}
		got, err := request.NormalFactory{}.Create(in)
		require.NoError(t, err)

		require.NotEmpty(t, got.ID)
		require.Equal(t, "https://outer/cb", got.RedirectURI)
		require.Equal(t, "outer-state", got.State)
		require.Equal(t, 300, *got.MaxAge, "defaults from server configuration")
		require.Nil(t, got.Claims, "unparseable claims degrade to empty")
		require.Equal(t, map[string]string{"custom_tracking": "abc"}, got.CustomParams)
		require.Equal(t, now.Add(server.AuthorizationRequestDuration), got.ExpiresAt)
	})

	t.Run("request object wins over parameters", func(t *testing.T) {
		got, err := request.RequestObjectFactory{}.Create(in)
		require.NoError(t, err)

		require.Equal(t, "https://object/cb", got.RedirectURI)
		require.Equal(t, domain.ResponseTypeCodeIDToken, got.ResponseType)
		require.Equal(t, "outer-state", got.State, "falls back to parameters")
		require.Equal(t, 30, *got.MaxAge)
		require.Equal(t, "eyJ.outer.jws", got.Request, "request always comes from outer parameters")
		require.JSONEq(t, `{"id_token":{"acr":null}}`, string(got.Claims))
	})

	t.Run("fapi advance ignores outer parameters", func(t *testing.T) {
		got, err := request.FapiAdvanceFactory{}.Create(in)
		require.NoError(t, err)

		require.Equal(t, "https://object/cb", got.RedirectURI)
		require.Empty(t, got.State)
		require.Nil(t, got.CustomParams)
		require.Equal(t, "eyJ.outer.jws", got.Request)
	})

	t.Run("fapi advance without object has no client", func(t *testing.T) {
		in := in
		in.Jose = &request.JoseContext{}
		_, err := request.FapiAdvanceFactory{}.Create(in)
		requireCode(t, err, oautherr.KindBadRequest, oautherr.CodeInvalidRequest)
	})

	t.Run("identifiers are unique", func(t *testing.T) {
		a, err := request.NormalFactory{}.Create(in)
		require.NoError(t, err)
		b, err := request.NormalFactory{}.Create(in)
		require.NoError(t, err)
		require.NotEqual(t, a.ID, b.ID)
	})

	t.Run("rejects non numeric max_age", func(t *testing.T) {
		in := in
		in.Params = params("client_id", "web", "max_age", "soon")
		_, err := request.NormalFactory{}.Create(in)
		requireCode(t, err, oautherr.KindBadRequest, oautherr.CodeInvalidRequest)
	})
}

func TestSelectFactory(t *testing.T) {
	t.Parallel()

	obj := &request.JoseContext{Claims: request.ClaimsObject{"client_id": "web"}}

	require.Equal(t, "fapi_advance_request_object", request.SelectFactory(domain.ProfileFAPIAdvance, &request.JoseContext{}).Name())
	require.Equal(t, "request_object", request.SelectFactory(domain.ProfileOIDC, obj).Name())
	require.Equal(t, "normal", request.SelectFactory(domain.ProfileOAuth2, &request.JoseContext{}).Name())
}

func TestJoseHandler(t *testing.T) {
	t.Parallel()

	key := requesttest.NewKey(t, "k1")
	client := domain.Client{ClientID: "web", JWKS: key.JWKS}
	h := request.NewJoseHandler()
	ctx := context.Background()

	t.Run("no object", func(t *testing.T) {
		jc, err := h.Handle(ctx, params("client_id", "web"), client)
		require.NoError(t, err)
		require.False(t, jc.Present())
	})

	t.Run("by value", func(t *testing.T) {
		raw := key.Sign(t, map[string]any{"client_id": "web", "exp": 1700000000, "aud": "https://auth/acme"})
		jc, err := h.Handle(ctx, params("request", raw), client)
		require.NoError(t, err)
		require.True(t, jc.Present())
		require.Equal(t, "k1", jc.KeyID)
		require.Equal(t, "ES256", jc.Algorithm)
		require.Equal(t, []string{"https://auth/acme"}, jc.Claims.Audience())

		exp, ok := jc.Claims.NumericDate("exp")
		require.True(t, ok)
		require.EqualValues(t, 1700000000, exp)
	})

	t.Run("wrong key", func(t *testing.T) {
		other := requesttest.NewKey(t, "k1")
		raw := other.Sign(t, map[string]any{"client_id": "web"})
		_, err := h.Handle(ctx, params("request", raw), client)
		requireCode(t, err, oautherr.KindBadRequest, oautherr.CodeInvalidRequestObject)
	})

	t.Run("client without keys", func(t *testing.T) {
		raw := key.Sign(t, map[string]any{"client_id": "web"})
		_, err := h.Handle(ctx, params("request", raw), domain.Client{ClientID: "web"})
		requireCode(t, err, oautherr.KindBadRequest, oautherr.CodeInvalidRequestObject)
	})

	t.Run("request and request_uri together", func(t *testing.T) {
		_, err := h.Handle(ctx, params("request", "a", "request_uri", "https://x"), client)
		requireCode(t, err, oautherr.KindBadRequest, oautherr.CodeInvalidRequest)
	})

	t.Run("by reference", func(t *testing.T) {
		raw := key.Sign(t, map[string]any{"client_id": "web", "state": "s"})
		srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/oauth-authz-req+jwt")
			_, _ = w.Write([]byte(raw))
		}))
		defer srv.Close()

		h := &request.JoseHandler{HTTPClient: srv.Client()}
		c := client
		c.RequestURIs = []string{srv.URL + "/objects/"}

		jc, err := h.Handle(ctx, params("request_uri", srv.URL+"/objects/1"), c)
		require.NoError(t, err)
		require.Equal(t, "s", jc.Values().State())

		_, err = h.Handle(ctx, params("request_uri", srv.URL+"/elsewhere"), c)
		requireCode(t, err, oautherr.KindBadRequest, oautherr.CodeInvalidRequestURI)
	})
}

func TestClaimsObjectLookup(t *testing.T) {
	t.Parallel()

	c := request.ClaimsObject{
		"authorization_details": []any{map[string]any{"type": "payment"}},
		"max_age":               float64(10),
		"flag":                  true,
	}
	v, ok := c.Lookup("authorization_details")
	require.True(t, ok)
	require.JSONEq(t, `[{"type":"payment"}]`, v)

	v, _ = c.Lookup("max_age")
	require.Equal(t, "10", v)
	v, _ = c.Lookup("flag")
	require.Equal(t, "true", v)

	_, ok = c.Lookup("missing")
	require.False(t, ok)

	q := request.Parameters(url.Values{"a": {"1", "2"}})
	v, ok = q.Lookup("a")
	require.True(t, ok)
	require.Equal(t, "1", v)
}
