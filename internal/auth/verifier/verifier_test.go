package verifier_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/oautherr"
	"github.com/aussiebroadwan/tollgate/internal/auth/request"
	"github.com/aussiebroadwan/tollgate/internal/auth/verifier"
)

const (
	issuer   = "https://auth.example/acme"
	callback = "https://app.example/cb"
)

func tenant() domain.Tenant {
	server := domain.DefaultServerConfiguration()
	server.FAPIBaselineScopes = []string{"accounts"}
	server.FAPIAdvanceScopes = []string{"payments"}
	server.TLSClientCertificateBoundAccessTokens = true
	server.AuthorizationDetailsTypesSupported = []string{"payment_initiation", "account_information"}
	return domain.Tenant{ID: "acme", Issuer: issuer, Server: server}
}

func client() domain.Client {
	return domain.Client{
		TenantID:                              "acme",
		ClientID:                              "web",
		TokenEndpointAuthMethod:               domain.AuthMethodClientSecretBasic,
		RedirectURIs:                          []string{callback},
		ResponseTypes:                         []string{"code", "code id_token"},
		Scopes:                                []string{"openid", "email", "accounts", "payments"},
		TLSClientCertificateBoundAccessTokens: true,
	}
}

// fixture is a context that satisfies exactly one profile.
type fixture struct {
	tenant domain.Tenant
	client domain.Client
	req    domain.AuthorizationRequest
	params request.Parameters
	claims request.ClaimsObject
}

func (f fixture) context() verifier.Context {
	jc := &request.JoseContext{Claims: f.claims}
	values := f.params.Values()
	if jc.Present() {
		values = request.NewValues(request.Overlay(f.claims, f.params))
	}
	return verifier.Context{
		Tenant:  f.tenant,
		Client:  f.client,
		Request: f.req,
		Params:  f.params,
		Jose:    jc,
		Values:  values,
	}
}

func valid(profile domain.Profile) fixture {
	f := fixture{
		tenant: tenant(),
		client: client(),
		params: request.Parameters{},
		req: domain.AuthorizationRequest{
			ID:           "req",
			TenantID:     "acme",
			Profile:      profile,
			ClientID:     "web",
			RedirectURI:  callback,
			ResponseType: domain.ResponseTypeCode,
			State:        "xyz",
		},
	}

	switch profile {
	case domain.ProfileOAuth2:
		f.req.Scopes = []string{"email"}
	case domain.ProfileOIDC:
		f.req.Scopes = []string{"openid"}
	case domain.ProfileFAPIBaseline:
		f.req.Scopes = []string{"openid", "accounts"}
	case domain.ProfileFAPIAdvance:
		nbf := time.Now().Unix()
		f.req.Scopes = []string{"openid", "payments"}
		f.req.ResponseType = domain.ResponseTypeCodeIDToken
		f.req.Nonce = "n-0S6"
		f.req.Request = "signed.request.object"
		f.params = request.Parameters{"client_id": {"web"}, "request": {"signed.request.object"}}
		f.claims = request.ClaimsObject{
			"client_id":     "web",
			"response_type": "code id_token",
			"aud":           issuer,
			"nbf":           float64(nbf),
			"exp":           float64(nbf + 3600),
		}
	}
	return f
}

type failure struct {
	name   string
	mutate func(f *fixture)
	kind   oautherr.Kind
	code   string
}

func requireFailure(t *testing.T, err error, kind oautherr.Kind, code string) {
	t.Helper()
	require.Error(t, err)
	e := oautherr.As(err)
	require.Equal(t, kind, e.Kind, e.Error())
	require.Equal(t, code, e.Code, e.Error())
	if kind == oautherr.KindRedirectableBadRequest {
		require.Equal(t, callback, e.RedirectURI)
		require.Equal(t, "xyz", e.State)
	}
}

func runProfile(t *testing.T, profile domain.Profile, failures []failure) {
	t.Helper()
	p := verifier.Default()

	t.Run("valid request passes", func(t *testing.T) {
		require.NoError(t, p.Verify(valid(profile).context()))
	})

	for _, tc := range failures {
		t.Run(tc.name, func(t *testing.T) {
			f := valid(profile)
			tc.mutate(&f)
			requireFailure(t, p.Verify(f.context()), tc.kind, tc.code)
		})
	}
}

const (
	bad   = oautherr.KindBadRequest
	redir = oautherr.KindRedirectableBadRequest
)

func TestOAuth2Profile(t *testing.T) {
	t.Parallel()

	runProfile(t, domain.ProfileOAuth2, []failure{
		{"unregistered redirect_uri", func(f *fixture) { f.req.RedirectURI = "https://evil/cb" }, bad, oautherr.CodeInvalidRequest},
		{"missing redirect_uri with several registered", func(f *fixture) {
			f.req.RedirectURI = ""
			f.client.RedirectURIs = append(f.client.RedirectURIs, "https://app.example/other")
		}, bad, oautherr.CodeInvalidRequest},
		{"missing response_type", func(f *fixture) { f.req.ResponseType = "" }, redir, oautherr.CodeInvalidRequest},
		{"unsupported response_type", func(f *fixture) { f.req.ResponseType = "token" }, redir, oautherr.CodeUnsupportedResponseType},
		{"response_type not allowed for client", func(f *fixture) {
			f.client.ResponseTypes = []string{"code id_token"}
		}, redir, oautherr.CodeUnauthorizedClient},
		{"unsupported response_mode", func(f *fixture) { f.req.ResponseMode = "web_message" }, redir, oautherr.CodeInvalidRequest},
		{"no allowed scope", func(f *fixture) { f.req.Scopes = nil }, redir, oautherr.CodeInvalidScope},
	})

	t.Run("omitted redirect_uri uses the single registered uri", func(t *testing.T) {
		f := valid(domain.ProfileOAuth2)
		f.req.RedirectURI = ""
		f.req.ResponseType = "token"
		err := verifier.Default().Verify(f.context())
		requireFailure(t, err, redir, oautherr.CodeUnsupportedResponseType)
	})
}

func TestOIDCProfile(t *testing.T) {
	t.Parallel()

	runProfile(t, domain.ProfileOIDC, []failure{
		{"missing redirect_uri", func(f *fixture) { f.req.RedirectURI = "" }, bad, oautherr.CodeInvalidRequest},
		{"missing openid", func(f *fixture) { f.req.Scopes = []string{"email"} }, redir, oautherr.CodeInvalidRequest},
		{"hybrid without nonce", func(f *fixture) { f.req.ResponseType = domain.ResponseTypeCodeIDToken }, redir, oautherr.CodeInvalidRequest},
		{"bad display", func(f *fixture) { f.req.Display = "hologram" }, redir, oautherr.CodeInvalidRequest},
		{"prompt none combined", func(f *fixture) { f.req.Prompt = "none login" }, redir, oautherr.CodeInvalidRequest},
		{"negative max_age", func(f *fixture) { n := -1; f.req.MaxAge = &n }, redir, oautherr.CodeInvalidRequest},
	})
}

func TestFAPIBaselineProfile(t *testing.T) {
	t.Parallel()

	runProfile(t, domain.ProfileFAPIBaseline, []failure{
		{"client without redirect uris", func(f *fixture) { f.client.RedirectURIs = nil }, bad, oautherr.CodeInvalidRequest},
		{"missing redirect_uri", func(f *fixture) { f.req.RedirectURI = "" }, bad, oautherr.CodeInvalidRequest},
		{"unregistered redirect_uri", func(f *fixture) { f.req.RedirectURI = "https://app.example/other" }, bad, oautherr.CodeInvalidRequest},
		{"http redirect_uri", func(f *fixture) {
			f.req.RedirectURI = "http://app.example/cb"
			f.client.RedirectURIs = []string{"http://app.example/cb"}
		}, bad, oautherr.CodeInvalidRequest},
		{"falls through to oidc checks", func(f *fixture) { f.req.Prompt = "sometimes" }, redir, oautherr.CodeInvalidRequest},
	})

	t.Run("non openid request uses oauth2 checks", func(t *testing.T) {
		f := valid(domain.ProfileFAPIBaseline)
		f.req.Scopes = []string{"accounts"}
		f.req.Prompt = "sometimes"
		require.NoError(t, verifier.Default().Verify(f.context()))
	})
}

func TestFAPIAdvanceProfile(t *testing.T) {
	t.Parallel()

	runProfile(t, domain.ProfileFAPIAdvance, []failure{
		{"no request object", func(f *fixture) {
			f.claims = nil
			f.req.Request = ""
		}, bad, oautherr.CodeInvalidRequest},
		{"code alone", func(f *fixture) {
			f.req.ResponseType = domain.ResponseTypeCode
			f.claims["response_type"] = "code"
		}, bad, oautherr.CodeInvalidRequest},
		{"server without certificate binding", func(f *fixture) {
			f.tenant.Server.TLSClientCertificateBoundAccessTokens = false
		}, bad, oautherr.CodeInvalidRequest},
		{"client without certificate binding", func(f *fixture) {
			f.client.TLSClientCertificateBoundAccessTokens = false
		}, bad, oautherr.CodeInvalidRequest},
		{"missing nbf", func(f *fixture) { delete(f.claims, "nbf") }, bad, oautherr.CodeInvalidRequest},
		{"missing exp", func(f *fixture) { delete(f.claims, "exp") }, bad, oautherr.CodeInvalidRequest},
		{"lifetime over an hour", func(f *fixture) {
			nbf, _ := f.claims.NumericDate("nbf")
			f.claims["exp"] = nbf + 3601
		}, bad, oautherr.CodeInvalidRequest},
		{"aud without issuer", func(f *fixture) { f.claims["aud"] = []any{"https://other"} }, bad, oautherr.CodeInvalidRequest},
		{"baseline redirect checks still apply", func(f *fixture) { f.req.RedirectURI = "" }, bad, oautherr.CodeInvalidRequest},
	})

	t.Run("code with jarm passes", func(t *testing.T) {
		f := valid(domain.ProfileFAPIAdvance)
		f.req.ResponseType = domain.ResponseTypeCode
		f.req.ResponseMode = domain.ResponseModeJWT
		f.claims["response_type"] = "code"
		require.NoError(t, verifier.Default().Verify(f.context()))
	})
}

func TestPKCERule(t *testing.T) {
	t.Parallel()

	challenge := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"

	runProfile(t, domain.ProfileOAuth2, []failure{
		{"public client without challenge", func(f *fixture) {
			f.client.TokenEndpointAuthMethod = domain.AuthMethodNone
		}, redir, oautherr.CodeInvalidRequest},
		{"malformed challenge", func(f *fixture) { f.req.CodeChallenge = "short" }, redir, oautherr.CodeInvalidRequest},
		{"unknown method", func(f *fixture) {
			f.req.CodeChallenge = challenge
			f.req.CodeChallengeMethod = "S512"
		}, redir, oautherr.CodeInvalidRequest},
	})

	t.Run("public client with S256", func(t *testing.T) {
		f := valid(domain.ProfileOAuth2)
		f.client.TokenEndpointAuthMethod = domain.AuthMethodNone
		f.req.CodeChallenge = challenge
		f.req.CodeChallengeMethod = "S256"
		require.NoError(t, verifier.Default().Verify(f.context()))
	})
}

func TestRequestObjectRule(t *testing.T) {
	t.Parallel()

	runProfile(t, domain.ProfileFAPIAdvance, []failure{
		{"object client_id differs", func(f *fixture) { f.claims["client_id"] = "other" }, redir, oautherr.CodeInvalidRequestObject},
		{"outer client_id differs", func(f *fixture) { f.params["client_id"] = []string{"other"} }, redir, oautherr.CodeInvalidRequestObject},
		{"iss is not the client", func(f *fixture) { f.claims["iss"] = "someone" }, redir, oautherr.CodeInvalidRequestObject},
		{"outer response_type differs", func(f *fixture) { f.params["response_type"] = []string{"code"} }, redir, oautherr.CodeInvalidRequestObject},
	})
}

func TestAuthorizationDetailsRule(t *testing.T) {
	t.Parallel()

	withDetails := func(raw string) func(f *fixture) {
		return func(f *fixture) { f.params["authorization_details"] = []string{raw} }
	}

	runProfile(t, domain.ProfileOAuth2, []failure{
		{"malformed", withDetails(`{"type":`), redir, oautherr.CodeInvalidAuthorizationDetails},
		{"unsupported type", withDetails(`[{"type":"crypto_swap"}]`), redir, oautherr.CodeInvalidAuthorizationDetails},
		{"type outside client list", func(f *fixture) {
			withDetails(`[{"type":"payment_initiation"}]`)(f)
			f.client.AuthorizationDetailsTypes = []string{"account_information"}
		}, redir, oautherr.CodeInvalidAuthorizationDetails},
	})

	t.Run("allowed type", func(t *testing.T) {
		f := valid(domain.ProfileOAuth2)
		withDetails(`[{"type":"payment_initiation","instructedAmount":{"currency":"EUR","amount":"1"}}]`)(&f)
		require.NoError(t, verifier.Default().Verify(f.context()))
	})
}

func TestSenderConstraintRule(t *testing.T) {
	t.Parallel()

	implicit := func(f *fixture) {
		f.tenant.Server.ResponseTypesSupported = append(f.tenant.Server.ResponseTypesSupported, "code token")
		f.client.ResponseTypes = append(f.client.ResponseTypes, "code token")
		f.req.ResponseType = "code token"
	}

	runProfile(t, domain.ProfileOAuth2, []failure{
		{"bound client asks for a front channel token", implicit, redir, oautherr.CodeUnauthorizedClient},
	})

	for name, unbind := range map[string]func(f *fixture){
		"server does not bind": func(f *fixture) { f.tenant.Server.TLSClientCertificateBoundAccessTokens = false },
		"client does not bind": func(f *fixture) { f.client.TLSClientCertificateBoundAccessTokens = false },
	} {
		t.Run(name, func(t *testing.T) {
			f := valid(domain.ProfileOAuth2)
			implicit(&f)
			unbind(&f)
			require.NoError(t, verifier.Default().Verify(f.context()))
		})
	}
}

type recorder struct{ rules, codes []string }

func (r *recorder) VerificationFailed(_ domain.Profile, ruleID, code string) {
	r.rules = append(r.rules, ruleID)
	r.codes = append(r.codes, code)
}

func TestPipeline(t *testing.T) {
	t.Parallel()

	t.Run("unsupported profile is a server error", func(t *testing.T) {
		p, err := verifier.NewPipeline(map[domain.Profile]verifier.BaseVerifier{
			domain.ProfileOAuth2: verifier.BaseFunc(verifier.VerifyOAuth2),
		})
		require.NoError(t, err)

		rec := &recorder{}
		err = p.WithObserver(rec).Verify(valid(domain.ProfileOIDC).context())
		requireFailure(t, err, oautherr.KindServerError, oautherr.CodeServerError)
		require.Equal(t, []string{"base:OIDC"}, rec.rules)
	})

	t.Run("rules run in order and stop at first failure", func(t *testing.T) {
		var ran []string
		rule := func(id string, fail bool) verifier.Rule {
			return verifier.Rule{
				ID: id,
				Check: func(verifier.Context) error {
					ran = append(ran, id)
					if fail {
						return oautherr.BadRequest(oautherr.CodeInvalidRequest, id)
					}
					return nil
				},
			}
		}
		skipped := rule("skipped", true)
		skipped.Skip = func(verifier.Context) bool { return true }

		p, err := verifier.NewPipeline(verifier.DefaultBases(),
			rule("first", false), skipped, rule("second", true), rule("third", false))
		require.NoError(t, err)
		require.Equal(t, []string{"first", "skipped", "second", "third"}, p.RuleIDs())

		rec := &recorder{}
		err = p.WithObserver(rec).Verify(valid(domain.ProfileOAuth2).context())
		require.Error(t, err)
		require.Equal(t, []string{"first", "second"}, ran)
		require.Equal(t, []string{"second"}, rec.rules)
	})

	t.Run("rejects invalid rule sets", func(t *testing.T) {
		_, err := verifier.NewPipeline(nil, verifier.Rule{ID: "x"})
		require.Error(t, err)

		ok := verifier.Rule{ID: "x", Check: func(verifier.Context) error { return nil }}
		_, err = verifier.NewPipeline(nil, ok, ok)
		require.Error(t, err)
	})

	t.Run("registries are copied", func(t *testing.T) {
		bases := verifier.DefaultBases()
		p, err := verifier.NewPipeline(bases)
		require.NoError(t, err)
		delete(bases, domain.ProfileOAuth2)
		require.NoError(t, p.Verify(valid(domain.ProfileOAuth2).context()))
	})

	t.Run("default rule order", func(t *testing.T) {
		require.Equal(t, []string{"pkce", "request_object", "authorization_details", "sender_constraint"}, verifier.Default().RuleIDs())
	})
}
