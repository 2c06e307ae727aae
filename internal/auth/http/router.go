package http

import (
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/tollgate/internal/auth/metrics"
	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"

	_ "github.com/aussiebroadwan/tollgate/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Limits holds the rate limit profiles the routes are grouped into.
type Limits struct {
	Strict   httpx.RateLimit
	Moderate httpx.RateLimit
	Public   httpx.RateLimit
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys    *jwtx.KeyManager
	store   store.Store
	metrics *metrics.Metrics
	logger  *slog.Logger

	// CertHeader names the header a TLS terminating proxy uses to forward
	// the client certificate. Empty trusts only the TLS connection.
	CertHeader string
	// AdminToken guards the key rotation endpoints. Empty disables them.
	AdminToken string
	// Limits are read from RATELIMIT_* in NewRouter and may be replaced
	// before ApplyRoutes.
	Limits Limits

	AuthorizeService     *service.AuthorizeService
	TokenService         *service.TokenService
	IntrospectionService *service.IntrospectionService
	RevocationService    *service.RevocationService
	KeyRotationService   *service.KeyRotationService
}

func NewRouter(
	keys *jwtx.KeyManager,
	st store.Store,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:     http.NewServeMux(),
		keys:    keys,
		store:   st,
		metrics: m,
		logger:  logger,
		Limits: Limits{
			Strict:   httpx.RateLimitFromEnv("STRICT", httpx.StrictLimit),
			Moderate: httpx.RateLimitFromEnv("MODERATE", httpx.ModerateLimit),
			Public:   httpx.RateLimitFromEnv("PUBLIC", httpx.PublicLimit),
		},
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Recover,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuthorizations()
	r.registerTokens()
	r.registerKeyRotation()
	r.registerSystem()

	// Single segment only, so it cannot overlap the /{tenant}/v1/... routes.
	r.Mux.Handle("GET /swagger/{file}", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Tollgate Authorization Server API
//	@version		0.1.0
//	@description	Multi-tenant OAuth 2.0 / OpenID Connect authorization server with FAPI profiles.
//	@description
//	@description				Every OAuth endpoint is scoped by tenant. Tokens are verified with the tenant's JWKS endpoint.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/tollgate
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Admin token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) tenant() httpx.Middleware {
	return WithTenant(r.store.Tenants())
}

func (r *Router) registerAuthorizations() {
	h := &AuthorizeHandler{AuthorizeService: r.AuthorizeService}

	// Authorization requests - moderate limit, these only verify and store
	for _, method := range []string{"GET", "POST"} {
		r.Mux.Handle(method+" /{tenant}/v1/authorizations",
			httpx.Chain(http.HandlerFunc(h.HandleRequest),
				httpx.RateLimitByIP(r.Limits.Moderate),
				r.tenant(),
			),
		)
	}

	// Login - strict limit by IP + username to slow password guessing
	r.Mux.Handle("POST /{tenant}/v1/authorizations/{id}/authorize",
		httpx.Chain(http.HandlerFunc(h.HandleAuthorize),
			httpx.RateLimitBy(r.Limits.Strict, httpx.JoinKeys(httpx.ClientIP, httpx.FormValue("username"))),
			r.tenant(),
		),
	)
	r.Mux.Handle("POST /{tenant}/v1/authorizations/{id}/deny",
		httpx.Chain(http.HandlerFunc(h.HandleDeny),
			httpx.RateLimitByIP(r.Limits.Moderate),
			r.tenant(),
		),
	)
}

func (r *Router) registerTokens() {
	// POST /tokens - strict rate limit by IP (covers all grant types)
	tokenHandler := &TokenHandler{TokenService: r.TokenService, CertHeader: r.CertHeader}
	r.Mux.Handle("POST /{tenant}/v1/tokens",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIP(r.Limits.Strict),
			r.tenant(),
		),
	)

	// Introspection (RFC 7662) - resource servers poll this, moderate limit
	introspectHandler := &IntrospectHandler{IntrospectionService: r.IntrospectionService, CertHeader: r.CertHeader}
	r.Mux.Handle("POST /{tenant}/v1/tokens/introspection",
		httpx.Chain(introspectHandler,
			httpx.RateLimitByIP(r.Limits.Moderate),
			r.tenant(),
		),
	)

	// Revocation (RFC 7009) - moderate limit
	revokeHandler := &RevokeHandler{RevocationService: r.RevocationService, CertHeader: r.CertHeader}
	r.Mux.Handle("POST /{tenant}/v1/tokens/revocation",
		httpx.Chain(revokeHandler,
			httpx.RateLimitByIP(r.Limits.Moderate),
			r.tenant(),
		),
	)

	// JWKS - public endpoint with high limit
	r.Mux.Handle("GET /{tenant}/v1/jwks",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(r.Limits.Public),
			r.tenant(),
		),
	)
}

func (r *Router) registerKeyRotation() {
	if r.AdminToken == "" || r.KeyRotationService == nil {
		return
	}
	h := &KeyRotationHandler{KeyRotationService: r.KeyRotationService}

	r.Mux.Handle("POST /admin/keys/rotate",
		httpx.Chain(http.HandlerFunc(h.HandleRotate),
			httpx.RequireBearer(r.AdminToken),
			httpx.RateLimitByIP(r.Limits.Strict),
		),
	)
	r.Mux.Handle("POST /admin/keys/{kid}/retire",
		httpx.Chain(http.HandlerFunc(h.HandleRetireKey),
			httpx.RequireBearer(r.AdminToken),
			httpx.RateLimitByIP(r.Limits.Strict),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - monitoring systems may poll frequently
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.store, r.keys),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)
	if r.metrics != nil {
		r.Mux.Handle("GET /metrics", r.metrics.Handler())
	}
}
