package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

type tenantKey struct{}

// WithTenant resolves the {tenant} path segment and stores the tenant in
// the request context. Unknown tenants get a 404.
func WithTenant(tenants store.Tenants) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			t, err := tenants.Get(ctx, r.PathValue("tenant"))
			if errors.Is(err, store.ErrNotFound) {
				authsdk.ErrNotFound.WithDescription("unknown tenant").WriteError(w)
				return
			}
			if err != nil {
				slogx.FromContext(ctx).Error("tenant lookup failed", "error", err)
				authsdk.ErrServerError.WriteError(w)
				return
			}

			ctx = slogx.WithTenant(ctx, t.ID)
			ctx = context.WithValue(ctx, tenantKey{}, t)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantFromContext returns the tenant set by WithTenant.
func TenantFromContext(ctx context.Context) (domain.Tenant, bool) {
	t, ok := ctx.Value(tenantKey{}).(domain.Tenant)
	return t, ok
}
