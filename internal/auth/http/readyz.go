package http

import (
	"net/http"

	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe. Fails while the store is unreachable or no signing key is loaded.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status"
//	@Failure		503	{object}	authsdk.HealthResponse	"status - service not ready"
//	@Router			/readyz [get]
func ReadyzHandler(st store.Store, keys *jwtx.KeyManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := slogx.FromContext(r.Context())

		// Check database connectivity
		if err := st.Ping(r.Context()); err != nil {
			log.Warn("readiness: store unavailable", "error", err)
			httpx.WriteJSON(w, http.StatusServiceUnavailable, authsdk.HealthResponse{Status: "degraded"})
			return
		}

		// Check that a signer is loaded
		if !keys.IsReady() {
			log.Warn("readiness: no signing keys loaded")
			httpx.WriteJSON(w, http.StatusServiceUnavailable, authsdk.HealthResponse{Status: "degraded"})
			return
		}

		httpx.WriteJSON(w, http.StatusOK, authsdk.HealthResponse{Status: "ok"})
	}
}
