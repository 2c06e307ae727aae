package http

import (
	"net/http"

	"github.com/aussiebroadwan/tollgate/internal/auth/oautherr"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// writeOAuthError writes a classified error as JSON. Anything that is not
// an *oautherr.Error is reported as server_error.
func writeOAuthError(w http.ResponseWriter, r *http.Request, err error) {
	oe := oautherr.As(err)
	if oe.Kind == oautherr.KindServerError {
		slogx.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}
	authsdk.NewOAuth2Error(http.StatusBadRequest, oe.Code, oe.Description).WriteError(w)
}
