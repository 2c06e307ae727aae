package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// KeyRotationHandler handles key rotation for both ephemeral and persistent
// key storage. Routes are only mounted when an admin token is configured.
type KeyRotationHandler struct {
	KeyRotationService *service.KeyRotationService
}

// HandleRotate handles POST /admin/keys/rotate
//
//	@Summary		Rotate signing keys
//	@Description	Generate a new signing key and optionally retire the existing ones.
//	@Tags			Keys
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RotateKeyRequest	false	"Rotation options"
//	@Success		200		{object}	authsdk.RotateKeyResponse
//	@Failure		400		{object}	authsdk.OAuth2Error	"Bad Request"
//	@Failure		401		{object}	authsdk.OAuth2Error	"Unauthorized"
//	@Failure		500		{object}	authsdk.OAuth2Error	"Internal Server Error"
//	@Security		BearerAuth
//	@Router			/admin/keys/rotate [post]
func (h *KeyRotationHandler) HandleRotate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RotateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		authsdk.ErrInvalidRequest.WithDescription("invalid request body").WriteError(w)
		return
	}

	res, err := h.KeyRotationService.RotateKey(r.Context(), req.RetireExisting)
	if err != nil {
		slogx.FromContext(r.Context()).Error("key rotation failed", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.RotateKeyResponse{
		NewKID:      res.NewKID,
		RetiredKIDs: res.RetiredKIDs,
		ActiveKeys:  res.ActiveKeys,
	})
}

// HandleRetireKey handles POST /admin/keys/{kid}/retire
//
//	@Summary		Retire signing key
//	@Description	Stop signing with a key. Its public half stays in the JWKS until it expires.
//	@Tags			Keys
//	@Produce		json
//	@Param			kid	path	string	true	"Key ID"
//	@Success		204
//	@Failure		400	{object}	authsdk.OAuth2Error	"Unknown key or last active key"
//	@Failure		401	{object}	authsdk.OAuth2Error	"Unauthorized"
//	@Security		BearerAuth
//	@Router			/admin/keys/{kid}/retire [post]
func (h *KeyRotationHandler) HandleRetireKey(w http.ResponseWriter, r *http.Request) {
	kid := r.PathValue("kid")
	if err := h.KeyRotationService.RetireKey(r.Context(), kid); err != nil {
		slogx.FromContext(r.Context()).Warn("key retirement failed", "kid", kid, "error", err)
		authsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
