package store

import (
	"encoding/json"
	"fmt"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
)

// EncodeAuthorizationRequest is the payload drivers persist for a request.
func EncodeAuthorizationRequest(req domain.AuthorizationRequest) ([]byte, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("store: encode authorization request: %w", err)
	}
	return b, nil
}

func DecodeAuthorizationRequest(b []byte) (domain.AuthorizationRequest, error) {
	var req domain.AuthorizationRequest
	if err := json.Unmarshal(b, &req); err != nil {
		return domain.AuthorizationRequest{}, fmt.Errorf("store: decode authorization request: %w", err)
	}
	if string(req.Claims) == "null" {
		req.Claims = nil
	}
	return req, nil
}
