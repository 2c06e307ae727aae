package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
)

type authorizationRequestsRepo struct {
	db dbtx
}

func (r *authorizationRequestsRepo) Register(ctx context.Context, req domain.AuthorizationRequest) error {
	payload, err := store.EncodeAuthorizationRequest(req)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO authorization_requests (tenant_id, id, payload, expires_at) VALUES (?, ?, ?, ?)`,
		req.TenantID, req.ID, string(payload), toMillis(req.ExpiresAt))
	return mapConstraint(err)
}

func (r *authorizationRequestsRepo) Get(ctx context.Context, tenantID, id string) (domain.AuthorizationRequest, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM authorization_requests WHERE tenant_id = ? AND id = ?`, tenantID, id).
		Scan(&payload)
	if err != nil {
		return domain.AuthorizationRequest{}, mapNotFound(err)
	}

	return store.DecodeAuthorizationRequest([]byte(payload))
}

func (r *authorizationRequestsRepo) Find(ctx context.Context, tenantID, id string) (domain.AuthorizationRequest, bool, error) {
	req, err := r.Get(ctx, tenantID, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.AuthorizationRequest{}, false, nil
	}
	if err != nil {
		return domain.AuthorizationRequest{}, false, err
	}
	return req, true, nil
}

func (r *authorizationRequestsRepo) Delete(ctx context.Context, tenantID, id string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`DELETE FROM authorization_requests WHERE tenant_id = ? AND id = ?`, tenantID, id))
}

func (r *authorizationRequestsRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return rowsAffected(r.db.ExecContext(ctx,
		`DELETE FROM authorization_requests WHERE expires_at <= ?`, toMillis(now)))
}
