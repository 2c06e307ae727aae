package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
)

type authorizationCodesRepo struct {
	db dbtx
}

func (r *authorizationCodesRepo) Create(ctx context.Context, code domain.AuthorizationCode) error {
	payload, err := encodeJSON(code)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO authorization_codes (id, tenant_id, code_hash, payload, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		code.ID, code.TenantID, code.CodeHash, payload, toMillis(code.ExpiresAt), toMillis(code.CreatedAt))
	return mapConstraint(err)
}

func (r *authorizationCodesRepo) GetByHash(ctx context.Context, tenantID, hash string) (domain.AuthorizationCode, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM authorization_codes WHERE tenant_id = ? AND code_hash = ?`, tenantID, hash).
		Scan(&payload)
	if err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}

	var code domain.AuthorizationCode
	if err := decodeJSON(payload, &code); err != nil {
		return domain.AuthorizationCode{}, err
	}
	return code, nil
}

func (r *authorizationCodesRepo) Consume(ctx context.Context, tenantID, id string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`DELETE FROM authorization_codes WHERE tenant_id = ? AND id = ?`, tenantID, id))
}

func (r *authorizationCodesRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return rowsAffected(r.db.ExecContext(ctx,
		`DELETE FROM authorization_codes WHERE expires_at <= ?`, toMillis(now)))
}
