package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
)

type signingKeysRepo struct {
	db dbtx
}

func (r *signingKeysRepo) Create(ctx context.Context, k domain.SigningKey) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO signing_keys (id, kid, algorithm, private_key_encrypted, created_at, retired_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		k.ID, k.Kid, k.Algorithm, k.PrivateKeyEncrypted,
		toMillis(k.CreatedAt), toNullMillis(k.RetiredAt), toMillis(k.ExpiresAt))
	return mapConstraint(err)
}

func (r *signingKeysRepo) List(ctx context.Context) ([]domain.SigningKey, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kid, algorithm, private_key_encrypted, created_at, retired_at, expires_at
		FROM signing_keys ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SigningKey
	for rows.Next() {
		var (
			k                domain.SigningKey
			created, expires int64
			retired          sql.NullInt64
		)
		if err := rows.Scan(&k.ID, &k.Kid, &k.Algorithm, &k.PrivateKeyEncrypted, &created, &retired, &expires); err != nil {
			return nil, err
		}
		k.CreatedAt = fromMillis(created)
		k.RetiredAt = fromNullMillis(retired)
		k.ExpiresAt = fromMillis(expires)
		out = append(out, k)
	}
	return out, rows.Err()
}

func (r *signingKeysRepo) Retire(ctx context.Context, kid string, at time.Time) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE signing_keys SET retired_at = ? WHERE kid = ? AND retired_at IS NULL`, toMillis(at), kid))
}

func (r *signingKeysRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return rowsAffected(r.db.ExecContext(ctx,
		`DELETE FROM signing_keys WHERE expires_at <= ?`, toMillis(now)))
}
