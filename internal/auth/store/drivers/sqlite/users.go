package sqlite

import (
	"context"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, tenant_id, username, preferred_name, email, password_hash, status, created_at, updated_at`

func (r *usersRepo) Get(ctx context.Context, tenantID, id string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant_id = ? AND id = ?`, tenantID, id))
}

func (r *usersRepo) GetByUsername(ctx context.Context, tenantID, username string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant_id = ? AND username = ?`, tenantID, username))
}

func (r *usersRepo) Upsert(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			username = excluded.username,
			preferred_name = excluded.preferred_name,
			email = excluded.email,
			password_hash = excluded.password_hash,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		u.ID, u.TenantID, u.Username, u.PreferredName, u.Email, u.PasswordHash, string(u.Status),
		toMillis(u.CreatedAt), toMillis(u.UpdatedAt))
	return mapConstraint(err)
}

func scanUser(s scanner) (domain.User, error) {
	var (
		u                domain.User
		status           string
		created, updated int64
	)
	err := s.Scan(&u.ID, &u.TenantID, &u.Username, &u.PreferredName, &u.Email, &u.PasswordHash,
		&status, &created, &updated)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.Status = domain.UserStatus(status)
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return u, nil
}
