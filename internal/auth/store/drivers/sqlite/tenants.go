package sqlite

import (
	"context"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
)

type tenantsRepo struct {
	db dbtx
}

func (r *tenantsRepo) Get(ctx context.Context, id string) (domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, issuer, server_config, created_at FROM tenants WHERE id = ?`, id)
	return scanTenant(row)
}

func (r *tenantsRepo) List(ctx context.Context) ([]domain.Tenant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, issuer, server_config, created_at FROM tenants ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *tenantsRepo) Upsert(ctx context.Context, t domain.Tenant) error {
	cfg, err := encodeJSON(t.Server)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tenants (id, issuer, server_config, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET issuer = excluded.issuer, server_config = excluded.server_config`,
		t.ID, t.Issuer, cfg, toMillis(t.CreatedAt))
	return mapConstraint(err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTenant(s scanner) (domain.Tenant, error) {
	var (
		t       domain.Tenant
		cfg     string
		created int64
	)
	if err := s.Scan(&t.ID, &t.Issuer, &cfg, &created); err != nil {
		return domain.Tenant{}, mapNotFound(err)
	}
	if err := decodeJSON(cfg, &t.Server); err != nil {
		return domain.Tenant{}, err
	}
	t.CreatedAt = fromMillis(created)
	return t, nil
}
