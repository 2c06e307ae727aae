package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
)

type authorizationGrantedRepo struct {
	db dbtx
}

func (r *authorizationGrantedRepo) Find(ctx context.Context, tenantID, userID, clientID string) (domain.AuthorizationGranted, bool, error) {
	var (
		g                domain.AuthorizationGranted
		scopes           string
		details          sql.NullString
		created, updated int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT tenant_id, user_id, client_id, scopes, authorization_details, created_at, updated_at
		FROM authorization_granted WHERE tenant_id = ? AND user_id = ? AND client_id = ?`,
		tenantID, userID, clientID).
		Scan(&g.TenantID, &g.UserID, &g.ClientID, &scopes, &details, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AuthorizationGranted{}, false, nil
	}
	if err != nil {
		return domain.AuthorizationGranted{}, false, err
	}

	if err := decodeJSON(mapNullString(details), &g.AuthorizationDetails); err != nil {
		return domain.AuthorizationGranted{}, false, err
	}
	g.Scopes = domain.ParseScopes(scopes)
	g.CreatedAt = fromMillis(created)
	g.UpdatedAt = fromMillis(updated)
	return g, true, nil
}

func (r *authorizationGrantedRepo) Save(ctx context.Context, g domain.AuthorizationGranted) error {
	var details sql.NullString
	if len(g.AuthorizationDetails) > 0 {
		raw, err := encodeJSON(g.AuthorizationDetails)
		if err != nil {
			return err
		}
		details = sql.NullString{String: raw, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO authorization_granted
			(tenant_id, user_id, client_id, scopes, authorization_details, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, user_id, client_id) DO UPDATE SET
			scopes = excluded.scopes,
			authorization_details = excluded.authorization_details,
			updated_at = excluded.updated_at`,
		g.TenantID, g.UserID, g.ClientID, domain.JoinScopes(g.Scopes), details,
		toMillis(g.CreatedAt), toMillis(g.UpdatedAt))
	return mapConstraint(err)
}
