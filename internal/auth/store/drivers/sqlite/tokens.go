package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
)

// tokensRepo keeps fingerprints of access and refresh values, never the
// values themselves. Lookups fill the matched value back in.
type tokensRepo struct {
	db dbtx
}

const tokenColumns = `id, tenant_id, issuer, token_type, subject, client_id, scopes, authorization_details,
	access_token_payload, access_token_created_at, access_token_expires_at, client_cert_thumbprint,
	refresh_token_created_at, refresh_token_expires_at, id_token, c_nonce, c_nonce_expires_at, created_at`

func (r *tokensRepo) Register(ctx context.Context, tok domain.OAuthToken) error {
	var details sql.NullString
	if len(tok.AuthorizationDetails) > 0 {
		raw, err := encodeJSON(tok.AuthorizationDetails)
		if err != nil {
			return err
		}
		details = sql.NullString{String: raw, Valid: true}
	}

	var (
		refreshHash               sql.NullString
		refreshCreated, refreshEx sql.NullInt64
		idToken, cNonce           sql.NullString
		cNonceEx                  sql.NullInt64
	)
	if rt := tok.RefreshToken; rt != nil {
		refreshHash = mapStringNull(cryptox.FingerprintToken(rt.Value))
		refreshCreated = toNullMillis(&rt.CreatedAt)
		refreshEx = toNullMillis(&rt.ExpiresAt)
	}
	if tok.IDToken != nil {
		idToken = mapStringNull(tok.IDToken.Value)
	}
	if tok.CNonce != nil {
		cNonce = mapStringNull(tok.CNonce.Value)
		cNonceEx = toNullMillis(&tok.CNonce.ExpiresAt)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO oauth_tokens (
			id, tenant_id, issuer, token_type, subject, client_id, scopes, authorization_details,
			access_token_hash, access_token_payload, access_token_created_at, access_token_expires_at,
			client_cert_thumbprint, refresh_token_hash, refresh_token_created_at, refresh_token_expires_at,
			id_token, c_nonce, c_nonce_expires_at, expires_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tok.ID, tok.TenantID, tok.Issuer, tok.TokenType, tok.Subject, tok.ClientID,
		domain.JoinScopes(tok.Scopes), details,
		cryptox.FingerprintToken(tok.AccessToken.Value), string(tok.AccessToken.Payload),
		toMillis(tok.AccessToken.CreatedAt), toMillis(tok.AccessToken.ExpiresAt),
		tok.AccessToken.ClientCertThumbprint, refreshHash, refreshCreated, refreshEx,
		idToken, cNonce, cNonceEx, toMillis(tok.ExpiresAt()), toMillis(tok.CreatedAt))
	return mapConstraint(err)
}

func (r *tokensRepo) FindByAccessToken(ctx context.Context, tenantID, value string) (domain.OAuthToken, bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM oauth_tokens WHERE tenant_id = ? AND access_token_hash = ?`,
		tenantID, cryptox.FingerprintToken(value))

	tok, ok, err := scanToken(row)
	if ok {
		tok.AccessToken.Value = value
	}
	return tok, ok, err
}

func (r *tokensRepo) FindByRefreshToken(ctx context.Context, tenantID, value string) (domain.OAuthToken, bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM oauth_tokens WHERE tenant_id = ? AND refresh_token_hash = ?`,
		tenantID, cryptox.FingerprintToken(value))

	tok, ok, err := scanToken(row)
	if ok && tok.RefreshToken != nil {
		tok.RefreshToken.Value = value
	}
	return tok, ok, err
}

func (r *tokensRepo) Delete(ctx context.Context, tenantID, id string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`DELETE FROM oauth_tokens WHERE tenant_id = ? AND id = ?`, tenantID, id))
}

func (r *tokensRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return rowsAffected(r.db.ExecContext(ctx,
		`DELETE FROM oauth_tokens WHERE expires_at <= ?`, toMillis(now)))
}

func scanToken(s scanner) (domain.OAuthToken, bool, error) {
	var (
		tok                       domain.OAuthToken
		scopes, payload           string
		details                   sql.NullString
		accessCreated, accessEx   int64
		refreshCreated, refreshEx sql.NullInt64
		idToken, cNonce           sql.NullString
		cNonceEx                  sql.NullInt64
		created                   int64
	)
	err := s.Scan(
		&tok.ID, &tok.TenantID, &tok.Issuer, &tok.TokenType, &tok.Subject, &tok.ClientID, &scopes, &details,
		&payload, &accessCreated, &accessEx, &tok.AccessToken.ClientCertThumbprint,
		&refreshCreated, &refreshEx, &idToken, &cNonce, &cNonceEx, &created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.OAuthToken{}, false, nil
	}
	if err != nil {
		return domain.OAuthToken{}, false, err
	}

	if err := decodeJSON(mapNullString(details), &tok.AuthorizationDetails); err != nil {
		return domain.OAuthToken{}, false, err
	}
	tok.Scopes = domain.ParseScopes(scopes)
	tok.AccessToken.Payload = []byte(payload)
	tok.AccessToken.CreatedAt = fromMillis(accessCreated)
	tok.AccessToken.ExpiresAt = fromMillis(accessEx)
	tok.CreatedAt = fromMillis(created)

	if refreshEx.Valid {
		tok.RefreshToken = &domain.RefreshToken{
			CreatedAt: fromMillis(refreshCreated.Int64),
			ExpiresAt: fromMillis(refreshEx.Int64),
		}
	}
	if idToken.Valid {
		tok.IDToken = &domain.IDToken{Value: idToken.String}
	}
	if cNonce.Valid {
		tok.CNonce = &domain.CNonce{Value: cNonce.String, ExpiresAt: fromMillis(cNonceEx.Int64)}
	}
	return tok, true, nil
}
