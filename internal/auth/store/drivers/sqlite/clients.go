package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
)

type clientsRepo struct {
	db dbtx
}

// clientConfig is the JSON encoded part of a client row.
type clientConfig struct {
	TokenEndpointAuthMethod               string                         `json:"token_endpoint_auth_method"`
	RedirectURIs                          []string                       `json:"redirect_uris,omitempty"`
	GrantTypes                            []domain.GrantType             `json:"grant_types,omitempty"`
	ResponseTypes                         []string                       `json:"response_types,omitempty"`
	Scopes                                []string                       `json:"scopes,omitempty"`
	AuthorizationDetailsTypes             []string                       `json:"authorization_details_types,omitempty"`
	TLSClientCertificateBoundAccessTokens bool                           `json:"tls_client_certificate_bound_access_tokens,omitempty"`
	TLSClientAuthSubjectDN                string                         `json:"tls_client_auth_subject_dn,omitempty"`
	JWKS                                  json.RawMessage                `json:"jwks,omitempty"`
	RequestURIs                           []string                       `json:"request_uris,omitempty"`
	RefreshRotation                       domain.RefreshRotationOverride `json:"refresh_rotation"`
}

func (r *clientsRepo) Get(ctx context.Context, tenantID, clientID string) (domain.Client, error) {
	var (
		c                domain.Client
		secret           sql.NullString
		raw              string
		created, updated int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT tenant_id, client_id, name, secret_hash, config, created_at, updated_at
		FROM clients WHERE tenant_id = ? AND client_id = ?`, tenantID, clientID).
		Scan(&c.TenantID, &c.ClientID, &c.Name, &secret, &raw, &created, &updated)
	if err != nil {
		return domain.Client{}, mapNotFound(err)
	}

	var cfg clientConfig
	if err := decodeJSON(raw, &cfg); err != nil {
		return domain.Client{}, err
	}

	c.SecretHash = mapNullString(secret)
	c.TokenEndpointAuthMethod = cfg.TokenEndpointAuthMethod
	c.RedirectURIs = cfg.RedirectURIs
	c.GrantTypes = cfg.GrantTypes
	c.ResponseTypes = cfg.ResponseTypes
	c.Scopes = cfg.Scopes
	c.AuthorizationDetailsTypes = cfg.AuthorizationDetailsTypes
	c.TLSClientCertificateBoundAccessTokens = cfg.TLSClientCertificateBoundAccessTokens
	c.TLSClientAuthSubjectDN = cfg.TLSClientAuthSubjectDN
	c.JWKS = cfg.JWKS
	c.RequestURIs = cfg.RequestURIs
	c.RefreshRotation = cfg.RefreshRotation
	c.CreatedAt = fromMillis(created)
	c.UpdatedAt = fromMillis(updated)
	return c, nil
}

func (r *clientsRepo) Upsert(ctx context.Context, c domain.Client) error {
	raw, err := encodeJSON(clientConfig{
		TokenEndpointAuthMethod:               c.TokenEndpointAuthMethod,
		RedirectURIs:                          c.RedirectURIs,
		GrantTypes:                            c.GrantTypes,
		ResponseTypes:                         c.ResponseTypes,
		Scopes:                                c.Scopes,
		AuthorizationDetailsTypes:             c.AuthorizationDetailsTypes,
		TLSClientCertificateBoundAccessTokens: c.TLSClientCertificateBoundAccessTokens,
		TLSClientAuthSubjectDN:                c.TLSClientAuthSubjectDN,
		JWKS:                                  c.JWKS,
		RequestURIs:                           c.RequestURIs,
		RefreshRotation:                       c.RefreshRotation,
	})
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO clients (tenant_id, client_id, name, secret_hash, config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, client_id) DO UPDATE SET
			name = excluded.name,
			secret_hash = excluded.secret_hash,
			config = excluded.config,
			updated_at = excluded.updated_at`,
		c.TenantID, c.ClientID, c.Name, mapStringNull(c.SecretHash), raw,
		toMillis(c.CreatedAt), toMillis(c.UpdatedAt))
	return mapConstraint(err)
}
