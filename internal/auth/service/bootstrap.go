package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/idx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// Seed declares tenants with their clients and users. It is applied on
// every boot, so entries are upserted.
type Seed struct {
	Tenants []SeedTenant `yaml:"tenants"`
}

type SeedTenant struct {
	ID string `yaml:"id"`
	// Issuer defaults to the public URL followed by the tenant id.
	Issuer string `yaml:"issuer"`
	// Server is decoded over domain.DefaultServerConfiguration.
	Server  yaml.Node    `yaml:"server"`
	Clients []SeedClient `yaml:"clients"`
	Users   []SeedUser   `yaml:"users"`
}

type SeedClient struct {
	ClientID                              string                         `yaml:"client_id"`
	Name                                  string                         `yaml:"name"`
	Secret                                string                         `yaml:"secret"`
	TokenEndpointAuthMethod               string                         `yaml:"token_endpoint_auth_method"`
	RedirectURIs                          []string                       `yaml:"redirect_uris"`
	GrantTypes                            []domain.GrantType             `yaml:"grant_types"`
	ResponseTypes                         []string                       `yaml:"response_types"`
	Scopes                                []string                       `yaml:"scopes"`
	AuthorizationDetailsTypes             []string                       `yaml:"authorization_details_types"`
	TLSClientCertificateBoundAccessTokens bool                           `yaml:"tls_client_certificate_bound_access_tokens"`
	TLSClientAuthSubjectDN                string                         `yaml:"tls_client_auth_subject_dn"`
	JWKS                                  map[string]any                 `yaml:"jwks"`
	RequestURIs                           []string                       `yaml:"request_uris"`
	RefreshRotation                       domain.RefreshRotationOverride `yaml:"refresh_rotation"`
}

type SeedUser struct {
	ID            string            `yaml:"id"`
	Username      string            `yaml:"username"`
	Password      string            `yaml:"password"`
	PreferredName string            `yaml:"preferred_name"`
	Email         string            `yaml:"email"`
	Status        domain.UserStatus `yaml:"status"`
}

// ParseSeed decodes YAML. Unknown keys are rejected.
func ParseSeed(r io.Reader) (Seed, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Seed
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Seed{}, fmt.Errorf("service: parse seed: %w", err)
	}
	return s, nil
}

func LoadSeedFile(path string) (Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, fmt.Errorf("service: open seed: %w", err)
	}
	defer f.Close()
	return ParseSeed(f)
}

// BootstrapService writes a Seed into the store.
type BootstrapService struct {
	Store     store.Store
	PublicURL string
	Now       func() time.Time
}

// Apply upserts every tenant, client and user in one transaction.
func (s *BootstrapService) Apply(ctx context.Context, seed Seed) error {
	l := slogx.FromContext(ctx)
	now := s.now()

	tenants := make([]domain.Tenant, 0, len(seed.Tenants))
	for _, st := range seed.Tenants {
		t, err := s.tenant(st, now)
		if err != nil {
			return err
		}
		tenants = append(tenants, t)
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		for i, st := range seed.Tenants {
			t := tenants[i]
			if err := tx.Tenants().Upsert(ctx, t); err != nil {
				return fmt.Errorf("tenant %s: %w", t.ID, err)
			}
			for _, sc := range st.Clients {
				c, err := seedClient(t.ID, sc, now)
				if err != nil {
					return err
				}
				if err := tx.Clients().Upsert(ctx, c); err != nil {
					return fmt.Errorf("tenant %s client %s: %w", t.ID, c.ClientID, err)
				}
			}
			for _, su := range st.Users {
				if err := seedUser(ctx, tx, t.ID, su, now); err != nil {
					return err
				}
			}
			l.Info("seeded tenant", "tenant_id", t.ID, "issuer", t.Issuer,
				"clients", len(st.Clients), "users", len(st.Users))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("service: apply seed: %w", err)
	}
	return nil
}

func (s *BootstrapService) tenant(st SeedTenant, now time.Time) (domain.Tenant, error) {
	if st.ID == "" {
		return domain.Tenant{}, errors.New("service: seed tenant without id")
	}
	cfg := domain.DefaultServerConfiguration()
	if st.Server.Kind != 0 {
		if err := st.Server.Decode(&cfg); err != nil {
			return domain.Tenant{}, fmt.Errorf("service: tenant %s server: %w", st.ID, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return domain.Tenant{}, fmt.Errorf("service: tenant %s: %w", st.ID, err)
	}

	issuer := st.Issuer
	if issuer == "" {
		issuer = strings.TrimSuffix(s.PublicURL, "/") + "/" + st.ID
	}
	return domain.Tenant{ID: st.ID, Issuer: issuer, Server: cfg, CreatedAt: now}, nil
}

func seedClient(tenantID string, sc SeedClient, now time.Time) (domain.Client, error) {
	if sc.ClientID == "" {
		return domain.Client{}, fmt.Errorf("service: tenant %s: client without client_id", tenantID)
	}

	c := domain.Client{
		TenantID:                              tenantID,
		ClientID:                              sc.ClientID,
		Name:                                  sc.Name,
		TokenEndpointAuthMethod:               sc.TokenEndpointAuthMethod,
		RedirectURIs:                          sc.RedirectURIs,
		GrantTypes:                            sc.GrantTypes,
		ResponseTypes:                         sc.ResponseTypes,
		Scopes:                                sc.Scopes,
		AuthorizationDetailsTypes:             sc.AuthorizationDetailsTypes,
		TLSClientCertificateBoundAccessTokens: sc.TLSClientCertificateBoundAccessTokens,
		TLSClientAuthSubjectDN:                sc.TLSClientAuthSubjectDN,
		RequestURIs:                           sc.RequestURIs,
		RefreshRotation:                       sc.RefreshRotation,
		CreatedAt:                             now,
		UpdatedAt:                             now,
	}
	if c.TokenEndpointAuthMethod == "" {
		c.TokenEndpointAuthMethod = domain.AuthMethodClientSecretBasic
		if sc.Secret == "" {
			c.TokenEndpointAuthMethod = domain.AuthMethodNone
		}
	}

	if sc.Secret != "" {
		hash, err := cryptox.HashSecret(sc.Secret)
		if err != nil {
			return domain.Client{}, err
		}
		c.SecretHash = hash
	}
	if len(sc.JWKS) > 0 {
		raw, err := json.Marshal(sc.JWKS)
		if err != nil {
			return domain.Client{}, fmt.Errorf("service: client %s jwks: %w", sc.ClientID, err)
		}
		c.JWKS = raw
	}
	return c, nil
}

func seedUser(ctx context.Context, tx store.Store, tenantID string, su SeedUser, now time.Time) error {
	if su.Username == "" {
		return fmt.Errorf("service: tenant %s: user without username", tenantID)
	}

	id := su.ID
	created := now
	existing, err := tx.Users().GetByUsername(ctx, tenantID, su.Username)
	switch {
	case err == nil:
		if id == "" {
			id = existing.ID
		}
		created = existing.CreatedAt
	case !errors.Is(err, store.ErrNotFound):
		return err
	}
	if id == "" {
		id = idx.NewAt(now).String()
	}

	u := domain.User{
		ID:            id,
		TenantID:      tenantID,
		Username:      su.Username,
		PreferredName: su.PreferredName,
		Email:         su.Email,
		Status:        su.Status,
		CreatedAt:     created,
		UpdatedAt:     now,
	}
	if u.Status == "" {
		u.Status = domain.UserRegistered
	}
	if su.Password != "" {
		hash, err := cryptox.HashSecret(su.Password)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
	} else if err == nil {
		u.PasswordHash = existing.PasswordHash
	}

	if err := tx.Users().Upsert(ctx, u); err != nil {
		return fmt.Errorf("tenant %s user %s: %w", tenantID, su.Username, err)
	}
	return nil
}

func (s *BootstrapService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
