// Package grant turns a validated token request into persisted tokens, one
// Service per grant type.
package grant

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/oautherr"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/internal/auth/token"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// Token endpoint failures. The values are the RFC 6749 error codes.
var (
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrInvalidGrant       = errors.New("invalid_grant")
	ErrInvalidScope       = errors.New("invalid_scope")
	ErrUnauthorizedClient = errors.New("unauthorized_client")
)

// Request is a token request from an authenticated client.
type Request struct {
	Tenant domain.Tenant
	Client domain.Client

	// Scopes requested through the scope parameter. Nil when omitted.
	Scopes []string

	Code         string
	RedirectURI  string
	CodeVerifier string

	RefreshToken string

	Username string
	Password string

	// Certificate is the client certificate presented on this connection.
	Certificate *x509.Certificate
}

// Service creates tokens for one grant type. Create runs inside the
// caller's transaction and must only touch tx.
type Service interface {
	GrantType() domain.GrantType
	Create(ctx context.Context, tx store.Store, req Request) (domain.OAuthToken, error)
}

// Builder signs tokens. *token.Builder satisfies it.
type Builder interface {
	Build(in token.Issue) (domain.OAuthToken, error)
}

// Registry maps grant types to their services. It is not modified after
// NewRegistry returns.
type Registry struct {
	services map[domain.GrantType]Service
}

func NewRegistry(services ...Service) (*Registry, error) {
	r := &Registry{services: make(map[domain.GrantType]Service, len(services))}
	for _, s := range services {
		if s == nil {
			return nil, errors.New("grant: nil service")
		}
		gt := s.GrantType()
		if _, dup := r.services[gt]; dup {
			return nil, fmt.Errorf("grant: duplicate service for %q", gt)
		}
		r.services[gt] = s
	}
	return r, nil
}

// Lookup fails with a ServerError when no service handles gt; the server
// advertised a grant it cannot serve.
func (r *Registry) Lookup(gt domain.GrantType) (Service, error) {
	s, ok := r.services[gt]
	if !ok {
		return nil, oautherr.ServerError(fmt.Sprintf("no service registered for grant type %q", gt), nil)
	}
	return s, nil
}

func (r *Registry) GrantTypes() []domain.GrantType {
	out := make([]domain.GrantType, 0, len(r.services))
	for gt := range r.services {
		out = append(out, gt)
	}
	slices.Sort(out)
	return out
}

// senderConstraint reports whether the token must be certificate bound and
// returns the thumbprint to stamp on it.
func senderConstraint(req Request) (thumbprint string, required bool, err error) {
	required = req.Tenant.Server.TLSClientCertificateBoundAccessTokens &&
		req.Client.TLSClientCertificateBoundAccessTokens
	if !required {
		return "", false, nil
	}
	if req.Certificate == nil {
		return "", true, fmt.Errorf("%w: missing client certificate", ErrInvalidRequest)
	}
	return cryptox.CertificateThumbprint(req.Certificate), true, nil
}

// issue builds and persists a token for g.
func issue(ctx context.Context, tx store.Store, b Builder, req Request, in token.Issue) (domain.OAuthToken, error) {
	thumb, required, err := senderConstraint(req)
	if err != nil {
		return domain.OAuthToken{}, err
	}
	in.Tenant = req.Tenant
	in.Thumbprint = thumb
	in.RequireSenderConstraint = required

	tok, err := b.Build(in)
	if err != nil {
		return domain.OAuthToken{}, oautherr.ServerError("build token", err)
	}
	if err := register(ctx, tx, tok); err != nil {
		return domain.OAuthToken{}, err
	}
	return tok, nil
}

func register(ctx context.Context, tx store.Store, tok domain.OAuthToken) error {
	err := tx.Tokens().Register(ctx, tok)
	if errors.Is(err, store.ErrAlreadyExists) {
		slogx.FromContext(ctx).Error("token value collision", "token_id", tok.ID, "client_id", tok.ClientID)
		return oautherr.ServerError("token value collision", err)
	}
	return err
}

// refreshDuration is the lifetime of a new refresh token for the client, or
// zero when the client may not use the refresh_token grant.
func refreshDuration(req Request) time.Duration {
	if !req.Client.AllowsGrant(domain.GrantRefreshToken) {
		return 0
	}
	return domain.ResolveRotationPolicy(req.Tenant.Server.RefreshRotation, req.Client.RefreshRotation).Duration
}

// filterScopes narrows requested to what the client may hold. An empty
// request selects every client scope.
func filterScopes(requested, allowed []string) ([]string, error) {
	if len(requested) == 0 {
		if len(allowed) == 0 {
			return nil, ErrInvalidScope
		}
		return slices.Clone(allowed), nil
	}
	out := domain.IntersectScopes(requested, allowed)
	if len(out) == 0 {
		return nil, ErrInvalidScope
	}
	return out, nil
}

// activeUser loads the subject and fails with ErrInvalidGrant when it is
// gone or no longer active.
func activeUser(ctx context.Context, tx store.Store, tenantID, userID string) (domain.User, error) {
	u, err := tx.Users().Get(ctx, tenantID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, fmt.Errorf("%w: unknown subject", ErrInvalidGrant)
	}
	if err != nil {
		return domain.User{}, err
	}
	if !u.IsActive() {
		slogx.FromContext(ctx).Info("grant refused for inactive user",
			slog.String("user_id", u.ID), slog.String("status", string(u.Status)))
		return domain.User{}, fmt.Errorf("%w: subject is not active", ErrInvalidGrant)
	}
	return u, nil
}
