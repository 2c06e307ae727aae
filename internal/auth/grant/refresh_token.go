package grant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/oautherr"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/internal/auth/token"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// RefreshTokenService redeems refresh tokens. The old row is removed with
// a conditional delete before the replacement is stored, so of two
// concurrent refreshes of one token only the first succeeds.
type RefreshTokenService struct {
	Tokens Builder
	Now    func() time.Time
}

func NewRefreshTokenService(tokens Builder) *RefreshTokenService {
	return &RefreshTokenService{Tokens: tokens, Now: time.Now}
}

func (s *RefreshTokenService) GrantType() domain.GrantType { return domain.GrantRefreshToken }

func (s *RefreshTokenService) Create(ctx context.Context, tx store.Store, req Request) (domain.OAuthToken, error) {
	l := slogx.FromContext(ctx)
	now := s.Now()

	if req.RefreshToken == "" {
		return domain.OAuthToken{}, fmt.Errorf("%w: missing refresh_token", ErrInvalidRequest)
	}

	old, ok, err := tx.Tokens().FindByRefreshToken(ctx, req.Tenant.ID, req.RefreshToken)
	if err != nil {
		return domain.OAuthToken{}, err
	}
	if !ok {
		return domain.OAuthToken{}, fmt.Errorf("%w: unknown refresh token", ErrInvalidGrant)
	}
	if old.ClientID != req.Client.ClientID {
		l.Warn("refresh token presented by another client",
			"token_client_id", old.ClientID, "client_id", req.Client.ClientID)
		return domain.OAuthToken{}, fmt.Errorf("%w: token was issued to another client", ErrInvalidGrant)
	}
	if !old.RefreshActive(now) {
		return domain.OAuthToken{}, fmt.Errorf("%w: refresh token expired", ErrInvalidGrant)
	}

	scopes := old.Scopes
	if len(req.Scopes) > 0 {
		if !domain.ScopesSubset(req.Scopes, old.Scopes) {
			return domain.OAuthToken{}, fmt.Errorf("%w: scope exceeds original grant", ErrInvalidScope)
		}
		scopes = req.Scopes
	}

	var username string
	if old.Subject != "" {
		u, err := activeUser(ctx, tx, req.Tenant.ID, old.Subject)
		if err != nil {
			return domain.OAuthToken{}, err
		}
		username = u.Username
	}

	policy := domain.ResolveRotationPolicy(req.Tenant.Server.RefreshRotation, req.Client.RefreshRotation)
	next, err := token.Refresh(*old.RefreshToken, policy, now)
	if err != nil {
		return domain.OAuthToken{}, oautherr.ServerError("rotate refresh token", err)
	}

	thumb, required, err := senderConstraint(req)
	if err != nil {
		return domain.OAuthToken{}, err
	}
	tok, err := s.Tokens.Build(token.Issue{
		Tenant: req.Tenant,
		Grant: domain.AuthorizationGrant{
			Subject:              old.Subject,
			Username:             username,
			ClientID:             old.ClientID,
			Scopes:               scopes,
			AuthorizationDetails: old.AuthorizationDetails,
		},
		Thumbprint:              thumb,
		RequireSenderConstraint: required,
	})
	if err != nil {
		return domain.OAuthToken{}, oautherr.ServerError("build token", err)
	}
	tok.RefreshToken = &next

	if err := tx.Tokens().Delete(ctx, req.Tenant.ID, old.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("refresh token already redeemed", "token_id", old.ID, "client_id", old.ClientID)
			return domain.OAuthToken{}, fmt.Errorf("%w: refresh token already used", ErrInvalidGrant)
		}
		return domain.OAuthToken{}, err
	}
	if err := register(ctx, tx, tok); err != nil {
		return domain.OAuthToken{}, err
	}
	return tok, nil
}
