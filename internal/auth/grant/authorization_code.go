package grant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/internal/auth/token"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// AuthorizationCodeService redeems authorization codes.
type AuthorizationCodeService struct {
	Tokens Builder
	Now    func() time.Time
}

func NewAuthorizationCodeService(tokens Builder) *AuthorizationCodeService {
	return &AuthorizationCodeService{Tokens: tokens, Now: time.Now}
}

func (s *AuthorizationCodeService) GrantType() domain.GrantType { return domain.GrantAuthorizationCode }

func (s *AuthorizationCodeService) Create(ctx context.Context, tx store.Store, req Request) (domain.OAuthToken, error) {
	l := slogx.FromContext(ctx)
	now := s.Now()

	if req.Code == "" {
		return domain.OAuthToken{}, fmt.Errorf("%w: missing code", ErrInvalidRequest)
	}

	code, err := tx.AuthorizationCodes().GetByHash(ctx, req.Tenant.ID, cryptox.FingerprintToken(req.Code))
	if errors.Is(err, store.ErrNotFound) {
		return domain.OAuthToken{}, fmt.Errorf("%w: unknown code", ErrInvalidGrant)
	}
	if err != nil {
		return domain.OAuthToken{}, err
	}

	switch {
	case code.ClientID != req.Client.ClientID:
		l.Warn("authorization code presented by another client",
			"code_client_id", code.ClientID, "client_id", req.Client.ClientID)
		return domain.OAuthToken{}, fmt.Errorf("%w: code was issued to another client", ErrInvalidGrant)
	case code.RedirectURI != "" && code.RedirectURI != req.RedirectURI:
		return domain.OAuthToken{}, fmt.Errorf("%w: redirect_uri mismatch", ErrInvalidGrant)
	case code.IsExpired(now):
		return domain.OAuthToken{}, fmt.Errorf("%w: code expired", ErrInvalidGrant)
	case !VerifyCodeVerifier(code.CodeChallenge, code.CodeChallengeMethod, req.CodeVerifier):
		return domain.OAuthToken{}, fmt.Errorf("%w: code_verifier mismatch", ErrInvalidGrant)
	}

	// A second redemption racing this one loses here.
	if err := tx.AuthorizationCodes().Consume(ctx, req.Tenant.ID, code.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.OAuthToken{}, fmt.Errorf("%w: code already used", ErrInvalidGrant)
		}
		return domain.OAuthToken{}, err
	}
	user, err := activeUser(ctx, tx, req.Tenant.ID, code.UserID)
	if err != nil {
		return domain.OAuthToken{}, err
	}

	if err := recordConsent(ctx, tx, req.Tenant.ID, user.ID, req.Client.ClientID, code, now); err != nil {
		return domain.OAuthToken{}, err
	}

	return issue(ctx, tx, s.Tokens, req, token.Issue{
		Grant: domain.AuthorizationGrant{
			Subject:              user.ID,
			Username:             user.Username,
			ClientID:             req.Client.ClientID,
			Scopes:               code.Scopes,
			AuthorizationDetails: code.AuthorizationDetails,
			AuthTime:             code.AuthTime,
			AMR:                  code.AMR,
		},
		RefreshDuration: refreshDuration(req),
		Nonce:           code.Nonce,
	})
}

func recordConsent(ctx context.Context, tx store.Store, tenantID, userID, clientID string, code domain.AuthorizationCode, now time.Time) error {
	granted, ok, err := tx.AuthorizationGranted().Find(ctx, tenantID, userID, clientID)
	if err != nil {
		return err
	}
	if !ok {
		granted = domain.AuthorizationGranted{
			TenantID:  tenantID,
			UserID:    userID,
			ClientID:  clientID,
			CreatedAt: now,
		}
	}
	return tx.AuthorizationGranted().Save(ctx, granted.Merge(code.Scopes, code.AuthorizationDetails, now))
}
