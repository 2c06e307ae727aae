package grant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/internal/auth/token"
)

// ErrInvalidCredentials is returned by delegates for an unknown user or a
// wrong password.
var ErrInvalidCredentials = errors.New("grant: invalid credentials")

// PasswordCredentialsGrantDelegate authenticates a resource owner. users is
// bound to the caller's transaction.
type PasswordCredentialsGrantDelegate interface {
	FindAndAuthenticate(ctx context.Context, users store.Users, tenant domain.Tenant, username, password string) (domain.User, error)
}

// PasswordService runs the resource owner password credentials grant.
type PasswordService struct {
	Tokens   Builder
	Delegate PasswordCredentialsGrantDelegate
	Now      func() time.Time
}

func NewPasswordService(tokens Builder, delegate PasswordCredentialsGrantDelegate) *PasswordService {
	return &PasswordService{Tokens: tokens, Delegate: delegate, Now: time.Now}
}

func (s *PasswordService) GrantType() domain.GrantType { return domain.GrantPassword }

func (s *PasswordService) Create(ctx context.Context, tx store.Store, req Request) (domain.OAuthToken, error) {
	if req.Username == "" || req.Password == "" {
		return domain.OAuthToken{}, fmt.Errorf("%w: username and password are required", ErrInvalidRequest)
	}

	user, err := s.Delegate.FindAndAuthenticate(ctx, tx.Users(), req.Tenant, req.Username, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		return domain.OAuthToken{}, fmt.Errorf("%w: invalid resource owner credentials", ErrInvalidGrant)
	}
	if err != nil {
		return domain.OAuthToken{}, err
	}
	if !user.IsActive() {
		return domain.OAuthToken{}, fmt.Errorf("%w: subject is not active", ErrInvalidGrant)
	}

	scopes, err := filterScopes(req.Scopes, req.Client.Scopes)
	if err != nil {
		return domain.OAuthToken{}, err
	}

	return issue(ctx, tx, s.Tokens, req, token.Issue{
		Grant: domain.AuthorizationGrant{
			Subject:  user.ID,
			Username: user.Username,
			ClientID: req.Client.ClientID,
			Scopes:   scopes,
			AuthTime: s.Now(),
			AMR:      []string{"pwd"},
		},
		RefreshDuration: refreshDuration(req),
	})
}
