package grant

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/internal/auth/token"
)

// ClientCredentialsService issues access tokens to a client acting on its
// own behalf. No refresh or ID token is issued.
type ClientCredentialsService struct {
	Tokens Builder
}

func NewClientCredentialsService(tokens Builder) *ClientCredentialsService {
	return &ClientCredentialsService{Tokens: tokens}
}

func (s *ClientCredentialsService) GrantType() domain.GrantType { return domain.GrantClientCredentials }

func (s *ClientCredentialsService) Create(ctx context.Context, tx store.Store, req Request) (domain.OAuthToken, error) {
	if req.Client.IsPublic() {
		return domain.OAuthToken{}, fmt.Errorf("%w: public clients cannot use client_credentials", ErrUnauthorizedClient)
	}

	scopes, err := filterScopes(req.Scopes, req.Client.Scopes)
	if err != nil {
		return domain.OAuthToken{}, err
	}

	return issue(ctx, tx, s.Tokens, req, token.Issue{
		Grant: domain.AuthorizationGrant{
			ClientID: req.Client.ClientID,
			Scopes:   scopes,
		},
	})
}
