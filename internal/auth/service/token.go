package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/grant"
	"github.com/aussiebroadwan/tollgate/internal/auth/oautherr"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

var ErrUnsupportedGrantType = errors.New("unsupported_grant_type")

// TokenObserver counts token endpoint outcomes. *metrics.Metrics satisfies it.
type TokenObserver interface {
	TokenIssued(tenantID string, gt domain.GrantType)
	TokenFailed(gt domain.GrantType, code string)
}

// TokenRequest is a token endpoint call as received over the wire.
type TokenRequest struct {
	GrantType   domain.GrantType
	Credentials ClientCredentials

	// Scope is the raw scope parameter; nil scopes mean it was omitted.
	Scope        string
	Code         string
	RedirectURI  string
	CodeVerifier string
	RefreshToken string
	Username     string
	Password     string
}

// TokenService is the token endpoint. It authenticates the client, checks
// the grant type is both offered by the tenant and allowed for the client,
// then runs the grant service in one transaction.
type TokenService struct {
	Store    store.Store
	Clients  *ClientAuthenticator
	Grants   *grant.Registry
	Observer TokenObserver
}

func (s *TokenService) Exchange(ctx context.Context, tenant domain.Tenant, req TokenRequest) (domain.OAuthToken, error) {
	tok, err := s.exchange(ctx, tenant, req)
	if s.Observer != nil {
		if err != nil {
			s.Observer.TokenFailed(req.GrantType, ErrorCode(err))
		} else {
			s.Observer.TokenIssued(tenant.ID, req.GrantType)
		}
	}
	return tok, err
}

func (s *TokenService) exchange(ctx context.Context, tenant domain.Tenant, req TokenRequest) (domain.OAuthToken, error) {
	l := slogx.FromContext(ctx)

	client, err := s.Clients.Authenticate(ctx, tenant, req.Credentials)
	if err != nil {
		return domain.OAuthToken{}, err
	}

	if req.GrantType == "" {
		return domain.OAuthToken{}, grant.ErrInvalidRequest
	}
	if !tenant.Server.SupportsGrant(req.GrantType) {
		l.Info("grant type not supported by tenant", "grant_type", req.GrantType)
		return domain.OAuthToken{}, ErrUnsupportedGrantType
	}
	if !client.AllowsGrant(req.GrantType) {
		l.Info("grant type not allowed for client", "grant_type", req.GrantType, "client_id", client.ClientID)
		return domain.OAuthToken{}, grant.ErrUnauthorizedClient
	}

	svc, err := s.Grants.Lookup(req.GrantType)
	if err != nil {
		l.Error("grant type offered without a service", "grant_type", req.GrantType)
		return domain.OAuthToken{}, err
	}

	greq := grant.Request{
		Tenant:       tenant,
		Client:       client,
		Scopes:       domain.ParseScopes(req.Scope),
		Code:         req.Code,
		RedirectURI:  req.RedirectURI,
		CodeVerifier: req.CodeVerifier,
		RefreshToken: req.RefreshToken,
		Username:     req.Username,
		Password:     req.Password,
		Certificate:  req.Credentials.Certificate,
	}

	var tok domain.OAuthToken
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		tok, err = svc.Create(ctx, tx, greq)
		return err
	})
	if err != nil {
		l.Info("token request failed", "grant_type", req.GrantType, "client_id", client.ClientID, "error", err)
		return domain.OAuthToken{}, err
	}

	l.Info("token issued",
		"grant_type", req.GrantType,
		"client_id", client.ClientID,
		"token_id", tok.ID,
		"refresh", tok.HasRefreshToken())
	return tok, nil
}

// ExpiresIn is the access token lifetime in whole seconds.
func ExpiresIn(tok domain.OAuthToken) int64 {
	return int64(tok.AccessToken.ExpiresAt.Sub(tok.AccessToken.CreatedAt) / time.Second)
}

// ErrorCode maps a token, introspection or revocation failure to its OAuth
// error code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidClient):
		return "invalid_client"
	case errors.Is(err, ErrUnsupportedGrantType):
		return "unsupported_grant_type"
	case errors.Is(err, ErrUnsupportedTokenType):
		return "unsupported_token_type"
	case errors.Is(err, grant.ErrUnauthorizedClient):
		return "unauthorized_client"
	case errors.Is(err, grant.ErrInvalidGrant):
		return "invalid_grant"
	case errors.Is(err, grant.ErrInvalidScope):
		return "invalid_scope"
	case errors.Is(err, grant.ErrInvalidRequest):
		return "invalid_request"
	}
	var oe *oautherr.Error
	if errors.As(err, &oe) && oe.Kind != oautherr.KindServerError {
		return oe.Code
	}
	return "server_error"
}
