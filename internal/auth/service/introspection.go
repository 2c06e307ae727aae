package service

import (
	"context"
	"crypto/x509"
	"errors"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/introspect"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// Token type hints (RFC 7009 section 2.1).
const (
	HintAccessToken  = "access_token"
	HintRefreshToken = "refresh_token"
)

var ErrUnsupportedTokenType = errors.New("unsupported_token_type")

// IntrospectionObserver counts introspection outcomes by result label.
type IntrospectionObserver interface {
	Introspected(result string)
}

// IntrospectionService answers RFC 7662 queries from authenticated clients.
type IntrospectionService struct {
	Clients  *ClientAuthenticator
	Verifier *introspect.Verifier
	Observer IntrospectionObserver
}

// IntrospectionRequest carries the token being asked about. Certificate is
// the one the resource server saw on the original call, when it forwards it.
type IntrospectionRequest struct {
	Credentials ClientCredentials
	Token       string
	Scope       string
	Certificate *x509.Certificate
}

// Introspect only fails for client authentication and storage errors. Any
// problem with the token itself yields {active:false}.
func (s *IntrospectionService) Introspect(ctx context.Context, tenant domain.Tenant, req IntrospectionRequest) (authsdk.IntrospectionResponse, error) {
	l := slogx.FromContext(ctx)

	if _, err := s.Clients.Authenticate(ctx, tenant, req.Credentials); err != nil {
		return authsdk.IntrospectionResponse{}, err
	}

	cert := req.Certificate
	if cert == nil {
		cert = req.Credentials.Certificate
	}
	m, err := s.Verifier.Verify(ctx, introspect.Input{
		TenantID:    tenant.ID,
		Token:       req.Token,
		Scopes:      domain.ParseScopes(req.Scope),
		Certificate: cert,
	})

	result := introspectionResult(err)
	if s.Observer != nil {
		s.Observer.Introspected(result)
	}
	if err != nil {
		if result == "error" {
			l.Error("introspection failed", "error", err)
			return authsdk.IntrospectionResponse{}, err
		}
		l.Debug("token inactive", "reason", result, "token_id", m.Token.ID)
		return authsdk.IntrospectionResponse{Active: false}, nil
	}

	tok := m.Token
	resp := authsdk.IntrospectionResponse{
		Active:   true,
		Scope:    domain.JoinScopes(tok.Scopes),
		ClientID: tok.ClientID,
		Exp:      m.ExpiresAt().Unix(),
		Iat:      m.IssuedAt().Unix(),
		Sub:      tok.Subject,
		Iss:      tok.Issuer,
	}
	// token_type and cnf describe access tokens only.
	if !m.Refresh {
		resp.TokenType = tok.TokenType
		if tok.IsSenderConstrained() {
			resp.Cnf = map[string]string{"x5t#S256": tok.AccessToken.ClientCertThumbprint}
		}
	}
	return resp, nil
}

func introspectionResult(err error) string {
	switch {
	case err == nil:
		return "active"
	case errors.Is(err, introspect.ErrTokenInvalid):
		return "invalid"
	case errors.Is(err, introspect.ErrAccessExpiredRefreshValid):
		return "expired"
	case errors.Is(err, introspect.ErrCertificateBindingInvalid):
		return "binding"
	case errors.Is(err, introspect.ErrInsufficientScope):
		return "scope"
	case errors.Is(err, introspect.ErrUserInactive):
		return "inactive_user"
	}
	return "error"
}

// RevocationService implements RFC 7009. Unknown tokens and tokens issued
// to another client are reported as revoked.
type RevocationService struct {
	Store   store.Store
	Clients *ClientAuthenticator
}

func (s *RevocationService) Revoke(ctx context.Context, tenant domain.Tenant, creds ClientCredentials, value, hint string) error {
	l := slogx.FromContext(ctx)

	client, err := s.Clients.Authenticate(ctx, tenant, creds)
	if err != nil {
		return err
	}

	var lookups []func(context.Context, string, string) (domain.OAuthToken, bool, error)
	tokens := s.Store.Tokens()
	switch hint {
	case "", HintAccessToken:
		lookups = append(lookups, tokens.FindByAccessToken, tokens.FindByRefreshToken)
	case HintRefreshToken:
		lookups = append(lookups, tokens.FindByRefreshToken, tokens.FindByAccessToken)
	default:
		return ErrUnsupportedTokenType
	}
	if value == "" {
		return nil
	}

	for _, find := range lookups {
		tok, ok, err := find(ctx, tenant.ID, value)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if tok.ClientID != client.ClientID {
			l.Warn("revocation of another client's token ignored", "client_id", client.ClientID, "token_id", tok.ID)
			return nil
		}
		if err := tokens.Delete(ctx, tenant.ID, tok.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		l.Info("token revoked", "client_id", client.ClientID, "token_id", tok.ID)
		return nil
	}
	return nil
}
