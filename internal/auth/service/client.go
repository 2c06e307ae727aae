package service

import (
	"context"
	"crypto/x509"
	"errors"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

var ErrInvalidClient = errors.New("invalid_client")

// CredentialSource says where the client presented its secret.
type CredentialSource int

const (
	CredentialsNone CredentialSource = iota
	CredentialsBasic
	CredentialsPost
)

// ClientCredentials is what a caller presented at a client authenticated
// endpoint.
type ClientCredentials struct {
	ClientID    string
	Secret      string
	Source      CredentialSource
	Certificate *x509.Certificate
}

// ClientAuthenticator checks presented credentials against the client's
// registered token_endpoint_auth_method.
type ClientAuthenticator struct {
	Store store.Store
}

// Authenticate returns the client or ErrInvalidClient. Unknown clients and
// wrong secrets are indistinguishable to the caller.
func (a *ClientAuthenticator) Authenticate(ctx context.Context, tenant domain.Tenant, creds ClientCredentials) (domain.Client, error) {
	l := slogx.FromContext(ctx)

	if creds.ClientID == "" {
		return domain.Client{}, ErrInvalidClient
	}
	client, err := a.Store.Clients().Get(ctx, tenant.ID, creds.ClientID)
	if errors.Is(err, store.ErrNotFound) {
		l.Info("client authentication failed", "client_id", creds.ClientID, "reason", "unknown client")
		return domain.Client{}, ErrInvalidClient
	}
	if err != nil {
		return domain.Client{}, err
	}

	method := client.TokenEndpointAuthMethod
	if method == "" {
		method = domain.AuthMethodClientSecretBasic
	}

	var ok bool
	switch method {
	case domain.AuthMethodNone:
		ok = creds.Secret == ""
	case domain.AuthMethodClientSecretBasic:
		ok = creds.Source == CredentialsBasic && a.secretMatches(creds.Secret, client.SecretHash)
	case domain.AuthMethodClientSecretPost:
		ok = creds.Source == CredentialsPost && a.secretMatches(creds.Secret, client.SecretHash)
	case domain.AuthMethodTLSClientAuth:
		ok = creds.Certificate != nil && client.TLSClientAuthSubjectDN != "" &&
			creds.Certificate.Subject.String() == client.TLSClientAuthSubjectDN
	}
	if !ok {
		l.Info("client authentication failed", "client_id", creds.ClientID, "method", method)
		return domain.Client{}, ErrInvalidClient
	}
	return client, nil
}

func (a *ClientAuthenticator) secretMatches(secret, hash string) bool {
	if secret == "" || hash == "" {
		return false
	}
	return cryptox.VerifySecret(secret, hash) == nil
}
