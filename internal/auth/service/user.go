package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/grant"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
)

// dummyHash is verified against when the username is unknown so a miss
// costs the same as a wrong password.
var dummyHash, _ = cryptox.HashSecret("tollgate-dummy-password")

// PasswordAuthenticator checks usernames and argon2id password hashes. It
// backs both the password grant and the authorization login step.
type PasswordAuthenticator struct{}

var _ grant.PasswordCredentialsGrantDelegate = PasswordAuthenticator{}

func (PasswordAuthenticator) FindAndAuthenticate(ctx context.Context, users store.Users, tenant domain.Tenant, username, password string) (domain.User, error) {
	user, err := users.GetByUsername(ctx, tenant.ID, username)
	if errors.Is(err, store.ErrNotFound) {
		_ = cryptox.VerifySecret(password, dummyHash)
		return domain.User{}, grant.ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, err
	}
	if user.PasswordHash == "" || cryptox.VerifySecret(password, user.PasswordHash) != nil {
		return domain.User{}, grant.ErrInvalidCredentials
	}
	return user, nil
}
