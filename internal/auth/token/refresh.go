package token

import (
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
)

// Refresh applies policy to a refresh token being redeemed at now. FIXED
// without rotation returns old untouched.
func Refresh(old domain.RefreshToken, policy domain.RefreshRotationPolicy, now time.Time) (domain.RefreshToken, error) {
	if policy.Strategy == domain.RefreshFixed && !policy.Rotate {
		return old, nil
	}

	next := domain.RefreshToken{
		Value:     old.Value,
		CreatedAt: now,
		ExpiresAt: old.ExpiresAt,
	}
	if policy.Rotate {
		v, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return domain.RefreshToken{}, err
		}
		next.Value = v
	}
	if policy.Strategy == domain.RefreshExtends {
		next.ExpiresAt = now.Add(policy.Duration)
	}
	return next, nil
}
