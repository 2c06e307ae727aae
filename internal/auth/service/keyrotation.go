package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/idx"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

const defaultKeyGracePeriod = 30 * 24 * time.Hour

// KeyRotationService adds and retires signing keys at runtime.
//
// With a nil Store keys are ephemeral: retired keys stay published until
// restart. Otherwise new keys are sealed and stored, and retirement is
// recorded so the next boot does not sign with them.
type KeyRotationService struct {
	Store       store.Store
	Sealer      *cryptox.Sealer
	KeyManager  *jwtx.KeyManager
	RSABits     int
	GracePeriod time.Duration
	Now         func() time.Time
}

type RotateKeyResult struct {
	NewKID      string
	RetiredKIDs []string
	ActiveKeys  int
}

// RotateKey generates a key with the manager's algorithm. When
// retireExisting is set every other active key stops signing.
func (s *KeyRotationService) RotateKey(ctx context.Context, retireExisting bool) (RotateKeyResult, error) {
	if s.KeyManager == nil {
		return RotateKeyResult{}, errors.New("service: key rotation needs a key manager")
	}
	l := slogx.FromContext(ctx)
	now := s.now()

	kid := jwtx.NewKID()
	signer, pemKey, err := jwtx.GenerateSigner(s.KeyManager.Algorithm(), kid, s.RSABits)
	if err != nil {
		return RotateKeyResult{}, fmt.Errorf("service: generate signing key: %w", err)
	}

	previous := s.KeyManager.KIDs()
	if s.Store != nil {
		if s.Sealer == nil {
			return RotateKeyResult{}, errors.New("service: persistent key rotation needs a sealer")
		}
		sealed, err := s.Sealer.Seal(pemKey)
		if err != nil {
			return RotateKeyResult{}, fmt.Errorf("service: seal signing key: %w", err)
		}
		err = s.Store.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.SigningKeys().Create(ctx, domain.SigningKey{
				ID:                  idx.NewAt(now).String(),
				Kid:                 kid,
				Algorithm:           signer.Alg(),
				PrivateKeyEncrypted: sealed,
				CreatedAt:           now,
				ExpiresAt:           now.Add(s.gracePeriod()),
			}); err != nil {
				return err
			}
			if !retireExisting {
				return nil
			}
			for _, old := range previous {
				if err := tx.SigningKeys().Retire(ctx, old, now); err != nil && !errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("retire %s: %w", old, err)
				}
			}
			return nil
		})
		if err != nil {
			return RotateKeyResult{}, fmt.Errorf("service: store signing key: %w", err)
		}
	}

	if err := s.KeyManager.AddSigner(signer); err != nil {
		return RotateKeyResult{}, err
	}

	res := RotateKeyResult{NewKID: kid}
	if retireExisting {
		for _, old := range previous {
			if err := s.KeyManager.RetireSigner(old); err != nil {
				l.Warn("failed to retire signer", "kid", old, "error", err)
				continue
			}
			res.RetiredKIDs = append(res.RetiredKIDs, old)
		}
	}
	res.ActiveKeys = s.KeyManager.NumSigners()

	l.Info("signing key rotated", "kid", kid, "retired", len(res.RetiredKIDs), "active", res.ActiveKeys)
	return res, nil
}

// RetireKey stops signing with kid. Its public key stays in the JWKS.
func (s *KeyRotationService) RetireKey(ctx context.Context, kid string) error {
	if s.KeyManager == nil {
		return errors.New("service: key rotation needs a key manager")
	}
	if err := s.KeyManager.RetireSigner(kid); err != nil {
		return err
	}
	if s.Store != nil {
		if err := s.Store.SigningKeys().Retire(ctx, kid, s.now()); err != nil {
			return fmt.Errorf("service: retire signing key: %w", err)
		}
	}
	slogx.FromContext(ctx).Info("signing key retired", "kid", kid)
	return nil
}

func (s *KeyRotationService) gracePeriod() time.Duration {
	if s.GracePeriod <= 0 {
		return defaultKeyGracePeriod
	}
	return s.GracePeriod
}

func (s *KeyRotationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
