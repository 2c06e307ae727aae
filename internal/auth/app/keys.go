package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
)

// InitAuthKeys creates a KeyManager with the configured algorithm and
// storage mode. The sealer is nil in ephemeral mode.
//
// Storage modes:
//   - "ephemeral": keys are generated on startup and held only in memory.
//     Every token becomes unverifiable when the service restarts.
//   - "persistent": keys are sealed with the master key and stored in the
//     database, so tokens survive restarts.
func InitAuthKeys(ctx context.Context, cfg Config, db store.Store, logger *slog.Logger) (*jwtx.KeyManager, *cryptox.Sealer, error) {
	opts := jwtx.KeyManagerOptions{
		Algorithm: cfg.Algorithm,
		RSABits:   cfg.RSABits,
		NumKeys:   cfg.NumKeys,
	}

	switch cfg.KeyStorageMode {
	case KeyStoragePersistent:
		sealer, err := cryptox.LoadSealer(cfg.MasterKeyPath)
		if err != nil {
			return nil, nil, err
		}
		if cfg.MasterKeyPath == "" {
			logger.Warn("no master key configured, persisted signing keys will be unreadable after restart")
		}

		logger.Info("initializing persistent key manager",
			"algorithm", cfg.Algorithm,
			"num_keys", cfg.NumKeys,
			"grace_period", cfg.KeyGracePeriod,
		)
		keyManager, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{
			KeyManagerOptions: opts,
			Store:             store.NewKeyStoreAdapter(db),
			Sealer:            sealer,
			GracePeriod:       cfg.KeyGracePeriod,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize persistent key manager: %w", err)
		}

		logger.Info("persistent signing keys loaded/generated",
			"algorithm", keyManager.Algorithm(),
			"num_keys", keyManager.NumSigners(),
		)
		return keyManager, sealer, nil

	case KeyStorageEphemeral, "":
		logger.Info("initializing ephemeral key manager",
			"algorithm", cfg.Algorithm,
			"num_keys", cfg.NumKeys,
		)
		keyManager, err := jwtx.NewEphemeralKeyManager(opts)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize ephemeral key manager: %w", err)
		}

		logger.Info("generated ephemeral signing keys",
			"algorithm", keyManager.Algorithm(),
			"num_keys", keyManager.NumSigners(),
		)
		logger.Warn("tokens issued before this start can no longer be verified")
		return keyManager, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown key storage mode %q", cfg.KeyStorageMode)
	}
}
