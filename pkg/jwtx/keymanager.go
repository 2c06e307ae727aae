package jwtx

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/idx"
)

const (
	defaultNumKeys     = 3
	maxNumKeys         = 10
	defaultGracePeriod = 30 * 24 * time.Hour
)

// KeyManager owns the active signing keys and the published KeySet. Signing
// picks one active key at random per call.
type KeyManager struct {
	algorithm string
	keys      *KeySet

	mu      sync.RWMutex
	signers []*Signer
}

type KeyManagerOptions struct {
	// Algorithm for newly generated keys: RS256, ES256 or EdDSA.
	Algorithm string

	// RSABits defaults to 4096. Ignored for other algorithms.
	RSABits int

	// NumKeys is the target number of active signers, clamped to [1, 10].
	NumKeys int
}

func (o *KeyManagerOptions) normalise() {
	if o.NumKeys <= 0 {
		o.NumKeys = defaultNumKeys
	}
	if o.NumKeys > maxNumKeys {
		o.NumKeys = maxNumKeys
	}
}

// NewEphemeralKeyManager generates keys that only live in memory. Every
// token becomes unverifiable on restart.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	opts.normalise()

	km := &KeyManager{algorithm: opts.Algorithm, keys: NewKeySet()}
	for i := 0; i < opts.NumKeys; i++ {
		s, _, err := GenerateSigner(opts.Algorithm, newKID(), opts.RSABits)
		if err != nil {
			return nil, fmt.Errorf("jwtx: generate signer %d: %w", i+1, err)
		}
		if err := km.AddSigner(s); err != nil {
			return nil, err
		}
	}
	return km, nil
}

// SigningKeyRecord is the persisted form of a signing key.
type SigningKeyRecord struct {
	ID                  string
	Kid                 string
	Algorithm           string
	PrivateKeyEncrypted []byte
	CreatedAt           time.Time
	RetiredAt           *time.Time
	ExpiresAt           time.Time
}

// Active reports whether the key may still sign at now.
func (r SigningKeyRecord) Active(now time.Time) bool {
	return r.RetiredAt == nil && now.Before(r.ExpiresAt)
}

// KeyStore persists signing keys. Implemented by the store package.
type KeyStore interface {
	ListSigningKeys(ctx context.Context) ([]SigningKeyRecord, error)
	CreateSigningKey(ctx context.Context, rec SigningKeyRecord) error
}

type PersistentKeyManagerOptions struct {
	KeyManagerOptions

	Store  KeyStore
	Sealer *cryptox.Sealer

	// GracePeriod is how long a key stays in the JWKS after creation
	// before it is considered expired.
	GracePeriod time.Duration
}

// NewPersistentKeyManager loads every unexpired key into the KeySet, signs
// with the active ones, and tops the active set up to NumKeys.
func NewPersistentKeyManager(ctx context.Context, opts PersistentKeyManagerOptions) (*KeyManager, error) {
	if opts.Store == nil || opts.Sealer == nil {
		return nil, errors.New("jwtx: persistent key manager needs a store and a sealer")
	}
	opts.normalise()
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = defaultGracePeriod
	}

	records, err := opts.Store.ListSigningKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("jwtx: list signing keys: %w", err)
	}

	now := time.Now().UTC()
	km := &KeyManager{algorithm: opts.Algorithm, keys: NewKeySet()}
	active := 0

	for _, rec := range records {
		if !now.Before(rec.ExpiresAt) {
			continue
		}
		pemKey, err := opts.Sealer.Open(rec.PrivateKeyEncrypted)
		if err != nil {
			return nil, fmt.Errorf("jwtx: unseal key %s: %w", rec.Kid, err)
		}
		s, err := NewSigner(rec.Algorithm, rec.Kid, pemKey)
		if err != nil {
			return nil, fmt.Errorf("jwtx: load key %s: %w", rec.Kid, err)
		}

		if rec.Active(now) {
			if err := km.AddSigner(s); err != nil {
				return nil, err
			}
			active++
			continue
		}
		if err := km.keys.AddSigner(s); err != nil {
			return nil, err
		}
	}

	for ; active < opts.NumKeys; active++ {
		kid := newKID()
		s, pemKey, err := GenerateSigner(opts.Algorithm, kid, opts.RSABits)
		if err != nil {
			return nil, fmt.Errorf("jwtx: generate signer: %w", err)
		}
		sealed, err := opts.Sealer.Seal(pemKey)
		if err != nil {
			return nil, fmt.Errorf("jwtx: seal key: %w", err)
		}

		rec := SigningKeyRecord{
			ID:                  idx.New().String(),
			Kid:                 kid,
			Algorithm:           opts.Algorithm,
			PrivateKeyEncrypted: sealed,
			CreatedAt:           now,
			ExpiresAt:           now.Add(opts.GracePeriod),
		}
		if err := opts.Store.CreateSigningKey(ctx, rec); err != nil {
			return nil, fmt.Errorf("jwtx: store key: %w", err)
		}
		if err := km.AddSigner(s); err != nil {
			return nil, err
		}
	}

	return km, nil
}

// AddSigner makes s available for signing and publishes its public key.
func (km *KeyManager) AddSigner(s *Signer) error {
	if s == nil {
		return errors.New("jwtx: nil signer")
	}
	if err := km.keys.AddSigner(s); err != nil {
		return fmt.Errorf("jwtx: publish signer: %w", err)
	}

	km.mu.Lock()
	defer km.mu.Unlock()
	km.signers = append(km.signers, s)
	return nil
}

// GetSigner returns one of the active signers, or nil when none exist.
func (km *KeyManager) GetSigner() *Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	switch len(km.signers) {
	case 0:
		return nil
	case 1:
		return km.signers[0]
	default:
		return km.signers[rand.IntN(len(km.signers))]
	}
}

// RetireSigner stops signing with kid. The public key stays published so
// tokens already issued keep verifying.
func (km *KeyManager) RetireSigner(kid string) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	if len(km.signers) <= 1 {
		return errors.New("jwtx: cannot retire the last signing key")
	}
	for i, s := range km.signers {
		if s.KID() == kid {
			km.signers = append(km.signers[:i:i], km.signers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w %q", ErrUnknownKID, kid)
}

// KIDs lists the active signing keys.
func (km *KeyManager) KIDs() []string {
	km.mu.RLock()
	defer km.mu.RUnlock()
	out := make([]string, len(km.signers))
	for i, s := range km.signers {
		out[i] = s.KID()
	}
	return out
}

// NewKID returns a fresh key id.
func NewKID() string { return newKID() }

func (km *KeyManager) NumSigners() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}

func (km *KeyManager) Algorithm() string { return km.algorithm }
func (km *KeyManager) KeySet() *KeySet   { return km.keys }
func (km *KeyManager) IsReady() bool     { return km.NumSigners() > 0 }

// Verifier returns a verifier bound to issuer over this manager's keys.
func (km *KeyManager) Verifier(issuer string) *Verifier {
	return NewVerifier(km.keys, issuer, 30*time.Second)
}

func newKID() string {
	return "tg-" + cryptox.MustGenerateToken(cryptox.TokenSize128)
}
