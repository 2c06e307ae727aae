package jwtx

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-jose/go-jose/v4"
)

var ErrUnknownKID = errors.New("jwtx: unknown kid")

// KeySet is the in-memory set of public verification keys, in publication
// order. Retired signers stay here until their grace period runs out.
type KeySet struct {
	mu   sync.RWMutex
	keys []jose.JSONWebKey
	byID map[string]int
}

func NewKeySet() *KeySet {
	return &KeySet{byID: make(map[string]int)}
}

// Add inserts or replaces a public key. Private keys are refused so a
// misuse never ends up in a published JWKS.
func (k *KeySet) Add(jwk jose.JSONWebKey) error {
	if jwk.KeyID == "" {
		return errors.New("jwtx: jwk without kid")
	}
	if !jwk.IsPublic() {
		return fmt.Errorf("jwtx: refusing private key %q", jwk.KeyID)
	}
	if !jwk.Valid() {
		return fmt.Errorf("jwtx: invalid jwk %q", jwk.KeyID)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if i, ok := k.byID[jwk.KeyID]; ok {
		k.keys[i] = jwk
		return nil
	}
	k.byID[jwk.KeyID] = len(k.keys)
	k.keys = append(k.keys, jwk)
	return nil
}

func (k *KeySet) AddSigner(s *Signer) error {
	return k.Add(s.PublicJWK())
}

// Lookup returns the key registered under kid.
func (k *KeySet) Lookup(kid string) (jose.JSONWebKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	i, ok := k.byID[kid]
	if !ok {
		return jose.JSONWebKey{}, fmt.Errorf("%w %q", ErrUnknownKID, kid)
	}
	return k.keys[i], nil
}

// JWKS returns a snapshot suitable for JSON encoding.
func (k *KeySet) JWKS() jose.JSONWebKeySet {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]jose.JSONWebKey, len(k.keys))
	copy(out, k.keys)
	return jose.JSONWebKeySet{Keys: out}
}

func (k *KeySet) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys)
}
