package jwtx

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

// Supported JWS algorithms.
const (
	AlgorithmRS256 = "RS256"
	AlgorithmES256 = "ES256"
	AlgorithmEdDSA = "EdDSA"
)

const defaultRSABits = 4096

// Signer signs JWTs with one private key and publishes the matching public
// JWK. It is safe for concurrent use.
type Signer struct {
	kid    string
	alg    string
	method jwt.SigningMethod
	key    crypto.Signer
}

// NewSigner loads a PEM private key for alg. The key type must match the
// algorithm: RSA for RS256, P-256 for ES256 and Ed25519 for EdDSA.
func NewSigner(alg, kid string, pemKey []byte) (*Signer, error) {
	if kid == "" {
		return nil, errors.New("jwtx: signer requires a kid")
	}

	key, err := cryptox.ParsePrivateKeyPEM(pemKey)
	if err != nil {
		return nil, fmt.Errorf("jwtx: %w", err)
	}

	var method jwt.SigningMethod
	switch alg {
	case AlgorithmRS256:
		if _, ok := key.(*rsa.PrivateKey); !ok {
			return nil, fmt.Errorf("jwtx: RS256 needs an RSA key, got %T", key)
		}
		method = jwt.SigningMethodRS256
	case AlgorithmES256:
		k, ok := key.(*ecdsa.PrivateKey)
		if !ok || k.Curve.Params().Name != "P-256" {
			return nil, fmt.Errorf("jwtx: ES256 needs a P-256 key, got %T", key)
		}
		method = jwt.SigningMethodES256
	case AlgorithmEdDSA:
		if _, ok := key.(ed25519.PrivateKey); !ok {
			return nil, fmt.Errorf("jwtx: EdDSA needs an Ed25519 key, got %T", key)
		}
		method = jwt.SigningMethodEdDSA
	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q", alg)
	}

	return &Signer{kid: kid, alg: alg, method: method, key: key}, nil
}

// GenerateSigner creates a new key for alg and returns the signer together
// with the PEM so callers can persist it.
func GenerateSigner(alg, kid string, rsaBits int) (*Signer, []byte, error) {
	var keyType string
	switch alg {
	case AlgorithmRS256:
		keyType = cryptox.KeyTypeRSA
		if rsaBits == 0 {
			rsaBits = defaultRSABits
		}
	case AlgorithmES256:
		keyType = cryptox.KeyTypeP256
	case AlgorithmEdDSA:
		keyType = cryptox.KeyTypeEd25519
	default:
		return nil, nil, fmt.Errorf("jwtx: unsupported algorithm %q", alg)
	}

	pemKey, err := cryptox.GenerateKeyPEM(keyType, rsaBits)
	if err != nil {
		return nil, nil, fmt.Errorf("jwtx: %w", err)
	}
	s, err := NewSigner(alg, kid, pemKey)
	if err != nil {
		return nil, nil, err
	}
	return s, pemKey, nil
}

func (s *Signer) KID() string { return s.kid }
func (s *Signer) Alg() string { return s.alg }

// Sign serialises claims as a compact JWS with the kid header set.
func (s *Signer) Sign(claims jwt.Claims) (string, error) {
	t := jwt.NewWithClaims(s.method, claims)
	t.Header["kid"] = s.kid
	out, err := t.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return out, nil
}

// PublicJWK is the verification key as published in the JWKS.
func (s *Signer) PublicJWK() jose.JSONWebKey {
	return jose.JSONWebKey{
		Key:       s.key.Public(),
		KeyID:     s.kid,
		Algorithm: s.alg,
		Use:       "sig",
	}
}
