package jwtx

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"hash"

	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
)

// NewJTI returns a random identifier for the "jti" claim.
func NewJTI() string {
	return cryptox.MustGenerateToken(cryptox.TokenSize128)
}

// HalfHash computes the OIDC at_hash / c_hash / s_hash value of v for the
// given signing algorithm: the left half of the digest, base64url encoded.
// EdDSA with Ed25519 uses SHA-512.
func HalfHash(alg, v string) (string, error) {
	var h hash.Hash
	switch alg {
	case AlgorithmRS256, AlgorithmES256:
		h = sha256.New()
	case AlgorithmEdDSA:
		h = sha512.New()
	default:
		return "", fmt.Errorf("jwtx: no half hash for %q", alg)
	}
	h.Write([]byte(v))
	sum := h.Sum(nil)
	return base64.RawURLEncoding.EncodeToString(sum[:len(sum)/2]), nil
}
