package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrInvalid     = errors.New("jwtx: invalid token")
)

// Verifier checks tokens issued by this server against a KeySet.
type Verifier struct {
	keys   *KeySet
	issuer string
	leeway time.Duration
}

// NewVerifier builds a verifier. An empty issuer disables the iss check.
func NewVerifier(keys *KeySet, issuer string, leeway time.Duration) *Verifier {
	return &Verifier{keys: keys, issuer: issuer, leeway: leeway}
}

// Verify checks the signature, kid, alg, iss and time claims of token and
// decodes it into claims.
func (v *Verifier) Verify(token string, claims jwt.Claims) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{AlgorithmRS256, AlgorithmES256, AlgorithmEdDSA}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	_, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: missing kid", ErrMalformed)
		}
		jwk, err := v.keys.Lookup(kid)
		if err != nil {
			return nil, err
		}
		if jwk.Algorithm != "" && jwk.Algorithm != t.Method.Alg() {
			return nil, ErrAlgMismatch
		}
		return jwk.Key, nil
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	default:
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
}
