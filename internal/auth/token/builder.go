package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/idx"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
)

var ErrNoSigningKey = errors.New("token: no signing key available")

// jarmLifetime is how long a JARM response stays valid.
const jarmLifetime = 10 * time.Minute

// SignerSource hands out the current signing key.
type SignerSource interface {
	GetSigner() *jwtx.Signer
}

type Builder struct {
	Keys SignerSource
	Now  func() time.Time
}

func NewBuilder(keys SignerSource) *Builder {
	return &Builder{Keys: keys, Now: time.Now}
}

// Issue describes one token issuance.
type Issue struct {
	Tenant domain.Tenant
	Grant  domain.AuthorizationGrant

	// RefreshDuration issues a refresh token when positive.
	RefreshDuration time.Duration
	// Nonce is echoed in the ID token, which is issued when the grant
	// includes openid.
	Nonce string

	// Thumbprint binds the access token to a client certificate.
	Thumbprint              string
	RequireSenderConstraint bool
}

// Build signs and assembles a complete OAuthToken.
func (b *Builder) Build(in Issue) (domain.OAuthToken, error) {
	signer := b.Keys.GetSigner()
	if signer == nil {
		return domain.OAuthToken{}, ErrNoSigningKey
	}
	now := b.Now().UTC().Truncate(time.Second)
	server := in.Tenant.Server
	g := in.Grant

	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    in.Tenant.Issuer,
			Subject:   g.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(server.AccessTokenDuration)),
			ID:        jwtx.NewJTI(),
		},
		TenantID:             in.Tenant.ID,
		ClientID:             g.ClientID,
		Scope:                domain.JoinScopes(g.Scopes),
		Username:             g.Username,
		AuthorizationDetails: g.AuthorizationDetails,
		Extra:                g.CustomProperties,
	}
	if in.Thumbprint != "" {
		claims.Cnf = &Confirmation{X5TS256: in.Thumbprint}
	}

	access, err := signer.Sign(claims)
	if err != nil {
		return domain.OAuthToken{}, fmt.Errorf("token: sign access token: %w", err)
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return domain.OAuthToken{}, fmt.Errorf("token: encode access payload: %w", err)
	}

	tok := domain.OAuthToken{
		ID:                   idx.NewAt(now).String(),
		TenantID:             in.Tenant.ID,
		Issuer:               in.Tenant.Issuer,
		TokenType:            domain.TokenTypeBearer,
		Subject:              g.Subject,
		ClientID:             g.ClientID,
		Scopes:               g.Scopes,
		AuthorizationDetails: g.AuthorizationDetails,
		AccessToken: domain.AccessToken{
			Value:                access,
			Payload:              payload,
			CreatedAt:            now,
			ExpiresAt:            claims.ExpiresAt.Time,
			ClientCertThumbprint: in.Thumbprint,
		},
		CreatedAt: now,
	}

	if in.RefreshDuration > 0 {
		value, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return domain.OAuthToken{}, err
		}
		tok.RefreshToken = &domain.RefreshToken{
			Value:     value,
			CreatedAt: now,
			ExpiresAt: now.Add(in.RefreshDuration),
		}
	}

	if g.HasSubject() && domain.ScopesSubset([]string{domain.ScopeOpenID}, g.Scopes) {
		id, err := b.signIDToken(signer, IDTokenParams{
			Tenant:      in.Tenant,
			Grant:       g,
			Nonce:       in.Nonce,
			AccessToken: access,
		}, now)
		if err != nil {
			return domain.OAuthToken{}, err
		}
		tok.IDToken = &domain.IDToken{Value: id}
	}

	if server.CNonceDuration > 0 {
		value, err := cryptox.GenerateToken(cryptox.TokenSize128)
		if err != nil {
			return domain.OAuthToken{}, err
		}
		tok.CNonce = &domain.CNonce{Value: value, ExpiresAt: now.Add(server.CNonceDuration)}
	}

	return domain.NewOAuthToken(tok, in.RequireSenderConstraint)
}

// IDTokenParams describes an ID token. AccessToken, Code and State are
// hashed into at_hash, c_hash and s_hash when set.
type IDTokenParams struct {
	Tenant      domain.Tenant
	Grant       domain.AuthorizationGrant
	Nonce       string
	AccessToken string
	Code        string
	State       string
}

// IDToken signs an ID token on its own, as the authorization endpoint does
// for hybrid response types.
func (b *Builder) IDToken(p IDTokenParams) (string, error) {
	signer := b.Keys.GetSigner()
	if signer == nil {
		return "", ErrNoSigningKey
	}
	return b.signIDToken(signer, p, b.Now().UTC().Truncate(time.Second))
}

func (b *Builder) signIDToken(signer *jwtx.Signer, p IDTokenParams, now time.Time) (string, error) {
	g := p.Grant
	claims := IDClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.Tenant.Issuer,
			Subject:   g.Subject,
			Audience:  jwt.ClaimStrings{g.ClientID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.Tenant.Server.IDTokenDuration)),
			ID:        jwtx.NewJTI(),
		},
		AuthorizedParty:   g.ClientID,
		Nonce:             p.Nonce,
		AMR:               g.AMR,
		PreferredUsername: g.Username,
	}
	if !g.AuthTime.IsZero() {
		claims.AuthTime = g.AuthTime.Unix()
	}

	var err error
	hash := func(v string) string {
		if v == "" || err != nil {
			return ""
		}
		var h string
		h, err = jwtx.HalfHash(signer.Alg(), v)
		return h
	}
	claims.AccessTokenHash = hash(p.AccessToken)
	claims.CodeHash = hash(p.Code)
	claims.StateHash = hash(p.State)
	if err != nil {
		return "", fmt.Errorf("token: id token hash: %w", err)
	}

	out, err := signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("token: sign id token: %w", err)
	}
	return out, nil
}

// AuthorizationResponse signs a JARM response carrying params.
func (b *Builder) AuthorizationResponse(tenant domain.Tenant, clientID string, params map[string]string) (string, error) {
	signer := b.Keys.GetSigner()
	if signer == nil {
		return "", ErrNoSigningKey
	}
	now := b.Now().UTC().Truncate(time.Second)
	out, err := signer.Sign(ResponseClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tenant.Issuer,
			Audience:  jwt.ClaimStrings{clientID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(jarmLifetime)),
		},
		Params: params,
	})
	if err != nil {
		return "", fmt.Errorf("token: sign authorization response: %w", err)
	}
	return out, nil
}
