package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/grant"
	"github.com/aussiebroadwan/tollgate/internal/auth/oautherr"
	"github.com/aussiebroadwan/tollgate/internal/auth/request"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/internal/auth/token"
	"github.com/aussiebroadwan/tollgate/internal/auth/verifier"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/idx"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

var (
	// ErrAuthorizationRequestNotFound covers unknown and expired requests.
	ErrAuthorizationRequestNotFound = errors.New("authorization request not found")
	ErrLoginFailed                  = errors.New("login_failed")
)

// AuthorizationObserver is told about accepted authorization requests.
type AuthorizationObserver interface {
	AuthorizationAccepted(tenantID string, profile domain.Profile)
}

// AuthorizeTokens is the part of the token builder the authorization
// endpoint needs.
type AuthorizeTokens interface {
	grant.Builder
	ResponseSigner
	IDToken(p token.IDTokenParams) (string, error)
}

// AuthorizeService runs the authorization endpoint: it verifies and stores
// incoming requests, then completes or denies them once the user has been
// asked.
type AuthorizeService struct {
	Store         store.Store
	Pipeline      *verifier.Pipeline
	Jose          *request.JoseHandler
	Tokens        AuthorizeTokens
	Authenticator grant.PasswordCredentialsGrantDelegate
	Observer      AuthorizationObserver
	Now           func() time.Time
}

// Redirect is where the user agent goes next.
type Redirect struct {
	RedirectURI string
}

// Request verifies a raw authorization request and stores it. Failures are
// *oautherr.Error values; redirectable ones are turned into a Redirect by
// ErrorRedirect.
func (s *AuthorizeService) Request(ctx context.Context, tenant domain.Tenant, params request.Parameters) (domain.AuthorizationRequest, error) {
	l := slogx.FromContext(ctx)

	clientID := params.Values().ClientID()
	if clientID == "" {
		return domain.AuthorizationRequest{}, oautherr.BadRequest(oautherr.CodeInvalidRequest, "client_id is required")
	}
	client, err := s.Store.Clients().Get(ctx, tenant.ID, clientID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.AuthorizationRequest{}, oautherr.BadRequest(oautherr.CodeInvalidRequest, "unknown client")
	}
	if err != nil {
		return domain.AuthorizationRequest{}, oautherr.ServerError("load client", err)
	}

	jc, err := s.Jose.Handle(ctx, params, client)
	if err != nil {
		return domain.AuthorizationRequest{}, err
	}

	requested := request.RequestedScopes(params, jc)
	profile := request.IdentifyProfile(requested, tenant.Server)
	factory := request.SelectFactory(profile, jc)

	req, err := factory.Create(request.Input{
		TenantID:       tenant.ID,
		Profile:        profile,
		Params:         params,
		Jose:           jc,
		FilteredScopes: domain.IntersectScopes(requested, client.Scopes),
		Server:         tenant.Server,
		Client:         client,
		Now:            s.now(),
	})
	if err != nil {
		return domain.AuthorizationRequest{}, err
	}

	if err := s.Pipeline.Verify(verifier.NewContext(tenant, client, req, params, jc, factory)); err != nil {
		l.Info("authorization request rejected",
			"client_id", clientID,
			"profile", string(profile),
			"factory", factory.Name(),
			"error", err.Error())
		return domain.AuthorizationRequest{}, err
	}

	if err := s.Store.AuthorizationRequests().Register(ctx, req); err != nil {
		return domain.AuthorizationRequest{}, oautherr.ServerError("store authorization request", err)
	}
	if s.Observer != nil {
		s.Observer.AuthorizationAccepted(tenant.ID, profile)
	}

	l.Info("authorization request accepted",
		"authorization_request_id", req.ID,
		"client_id", clientID,
		"profile", string(profile))
	return req, nil
}

// ErrorRedirect delivers a redirectable error to the client. It fails for
// errors that must not be redirected.
func (s *AuthorizeService) ErrorRedirect(tenant domain.Tenant, clientID string, e *oautherr.Error) (Redirect, error) {
	if !e.IsRedirectable() {
		return Redirect{}, fmt.Errorf("service: %s error is not redirectable", e.Kind)
	}
	uri, err := buildRedirect(s.Tokens, tenant, clientID, e.RedirectURI, e.ResponseMode, errorParams(e))
	if err != nil {
		return Redirect{}, err
	}
	return Redirect{RedirectURI: uri}, nil
}

// Authorize authenticates the user against a pending request and answers
// it with a code, an ID token or an access token as its response_type asks.
func (s *AuthorizeService) Authorize(ctx context.Context, tenant domain.Tenant, id, username, password string) (Redirect, error) {
	l := slogx.FromContext(ctx)
	now := s.now()

	req, client, err := s.pending(ctx, tenant, id, now)
	if err != nil {
		return Redirect{}, err
	}

	user, err := s.Authenticator.FindAndAuthenticate(ctx, s.Store.Users(), tenant, username, password)
	switch {
	case errors.Is(err, grant.ErrInvalidCredentials):
		l.Info("authorization login failed", "authorization_request_id", id)
		return Redirect{}, ErrLoginFailed
	case err != nil:
		return Redirect{}, err
	case !user.IsActive():
		l.Info("authorization login for inactive user", "user_id", user.ID)
		return Redirect{}, ErrLoginFailed
	}

	g := domain.AuthorizationGrant{
		Subject:              user.ID,
		Username:             user.Username,
		ClientID:             client.ClientID,
		Scopes:               req.Scopes,
		AuthorizationDetails: req.AuthorizationDetails,
		AuthTime:             now,
		AMR:                  []string{"pwd"},
	}

	params := map[string]string{"state": req.State}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// A request is answered once. A concurrent login on the same id
		// finds nothing left to delete.
		if err := tx.AuthorizationRequests().Delete(ctx, tenant.ID, req.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrAuthorizationRequestNotFound
			}
			return err
		}

		if req.ResponseType.Has(string(domain.ResponseTypeCode)) {
			code, err := s.issueCode(ctx, tx, tenant, req, g, now)
			if err != nil {
				return err
			}
			params["code"] = code
		}

		if req.ResponseType.Has(string(domain.ResponseTypeToken)) {
			tok, err := s.Tokens.Build(token.Issue{
				Tenant: tenant,
				Grant:  g,
				// No certificate reaches the front channel, so a bound pair
				// fails here rather than getting a bearer token.
				RequireSenderConstraint: tenant.Server.TLSClientCertificateBoundAccessTokens &&
					client.TLSClientCertificateBoundAccessTokens,
			})
			if err != nil {
				return err
			}
			if err := tx.Tokens().Register(ctx, tok); err != nil {
				return err
			}
			params["access_token"] = tok.AccessToken.Value
			params["token_type"] = tok.TokenType
			params["expires_in"] = fmt.Sprint(int64(tok.AccessToken.ExpiresAt.Sub(tok.AccessToken.CreatedAt).Seconds()))
		}

		if req.ResponseType.IssuesIDToken() {
			idt, err := s.Tokens.IDToken(token.IDTokenParams{
				Tenant:      tenant,
				Grant:       g,
				Nonce:       req.Nonce,
				AccessToken: params["access_token"],
				Code:        params["code"],
				State:       req.State,
			})
			if err != nil {
				return err
			}
			params["id_token"] = idt
		}
		return nil
	})
	switch {
	case errors.Is(err, ErrAuthorizationRequestNotFound):
		return Redirect{}, err
	case err != nil:
		return Redirect{}, oautherr.ServerError("complete authorization", err)
	}

	uri, err := buildRedirect(s.Tokens, tenant, client.ClientID, req.RedirectTarget(client), req.EffectiveResponseMode(), params)
	if err != nil {
		return Redirect{}, err
	}
	l.Info("authorization granted",
		"authorization_request_id", id,
		"client_id", client.ClientID,
		"user_id", user.ID)
	return Redirect{RedirectURI: uri}, nil
}

// Deny answers a pending request with access_denied.
func (s *AuthorizeService) Deny(ctx context.Context, tenant domain.Tenant, id string) (Redirect, error) {
	req, client, err := s.pending(ctx, tenant, id, s.now())
	if err != nil {
		return Redirect{}, err
	}
	if err := s.Store.AuthorizationRequests().Delete(ctx, tenant.ID, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return Redirect{}, oautherr.ServerError("delete authorization request", err)
	}

	e := oautherr.Redirectable(oautherr.CodeAccessDenied, "the resource owner denied the request", oautherr.Target{
		RedirectURI:  req.RedirectTarget(client),
		State:        req.State,
		ResponseMode: req.EffectiveResponseMode(),
	})
	slogx.FromContext(ctx).Info("authorization denied",
		"authorization_request_id", id, "client_id", client.ClientID)
	return s.ErrorRedirect(tenant, client.ClientID, e)
}

func (s *AuthorizeService) pending(ctx context.Context, tenant domain.Tenant, id string, now time.Time) (domain.AuthorizationRequest, domain.Client, error) {
	req, ok, err := s.Store.AuthorizationRequests().Find(ctx, tenant.ID, id)
	if err != nil {
		return domain.AuthorizationRequest{}, domain.Client{}, err
	}
	if !ok || req.IsExpired(now) {
		return domain.AuthorizationRequest{}, domain.Client{}, ErrAuthorizationRequestNotFound
	}
	client, err := s.Store.Clients().Get(ctx, tenant.ID, req.ClientID)
	if err != nil {
		return domain.AuthorizationRequest{}, domain.Client{}, err
	}
	return req, client, nil
}

func (s *AuthorizeService) issueCode(ctx context.Context, tx store.Store, tenant domain.Tenant, req domain.AuthorizationRequest, g domain.AuthorizationGrant, now time.Time) (string, error) {
	value, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}
	err = tx.AuthorizationCodes().Create(ctx, domain.AuthorizationCode{
		ID:                     idx.NewAt(now).String(),
		TenantID:               tenant.ID,
		CodeHash:               cryptox.FingerprintToken(value),
		AuthorizationRequestID: req.ID,
		ClientID:               req.ClientID,
		UserID:                 g.Subject,
		Username:               g.Username,
		RedirectURI:            req.RedirectURI,
		Scopes:                 req.Scopes,
		Nonce:                  req.Nonce,
		CodeChallenge:          req.CodeChallenge,
		CodeChallengeMethod:    req.CodeChallengeMethod,
		AuthorizationDetails:   req.AuthorizationDetails,
		AMR:                    g.AMR,
		AuthTime:               g.AuthTime,
		ExpiresAt:              now.Add(tenant.Server.AuthorizationCodeDuration),
		CreatedAt:              now,
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *AuthorizeService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
