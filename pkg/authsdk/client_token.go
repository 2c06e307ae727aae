package authsdk

import (
	"context"
	"net/url"
	"strings"
)

// ClientCredentials runs the client_credentials grant.
func (c *Client) ClientCredentials(ctx context.Context, scopes ...string) (*TokenResponse, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	if len(scopes) > 0 {
		form.Set("scope", strings.Join(scopes, " "))
	}
	return c.token(ctx, form)
}

// ExchangeCode redeems an authorization code. verifier is the PKCE code
// verifier and may be empty.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI, verifier string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {redirectURI},
	}
	if verifier != "" {
		form.Set("code_verifier", verifier)
	}
	return c.token(ctx, form)
}

// Refresh redeems a refresh token, optionally narrowing scope.
func (c *Client) Refresh(ctx context.Context, refreshToken string, scopes ...string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	if len(scopes) > 0 {
		form.Set("scope", strings.Join(scopes, " "))
	}
	return c.token(ctx, form)
}

// Password runs the resource owner password credentials grant.
func (c *Client) Password(ctx context.Context, username, password string, scopes ...string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type": {"password"},
		"username":   {username},
		"password":   {password},
	}
	if len(scopes) > 0 {
		form.Set("scope", strings.Join(scopes, " "))
	}
	return c.token(ctx, form)
}

// Introspect asks whether token is active, optionally requiring scopes.
func (c *Client) Introspect(ctx context.Context, token string, scopes ...string) (*IntrospectionResponse, error) {
	form := url.Values{"token": {token}}
	if len(scopes) > 0 {
		form.Set("scope", strings.Join(scopes, " "))
	}
	var out IntrospectionResponse
	if err := c.postForm(ctx, "/v1/tokens/introspection", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Revoke revokes an access or refresh token (RFC 7009).
func (c *Client) Revoke(ctx context.Context, token, hint string) error {
	form := url.Values{"token": {token}}
	if hint != "" {
		form.Set("token_type_hint", hint)
	}
	return c.postForm(ctx, "/v1/tokens/revocation", form, nil)
}

func (c *Client) token(ctx context.Context, form url.Values) (*TokenResponse, error) {
	var out TokenResponse
	if err := c.postForm(ctx, "/v1/tokens", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
