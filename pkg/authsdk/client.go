package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to one tenant of a Tollgate server.
type Client struct {
	BaseURL    string
	Tenant     string
	HTTPClient *http.Client

	// ClientID and ClientSecret authenticate via client_secret_basic when
	// the secret is set, otherwise client_id is sent in the form.
	ClientID     string
	ClientSecret string
}

func NewClient(baseURL, tenant, clientID, clientSecret string) *Client {
	return &Client{
		BaseURL:      strings.TrimSuffix(baseURL, "/"),
		Tenant:       tenant,
		HTTPClient:   &http.Client{Timeout: 10 * time.Second},
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}
}

// Endpoint returns the absolute URL of a tenant scoped path such as
// "/v1/tokens".
func (c *Client) Endpoint(path string) string {
	return c.BaseURL + "/" + url.PathEscape(c.Tenant) + path
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any) error {
	if c.ClientSecret == "" {
		form.Set("client_id", c.ClientID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(path), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("authsdk: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.ClientSecret != "" {
		req.SetBasicAuth(url.QueryEscape(c.ClientID), url.QueryEscape(c.ClientSecret))
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("authsdk: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("authsdk: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp, body)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("authsdk: decode response: %w", err)
	}
	return nil
}
