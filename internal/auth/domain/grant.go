package domain

import (
	"encoding/json"
	"slices"
	"time"
)

// AuthorizationGrant is what the resource owner (or the client itself for
// client_credentials) approved. It is built by a grant service and folded
// into the issued access token; it is never stored on its own.
type AuthorizationGrant struct {
	Subject  string // empty for client_credentials
	Username string
	ClientID string
	Scopes   []string

	Claims               json.RawMessage
	CustomProperties     map[string]any
	AuthorizationDetails []AuthorizationDetail

	AuthTime time.Time
	AMR      []string
}

func (g AuthorizationGrant) HasSubject() bool { return g.Subject != "" }

// AuthorizationGranted records a user's consent to a client, so later
// requests for the same scopes can skip the consent step.
type AuthorizationGranted struct {
	TenantID             string
	UserID               string
	ClientID             string
	Scopes               []string
	AuthorizationDetails []AuthorizationDetail
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Merge widens g with newly approved scopes and details.
func (g AuthorizationGranted) Merge(scopes []string, details []AuthorizationDetail, now time.Time) AuthorizationGranted {
	g.Scopes = slices.Clone(g.Scopes)
	for _, s := range scopes {
		if !slices.Contains(g.Scopes, s) {
			g.Scopes = append(g.Scopes, s)
		}
	}
	g.AuthorizationDetails = append(slices.Clone(g.AuthorizationDetails), details...)
	g.UpdatedAt = now
	return g
}
