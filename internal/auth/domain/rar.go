package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidAuthorizationDetails = errors.New("domain: invalid authorization_details")

// AuthorizationDetail is one RAR entry (RFC 9396). Only "type" is
// interpreted; every other member is carried through untouched.
type AuthorizationDetail map[string]any

func (d AuthorizationDetail) Type() string {
	t, _ := d["type"].(string)
	return t
}

// ParseAuthorizationDetails decodes the authorization_details parameter.
// Every entry must be an object with a non-empty string type.
func ParseAuthorizationDetails(raw string) ([]AuthorizationDetail, error) {
	if raw == "" {
		return nil, nil
	}

	var details []AuthorizationDetail
	if err := json.Unmarshal([]byte(raw), &details); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAuthorizationDetails, err)
	}
	for i, d := range details {
		if d == nil || d.Type() == "" {
			return nil, fmt.Errorf("%w: entry %d has no type", ErrInvalidAuthorizationDetails, i)
		}
	}
	return details, nil
}

// AuthorizationDetailTypes lists the type of every entry.
func AuthorizationDetailTypes(details []AuthorizationDetail) []string {
	out := make([]string, 0, len(details))
	for _, d := range details {
		out = append(out, d.Type())
	}
	return out
}
