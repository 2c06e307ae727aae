package domain

import (
	"fmt"
	"time"
)

// RefreshStrategy decides what happens to a refresh token's expiry when it
// is used.
type RefreshStrategy string

const (
	// RefreshFixed keeps the original expiry.
	RefreshFixed RefreshStrategy = "FIXED"
	// RefreshExtends restarts the lifetime from the time of use.
	RefreshExtends RefreshStrategy = "EXTENDS"
)

func (s RefreshStrategy) Valid() bool { return s == RefreshFixed || s == RefreshExtends }

// RefreshRotationPolicy is the effective policy for one refresh call. It is
// derived on every call and never stored.
type RefreshRotationPolicy struct {
	Strategy RefreshStrategy `json:"strategy" yaml:"strategy"`
	Rotate   bool            `json:"rotate" yaml:"rotate"`
	Duration time.Duration   `json:"duration" yaml:"duration"`
}

func (p RefreshRotationPolicy) Validate() error {
	if !p.Strategy.Valid() {
		return fmt.Errorf("domain: unknown refresh strategy %q", p.Strategy)
	}
	if p.Duration <= 0 {
		return fmt.Errorf("domain: refresh duration must be positive, got %s", p.Duration)
	}
	return nil
}

// RefreshRotationOverride is a client's partial override. Nil fields fall
// back to the tenant default.
type RefreshRotationOverride struct {
	Strategy *RefreshStrategy `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Rotate   *bool            `json:"rotate,omitempty" yaml:"rotate,omitempty"`
	Duration *time.Duration   `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// ResolveRotationPolicy merges a client override over the tenant default,
// field by field.
func ResolveRotationPolicy(tenant RefreshRotationPolicy, client RefreshRotationOverride) RefreshRotationPolicy {
	out := tenant
	if client.Strategy != nil {
		out.Strategy = *client.Strategy
	}
	if client.Rotate != nil {
		out.Rotate = *client.Rotate
	}
	if client.Duration != nil {
		out.Duration = *client.Duration
	}
	return out
}
