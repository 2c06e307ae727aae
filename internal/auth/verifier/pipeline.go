// Package verifier decides whether an assembled authorization request
// complies with its security profile.
//
// A Pipeline runs the base verifier registered for the request's profile
// and then every extension Rule, in order, that does not skip the request.
// The first failure wins and is returned as an *oautherr.Error.
package verifier

import (
	"errors"
	"fmt"
	"maps"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/oautherr"
	"github.com/aussiebroadwan/tollgate/internal/auth/request"
)

// Context is everything the verifiers read. It is fully materialised before
// verification; verifiers perform no I/O.
type Context struct {
	Tenant  domain.Tenant
	Client  domain.Client
	Request domain.AuthorizationRequest
	Params  request.Parameters
	Jose    *request.JoseContext
	// Values is the view the request was assembled from.
	Values request.Values
}

func (c Context) Profile() domain.Profile { return c.Request.Profile }

type BaseVerifier interface {
	Verify(c Context) error
}

// BaseFunc adapts a function to BaseVerifier.
type BaseFunc func(c Context) error

func (f BaseFunc) Verify(c Context) error { return f(c) }

// Rule is an extension check applied after the base verifier regardless of
// profile. ID is stable and used for metrics and tests.
type Rule struct {
	ID    string
	Skip  func(c Context) bool
	Check func(c Context) error
}

// Observer is told about every verification failure.
type Observer interface {
	VerificationFailed(profile domain.Profile, ruleID, code string)
}

// BaseRuleID is the rule id reported for base verifier failures.
func BaseRuleID(p domain.Profile) string { return "base:" + string(p) }

type Pipeline struct {
	bases    map[domain.Profile]BaseVerifier
	rules    []Rule
	observer Observer
}

// NewPipeline copies bases and rules, so later changes to the arguments do
// not affect the pipeline.
func NewPipeline(bases map[domain.Profile]BaseVerifier, rules ...Rule) (*Pipeline, error) {
	seen := map[string]bool{}
	for _, r := range rules {
		switch {
		case r.ID == "":
			return nil, errors.New("verifier: rule without id")
		case r.Check == nil:
			return nil, fmt.Errorf("verifier: rule %q has no check", r.ID)
		case seen[r.ID]:
			return nil, fmt.Errorf("verifier: duplicate rule %q", r.ID)
		}
		seen[r.ID] = true
	}
	for p, b := range bases {
		if b == nil {
			return nil, fmt.Errorf("verifier: nil base verifier for %s", p)
		}
	}

	return &Pipeline{
		bases: maps.Clone(bases),
		rules: append([]Rule(nil), rules...),
	}, nil
}

// Default is the pipeline with every built in profile and rule.
func Default() *Pipeline {
	p, err := NewPipeline(DefaultBases(), DefaultRules()...)
	if err != nil {
		panic(err) // static configuration
	}
	return p
}

// WithObserver returns a copy of p reporting failures to o.
func (p *Pipeline) WithObserver(o Observer) *Pipeline {
	cp := *p
	cp.observer = o
	return &cp
}

func (p *Pipeline) RuleIDs() []string {
	ids := make([]string, len(p.rules))
	for i, r := range p.rules {
		ids[i] = r.ID
	}
	return ids
}

func (p *Pipeline) Verify(c Context) error {
	profile := c.Profile()

	base, ok := p.bases[profile]
	if !ok {
		err := oautherr.ServerError(fmt.Sprintf("unsupported profile %q", profile), nil)
		p.observe(profile, BaseRuleID(profile), err)
		return err
	}
	if err := base.Verify(c); err != nil {
		err := oautherr.As(err)
		p.observe(profile, BaseRuleID(profile), err)
		return err
	}

	for _, r := range p.rules {
		if r.Skip != nil && r.Skip(c) {
			continue
		}
		if err := r.Check(c); err != nil {
			err := oautherr.As(err)
			p.observe(profile, r.ID, err)
			return err
		}
	}
	return nil
}

func (p *Pipeline) observe(profile domain.Profile, ruleID string, err *oautherr.Error) {
	if p.observer != nil {
		p.observer.VerificationFailed(profile, ruleID, err.Code)
	}
}
