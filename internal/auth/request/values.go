// Package request turns raw authorization request input into a
// domain.AuthorizationRequest. Parameters may come from the query or form,
// from a signed request object, or from both merged.
package request

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
)

// Parameter names.
const (
	ParamClientID             = "client_id"
	ParamRedirectURI          = "redirect_uri"
	ParamScope                = "scope"
	ParamResponseType         = "response_type"
	ParamResponseMode         = "response_mode"
	ParamState                = "state"
	ParamNonce                = "nonce"
	ParamDisplay              = "display"
	ParamPrompt               = "prompt"
	ParamMaxAge               = "max_age"
	ParamCodeChallenge        = "code_challenge"
	ParamCodeChallengeMethod  = "code_challenge_method"
	ParamAuthorizationDetails = "authorization_details"
	ParamClaims               = "claims"
	ParamRequest              = "request"
	ParamRequestURI           = "request_uri"

	customParamPrefix = "custom_"
)

// Source is anything parameters can be read from.
type Source interface {
	Lookup(key string) (string, bool)
	Keys() []string
}

// Values gives typed access to a Source.
type Values struct {
	src Source
}

func NewValues(src Source) Values { return Values{src: src} }

func (v Values) Get(key string) string {
	if v.src == nil {
		return ""
	}
	s, _ := v.src.Lookup(key)
	return s
}

func (v Values) Has(key string) bool {
	if v.src == nil {
		return false
	}
	_, ok := v.src.Lookup(key)
	return ok
}

func (v Values) ClientID() string { return v.Get(ParamClientID) }
func (v Values) RedirectURI() string { return v.Get(ParamRedirectURI) }
func (v Values) Scopes() []string    { return domain.ParseScopes(v.Get(ParamScope)) }
func (v Values) ResponseType() domain.ResponseType {
	return domain.ResponseType(v.Get(ParamResponseType))
}

func (v Values) ResponseMode() string { return v.Get(ParamResponseMode) }
func (v Values) State() string { return v.Get(ParamState) }
func (v Values) Nonce() string { return v.Get(ParamNonce) }
func (v Values) Display() string { return v.Get(ParamDisplay) }
func (v Values) Prompt() string { return v.Get(ParamPrompt) }
func (v Values) CodeChallenge() string { return v.Get(ParamCodeChallenge) }
func (v Values) CodeChallengeMethod() string { return v.Get(ParamCodeChallengeMethod) }
func (v Values) AuthorizationDetails() string { return v.Get(ParamAuthorizationDetails) }
func (v Values) Claims() string { return v.Get(ParamClaims) }
func (v Values) Request() string { return v.Get(ParamRequest) }
func (v Values) RequestURI() string { return v.Get(ParamRequestURI) }
func (v Values) HasRequestObject() bool { return v.Request() != "" || v.RequestURI() != "" }
func (v Values) HasAuthorizationDetails() bool { return v.AuthorizationDetails() != "" }

// MaxAge returns nil when max_age is absent. ok is false when it is present
// but not an integer.
func (v Values) MaxAge() (maxAge *int, ok bool) {
	if v.src == nil {
		return nil, true
	}
	raw, present := v.src.Lookup(ParamMaxAge)
	if !present || raw == "" {
		return nil, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, false
	}
	return &n, true
}

// CustomParams collects every custom_ prefixed parameter.
func (v Values) CustomParams() map[string]string {
	if v.src == nil {
		return nil
	}
	out := map[string]string{}
	for _, k := range v.src.Keys() {
		if strings.HasPrefix(k, customParamPrefix) {
			out[k] = v.Get(k)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Parameters are the query or form parameters of an authorization request.
type Parameters map[string][]string

func (p Parameters) Lookup(key string) (string, bool) {
	vs, ok := p[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

func (p Parameters) Keys() []string { return slices.Sorted(maps.Keys(p)) }

func (p Parameters) Values() Values { return NewValues(p) }

// ClaimsObject is the verified claim set of a request object.
type ClaimsObject map[string]any

// Lookup renders claim values as their parameter form: strings verbatim,
// numbers and booleans formatted, objects and arrays as JSON.
func (c ClaimsObject) Lookup(key string) (string, bool) {
	raw, ok := c[key]
	if !ok || raw == nil {
		return "", false
	}
	switch v := raw.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

func (c ClaimsObject) Keys() []string { return slices.Sorted(maps.Keys(c)) }

func (c ClaimsObject) Values() Values { return NewValues(c) }

func (c ClaimsObject) Issuer() string {
	s, _ := c["iss"].(string)
	return s
}

// Audience accepts both the string and array forms of aud.
func (c ClaimsObject) Audience() []string {
	switch v := c["aud"].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, a := range v {
			if s, ok := a.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// NumericDate returns a NumericDate claim in seconds.
func (c ClaimsObject) NumericDate(key string) (float64, bool) {
	switch v := c[key].(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	}
	return 0, false
}

type overlay struct {
	top, bottom Source
}

// Overlay reads from top first and falls back to bottom.
func Overlay(top, bottom Source) Source { return overlay{top: top, bottom: bottom} }

func (o overlay) Lookup(key string) (string, bool) {
	if v, ok := o.top.Lookup(key); ok {
		return v, true
	}
	return o.bottom.Lookup(key)
}

func (o overlay) Keys() []string {
	keys := append(o.top.Keys(), o.bottom.Keys()...)
	slices.Sort(keys)
	return slices.Compact(keys)
}
