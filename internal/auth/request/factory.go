package request

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/oautherr"
)

// Input is everything a factory needs to assemble a request.
type Input struct {
	TenantID string
	Profile  domain.Profile
	Params   Parameters
	Jose     *JoseContext
	// FilteredScopes are the requested scopes the client is registered for.
	FilteredScopes []string
	Server         domain.ServerConfiguration
	Client         domain.Client
	Now            time.Time
}

// Factory assembles an AuthorizationRequest for one request pattern.
type Factory interface {
	Name() string
	// Source is the merged view the factory reads overridable fields from.
	Source(params Parameters, jc *JoseContext) Values
	Create(in Input) (domain.AuthorizationRequest, error)
}

// SelectFactory picks the factory for a profile and request shape.
func SelectFactory(profile domain.Profile, jc *JoseContext) Factory {
	switch {
	case profile == domain.ProfileFAPIAdvance:
		return FapiAdvanceFactory{}
	case jc.Present():
		return RequestObjectFactory{}
	default:
		return NormalFactory{}
	}
}

// NormalFactory reads plain query or form parameters.
type NormalFactory struct{}

func (NormalFactory) Name() string { return "normal" }

func (NormalFactory) Source(params Parameters, _ *JoseContext) Values { return params.Values() }

func (f NormalFactory) Create(in Input) (domain.AuthorizationRequest, error) {
	return assemble(in, f.Source(in.Params, in.Jose))
}

// RequestObjectFactory lets request object claims win over parameters of the
// same name.
type RequestObjectFactory struct{}

func (RequestObjectFactory) Name() string { return "request_object" }

func (RequestObjectFactory) Source(params Parameters, jc *JoseContext) Values {
	if !jc.Present() {
		return params.Values()
	}
	return NewValues(Overlay(jc.Claims, params))
}

func (f RequestObjectFactory) Create(in Input) (domain.AuthorizationRequest, error) {
	return assemble(in, f.Source(in.Params, in.Jose))
}

// FapiAdvanceFactory reads only the request object. Outer parameters are
// ignored apart from request and request_uri.
type FapiAdvanceFactory struct{}

func (FapiAdvanceFactory) Name() string { return "fapi_advance_request_object" }

func (FapiAdvanceFactory) Source(_ Parameters, jc *JoseContext) Values { return jc.Values() }

func (f FapiAdvanceFactory) Create(in Input) (domain.AuthorizationRequest, error) {
	return assemble(in, f.Source(in.Params, in.Jose))
}

func assemble(in Input, v Values) (domain.AuthorizationRequest, error) {
	outer := in.Params.Values()

	maxAge, ok := v.MaxAge()
	if !ok {
		return domain.AuthorizationRequest{}, oautherr.BadRequest(oautherr.CodeInvalidRequest, "max_age must be an integer")
	}
	if maxAge == nil && in.Server.DefaultMaxAge > 0 {
		d := int(in.Server.DefaultMaxAge / time.Second)
		maxAge = &d
	}

	// Unparseable details are left for the authorization_details rule to
	// reject.
	details, _ := domain.ParseAuthorizationDetails(v.AuthorizationDetails())

	req, err := domain.NewAuthorizationRequest(domain.AuthorizationRequest{
		ID:                   uuid.NewString(),
		TenantID:             in.TenantID,
		Profile:              in.Profile,
		ClientID:             v.ClientID(),
		RedirectURI:          v.RedirectURI(),
		Scopes:               in.FilteredScopes,
		ResponseType:         v.ResponseType(),
		ResponseMode:         v.ResponseMode(),
		State:                v.State(),
		Nonce:                v.Nonce(),
		Display:              v.Display(),
		Prompt:               v.Prompt(),
		MaxAge:               maxAge,
		CodeChallenge:        v.CodeChallenge(),
		CodeChallengeMethod:  v.CodeChallengeMethod(),
		AuthorizationDetails: details,
		Claims:               parseClaims(v.Claims()),
		Request:              outer.Request(),
		RequestURI:           outer.RequestURI(),
		CustomParams:         v.CustomParams(),
		CreatedAt:            in.Now,
		ExpiresAt:            in.Now.Add(in.Server.AuthorizationRequestDuration),
	})
	if errors.Is(err, domain.ErrInvalidAuthorizationRequest) {
		return domain.AuthorizationRequest{}, oautherr.BadRequest(oautherr.CodeInvalidRequest, err.Error())
	}
	if err != nil {
		return domain.AuthorizationRequest{}, oautherr.ServerError("assemble authorization request", err)
	}
	return req, nil
}

// parseClaims returns nil for anything that is not a JSON object.
func parseClaims(raw string) json.RawMessage {
	if raw == "" {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil
	}
	return json.RawMessage(raw)
}
