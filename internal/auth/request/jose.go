package request

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/oautherr"
)

// SupportedRequestObjectAlgorithms are accepted on request objects. "none"
// is never accepted.
var SupportedRequestObjectAlgorithms = []jose.SignatureAlgorithm{
	jose.RS256, jose.PS256, jose.ES256, jose.EdDSA,
}

const maxRequestObjectSize = 64 << 10

// JoseContext is a request object after its signature has been verified.
// The zero value means the request carried no object.
type JoseContext struct {
	Raw       string
	Algorithm string
	KeyID     string
	Claims    ClaimsObject
}

func (j *JoseContext) Present() bool { return j != nil && j.Claims != nil }

// Values returns the object's claims as parameters, or an empty source.
func (j *JoseContext) Values() Values {
	if !j.Present() {
		return NewValues(ClaimsObject{})
	}
	return j.Claims.Values()
}

// JoseHandler resolves and verifies request objects passed by value
// (request) or by reference (request_uri).
type JoseHandler struct {
	HTTPClient *http.Client
}

func NewJoseHandler() *JoseHandler {
	return &JoseHandler{HTTPClient: &http.Client{Timeout: 5 * time.Second}}
}

// Handle returns an empty context when params carry no request object.
func (h *JoseHandler) Handle(ctx context.Context, params Parameters, client domain.Client) (*JoseContext, error) {
	v := params.Values()
	raw, uri := v.Request(), v.RequestURI()

	switch {
	case raw == "" && uri == "":
		return &JoseContext{}, nil
	case raw != "" && uri != "":
		return nil, oautherr.BadRequest(oautherr.CodeInvalidRequest, "request and request_uri are mutually exclusive")
	case uri != "":
		fetched, err := h.fetch(ctx, uri, client)
		if err != nil {
			return nil, err
		}
		raw = fetched
	}

	return VerifyRequestObject(raw, client)
}

func (h *JoseHandler) fetch(ctx context.Context, uri string, client domain.Client) (string, error) {
	if !registeredRequestURI(uri, client.RequestURIs) {
		return "", oautherr.BadRequest(oautherr.CodeInvalidRequestURI, "request_uri is not registered for this client")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", oautherr.BadRequest(oautherr.CodeInvalidRequestURI, "request_uri is malformed")
	}
	req.Header.Set("Accept", "application/oauth-authz-req+jwt")

	resp, err := h.HTTPClient.Do(req)
	if err != nil {
		return "", oautherr.BadRequest(oautherr.CodeInvalidRequestURI, "request_uri could not be fetched")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", oautherr.BadRequest(oautherr.CodeInvalidRequestURI, fmt.Sprintf("request_uri returned %d", resp.StatusCode))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRequestObjectSize))
	if err != nil {
		return "", oautherr.BadRequest(oautherr.CodeInvalidRequestURI, "request_uri could not be read")
	}
	return strings.TrimSpace(string(body)), nil
}

func registeredRequestURI(uri string, registered []string) bool {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "https" {
		return false
	}
	for _, prefix := range registered {
		if prefix != "" && strings.HasPrefix(uri, prefix) {
			return true
		}
	}
	return false
}

// VerifyRequestObject checks raw against the client's registered JWKS and
// decodes its claims.
func VerifyRequestObject(raw string, client domain.Client) (*JoseContext, error) {
	invalid := func(desc string) error {
		return oautherr.BadRequest(oautherr.CodeInvalidRequestObject, desc)
	}

	jws, err := jose.ParseSigned(raw, SupportedRequestObjectAlgorithms)
	if err != nil {
		return nil, invalid("request object is not a supported JWS")
	}
	if len(jws.Signatures) != 1 {
		return nil, invalid("request object must carry exactly one signature")
	}
	if len(client.JWKS) == 0 {
		return nil, invalid("client has no registered keys")
	}

	var keys jose.JSONWebKeySet
	if err := json.Unmarshal(client.JWKS, &keys); err != nil {
		return nil, oautherr.ServerError("client jwks is malformed", err)
	}

	header := jws.Signatures[0].Header
	candidates := keys.Keys
	if header.KeyID != "" {
		candidates = keys.Key(header.KeyID)
	}

	var payload []byte
	for _, k := range candidates {
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		if payload, err = jws.Verify(k.Key); err == nil {
			break
		}
	}
	if payload == nil {
		return nil, invalid("request object signature is invalid")
	}

	claims, err := decodeClaims(payload)
	if err != nil {
		return nil, invalid("request object payload is not a JSON object")
	}

	return &JoseContext{
		Raw:       raw,
		Algorithm: header.Algorithm,
		KeyID:     header.KeyID,
		Claims:    claims,
	}, nil
}

func decodeClaims(payload []byte) (ClaimsObject, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var claims ClaimsObject
	if err := dec.Decode(&claims); err != nil {
		return nil, err
	}
	if claims == nil {
		return nil, errors.New("empty claims")
	}
	return claims, nil
}
