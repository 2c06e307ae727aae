package httpx

import (
	"crypto/x509"
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
)

// ClientCertificate returns the certificate the client presented on the TLS
// connection. When the server sits behind a TLS terminating proxy, header
// names the request header carrying the URL escaped PEM (nginx's
// $ssl_client_escaped_cert). A nil certificate with a nil error means none
// was presented.
func ClientCertificate(r *http.Request, header string) (*x509.Certificate, error) {
	if r.TLS != nil && len(r.TLS.PeerCertificates) > 0 {
		return r.TLS.PeerCertificates[0], nil
	}
	if header == "" {
		return nil, nil
	}

	raw := r.Header.Get(header)
	if raw == "" {
		return nil, nil
	}
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return nil, cryptox.ErrInvalidCertificate
	}
	return cryptox.ParseCertificatePEM([]byte(decoded))
}
