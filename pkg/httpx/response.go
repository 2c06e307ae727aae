package httpx

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// WriteJSON writes v as the JSON body with status code. Responses are never
// cacheable.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache sets the headers RFC 6749 requires on token responses.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// ParseSpaceDelimitedFields splits scope style lists. Blank input is nil.
func ParseSpaceDelimitedFields(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

// IsFormContentType reports whether r carries an urlencoded form body.
func IsFormContentType(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.EqualFold(strings.TrimSpace(ct), "application/x-www-form-urlencoded")
}

func logPanic(r *http.Request, rec any) {
	slogx.FromContext(r.Context()).Error("handler panic", "panic", rec, "path", r.URL.Path)
}
