package httpx

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimit is a token bucket refilled at Requests per Window.
type RateLimit struct {
	Requests int
	Window   time.Duration
	Burst    int
}

// Default profiles. Use RateLimitFromEnv to let operators override them.
var (
	// StrictLimit guards credential checks at the token and authorize
	// endpoints.
	StrictLimit = RateLimit{Requests: 30, Window: time.Minute, Burst: 10}

	// ModerateLimit covers introspection and revocation.
	ModerateLimit = RateLimit{Requests: 300, Window: time.Minute, Burst: 50}

	// PublicLimit covers JWKS and health endpoints.
	PublicLimit = RateLimit{Requests: 1000, Window: time.Minute, Burst: 200}
)

// RateLimitFromEnv overlays RATELIMIT_<NAME>_REQUESTS, _WINDOW_SEC and
// _BURST onto def. Unparseable or non-positive values are ignored.
func RateLimitFromEnv(name string, def RateLimit) RateLimit {
	positive := func(key string) (int, bool) {
		n, err := strconv.Atoi(os.Getenv("RATELIMIT_" + name + "_" + key))
		return n, err == nil && n > 0
	}

	if n, ok := positive("REQUESTS"); ok {
		def.Requests = n
	}
	if n, ok := positive("WINDOW_SEC"); ok {
		def.Window = time.Duration(n) * time.Second
	}
	if n, ok := positive("BURST"); ok {
		def.Burst = n
	}
	return def
}

// KeyFunc groups requests into rate limit buckets. An empty key bypasses
// the limiter.
type KeyFunc func(*http.Request) string

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// FormValue keys by a request parameter such as client_id or username.
func FormValue(field string) KeyFunc {
	return func(r *http.Request) string {
		if err := r.ParseForm(); err != nil {
			return ""
		}
		return r.FormValue(field)
	}
}

// PathValue keys by a ServeMux wildcard such as {tenant}.
func PathValue(name string) KeyFunc {
	return func(r *http.Request) string { return r.PathValue(name) }
}

// JoinKeys concatenates the non-empty results of fns with ":".
func JoinKeys(fns ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(fns))
		for _, fn := range fns {
			if k := fn(r); k != "" {
				parts = append(parts, k)
			}
		}
		return strings.Join(parts, ":")
	}
}

const sweepEvery = 5 * time.Minute

type buckets struct {
	limit rate.Limit
	burst int

	mu        sync.Mutex
	byKey     map[string]*rate.Limiter
	lastSweep time.Time
}

func (b *buckets) get(key string, now time.Time) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Full buckets are idle and can be dropped without changing behaviour.
	if now.Sub(b.lastSweep) > sweepEvery {
		for k, l := range b.byKey {
			if l.TokensAt(now) >= float64(b.burst) {
				delete(b.byKey, k)
			}
		}
		b.lastSweep = now
	}

	l, ok := b.byKey[key]
	if !ok {
		l = rate.NewLimiter(b.limit, b.burst)
		b.byKey[key] = l
	}
	return l
}

// RateLimitBy rejects requests over cfg with 429 and a Retry-After header.
func RateLimitBy(cfg RateLimit, key KeyFunc) Middleware {
	b := &buckets{
		limit:     rate.Limit(float64(cfg.Requests) / cfg.Window.Seconds()),
		burst:     cfg.Burst,
		byKey:     make(map[string]*rate.Limiter),
		lastSweep: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now()
			l := b.get(k, now)
			if l.AllowN(now, 1) {
				next.ServeHTTP(w, r)
				return
			}

			res := l.ReserveN(now, 1)
			retry := max(int(res.DelayFrom(now).Seconds()), 1)
			res.CancelAt(now)

			slogx.FromContext(r.Context()).Warn("rate limit exceeded", "key", k, "retry_after", retry)

			w.Header().Set("Retry-After", strconv.Itoa(retry))
			WriteJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":             "rate_limit_exceeded",
				"error_description": "too many requests",
			})
		})
	}
}

// RateLimitByIP is RateLimitBy keyed on ClientIP.
func RateLimitByIP(cfg RateLimit) Middleware {
	return RateLimitBy(cfg, ClientIP)
}
