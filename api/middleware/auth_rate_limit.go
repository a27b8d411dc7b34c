package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/elibrary-backend/api/responses"
	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
	"github.com/angelmondragon/elibrary-backend/pkg/logger"
)

// RateLimitStore counts attempts in fixed windows. pkg/redis.Client satisfies it.
type RateLimitStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy caps attempts per client IP and per submitted username
// inside one window. A zero limit disables that dimension.
type AuthRateLimitPolicy struct {
	Name          string
	Window        time.Duration
	IPLimit       int
	UsernameLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, usernameLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{Name: name, Window: window, IPLimit: ipLimit, UsernameLimit: usernameLimit}
}

func (p AuthRateLimitPolicy) active() bool {
	return p.Window > 0 && (p.IPLimit > 0 || p.UsernameLimit > 0)
}

type rateCounter struct {
	dimension string
	subject   string
	limit     int
}

// AuthRateLimit throttles login and registration. The username is hashed before
// it reaches Redis or the logs.
func AuthRateLimit(policy AuthRateLimitPolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.active() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var counters []rateCounter
			if policy.IPLimit > 0 {
				if ip := clientIP(r); ip != "" {
					counters = append(counters, rateCounter{dimension: "ip", subject: ip, limit: policy.IPLimit})
				}
			}
			if policy.UsernameLimit > 0 {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Validation("unable to read request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				if username := usernameFromBody(body); username != "" {
					counters = append(counters, rateCounter{dimension: "username", subject: sha256Hex(username), limit: policy.UsernameLimit})
				}
			}

			for _, c := range counters {
				scope := policy.Name + ":" + c.dimension + ":" + c.subject
				allowed, count, err := store.FixedWindowAllow(ctx, scope, int64(c.limit), policy.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limit counter"))
					return
				}
				if !allowed {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"policy":    policy.Name,
							"dimension": c.dimension,
							"subject":   c.subject,
							"attempts":  count,
							"limit":     c.limit,
						}), "auth attempt throttled")
					}
					w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Round(time.Second).Seconds())))
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop since the API runs behind a proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func usernameFromBody(payload []byte) string {
	var body struct {
		Username string `json:"username"`
	}
	if json.Unmarshal(payload, &body) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Username))
}

func sha256Hex(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
