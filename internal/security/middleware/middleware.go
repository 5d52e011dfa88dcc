package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/security"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/audit"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/auth"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/ratelimit"
)

type sessionContextKey struct{}

var publicExact = map[string]bool{
	"/api/health":          true,
	"/healthz":             true,
	"/readyz":              true,
	"/metrics":             true,
	"/api/auth/login":      true,
	"/api/auth/register":   true,
	"/api/auth/logout":     true,
	"/api/billing/webhook": true,
}

// IsPublicPath reports whether path is served without a session.
func IsPublicPath(path string) bool {
	if publicExact[path] {
		return true
	}
	if strings.HasPrefix(path, "/api/public/") {
		return true
	}
	return strings.HasPrefix(path, "/api/integrations/") && strings.HasSuffix(path, "/callback")
}

// IsLinkPath reports whether path is a public link endpoint that gets the
// strict rate limit.
func IsLinkPath(path string) bool {
	return strings.HasPrefix(path, "/api/public/")
}

// SessionMiddleware resolves the caller for every non-public path and
// rejects the request with 401 when no valid session is present.
func SessionMiddleware(resolver auth.SessionResolver, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			session, err := resolver.Resolve(r)
			if err != nil || session == nil {
				log.Debug("session rejected",
					slog.String("path", r.URL.Path),
					slog.Any("error", err),
				)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// RequirePermission rejects sessions whose role lacks the permission the
// route needs. It runs after SessionMiddleware.
func RequirePermission(authz *security.AuthorizationService, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := SessionFromContext(r.Context())
			if session == nil || IsPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			perm, needed := security.RequiredPermission(r.Method, r.URL.Path)
			if needed && !authz.HasPermission(session.Role, perm) {
				log.Warn("route forbidden",
					slog.String("user_id", session.UserID),
					slog.String("role", string(session.Role)),
					slog.String("permission", string(perm)),
					slog.String("path", r.URL.Path),
				)
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s *auth.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// SessionFromContext returns the resolved session or nil.
func SessionFromContext(ctx context.Context) *auth.Session {
	if s, ok := ctx.Value(sessionContextKey{}).(*auth.Session); ok {
		return s
	}
	return nil
}

// RateLimitMiddleware limits authenticated callers by user id and public
// link endpoints by client address with a stricter budget.
func RateLimitMiddleware(limiter *ratelimit.Limiter, publicPerMinute int, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsLinkPath(r.URL.Path) || r.URL.Path == "/api/auth/login" || r.URL.Path == "/api/auth/register" {
				if !limiter.AllowStrict(strictKey(r), publicPerMinute, time.Minute) {
					log.Warn("public rate limit exceeded",
						slog.String("path", r.URL.Path),
						slog.String("ip", ClientIP(r)),
					)
					w.Header().Set("Retry-After", "60")
					writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if s := SessionFromContext(r.Context()); s != nil && !limiter.Allow(s.UserID) {
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuditMiddleware logs every mutating request with its outcome.
func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			default:
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			userID := ""
			if s := SessionFromContext(r.Context()); s != nil {
				userID = s.UserID
			}
			status := "ok"
			if rec.status >= 400 {
				status = http.StatusText(rec.status)
			}
			auditLog.LogAction(r.Context(), userID, strings.ToLower(r.Method), "api", r.URL.Path, status, "")
			if rec.status == http.StatusUnauthorized || rec.status == http.StatusForbidden {
				auditLog.LogDenied(r.Context(), userID, r.Method+" "+r.URL.Path)
			}
		})
	}
}

// strictKey groups public requests by route family and caller address so
// one address cannot cycle through tokens to dodge the limit.
func strictKey(r *http.Request) string {
	family := r.URL.Path
	if i := strings.LastIndex(family, "/"); i > 0 {
		family = family[:i]
	}
	return family + "|" + ClientIP(r)
}

// ClientIP returns the caller address, honouring the first X-Forwarded-For hop.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
