package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yourorg/propertylease/internal/domain"
	"github.com/yourorg/propertylease/internal/security/audit"
	"github.com/yourorg/propertylease/internal/security/auth"
	"github.com/yourorg/propertylease/internal/security/ratelimit"
)

type ClaimsContextKey struct{}

// isPublicPath lists the endpoints reachable without a token: health,
// metrics, login/registration, and the pre-signup room code check.
func isPublicPath(path string) bool {
	switch path {
	case "/healthz", "/readyz", "/metrics",
		"/api/auth/login", "/api/auth/register",
		"/api/tenants/register", "/api/tenants/validate-room-code":
		return true
	}
	return false
}

func JWTMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"missing auth"}`, http.StatusUnauthorized)
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				http.Error(w, `{"error":"invalid auth"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			// Keyed by authenticated user when present, client address for
			// the public endpoints.
			key := ""
			if c := r.Context().Value(ClaimsContextKey{}); c != nil {
				key = c.(*auth.Claims).UserID
			} else {
				key = r.RemoteAddr
				if i := strings.LastIndex(key, ":"); i > 0 {
					key = key[:i]
				}
			}

			if !limiter.Allow(key) {
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// pathID pulls the resource id out of /api/<resource>/<id>/<action> paths.
// This middleware runs ahead of mux routing, so r.PathValue is not populated
// yet.
func pathID(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 {
		return ""
	}
	return parts[2]
}

func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := ""
			if c := r.Context().Value(ClaimsContextKey{}); c != nil {
				userID = c.(*auth.Claims).UserID
			}

			if r.Method == http.MethodPost {
				switch {
				case r.URL.Path == "/api/payments":
					auditLog.LogAction(r.Context(), userID, "submit", "payment", "", "initiated", "")
				case r.URL.Path == "/api/payments/manual":
					auditLog.LogAction(r.Context(), userID, "record_manual", "payment", "", "initiated", "")
				case strings.HasSuffix(r.URL.Path, "/refund"):
					auditLog.LogAction(r.Context(), userID, "refund", "payment", pathID(r.URL.Path), "initiated", "")
				case strings.HasSuffix(r.URL.Path, "/room-code"):
					auditLog.LogAction(r.Context(), userID, "regenerate", "room_code", pathID(r.URL.Path), "initiated", "")
				case r.URL.Path == "/api/tenants/register":
					auditLog.LogAction(r.Context(), userID, "onboard", "tenant", "", "initiated", "")
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c := ctx.Value(ClaimsContextKey{}); c != nil {
		return c.(*auth.Claims)
	}
	return nil
}

// GetCallerFromContext converts the JWT claims on the context into the
// domain caller identity services expect. ok is false when unauthenticated.
func GetCallerFromContext(ctx context.Context) (domain.Caller, bool) {
	claims := GetClaimsFromContext(ctx)
	if claims == nil {
		return domain.Caller{}, false
	}
	return domain.Caller{
		ID:    claims.UserID,
		Email: claims.Email,
		Role:  domain.Role(claims.Role),
	}, true
}
