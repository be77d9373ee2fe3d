package adminapi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"holiapp/pkg/problems"
)

const adminRole = "app_admin"

// cors sets CORS headers and answers preflight requests.
// allowed may contain exact origins (e.g., http://localhost:3001) or "*" to allow all.
func cors(allowed []string) func(http.Handler) http.Handler {
	match := func(origin string) bool {
		if origin == "" {
			return false
		}
		for _, a := range allowed {
			a = strings.TrimSpace(a)
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); match(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				w.Header().Set("Access-Control-Max-Age", "86400")
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// adminAuth accepts the static admin token, or an admin JWT signed by the
// configured key set and carrying role=app_admin.
func (a *App) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			problems.Write(w, http.StatusUnauthorized, "MISSING_BEARER", "missing bearer token")
			return
		}
		tok := strings.TrimSpace(authz[len("Bearer "):])

		if a.adminToken != "" && subtle.ConstantTimeCompare([]byte(tok), []byte(a.adminToken)) == 1 {
			next.ServeHTTP(w, r)
			return
		}
		if a.adminJWKS == nil {
			problems.Write(w, http.StatusUnauthorized, "INVALID_TOKEN", "invalid admin token")
			return
		}

		opts := []jwt.ParseOption{
			jwt.WithKeySet(a.adminJWKS, jws.WithInferAlgorithmFromKey(true)),
			jwt.WithValidate(true),
		}
		if a.adminIssuer != "" {
			opts = append(opts, jwt.WithIssuer(a.adminIssuer))
		}
		if a.adminAud != "" {
			opts = append(opts, jwt.WithAudience(a.adminAud))
		}
		jt, err := jwt.Parse([]byte(tok), opts...)
		if err != nil {
			a.log.Debugw("admin: token rejected", "err", err)
			problems.Write(w, http.StatusUnauthorized, "INVALID_TOKEN", "invalid admin token")
			return
		}
		if role, _ := jt.Get("role"); role != adminRole {
			problems.Write(w, http.StatusForbidden, "FORBIDDEN", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
