package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"holiapp/pkg/apl"
	"holiapp/pkg/headers"
	"holiapp/pkg/logger"
	"holiapp/pkg/metrics"
	"holiapp/pkg/token"
)

// TokenVerifier verifies dashboard bearer tokens. *token.Verifier implements it.
type TokenVerifier interface {
	Verify(ctx context.Context, p token.Params) (token.User, error)
}

// ProtectedContext is what a protected handler learns about the caller.
type ProtectedContext struct {
	BaseURL  string
	AuthData apl.AuthData
	User     token.User
}

type ctxProtectedKey struct{}

// ProtectedFrom returns the verified context stored by Protected.
func ProtectedFrom(ctx context.Context) (ProtectedContext, bool) {
	v, ok := ctx.Value(ctxProtectedKey{}).(ProtectedContext)
	return v, ok
}

// Protected admits requests carrying a valid dashboard token for a
// registered tenant. requiredPermissions, when non empty, must all be
// present in the token.
func Protected(store apl.APL, tokens TokenVerifier, requiredPermissions []string, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	log = logger.OrNop(log)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pc, verr := verifyProtected(r, store, tokens, requiredPermissions)
			if verr != nil {
				log.Debugw("protected: rejected", "kind", verr.Kind, "err", verr.Message, "path", r.URL.Path)
				writeVerificationError(w, "protected", verr)
				return
			}
			metrics.Verifications.WithLabelValues("protected", "ok").Inc()
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxProtectedKey{}, pc)))
		})
	}
}

func verifyProtected(r *http.Request, store apl.APL, tokens TokenVerifier, required []string) (ProtectedContext, *VerificationError) {
	h := headers.Extract(r.Header)
	baseURL := headers.BaseURL(r)
	if baseURL == "" {
		return ProtectedContext{}, fail(KindMissingHostHeader, "missing host header")
	}
	if h.APIURL == "" {
		return ProtectedContext{}, fail(KindMissingAPIURLHeader, "missing %s header", headers.APIURL)
	}
	if h.AuthorizationBearer == "" {
		return ProtectedContext{}, fail(KindMissingAuthorizationBearerHeader, "missing %s header", headers.AuthorizationBearer)
	}

	auth, err := store.Get(r.Context(), h.APIURL)
	if err != nil {
		return ProtectedContext{}, fail(KindUnexpected, "could not read auth data: %v", err)
	}
	if auth == nil {
		return ProtectedContext{}, fail(KindNotRegistered, "%s is not registered", h.APIURL)
	}

	user, err := tokens.Verify(r.Context(), token.Params{
		AppID:               auth.AppID,
		Token:               h.AuthorizationBearer,
		APIURL:              h.APIURL,
		RequiredPermissions: required,
	})
	if err != nil {
		return ProtectedContext{}, fail(KindJWTVerificationFailed, "%v", err)
	}
	return ProtectedContext{BaseURL: baseURL, AuthData: *auth, User: user}, nil
}
