// Package register implements the install handshake: the platform posts the
// app token for a tenant, the handler proves the token works against the
// tenant's API, captures the tenant's JWKS and persists the credentials.
package register

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"holiapp/pkg/allowlist"
	"holiapp/pkg/apl"
	"holiapp/pkg/headers"
	"holiapp/pkg/logger"
	"holiapp/pkg/metrics"
	"holiapp/pkg/problems"
)

// Response codes.
const (
	CodeWrongMethod         = "WRONG_METHOD"
	CodeMissingDomainHeader = "MISSING_DOMAIN_HEADER"
	CodeMissingAPIURLHeader = "MISSING_API_URL_HEADER"
	CodeMissingAuthToken    = "MISSING_AUTH_TOKEN"
	CodeURLProhibited       = "HOLIPOLY_URL_PROHIBITED"
	CodeAPLNotConfigured    = "APL_NOT_CONFIGURED"
	CodeUnknownAppID        = "UNKNOWN_APP_ID"
	CodeJWKSNotAvailable    = "JWKS_NOT_AVAILABLE"
	CodeAPLSetFailed        = "APL_SET_FAILED"
	CodeHookError           = "REGISTER_HANDLER_HOOK_ERROR"
)

const hookErrorMessage = "error during app installation"

// Platform is the part of the tenant platform the handshake talks to.
// *platform.Client implements it.
type Platform interface {
	FetchAppID(ctx context.Context, apiURL, token string) (string, error)
	FetchJWKS(ctx context.Context, apiURL string) (string, error)
}

// Request describes the registration being processed.
type Request struct {
	APIURL    string
	Domain    string
	AuthToken string
	HTTP      *http.Request
}

// Hooks are optional callbacks run at fixed points of the handshake. A hook
// aborts the handshake by returning an error; a *HookError chooses the
// status, any other error answers 500.
type Hooks struct {
	OnRequestStart    func(ctx context.Context, req Request) error
	OnRequestVerified func(ctx context.Context, req Request, auth apl.AuthData) error
	// OnAuthAPLSaved runs after the data is persisted. Aborting it still
	// answers with an error although the credentials stay stored.
	OnAuthAPLSaved func(ctx context.Context, req Request, auth apl.AuthData) error
	OnAPLSetFailed func(ctx context.Context, req Request, auth apl.AuthData, err error) error
}

type Options struct {
	APL       apl.APL
	Platform  Platform
	AllowList []allowlist.Rule
	Hooks     Hooks
	Log       *zap.SugaredLogger
}

type Handler struct {
	apl      apl.APL
	platform Platform
	rules    []allowlist.Rule
	hooks    Hooks
	log      *zap.SugaredLogger
}

func New(opts Options) *Handler {
	return &Handler{
		apl:      opts.APL,
		platform: opts.Platform,
		rules:    opts.AllowList,
		hooks:    opts.Hooks,
		log:      logger.OrNop(opts.Log),
	}
}

// failure is the typed outcome of a handshake step that stops the flow.
type failure struct {
	status  int
	code    string
	message string
}

func fail(status int, code, format string, args ...any) *failure {
	return &failure{status: status, code: code, message: fmt.Sprintf(format, args...)}
}

// hookFailure exposes only HookError messages; any other error is logged and
// answered with a generic message.
func (h *Handler) hookFailure(err error) *failure {
	var he *HookError
	if errors.As(err, &he) {
		return &failure{status: he.status(), code: CodeHookError, message: he.Message}
	}
	h.log.Errorw("register: hook failed", "err", err)
	return &failure{status: http.StatusInternalServerError, code: CodeHookError, message: hookErrorMessage}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, f := h.parse(r)
	if f == nil {
		f = h.handshake(r.Context(), req)
	}
	if f != nil {
		h.log.Warnw("register: rejected", "code", f.code, "status", f.status, "apiUrl", req.APIURL, "err", f.message)
		metrics.RegisterOutcomes.WithLabelValues(f.code).Inc()
		problems.Write(w, f.status, f.code, f.message)
		return
	}
	h.log.Infow("register: tenant registered", "apiUrl", req.APIURL, "domain", req.Domain)
	metrics.RegisterOutcomes.WithLabelValues("OK").Inc()
	problems.OK(w)
}

type registerBody struct {
	AuthToken string `json:"auth_token"`
}

func (h *Handler) parse(r *http.Request) (Request, *failure) {
	req := Request{HTTP: r}
	if r.Method != http.MethodPost {
		return req, fail(http.StatusMethodNotAllowed, CodeWrongMethod, "only POST is accepted")
	}
	ph := headers.Extract(r.Header)
	req.Domain, req.APIURL = ph.Domain, ph.APIURL
	if req.Domain == "" {
		return req, fail(http.StatusBadRequest, CodeMissingDomainHeader, "missing %s header", headers.Domain)
	}
	if req.APIURL == "" {
		return req, fail(http.StatusBadRequest, CodeMissingAPIURLHeader, "missing %s header", headers.APIURL)
	}
	var body registerBody
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&body); err != nil || strings.TrimSpace(body.AuthToken) == "" {
		return req, fail(http.StatusBadRequest, CodeMissingAuthToken, "missing auth_token in request body")
	}
	req.AuthToken = body.AuthToken
	return req, nil
}

func (h *Handler) handshake(ctx context.Context, req Request) *failure {
	if h.hooks.OnRequestStart != nil {
		if err := h.hooks.OnRequestStart(ctx, req); err != nil {
			return h.hookFailure(err)
		}
	}

	if !allowlist.Validate(ctx, req.APIURL, h.rules) {
		return fail(http.StatusForbidden, CodeURLProhibited, "this app cannot be installed on %s", req.APIURL)
	}

	if c := h.apl.IsConfigured(ctx); !c.Configured {
		msg := "APL is not configured"
		if c.Err != nil {
			msg = c.Err.Error()
		}
		return fail(http.StatusServiceUnavailable, CodeAPLNotConfigured, "%s", msg)
	}

	appID, err := h.platform.FetchAppID(ctx, req.APIURL, req.AuthToken)
	if err != nil || appID == "" {
		if err != nil {
			h.log.Debugw("register: app id lookup failed", "apiUrl", req.APIURL, "err", err)
		}
		return fail(http.StatusUnauthorized, CodeUnknownAppID, "the auth token could not be confirmed against %s", req.APIURL)
	}

	jwks, err := h.platform.FetchJWKS(ctx, req.APIURL)
	if err != nil || jwks == "" {
		if err != nil {
			h.log.Debugw("register: jwks fetch failed", "apiUrl", req.APIURL, "err", err)
		}
		return fail(http.StatusUnauthorized, CodeJWKSNotAvailable, "could not fetch the JWKS of %s", req.APIURL)
	}

	auth := apl.AuthData{
		APIURL: req.APIURL,
		Token:  req.AuthToken,
		AppID:  appID,
		Domain: req.Domain,
		JWKS:   jwks,
	}

	if h.hooks.OnRequestVerified != nil {
		if err := h.hooks.OnRequestVerified(ctx, req, auth); err != nil {
			return h.hookFailure(err)
		}
	}

	if err := h.apl.Set(ctx, auth); err != nil {
		h.log.Errorw("register: storing auth data failed", "apiUrl", req.APIURL, "err", err)
		if h.hooks.OnAPLSetFailed != nil {
			if herr := h.hooks.OnAPLSetFailed(ctx, req, auth, err); herr != nil {
				return h.hookFailure(herr)
			}
		}
		return fail(http.StatusInternalServerError, CodeAPLSetFailed, "registration failed: could not save the auth data")
	}

	if h.hooks.OnAuthAPLSaved != nil {
		if err := h.hooks.OnAuthAPLSaved(ctx, req, auth); err != nil {
			return h.hookFailure(err)
		}
	}
	return nil
}
