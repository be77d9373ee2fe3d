package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"holiapp/pkg/apl"
	"holiapp/pkg/headers"
	"holiapp/pkg/logger"
	"holiapp/pkg/metrics"
	"holiapp/pkg/signature"
	"holiapp/pkg/webhook"
)

const maxWebhookBody = 4 << 20

// JWKSFetcher returns the tenant's current JWKS. *platform.Client implements it.
type JWKSFetcher interface {
	FetchJWKS(ctx context.Context, apiURL string) (string, error)
}

// WebhookOptions configures signature verification for Webhook.
type WebhookOptions struct {
	APL apl.APL
	// SecretKey switches the handler to HMAC mode.
	SecretKey string
	// JWKS refreshes a stale stored key set. Required in JWKS mode.
	JWKS JWKSFetcher
	// Remote verifies tenants registered without a JWKS snapshot.
	Remote *signature.RemoteVerifier
	Log    *zap.SugaredLogger
}

// WebhookContext is what a webhook handler receives about the delivery.
type WebhookContext struct {
	BaseURL       string
	Event         string
	Payload       json.RawMessage
	AuthData      apl.AuthData
	SchemaVersion *float64
}

type ctxWebhookKey struct{}

// WebhookFrom returns the context stored by Webhook.
func WebhookFrom(ctx context.Context) (WebhookContext, bool) {
	v, ok := ctx.Value(ctxWebhookKey{}).(WebhookContext)
	return v, ok
}

// Webhook verifies a platform delivery for def before the handler runs.
// The raw body stays readable by the handler.
func Webhook(def webhook.Definition, opts WebhookOptions) func(http.Handler) http.Handler {
	opts.Log = logger.OrNop(opts.Log)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wc, verr := verifyWebhook(r, def, opts)
			if verr != nil {
				opts.Log.Debugw("webhook: rejected", "event", def.Event, "kind", verr.Kind, "err", verr.Message)
				writeVerificationError(w, "webhook", verr)
				return
			}
			metrics.Verifications.WithLabelValues("webhook", "ok").Inc()
			r.Body = io.NopCloser(bytes.NewReader(wc.Payload))
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxWebhookKey{}, wc)))
		})
	}
}

func verifyWebhook(r *http.Request, def webhook.Definition, opts WebhookOptions) (WebhookContext, *VerificationError) {
	if r.Method != http.MethodPost {
		return WebhookContext{}, fail(KindWrongMethod, "only POST is accepted")
	}
	h := headers.Extract(r.Header)
	baseURL := headers.BaseURL(r)
	switch {
	case baseURL == "":
		return WebhookContext{}, fail(KindMissingHostHeader, "missing host header")
	case h.Domain == "":
		return WebhookContext{}, fail(KindMissingDomainHeader, "missing %s header", headers.Domain)
	case h.APIURL == "":
		return WebhookContext{}, fail(KindMissingAPIURLHeader, "missing %s header", headers.APIURL)
	case h.Event == "":
		return WebhookContext{}, fail(KindMissingEventHeader, "missing %s header", headers.Event)
	case !def.Matches(h.Event):
		return WebhookContext{}, fail(KindWrongEvent, "expected %s, got %s", def.Event, h.Event)
	case h.Signature == "":
		return WebhookContext{}, fail(KindMissingSignatureHeader, "missing %s header", headers.Signature)
	}

	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxWebhookBody))
	if err != nil || !json.Valid(body) {
		return WebhookContext{}, fail(KindCantBeParsed, "request body is not valid JSON")
	}

	auth, err := opts.APL.Get(r.Context(), h.APIURL)
	if err != nil {
		return WebhookContext{}, fail(KindUnexpected, "could not read auth data: %v", err)
	}
	if auth == nil {
		return WebhookContext{}, fail(KindNotRegistered, "%s is not registered", h.APIURL)
	}

	if err := verifyPayload(r.Context(), opts, auth, h.Signature, body); err != nil {
		return WebhookContext{}, fail(KindSignatureVerificationFailed, "%v", err)
	}

	return WebhookContext{
		BaseURL:       baseURL,
		Event:         h.Event,
		Payload:       body,
		AuthData:      *auth,
		SchemaVersion: h.SchemaVersion,
	}, nil
}

// verifyPayload checks the signature with the shared secret, or against the
// stored JWKS snapshot. A snapshot that no longer verifies is refreshed from
// the platform once and persisted when the fresh set verifies.
func verifyPayload(ctx context.Context, opts WebhookOptions, auth *apl.AuthData, sig string, body []byte) error {
	if opts.SecretKey != "" {
		return signature.VerifyHMAC(opts.SecretKey, sig, body)
	}
	if auth.JWKS == "" {
		if opts.Remote == nil {
			return signature.ErrJWKSVerification
		}
		return opts.Remote.Verify(ctx, auth.APIURL, sig, body)
	}

	localErr := signature.VerifyWithJWKS(auth.JWKS, sig, body)
	if localErr == nil {
		return nil
	}
	if errors.Is(localErr, signature.ErrMalformedSignature) || opts.JWKS == nil {
		return localErr
	}

	fresh, err := opts.JWKS.FetchJWKS(ctx, auth.APIURL)
	if err != nil {
		opts.Log.Warnw("webhook: jwks refresh failed", "apiUrl", auth.APIURL, "err", err)
		return signature.ErrJWKSVerification
	}
	if fresh == auth.JWKS {
		return localErr
	}
	if err := signature.VerifyWithJWKS(fresh, sig, body); err != nil {
		return err
	}

	opts.Log.Infow("webhook: jwks rotated, storing refreshed key set", "apiUrl", auth.APIURL)
	updated := *auth
	updated.JWKS = fresh
	if err := opts.APL.Set(ctx, updated); err != nil {
		opts.Log.Warnw("webhook: persisting refreshed jwks failed", "apiUrl", auth.APIURL, "err", err)
	}
	*auth = updated
	return nil
}
