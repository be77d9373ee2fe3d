package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"holiapp/internal/manifest"
	"holiapp/pkg/middleware"
)

// Handler builds the HTTP handler with routes and middleware.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID(), chimw.RealIP, middleware.Recover(a.log))
	r.Use(middleware.DebugWriteHeader(a.cfg.DebugDoubleWrite, a.log))
	r.Use(middleware.Tracing(a.cfg.ServiceName, a.log))

	r.Get("/healthz", a.healthz)
	r.Handle("/metrics", promhttp.Handler())

	manifest.RegisterRoutes(r, a.cfg, a.log, a.webhooks())
	// Any method: the handshake answers WRONG_METHOD itself.
	r.Handle(manifest.RegisterPath, a.register)

	hookOpts := middleware.WebhookOptions{
		APL:       a.apl,
		SecretKey: a.cfg.WebhookSecretKey,
		JWKS:      a.platform,
		Remote:    a.remote,
		Log:       a.log,
	}
	r.With(middleware.Webhook(a.orderCreated, hookOpts)).
		Handle(a.orderCreated.Path, http.HandlerFunc(a.handleOrderCreated))
	r.With(middleware.Webhook(a.checkoutTaxes.Definition, hookOpts)).
		Handle(a.checkoutTaxes.Path, http.HandlerFunc(a.handleCheckoutTaxes))

	r.With(middleware.Protected(a.apl, a.tokens, nil, a.log)).Get("/api/me", a.me)

	if a.admin != nil {
		a.admin.Routes(r)
	}

	return r
}
