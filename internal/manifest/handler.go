package manifest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"holiapp/pkg/config"
	"holiapp/pkg/headers"
	"holiapp/pkg/problems"
	"holiapp/pkg/webhook"
)

// RegisterRoutes mounts GET /api/manifest. The base URL comes from
// APP_PUBLIC_URL, falling back to the request's forwarded host.
func RegisterRoutes(r chi.Router, cfg config.Config, log *zap.SugaredLogger, hooks []webhook.Definition) {
	// CORS preflight for the public manifest
	r.Options("/api/manifest", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/api/manifest", func(w http.ResponseWriter, req *http.Request) {
		base := cfg.PublicURL
		if base == "" {
			base = headers.BaseURL(req)
		}
		log.Debugw("manifest requested", "baseUrl", base)
		w.Header().Set("Access-Control-Allow-Origin", "*")
		problems.WriteJSON(w, Build(cfg, base, hooks), http.StatusOK)
	})
}
