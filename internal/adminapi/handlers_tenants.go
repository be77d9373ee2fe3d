package adminapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"holiapp/pkg/apl"
	"holiapp/pkg/problems"
)

// Routes mounts the admin endpoints under /admin.
func (a *App) Routes(r chi.Router) {
	r.Route("/admin", func(ar chi.Router) {
		ar.Use(cors(a.cors))
		ar.Use(a.adminAuth)
		ar.Get("/tenants", a.listTenants)
		ar.Get("/tenant", a.getTenant)
		ar.Delete("/tenant", a.deleteTenant)
		ar.Post("/tenant/refresh-jwks", a.refreshJWKS)
	})
}

// tenantView never exposes the app token.
type tenantView struct {
	APIURL  string `json:"apiUrl"`
	AppID   string `json:"appId"`
	Domain  string `json:"domain,omitempty"`
	HasJWKS bool   `json:"hasJwks"`
}

func viewOf(d apl.AuthData) tenantView {
	return tenantView{APIURL: d.APIURL, AppID: d.AppID, Domain: d.Domain, HasJWKS: d.JWKS != ""}
}

func apiURLParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	u := strings.TrimSpace(r.URL.Query().Get("apiUrl"))
	if u == "" {
		problems.Write(w, http.StatusBadRequest, "MISSING_API_URL", "apiUrl query parameter is required")
		return "", false
	}
	return u, true
}

func (a *App) listTenants(w http.ResponseWriter, r *http.Request) {
	all, err := a.apl.GetAll(r.Context())
	if err != nil {
		a.log.Errorw("admin: list tenants", "err", err)
		problems.Write(w, http.StatusInternalServerError, "APL_ERROR", "could not list tenants")
		return
	}
	out := make([]tenantView, 0, len(all))
	for _, d := range all {
		out = append(out, viewOf(d))
	}
	problems.WriteJSON(w, map[string]any{"count": len(out), "results": out}, http.StatusOK)
}

func (a *App) getTenant(w http.ResponseWriter, r *http.Request) {
	u, ok := apiURLParam(w, r)
	if !ok {
		return
	}
	d, err := a.apl.Get(r.Context(), u)
	if err != nil {
		a.log.Errorw("admin: get tenant", "apiUrl", u, "err", err)
		problems.Write(w, http.StatusInternalServerError, "APL_ERROR", "could not read tenant")
		return
	}
	if d == nil {
		problems.Write(w, http.StatusNotFound, "NOT_REGISTERED", "tenant not found")
		return
	}
	problems.WriteJSON(w, viewOf(*d), http.StatusOK)
}

func (a *App) deleteTenant(w http.ResponseWriter, r *http.Request) {
	u, ok := apiURLParam(w, r)
	if !ok {
		return
	}
	if err := a.apl.Delete(r.Context(), u); err != nil {
		a.log.Errorw("admin: delete tenant", "apiUrl", u, "err", err)
		problems.Write(w, http.StatusInternalServerError, "APL_ERROR", "could not delete tenant")
		return
	}
	a.log.Infow("admin: tenant removed", "apiUrl", u)
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) refreshJWKS(w http.ResponseWriter, r *http.Request) {
	u, ok := apiURLParam(w, r)
	if !ok {
		return
	}
	d, err := a.apl.Get(r.Context(), u)
	if err != nil {
		a.log.Errorw("admin: read tenant for jwks refresh", "apiUrl", u, "err", err)
		problems.Write(w, http.StatusInternalServerError, "APL_ERROR", "could not read tenant")
		return
	}
	if d == nil {
		problems.Write(w, http.StatusNotFound, "NOT_REGISTERED", "tenant not found")
		return
	}
	jwks, err := a.jwks.FetchJWKS(r.Context(), u)
	if err != nil {
		a.log.Warnw("admin: jwks refresh failed", "apiUrl", u, "err", err)
		problems.Write(w, http.StatusBadGateway, "JWKS_NOT_AVAILABLE", "could not fetch the tenant JWKS")
		return
	}
	d.JWKS = jwks
	if err := a.apl.Set(r.Context(), *d); err != nil {
		a.log.Errorw("admin: store refreshed jwks", "apiUrl", u, "err", err)
		problems.Write(w, http.StatusInternalServerError, "APL_ERROR", "could not store the refreshed JWKS")
		return
	}
	problems.WriteJSON(w, viewOf(*d), http.StatusOK)
}
