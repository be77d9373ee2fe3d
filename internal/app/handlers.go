package app

import (
	"encoding/json"
	"net/http"

	jmes "github.com/jmespath/go-jmespath"

	"holiapp/pkg/middleware"
	"holiapp/pkg/problems"
)

func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	rd := a.apl.IsReady(r.Context())
	if !rd.Ready {
		msg := "apl not ready"
		if rd.Err != nil {
			msg = rd.Err.Error()
		}
		problems.WriteJSON(w, map[string]any{"ok": false, "error": msg}, http.StatusServiceUnavailable)
		return
	}
	problems.WriteJSON(w, map[string]any{"ok": true}, http.StatusOK)
}

func (a *App) me(w http.ResponseWriter, r *http.Request) {
	pc, _ := middleware.ProtectedFrom(r.Context())
	problems.WriteJSON(w, map[string]any{
		"user":    pc.User,
		"apiUrl":  pc.AuthData.APIURL,
		"appId":   pc.AuthData.AppID,
		"domain":  pc.AuthData.Domain,
		"baseUrl": pc.BaseURL,
	}, http.StatusOK)
}

func (a *App) handleOrderCreated(w http.ResponseWriter, r *http.Request) {
	wc, _ := middleware.WebhookFrom(r.Context())
	var doc any
	if err := json.Unmarshal(wc.Payload, &doc); err == nil {
		id, _ := jmes.Search("order.id", doc)
		number, _ := jmes.Search("order.number", doc)
		a.log.Infow("order created", "apiUrl", wc.AuthData.APIURL, "orderId", id, "number", number)
	}
	problems.OK(w)
}

func (a *App) handleCheckoutTaxes(w http.ResponseWriter, r *http.Request) {
	wc, _ := middleware.WebhookFrom(r.Context())
	var p taxPayload
	if err := json.Unmarshal(wc.Payload, &p); err != nil {
		problems.Write(w, http.StatusBadRequest, string(middleware.KindCantBeParsed), "unexpected tax payload")
		return
	}
	a.checkoutTaxes.Respond(w, calculateTaxes(p.TaxBase, a.cfg.FlatTaxRate))
}
