package manifest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holiapp/pkg/config"
	"holiapp/pkg/logger"
	"holiapp/pkg/webhook"
)

var testHooks = []webhook.Definition{
	webhook.NewAsync("Order created", webhook.OrderCreated, "/api/webhooks/order-created", ""),
	webhook.NewSync[webhook.TaxResponse]("Checkout taxes", "/api/webhooks/checkout-calculate-taxes", "").Definition,
}

func TestBuild(t *testing.T) {
	cfg := config.Config{ManifestID: "holiapp", AppName: "Holiapp", AppVersion: "1.2.3", AppPermissions: []string{"MANAGE_ORDERS"}}
	m := Build(cfg, "https://app.example.com/", testHooks)

	assert.Equal(t, "holiapp", m.ID)
	assert.Equal(t, "https://app.example.com", m.AppURL)
	assert.Equal(t, "https://app.example.com/api/register", m.TokenTargetURL)
	assert.Equal(t, []string{"MANAGE_ORDERS"}, m.Permissions)
	require.Len(t, m.Webhooks, 2)
	assert.Equal(t, "https://app.example.com/api/webhooks/order-created", m.Webhooks[0].TargetURL)
	assert.Equal(t, []string{"CHECKOUT_CALCULATE_TAXES"}, m.Webhooks[1].SyncEvents)
}

func TestRegisterRoutes(t *testing.T) {
	r := chi.NewRouter()
	RegisterRoutes(r, config.Config{ManifestID: "holiapp"}, logger.Nop(), testHooks)

	req := httptest.NewRequest(http.MethodGet, "/api/manifest", nil)
	req.Host = "app.example.com"
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var m Manifest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, "https://app.example.com/api/register", m.TokenTargetURL)
	assert.Equal(t, []string{}, m.Permissions)

	pub := chi.NewRouter()
	RegisterRoutes(pub, config.Config{PublicURL: "https://public.example.com"}, logger.Nop(), nil)
	rec = httptest.NewRecorder()
	pub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/manifest", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, "https://public.example.com", m.AppURL)
	assert.Empty(t, m.Webhooks)
}
