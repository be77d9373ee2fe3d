package adminapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holiapp/internal/testkeys"
	"holiapp/pkg/apl"
)

const tenantURL = "https://shop.example.com/graphql/"

type fakeJWKS struct {
	doc string
	err error
}

func (f fakeJWKS) FetchJWKS(context.Context, string) (string, error) { return f.doc, f.err }

func newRouter(t *testing.T, store apl.APL, jwks JWKSFetcher, cfg Config) http.Handler {
	t.Helper()
	a, err := New(nil, store, jwks, cfg)
	require.NoError(t, err)
	r := chi.NewRouter()
	a.Routes(r)
	return r
}

func call(h http.Handler, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func seeded() *apl.MemoryAPL {
	return apl.NewMemoryAPL(nil, apl.AuthData{APIURL: tenantURL, Token: "secret-token", AppID: "42", Domain: "shop.example.com", JWKS: `{"keys":[]}`})
}

func TestAdminAuth(t *testing.T) {
	h := newRouter(t, seeded(), fakeJWKS{}, Config{Token: "admin"})

	assert.Equal(t, http.StatusUnauthorized, call(h, http.MethodGet, "/admin/tenants", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(h, http.MethodGet, "/admin/tenants", "nope").Code)
	assert.Equal(t, http.StatusOK, call(h, http.MethodGet, "/admin/tenants", "admin").Code)
}

func TestAdminAuthJWT(t *testing.T) {
	keys := testkeys.New(t, "admin")
	p := testkeys.NewPlatform(t, keys, "", "")
	h := newRouter(t, seeded(), fakeJWKS{}, Config{JWKSURL: p.Server.URL + "/.well-known/jwks.json"})

	admin := keys.SignJWT(map[string]any{"role": adminRole})
	assert.Equal(t, http.StatusOK, call(h, http.MethodGet, "/admin/tenants", admin).Code)

	staff := keys.SignJWT(map[string]any{"role": "staff"})
	assert.Equal(t, http.StatusForbidden, call(h, http.MethodGet, "/admin/tenants", staff).Code)

	forged := testkeys.New(t, "admin").SignJWT(map[string]any{"role": adminRole})
	assert.Equal(t, http.StatusUnauthorized, call(h, http.MethodGet, "/admin/tenants", forged).Code)
}

func TestTenantEndpoints(t *testing.T) {
	store := seeded()
	h := newRouter(t, store, fakeJWKS{doc: `{"keys":[{"kty":"oct"}]}`}, Config{Token: "admin"})
	q := "?apiUrl=" + url.QueryEscape(tenantURL)

	rec := call(h, http.MethodGet, "/admin/tenants", "admin")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-token")
	var list struct {
		Count   int          `json:"count"`
		Results []tenantView `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, tenantView{APIURL: tenantURL, AppID: "42", Domain: "shop.example.com", HasJWKS: true}, list.Results[0])

	assert.Equal(t, http.StatusOK, call(h, http.MethodGet, "/admin/tenant"+q, "admin").Code)
	assert.Equal(t, http.StatusBadRequest, call(h, http.MethodGet, "/admin/tenant", "admin").Code)
	assert.Equal(t, http.StatusNotFound, call(h, http.MethodGet, "/admin/tenant?apiUrl=https%3A%2F%2Fx%2F", "admin").Code)

	rec = call(h, http.MethodPost, "/admin/tenant/refresh-jwks"+q, "admin")
	require.Equal(t, http.StatusOK, rec.Code)
	d, err := store.Get(context.Background(), tenantURL)
	require.NoError(t, err)
	assert.Equal(t, `{"keys":[{"kty":"oct"}]}`, d.JWKS)

	assert.Equal(t, http.StatusNoContent, call(h, http.MethodDelete, "/admin/tenant"+q, "admin").Code)
	d, err = store.Get(context.Background(), tenantURL)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestRefreshJWKSUnavailable(t *testing.T) {
	h := newRouter(t, seeded(), fakeJWKS{err: errors.New("down")}, Config{Token: "admin"})
	rec := call(h, http.MethodPost, "/admin/tenant/refresh-jwks?apiUrl="+url.QueryEscape(tenantURL), "admin")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

// brokenAPL fails every read.
type brokenAPL struct{ *apl.MemoryAPL }

func (brokenAPL) Get(context.Context, string) (*apl.AuthData, error) {
	return nil, errors.New("connection reset")
}

func TestRefreshJWKSStorageFailure(t *testing.T) {
	q := "?apiUrl=" + url.QueryEscape(tenantURL)
	h := newRouter(t, brokenAPL{seeded()}, fakeJWKS{doc: `{"keys":[]}`}, Config{Token: "admin"})
	rec := call(h, http.MethodPost, "/admin/tenant/refresh-jwks"+q, "admin")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "APL_ERROR")

	h = newRouter(t, apl.NewMemoryAPL(nil), fakeJWKS{doc: `{"keys":[]}`}, Config{Token: "admin"})
	rec = call(h, http.MethodPost, "/admin/tenant/refresh-jwks"+q, "admin")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_REGISTERED")
}

func TestCORSPreflight(t *testing.T) {
	h := newRouter(t, seeded(), fakeJWKS{}, Config{Token: "admin", CORSOrigins: []string{"http://localhost:3001"}})
	req := httptest.NewRequest(http.MethodOptions, "/admin/tenants", nil)
	req.Header.Set("Origin", "http://localhost:3001")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3001", rec.Header().Get("Access-Control-Allow-Origin"))
}
