package apl

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRegistry is an in-memory credential registry speaking the remote wire
// contract.
type fakeRegistry struct {
	t       *testing.T
	mu      sync.Mutex
	records map[string]map[string]any
	gets    atomic.Int32
	status  atomic.Int32 // forced status for every request when non-zero
	srv     *httptest.Server
}

func newFakeRegistry(t *testing.T) *fakeRegistry {
	f := &fakeRegistry{t: t, records: map[string]map[string]any{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeRegistry) serve(w http.ResponseWriter, r *http.Request) {
	assert.Equal(f.t, "Bearer registry-token", r.Header.Get("Authorization"))
	assert.Equal(f.t, "application/json", r.Header.Get("Content-Type"))
	if code := f.status.Load(); code != 0 {
		w.WriteHeader(int(code))
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/apl")
	key = strings.TrimPrefix(key, "/")
	switch {
	case r.Method == http.MethodGet && key == "":
		var results []map[string]any
		for _, rec := range f.records {
			results = append(results, rec)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"count": len(results), "next": nil, "previous": nil, "results": results})
	case r.Method == http.MethodGet:
		f.gets.Add(1)
		apiURL, err := base64.RawURLEncoding.DecodeString(key)
		require.NoError(f.t, err)
		rec, ok := f.records[string(apiURL)]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(rec)
	case r.Method == http.MethodPost:
		var rec map[string]any
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&rec))
		f.records[rec["holipoly_api_url"].(string)] = rec
		w.WriteHeader(http.StatusCreated)
	case r.Method == http.MethodDelete:
		apiURL, _ := base64.RawURLEncoding.DecodeString(key)
		if _, ok := f.records[string(apiURL)]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(f.records, string(apiURL))
		w.WriteHeader(http.StatusNoContent)
	}
}

func (f *fakeRegistry) client(opts ...RemoteOption) *RemoteAPL {
	return NewRemoteAPL(f.srv.URL+"/apl", "registry-token", opts...)
}

func TestRemoteAPL_SetThenGet(t *testing.T) {
	reg := newFakeRegistry(t)
	store := reg.client()
	ctx := context.Background()
	in := sample("https://shop.example.com/graphql/")

	require.NoError(t, store.Set(ctx, in))

	stored := reg.records[in.APIURL]
	assert.Equal(t, "42", stored["holipoly_app_id"])
	assert.Equal(t, in.APIURL, stored["holipoly_api_url"])
	assert.Equal(t, in.JWKS, stored["jwks"])

	got, err := store.Get(ctx, in.APIURL)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, in, *got)
}

func TestRemoteAPL_GetNotFoundIsAbsent(t *testing.T) {
	got, err := newFakeRegistry(t).client().Get(context.Background(), "https://missing.example.com/graphql/")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRemoteAPL_GetErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		kind    ErrorKind
	}{
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) },
			kind:    KindFailedToReachAPI,
		},
		{
			name:    "client error",
			handler: func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusForbidden) },
			kind:    KindResponseNon200,
		},
		{
			name:    "invalid body",
			handler: func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("<html>")) },
			kind:    KindResponseBodyInvalid,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			got, err := NewRemoteAPL(srv.URL, "tok").Get(context.Background(), "https://a.example.com/graphql/")
			assert.Nil(t, got)
			assert.True(t, IsKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestRemoteAPL_GetUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewRemoteAPL(url, "tok").Get(context.Background(), "https://a.example.com/graphql/")
	assert.True(t, IsKind(err, KindFailedToReachAPI), "got %v", err)
}

func TestRemoteAPL_PartialRecordIsAbsent(t *testing.T) {
	cache := NewMemoryCache()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"holipoly_api_url":"https://a.example.com/graphql/","token":"t"}`))
	}))
	defer srv.Close()

	got, err := NewRemoteAPL(srv.URL, "tok", WithCache(cache)).Get(context.Background(), "https://a.example.com/graphql/")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, cache.Len())
}

func TestRemoteAPL_InlineJWKSObjectIsKept(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"holipoly_api_url":"https://a.example.com/graphql/","token":"t","holipoly_app_id":"1","jwks":{"keys":[]}}`))
	}))
	defer srv.Close()

	got, err := NewRemoteAPL(srv.URL, "tok").Get(context.Background(), "https://a.example.com/graphql/")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.JSONEq(t, `{"keys":[]}`, got.JWKS)
}

func TestRemoteAPL_CacheHitSkipsNetwork(t *testing.T) {
	reg := newFakeRegistry(t)
	ctx := context.Background()
	in := sample("https://shop.example.com/graphql/")
	require.NoError(t, reg.client().Set(ctx, in))

	store := reg.client(WithCache(NewMemoryCache()))

	first, err := store.Get(ctx, in.APIURL)
	require.NoError(t, err)
	second, err := store.Get(ctx, in.APIURL)
	require.NoError(t, err)

	assert.Equal(t, int32(1), reg.gets.Load())
	assert.Equal(t, first, second)
}

func TestRemoteAPL_SetWritesThroughCache(t *testing.T) {
	reg := newFakeRegistry(t)
	cache := NewMemoryCache()
	store := reg.client(WithCache(cache))
	ctx := context.Background()
	in := sample("https://shop.example.com/graphql/")

	require.NoError(t, store.Set(ctx, in))
	got, err := store.Get(ctx, in.APIURL)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, in, *got)
	assert.Equal(t, int32(0), reg.gets.Load())
}

func TestRemoteAPL_SetRejectsPartialRecord(t *testing.T) {
	reg := newFakeRegistry(t)
	cache := NewMemoryCache()
	store := reg.client(WithCache(cache))
	ctx := context.Background()
	partial := AuthData{APIURL: "https://a.example.com/graphql/", Token: "t"}

	err := store.Set(ctx, partial)
	assert.ErrorIs(t, err, ErrInvalidAuthData)
	assert.Equal(t, 0, cache.Len())
	reg.mu.Lock()
	assert.Empty(t, reg.records)
	reg.mu.Unlock()

	got, err := store.Get(ctx, partial.APIURL)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRemoteAPL_PartialCacheEntryIsAbsent(t *testing.T) {
	reg := newFakeRegistry(t)
	cache := NewMemoryCache()
	ctx := context.Background()
	partial := AuthData{APIURL: "https://a.example.com/graphql/", Token: "t"}
	require.NoError(t, cache.Set(ctx, partial))

	got, err := reg.client(WithCache(cache)).Get(ctx, partial.APIURL)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, int32(1), reg.gets.Load())
}

func TestRemoteAPL_SetNon200(t *testing.T) {
	reg := newFakeRegistry(t)
	reg.status.Store(http.StatusBadRequest)
	cache := NewMemoryCache()

	err := reg.client(WithCache(cache)).Set(context.Background(), sample("https://a.example.com/graphql/"))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindResponseNon200))
	assert.Contains(t, err.Error(), fmt.Sprint(http.StatusBadRequest))
	assert.Equal(t, 0, cache.Len())
}

func TestRemoteAPL_SetUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewRemoteAPL(url, "tok").Set(context.Background(), sample("https://a.example.com/graphql/"))
	assert.True(t, IsKind(err, KindErrorSavingData), "got %v", err)
}

func TestRemoteAPL_DeleteEvictsCacheRegardless(t *testing.T) {
	reg := newFakeRegistry(t)
	cache := NewMemoryCache()
	store := reg.client(WithCache(cache))
	ctx := context.Background()
	in := sample("https://shop.example.com/graphql/")
	require.NoError(t, store.Set(ctx, in))
	require.Equal(t, 1, cache.Len())

	reg.status.Store(http.StatusInternalServerError)
	err := store.Delete(ctx, in.APIURL)
	assert.True(t, IsKind(err, KindResponseNon200))
	assert.Equal(t, 0, cache.Len())
}

func TestRemoteAPL_DeleteAbsentIsNotAnError(t *testing.T) {
	assert.NoError(t, newFakeRegistry(t).client().Delete(context.Background(), "https://missing.example.com/graphql/"))
}

func TestRemoteAPL_DeleteUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewRemoteAPL(url, "tok").Delete(context.Background(), "https://a.example.com/graphql/")
	assert.True(t, IsKind(err, KindErrorDeletingData), "got %v", err)
}

func TestRemoteAPL_GetAll(t *testing.T) {
	reg := newFakeRegistry(t)
	store := reg.client()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, sample("https://a.example.com/graphql/")))
	require.NoError(t, store.Set(ctx, sample("https://b.example.com/graphql/")))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRemoteAPL_GetAllDegradesToEmpty(t *testing.T) {
	reg := newFakeRegistry(t)
	reg.status.Store(http.StatusBadGateway)

	all, err := reg.client().GetAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestRemoteAPL_Readiness(t *testing.T) {
	ctx := context.Background()

	ok := NewRemoteAPL("https://registry.example.com/apl", "tok")
	assert.True(t, ok.IsConfigured(ctx).Configured)
	assert.True(t, ok.IsReady(ctx).Ready)

	missing := NewRemoteAPL("", "tok")
	c := missing.IsConfigured(ctx)
	assert.False(t, c.Configured)
	assert.ErrorIs(t, c.Err, ErrNotConfigured)
	r := missing.IsReady(ctx)
	assert.False(t, r.Ready)
	assert.Error(t, r.Err)
}
