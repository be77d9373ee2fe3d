package headers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	h := http.Header{}
	h.Set("holipoly-domain", "shop.example.com")
	h.Set("holipoly-api-url", "https://shop.example.com/graphql/")
	h.Set("authorization-bearer", "jwt")
	h.Set("holipoly-signature", "a..b")
	h.Set("holipoly-event", "order_created")
	h.Set("holipoly-schema-version", "3.19")

	got := Extract(h)
	assert.Equal(t, "shop.example.com", got.Domain)
	assert.Equal(t, "https://shop.example.com/graphql/", got.APIURL)
	assert.Equal(t, "jwt", got.AuthorizationBearer)
	assert.Equal(t, "a..b", got.Signature)
	assert.Equal(t, "order_created", got.Event)
	require.NotNil(t, got.SchemaVersion)
	assert.InDelta(t, 3.19, *got.SchemaVersion, 1e-9)
}

func TestExtract_MissingAndInvalid(t *testing.T) {
	h := http.Header{}
	h.Set(SchemaVersion, "latest")

	got := Extract(h)
	assert.Empty(t, got.Domain)
	assert.Empty(t, got.APIURL)
	assert.Empty(t, got.AuthorizationBearer)
	assert.Nil(t, got.SchemaVersion)
	assert.Nil(t, Extract(http.Header{}).SchemaVersion)
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		name  string
		host  string
		proto string
		want  string
	}{
		{name: "no forwarded proto", host: "app.example.com", want: "http://app.example.com"},
		{name: "single proto", host: "app.example.com", proto: "https", want: "https://app.example.com"},
		{name: "https preferred", host: "app.example.com", proto: "http, https", want: "https://app.example.com"},
		{name: "first listed", host: "app.example.com", proto: "ws,http", want: "ws://app.example.com"},
		{name: "port kept", host: "localhost:3000", proto: "", want: "http://localhost:3000"},
		{name: "no host", host: "", want: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Host = tt.host
			if tt.proto != "" {
				r.Header.Set("X-Forwarded-Proto", tt.proto)
			}
			assert.Equal(t, tt.want, BaseURL(r))
		})
	}
}
