// Package testkeys provides signing keys and a fake tenant platform for tests.
package testkeys

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"
)

// Keys is an RSA signing key and its public JWKS.
type Keys struct {
	t       *testing.T
	private jwk.Key
	JWKS    string
}

func New(t *testing.T, kid string) *Keys {
	t.Helper()
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	priv, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, priv.Set(jwk.KeyIDKey, kid))
	require.NoError(t, priv.Set(jwk.AlgorithmKey, jwa.RS256))

	pub, err := priv.PublicKey()
	require.NoError(t, err)
	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))
	b, err := json.Marshal(set)
	require.NoError(t, err)

	return &Keys{t: t, private: priv, JWKS: string(b)}
}

// SignDetached returns header..signature over body.
func (k *Keys) SignDetached(body []byte) string {
	k.t.Helper()
	sig, err := jws.Sign(nil, jws.WithKey(jwa.RS256, k.private), jws.WithDetachedPayload(body))
	require.NoError(k.t, err)
	return string(sig)
}

// SignJWT issues a token carrying claims, valid for one hour.
func (k *Keys) SignJWT(claims map[string]any) string {
	k.t.Helper()
	tok := jwt.New()
	require.NoError(k.t, tok.Set(jwt.IssuedAtKey, time.Now()))
	require.NoError(k.t, tok.Set(jwt.ExpirationKey, time.Now().Add(time.Hour)))
	for name, v := range claims {
		require.NoError(k.t, tok.Set(name, v))
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, k.private))
	require.NoError(k.t, err)
	return string(signed)
}

// Platform is a fake tenant platform: it serves the JWKS at the well-known
// path and answers the app id query at /graphql/.
type Platform struct {
	Server    *httptest.Server
	Keys      *Keys
	AppID     string
	Token     string
	JWKSHits  atomic.Int32
	AppIDHits atomic.Int32
	FailJWKS  atomic.Bool

	mu   sync.Mutex
	jwks string
}

func NewPlatform(t *testing.T, keys *Keys, appID, token string) *Platform {
	t.Helper()
	p := &Platform{Keys: keys, AppID: appID, Token: token, jwks: keys.JWKS}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/jwks.json", func(w http.ResponseWriter, _ *http.Request) {
		p.JWKSHits.Add(1)
		if p.FailJWKS.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		p.mu.Lock()
		doc := p.jwks
		p.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))
	})
	mux.HandleFunc("/graphql/", func(w http.ResponseWriter, r *http.Request) {
		p.AppIDHits.Add(1)
		if r.Header.Get("Authorization") != "Bearer "+p.Token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"app": map[string]any{"id": p.AppID}}})
	})
	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Server.Close)
	return p
}

// Rotate makes the fake publish keys' JWKS from now on.
func (p *Platform) Rotate(keys *Keys) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jwks = keys.JWKS
}

// APIURL is the tenant API URL served by the fake.
func (p *Platform) APIURL() string { return p.Server.URL + "/graphql/" }
