// pkg/apl/remote.go
package apl

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"holiapp/pkg/logger"
	"holiapp/pkg/metrics"
	"holiapp/pkg/paginator"
)

// listLimit is the page size requested from the listing endpoint.
const listLimit = 1000

// remoteRecord is the snake_case wire shape of the credential registry.
type remoteRecord struct {
	AppID  string          `json:"holipoly_app_id"`
	APIURL string          `json:"holipoly_api_url"`
	JWKS   json.RawMessage `json:"jwks,omitempty"`
	Domain string          `json:"domain,omitempty"`
	Token  string          `json:"token"`
}

func toRemote(a AuthData) remoteRecord {
	r := remoteRecord{AppID: a.AppID, APIURL: a.APIURL, Domain: a.Domain, Token: a.Token}
	if a.JWKS != "" {
		r.JWKS, _ = json.Marshal(a.JWKS)
	}
	return r
}

// toAuthData maps the wire shape. The registry stores jwks as a string, but
// an inline JSON object is accepted and kept verbatim.
func (r remoteRecord) toAuthData() AuthData {
	a := AuthData{APIURL: r.APIURL, Token: r.Token, AppID: r.AppID, Domain: r.Domain}
	raw := bytes.TrimSpace(r.JWKS)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			a.JWKS = s
		} else {
			a.JWKS = string(raw)
		}
	}
	return a
}

// RemoteAPL stores credentials in a remote registry service over HTTP.
type RemoteAPL struct {
	baseURL string
	token   string
	client  *http.Client
	cache   Cache
	log     *zap.SugaredLogger
}

type RemoteOption func(*RemoteAPL)

// WithCache enables read-through caching. A nil cache disables it.
func WithCache(c Cache) RemoteOption { return func(r *RemoteAPL) { r.cache = c } }

func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *RemoteAPL) {
		if c != nil {
			r.client = c
		}
	}
}

func WithLogger(l *zap.SugaredLogger) RemoteOption {
	return func(r *RemoteAPL) { r.log = logger.OrNop(l) }
}

func NewRemoteAPL(baseURL, token string, opts ...RemoteOption) *RemoteAPL {
	r := &RemoteAPL{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  http.DefaultClient,
		log:     logger.Nop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *RemoteAPL) recordURL(apiURL string) string {
	return r.baseURL + "/" + base64.RawURLEncoding.EncodeToString([]byte(apiURL))
}

func (r *RemoteAPL) newRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+r.token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (r *RemoteAPL) cacheGet(ctx context.Context, apiURL string) *AuthData {
	if r.cache == nil {
		return nil
	}
	a, err := r.cache.Get(ctx, apiURL)
	if err != nil {
		r.log.Warnw("remote apl: cache read failed", "apiUrl", apiURL, "err", err)
		return nil
	}
	if a == nil {
		metrics.RemoteAPLCache.WithLabelValues("miss").Inc()
		return nil
	}
	metrics.RemoteAPLCache.WithLabelValues("hit").Inc()
	return a
}

func (r *RemoteAPL) cacheSet(ctx context.Context, a AuthData) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, a); err != nil {
		r.log.Warnw("remote apl: cache write failed", "apiUrl", a.APIURL, "err", err)
	}
}

func (r *RemoteAPL) cacheDelete(ctx context.Context, apiURL string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, apiURL); err != nil {
		r.log.Warnw("remote apl: cache evict failed", "apiUrl", apiURL, "err", err)
	}
}

// Get returns the record for apiURL. A cache hit skips the network entirely.
func (r *RemoteAPL) Get(ctx context.Context, apiURL string) (*AuthData, error) {
	if a := r.cacheGet(ctx, apiURL); a != nil {
		return a, nil
	}
	req, err := r.newRequest(ctx, http.MethodGet, r.recordURL(apiURL), nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		metrics.RemoteAPLRequests.WithLabelValues("get", "error").Inc()
		return nil, newError(KindFailedToReachAPI, err, "could not reach the registry")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		metrics.RemoteAPLRequests.WithLabelValues("get", "not_found").Inc()
		return nil, nil
	case resp.StatusCode >= 500:
		metrics.RemoteAPLRequests.WithLabelValues("get", "error").Inc()
		return nil, newError(KindFailedToReachAPI, nil, "registry responded with status %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		metrics.RemoteAPLRequests.WithLabelValues("get", "error").Inc()
		return nil, newError(KindResponseNon200, nil, "registry responded with status %d", resp.StatusCode)
	}

	var rec remoteRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		metrics.RemoteAPLRequests.WithLabelValues("get", "error").Inc()
		return nil, newError(KindResponseBodyInvalid, err, "could not parse registry response")
	}
	a := rec.toAuthData()
	if !a.Valid() {
		r.log.Warnw("remote apl: record is missing required fields, treating as absent", "apiUrl", apiURL)
		metrics.RemoteAPLRequests.WithLabelValues("get", "incomplete").Inc()
		return nil, nil
	}
	metrics.RemoteAPLRequests.WithLabelValues("get", "ok").Inc()
	r.cacheSet(ctx, a)
	return &a, nil
}

// Set posts the full record and writes it through to the cache.
func (r *RemoteAPL) Set(ctx context.Context, data AuthData) error {
	if !data.Valid() {
		return ErrInvalidAuthData
	}
	req, err := r.newRequest(ctx, http.MethodPost, r.baseURL, toRemote(data))
	if err != nil {
		return newError(KindErrorSavingData, err, "could not build request")
	}
	resp, err := r.client.Do(req)
	if err != nil {
		metrics.RemoteAPLRequests.WithLabelValues("set", "error").Inc()
		return newError(KindErrorSavingData, err, "could not save auth data")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RemoteAPLRequests.WithLabelValues("set", "error").Inc()
		return newError(KindResponseNon200, nil, "registry responded with status %d", resp.StatusCode)
	}
	metrics.RemoteAPLRequests.WithLabelValues("set", "ok").Inc()
	r.cacheSet(ctx, data)
	return nil
}

// Delete removes the record remotely. The local cache entry is evicted
// whatever the remote outcome.
func (r *RemoteAPL) Delete(ctx context.Context, apiURL string) error {
	defer r.cacheDelete(ctx, apiURL)

	req, err := r.newRequest(ctx, http.MethodDelete, r.recordURL(apiURL), nil)
	if err != nil {
		return newError(KindErrorDeletingData, err, "could not build request")
	}
	resp, err := r.client.Do(req)
	if err != nil {
		metrics.RemoteAPLRequests.WithLabelValues("delete", "error").Inc()
		return newError(KindErrorDeletingData, err, "could not delete auth data")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		metrics.RemoteAPLRequests.WithLabelValues("delete", "not_found").Inc()
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RemoteAPLRequests.WithLabelValues("delete", "error").Inc()
		return newError(KindResponseNon200, nil, "registry responded with status %d", resp.StatusCode)
	}
	metrics.RemoteAPLRequests.WithLabelValues("delete", "ok").Inc()
	return nil
}

// GetAll lists every record through the paginated listing endpoint. Any
// failure is logged and degrades to an empty result; use Get per tenant when
// completeness matters.
func (r *RemoteAPL) GetAll(ctx context.Context) ([]AuthData, error) {
	p := paginator.New[remoteRecord](
		fmt.Sprintf("%s?limit=%d", r.baseURL, listLimit),
		paginator.WithHTTPClient(r.client),
		paginator.WithHeader("Authorization", "Bearer "+r.token),
		paginator.WithHeader("Content-Type", "application/json"),
	)
	page, err := p.FetchAll(ctx)
	if err != nil {
		metrics.RemoteAPLRequests.WithLabelValues("get_all", "error").Inc()
		r.log.Warnw("remote apl: listing failed, returning empty result", "err", err)
		return []AuthData{}, nil
	}
	metrics.RemoteAPLRequests.WithLabelValues("get_all", "ok").Inc()
	out := make([]AuthData, 0, len(page.Results))
	for _, rec := range page.Results {
		out = append(out, rec.toAuthData())
	}
	return filterValid(out), nil
}

// IsReady does not probe the registry.
func (r *RemoteAPL) IsReady(ctx context.Context) Readiness {
	return readinessFrom(r.IsConfigured(ctx))
}

func (r *RemoteAPL) IsConfigured(ctx context.Context) Configuration {
	if r.baseURL == "" {
		return notConfigured(fmt.Errorf("%w: REST_APL_ENDPOINT is not set", ErrNotConfigured))
	}
	return configured()
}
