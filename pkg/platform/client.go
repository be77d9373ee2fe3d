// Package platform performs the outbound calls the app makes against a
// tenant's platform API.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	jmes "github.com/jmespath/go-jmespath"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"holiapp/pkg/logger"
)

const appIDQuery = `query appId { app { id } }`

var (
	// ErrUnexpectedStatus is returned when the platform answers with a non-200 status.
	ErrUnexpectedStatus = errors.New("platform: unexpected status")
	// ErrEmptyJWKS is returned when the well-known endpoint answers with no body.
	ErrEmptyJWKS = errors.New("platform: empty jwks")
)

// JWKSURL returns <origin of apiURL>/.well-known/jwks.json.
func JWKSURL(apiURL string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", fmt.Errorf("platform: parse api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("platform: api url %q is not absolute", apiURL)
	}
	return u.Scheme + "://" + u.Host + "/.well-known/jwks.json", nil
}

type Client struct {
	http *http.Client
	log  *zap.SugaredLogger
}

// NewClient wraps hc (http.DefaultClient when nil) with otel instrumentation.
func NewClient(hc *http.Client, log *zap.SugaredLogger) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	wrapped := *hc
	base := wrapped.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped.Transport = otelhttp.NewTransport(base)
	return &Client{http: &wrapped, log: logger.OrNop(log)}
}

// HTTPClient exposes the instrumented client for other outbound callers.
func (c *Client) HTTPClient() *http.Client { return c.http }

// FetchAppID asks the platform which app the token belongs to. It proves
// the token authenticates against apiURL.
func (c *Client) FetchAppID(ctx context.Context, apiURL, token string) (string, error) {
	body, _ := json.Marshal(map[string]any{"query": appIDQuery})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("platform: app id request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	var doc any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("platform: decode app id response: %w", err)
	}
	v, err := jmes.Search("data.app.id", doc)
	if err != nil {
		return "", fmt.Errorf("platform: search app id: %w", err)
	}
	id, _ := v.(string)
	if id == "" {
		c.log.Debugw("platform: app id missing from response", "apiUrl", apiURL)
	}
	return id, nil
}

// FetchJWKS returns the raw JWKS document published for apiURL.
func (c *Client) FetchJWKS(ctx context.Context, apiURL string) (string, error) {
	u, err := JWKSURL(apiURL)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("platform: jwks request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("platform: read jwks: %w", err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return "", ErrEmptyJWKS
	}
	return string(b), nil
}
