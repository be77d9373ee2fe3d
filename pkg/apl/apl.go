// Package apl is the auth persistence layer: storage of one credential record
// per tenant installation, keyed by the tenant's platform API URL.
package apl

import (
	"context"
	"errors"
	"strings"
)

// AuthData is the credential record of a single tenant installation.
type AuthData struct {
	APIURL string `json:"apiUrl"`
	Token  string `json:"token"`
	AppID  string `json:"appId"`
	Domain string `json:"domain,omitempty"`
	JWKS   string `json:"jwks,omitempty"`
}

// Valid reports whether the three required fields are populated.
func (a AuthData) Valid() bool {
	return strings.TrimSpace(a.APIURL) != "" && a.Token != "" && a.AppID != ""
}

// Readiness is the result of APL.IsReady.
type Readiness struct {
	Ready bool
	Err   error
}

// Configuration is the result of APL.IsConfigured.
type Configuration struct {
	Configured bool
	Err        error
}

func ready() Readiness                     { return Readiness{Ready: true} }
func configured() Configuration            { return Configuration{Configured: true} }
func notConfigured(err error) Configuration { return Configuration{Err: err} }

// APL is implemented by every credential storage backend.
type APL interface {
	// Get returns nil, nil when no record exists for apiURL.
	Get(ctx context.Context, apiURL string) (*AuthData, error)
	// Set upserts data keyed by data.APIURL.
	Set(ctx context.Context, data AuthData) error
	// Delete removes the record; deleting an absent key is not an error.
	Delete(ctx context.Context, apiURL string) error
	// GetAll returns every stored record in backend-defined order.
	GetAll(ctx context.Context) ([]AuthData, error)
	// IsReady never fails; problems are reported through Readiness.Err.
	IsReady(ctx context.Context) Readiness
	// IsConfigured is a local check and performs no I/O against remote services.
	IsConfigured(ctx context.Context) Configuration
}

var (
	// ErrInvalidAuthData is returned by Set when a required field is empty.
	ErrInvalidAuthData = errors.New("apl: apiUrl, token and appId are required")
	// ErrNotConfigured is wrapped by backend specific configuration errors.
	ErrNotConfigured = errors.New("apl: not configured")
)

// readinessFrom composes the configuration check into a readiness result.
func readinessFrom(c Configuration) Readiness {
	if !c.Configured {
		return Readiness{Err: c.Err}
	}
	return ready()
}

// validOrNil drops partially populated records.
func validOrNil(a *AuthData) *AuthData {
	if a == nil || !a.Valid() {
		return nil
	}
	return a
}

func filterValid(in []AuthData) []AuthData {
	out := make([]AuthData, 0, len(in))
	for _, a := range in {
		if a.Valid() {
			out = append(out, a)
		}
	}
	return out
}
