// Package headers normalizes the platform specific request headers.
package headers

import (
	"net/http"
	"strconv"
	"strings"
)

// Header names sent by the platform.
const (
	Domain              = "Holipoly-Domain"
	APIURL              = "Holipoly-Api-Url"
	AuthorizationBearer = "Authorization-Bearer"
	Signature           = "Holipoly-Signature"
	Event               = "Holipoly-Event"
	SchemaVersion       = "Holipoly-Schema-Version"
)

// Platform holds the values extracted from an inbound request. Missing
// headers leave the corresponding field empty.
type Platform struct {
	Domain              string
	AuthorizationBearer string
	Signature           string
	Event               string
	APIURL              string
	// SchemaVersion is nil when the header is absent or not a number.
	SchemaVersion *float64
}

// Extract reads the platform headers. It never fails.
func Extract(h http.Header) Platform {
	return Platform{
		Domain:              strings.TrimSpace(h.Get(Domain)),
		AuthorizationBearer: strings.TrimSpace(h.Get(AuthorizationBearer)),
		Signature:           strings.TrimSpace(h.Get(Signature)),
		Event:               strings.TrimSpace(h.Get(Event)),
		APIURL:              strings.TrimSpace(h.Get(APIURL)),
		SchemaVersion:       parseVersion(h.Get(SchemaVersion)),
	}
}

func parseVersion(v string) *float64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

// BaseURL returns the externally visible origin of the request, built from
// Host and X-Forwarded-Proto. When the proxy lists several protocols https
// wins, otherwise the first listed one is used; no header means http.
// An empty host yields an empty string.
func BaseURL(r *http.Request) string {
	host := r.Host
	if host == "" {
		host = r.Header.Get("Host")
	}
	if host == "" {
		return ""
	}
	return protocol(r.Header.Get("X-Forwarded-Proto")) + "://" + host
}

func protocol(forwarded string) string {
	if strings.TrimSpace(forwarded) == "" {
		return "http"
	}
	var first string
	for _, p := range strings.Split(forwarded, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if p == "https" {
			return "https"
		}
		if first == "" {
			first = p
		}
	}
	if first == "" {
		return "http"
	}
	return first
}
