// Package manifest serves the app manifest the platform reads when the app
// is installed: identity, requested permissions, the registration endpoint
// and the webhook subscriptions.
package manifest

import (
	"strings"

	"holiapp/pkg/config"
	"holiapp/pkg/webhook"
)

// RegisterPath is where the platform posts the app token.
const RegisterPath = "/api/register"

type Manifest struct {
	ID             string                  `json:"id"`
	Version        string                  `json:"version"`
	Name           string                  `json:"name"`
	Permissions    []string                `json:"permissions"`
	AppURL         string                  `json:"appUrl"`
	TokenTargetURL string                  `json:"tokenTargetUrl"`
	Webhooks       []webhook.ManifestEntry `json:"webhooks"`
}

// Build renders the manifest for an app reachable at baseURL.
func Build(cfg config.Config, baseURL string, hooks []webhook.Definition) Manifest {
	base := strings.TrimRight(baseURL, "/")
	perms := cfg.AppPermissions
	if perms == nil {
		perms = []string{}
	}
	entries := make([]webhook.ManifestEntry, 0, len(hooks))
	for _, d := range hooks {
		entries = append(entries, d.Manifest(base))
	}
	return Manifest{
		ID:             cfg.ManifestID,
		Version:        cfg.AppVersion,
		Name:           cfg.AppName,
		Permissions:    perms,
		AppURL:         base,
		TokenTargetURL: base + RegisterPath,
		Webhooks:       entries,
	}
}
