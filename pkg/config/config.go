// pkg/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPAddr string

	// APL backend selection: memory | file | env | redis | postgres | remote
	APL         string
	FileAPLPath string

	// Remote credential registry (APL=remote)
	RemoteAPLURL   string
	RemoteAPLToken string
	RemoteAPLCache string // none | memory | redis

	// Single-tenant credentials (APL=env)
	EnvAPIURL               string
	EnvAppToken             string
	EnvAppID                string
	EnvDomain               string
	EnvJWKS                 string
	PrintAuthDataOnRegister bool

	// Registration allow-list
	AllowedAPIURLs []string
	AllowRulesFile string

	// Shared secret for HMAC webhook signatures (empty -> JWKS mode)
	WebhookSecretKey string

	// Outbound HTTP timeout for platform and registry calls
	HTTPTimeout time.Duration

	// Redis & Postgres
	RedisURL    string
	DatabaseURL string

	// App manifest
	ManifestID     string
	AppName        string
	AppVersion     string
	AppPermissions []string
	// PublicURL overrides the base URL derived from request headers.
	PublicURL      string

	// Admin API; disabled unless a token or JWKS URL is set
	AdminToken       string
	AdminJWKSURL     string
	AdminIssuer      string
	AdminAudience    string
	AdminCORSOrigins []string

	// Flat rate applied by the example tax webhook, in percent.
	FlatTaxRate float64

	ServiceName      string
	DebugDoubleWrite bool
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:                     env("APP_ENV", "dev"),
		HTTPAddr:                env("APP_HTTP_ADDR", ":3000"),
		APL:                     strings.ToLower(env("APL", "file")),
		FileAPLPath:             env("FILE_APL_PATH", ".auth-data.json"),
		RemoteAPLURL:            env("REST_APL_ENDPOINT", ""),
		RemoteAPLToken:          env("REST_APL_TOKEN", ""),
		RemoteAPLCache:          strings.ToLower(env("REST_APL_CACHE", "memory")),
		EnvAPIURL:               env("HOLIPOLY_API_URL", ""),
		EnvAppToken:             env("HOLIPOLY_APP_TOKEN", ""),
		EnvAppID:                env("HOLIPOLY_APP_ID", ""),
		EnvDomain:               env("HOLIPOLY_DOMAIN", ""),
		EnvJWKS:                 env("HOLIPOLY_JWKS", ""),
		PrintAuthDataOnRegister: envBool("PRINT_AUTH_DATA_ON_REGISTER", false),
		AllowedAPIURLs:          envList("ALLOWED_API_URLS"),
		AllowRulesFile:          env("ALLOW_RULES_FILE", ""),
		WebhookSecretKey:        env("WEBHOOK_SECRET_KEY", ""),
		HTTPTimeout:             envDur("HTTP_TIMEOUT_SEC", 30) * time.Second,
		RedisURL:                env("REDIS_URL", ""),
		DatabaseURL:             env("DATABASE_URL", ""),
		ManifestID:              env("APP_MANIFEST_ID", "holiapp"),
		AppName:                 env("APP_NAME", "Holiapp"),
		AppVersion:              env("APP_VERSION", "1.0.0"),
		AppPermissions:          envList("APP_PERMISSIONS"),
		PublicURL:               env("APP_PUBLIC_URL", ""),
		AdminToken:              env("ADMIN_TOKEN", ""),
		AdminJWKSURL:            env("ADMIN_JWKS_URL", ""),
		AdminIssuer:             env("ADMIN_OIDC_ISSUER", ""),
		AdminAudience:           env("ADMIN_OIDC_AUDIENCE", ""),
		AdminCORSOrigins:        envList("ADMIN_CORS_ORIGINS"),
		FlatTaxRate:             envFloat("FLAT_TAX_RATE", 0),
		ServiceName:             env("OTEL_SERVICE_NAME", "holiapp"),
		DebugDoubleWrite:        envBool("DEBUG_DOUBLE_WRITE", false),
	}
	if cfg.APL == "file" {
		log.Printf("[WARN] APL=file stores credentials in %s, use a shared backend in production", cfg.FileAPLPath)
	}
	return cfg
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		b, _ := strconv.ParseBool(v)
		return b
	}
	return def
}
func envDur(k string, def int) time.Duration {
	if v := os.Getenv(k); v != "" {
		i, _ := strconv.Atoi(v)
		return time.Duration(i)
	}
	return time.Duration(def)
}

func envFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

// envList splits a comma separated variable, dropping blanks.
func envList(k string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
