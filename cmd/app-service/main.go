package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"holiapp/internal/adminapi"
	"holiapp/internal/app"
	"holiapp/pkg/allowlist"
	"holiapp/pkg/apl"
	"holiapp/pkg/config"
	"holiapp/pkg/db"
	"holiapp/pkg/logger"
	"holiapp/pkg/platform"
)

func main() {
	// 1. Load configuration & initialize structured logger.
	cfg := config.Load()
	log := logger.New(cfg.Env)
	defer log.Sync()

	// 2. Optional backing stores; each is nil when its URL is unset.
	pool := db.MustConnect(cfg, log)
	rdb := db.MustRedis(cfg, log)

	// 3. Outbound platform client shared by the handshake and verification.
	pc := platform.NewClient(&http.Client{Timeout: cfg.HTTPTimeout}, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := apl.FromConfig(ctx, cfg, log, pool, rdb, pc.HTTPClient())
	cancel()
	if err != nil {
		log.Fatalw("apl init", "apl", cfg.APL, "err", err)
	}
	if c := store.IsConfigured(context.Background()); !c.Configured {
		log.Warnw("apl is not configured, registrations will be refused", "apl", cfg.APL, "err", c.Err)
	}

	rules, err := allowlist.FromConfig(context.Background(), cfg.AllowedAPIURLs, cfg.AllowRulesFile)
	if err != nil {
		log.Fatalw("allow list", "err", err)
	}

	application := app.New(cfg, log, store, pc, rules)
	adminCfg := adminapi.Config{
		Token:       cfg.AdminToken,
		JWKSURL:     cfg.AdminJWKSURL,
		Issuer:      cfg.AdminIssuer,
		Audience:    cfg.AdminAudience,
		CORSOrigins: cfg.AdminCORSOrigins,
	}
	if adminCfg.Enabled() {
		admin, err := adminapi.New(log, store, pc, adminCfg)
		if err != nil {
			log.Fatalw("admin api", "err", err)
		}
		application.WithAdmin(admin)
	}

	// 4. Configure and start HTTP server asynchronously.
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           application.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("app-service listening", "addr", cfg.HTTPAddr, "apl", cfg.APL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("ListenAndServe", "err", err)
		}
	}()

	// 5. Wait for termination signal (SIGINT/SIGTERM) to begin graceful shutdown.
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)
	<-stopCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	if pool != nil {
		pool.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Infow("app-service stopped")
}
