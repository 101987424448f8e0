package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hostsboard/common"
	"hostsboard/handlers"
	"hostsboard/services"
	"hostsboard/utils"
)

var startedAt = time.Now()

// Use common logging functions
var (
	debugLog = common.DebugLog
	infoLog  = common.InfoLog
	errorLog = common.ErrorLog
	fatalLog = common.FatalLog
)

func main() {
	cfg := common.LoadConfig()

	infoLog("hostsboard starting with log level: %s", common.LogLevel())
	debugLog("Debug logging is enabled")
	if cfg.ManifestURL == "" {
		fatalLog("%sMANIFEST_URL is required", common.EnvPrefix)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := &http.Client{Timeout: cfg.HTTPTimeout}
	hub := utils.NewHub(0)
	settings := services.NewSettings(cfg)
	agg := services.NewAggregator(ctx, services.AggregatorConfig{
		Client:      client,
		ManifestURL: cfg.ManifestURL,
		HostsPath:   cfg.HostsPath,
		Resolver:    services.NewResolver(client, cfg.LocalResolverURL, cfg.DoHURL),
		Concurrency: cfg.ResolveConcurrency,
	}, hub)

	infoLog("manifest=%s hosts_path=%s local_resolver=%s doh=%s resolve_concurrency=%d",
		cfg.ManifestURL, cfg.HostsPath, cfg.LocalResolverURL, cfg.DoHURL, cfg.ResolveConcurrency)

	if cfg.ReloadOnStart {
		agg.Reload(settings.Options(nil))
	}
	services.StartInventoryWatcher(ctx, agg, settings, cfg.RefreshInterval)

	srv := &http.Server{
		Addr: cfg.Bind,
		Handler: makeRouter(cfg, handlers.Deps{
			Aggregator: agg,
			Settings:   settings,
			Hub:        hub,
			Upgrader:   utils.NewWSUpgrader(cfg.UIOrigin),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		infoLog("shutting down")
		agg.Stop()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			errorLog("shutdown: %v", err)
		}
	}()

	certFile := strings.TrimSpace(common.Env(common.EnvPrefix+"TLS_CERT_FILE", ""))
	keyFile := strings.TrimSpace(common.Env(common.EnvPrefix+"TLS_KEY_FILE", ""))

	var err error
	if certFile != "" && keyFile != "" {
		infoLog("https: listening on %s (cert=%s)", cfg.Bind, certFile)
		err = srv.ListenAndServeTLS(certFile, keyFile)
	} else {
		infoLog("http: listening on %s", cfg.Bind)
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatalLog("server error: %v", err)
	}
	agg.Wait()
}
