package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/acme/autocert"

	"domainhub/internal/config"
	"domainhub/internal/lifecycle"
	"domainhub/internal/notify"
	"domainhub/internal/pricing"
	"domainhub/internal/provider/router"
	"domainhub/internal/scheduler"
	"domainhub/internal/sentry"
	"domainhub/internal/server"
	"domainhub/internal/storage"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()
	cfg := config.Load()

	if err := sentry.Init(cfg.SentryDSN); err != nil {
		log.Printf("Sentry init failed, continuing without: %v", err)
	}
	defer sentry.Flush()

	// 1. Database
	store, err := storage.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// 2. Provider routing and core services. Credentials are read from the
	// environment at resolution time, so an updated key takes effect on the
	// next request without a restart.
	providers := router.New(config.EnvSettings{})
	engine := lifecycle.NewEngine(providers, store)
	importer := pricing.NewImporter(providers, store)

	catalog, err := config.LoadCatalog(cfg.ProductsPath)
	if err != nil {
		log.Fatalf("Failed to load product catalog: %v", err)
	}

	// 3. Notifications
	var notifier notify.Notifier = notify.Nop{}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Printf("Telegram notifier disabled: %v", err)
		} else {
			notifier = tg
		}
	}

	// 4. Background reconciliation
	sched := scheduler.New(store, providers, engine, importer, notifier, scheduler.LiveWhois, scheduler.Options{
		ExpirySyncInterval:     cfg.ExpirySyncInterval,
		AutoRenewInterval:      cfg.AutoRenewInterval,
		PricingRefreshInterval: cfg.PricingRefreshInterval,
		ExpiringThresholdDays:  cfg.ExpiringThresholdDays,
		AutoRenewThresholdDays: cfg.AutoRenewThresholdDays,
	})
	sched.Start()

	// 5. HTTP API
	api := server.New(store, engine, importer, providers, catalog, cfg.AdminToken)

	serverErrors := make(chan error, 2)
	var httpServers []*http.Server

	if cfg.DomainName != "" {
		// --- HTTPS Mode (Production) ---
		log.Printf("Configuring HTTPS/TLS for domain: %s", cfg.DomainName)
		cacheDir := "certs"
		if err := os.MkdirAll(cacheDir, 0700); err != nil {
			log.Fatalf("Failed to create cert cache dir: %v", err)
		}
		manager := &autocert.Manager{
			Cache:      autocert.DirCache(cacheDir),
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(cfg.DomainName),
			Email:      cfg.Email,
		}

		httpsServer := &http.Server{
			Addr:      ":443",
			Handler:   api.Handler(),
			TLSConfig: manager.TLSConfig(),
		}
		httpServers = append(httpServers, httpsServer)
		go func() {
			log.Println("API listening on :443 (HTTPS)")
			if err := httpsServer.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
				serverErrors <- err
			}
		}()

		// ACME challenge + redirect server
		httpRedirectServer := &http.Server{
			Addr:    ":80",
			Handler: manager.HTTPHandler(nil),
		}
		httpServers = append(httpServers, httpRedirectServer)
		go func() {
			log.Println("Redirect Server listening on :80 (HTTP)")
			if err := httpRedirectServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serverErrors <- err
			}
		}()
	} else {
		// --- HTTP Mode (Local/Dev) ---
		log.Printf("DOMAIN_NAME not set. Starting in HTTP-only mode. Listening on %s", cfg.ListenAddr)
		httpServer := &http.Server{
			Addr:    cfg.ListenAddr,
			Handler: api.Handler(),
		}
		httpServers = append(httpServers, httpServer)
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serverErrors <- err
			}
		}()
	}

	// Wait for interrupt or server error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-serverErrors:
		log.Printf("Server error: %v, initiating shutdown...", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	for _, srv := range httpServers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}
	sched.Stop()

	log.Println("Server shutdown complete")
}
