package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pos-ledger-api/internal/api"
	"pos-ledger-api/internal/config"
	"pos-ledger-api/internal/database"
	"pos-ledger-api/internal/services"
	"pos-ledger-api/pkg/logging"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatal("Failed to initialize config: ", err)
	}
	cfg := config.AppConfig

	// Initialize logging
	logging.InitLogging(cfg.LogLevel, cfg.LogFile)

	// Initialize database
	if err := database.InitDatabase(cfg); err != nil {
		logging.Logger.Fatal("Failed to initialize database: ", err)
	}
	defer database.CloseDatabase()

	if cfg.AdminJWTSecret == "" {
		cfg.AdminJWTSecret = randomSecret()
		logging.Warnf("ADMIN_JWT_SECRET not set, using a random secret; admin sessions end on restart")
	}

	loc := cfg.Location()
	db := database.GetDB()
	rdb := database.GetRedis()

	// Request lock
	var locker services.Locker
	if cfg.LockBackend == "redis" {
		locker = services.NewRedisLocker(rdb, cfg.LockKey, cfg.LockTTL)
		logging.Infof("Using Redis request lock - key: %s", cfg.LockKey)
	} else {
		locker = services.NewMemoryLocker()
		logging.Infof("Using in-process request lock")
	}

	// Notifications
	webhook := services.NewWebhookNotifier(cfg.WebhookTimeout, cfg.WebhookSecret)
	notifiers := services.MultiNotifier{webhook}
	var brevo *services.BrevoService
	if cfg.BrevoAPIKey != "" && cfg.OperatorEmail != "" {
		brevo = services.NewBrevoService(cfg.BrevoAPIKey, cfg.BrevoFromEmail, cfg.BrevoFromName, cfg.OperatorEmail)
		notifiers = append(notifiers, brevo)
		logging.Infof("Order emails enabled - to: %s", cfg.OperatorEmail)
	}

	var throttle services.Throttle
	if rdb != nil && cfg.OrderRateLimitMinutes > 0 {
		throttle = services.NewRedisRateLimiter(rdb, "order", time.Duration(cfg.OrderRateLimitMinutes)*time.Minute)
	}

	tokens := services.NewTokenService(db, cfg.TokenPrefix, loc)
	settings := services.NewSettingsService(db)
	dispatcher := api.NewDispatcher(api.Services{
		Tokens:   tokens,
		Orders:   services.NewOrderService(db, tokens, settings, notifiers, throttle, loc),
		Catalog:  services.NewCatalogService(db),
		Ledger:   services.NewLedgerService(db, loc),
		Admin: services.NewAdminService(db, services.AdminOptions{
			Secret:          cfg.AdminJWTSecret,
			SessionTTL:      cfg.AdminSessionTTL,
			DefaultUsername: cfg.AdminDefaultUsername,
			DefaultPassword: cfg.AdminDefaultPassword,
		}),
		Settings: settings,
	}, locker, cfg.LockTimeout)

	// Set Gin mode
	gin.SetMode(cfg.Mode)

	// Create Gin engine
	r := gin.New()
	r.Use(gin.Recovery())

	// Setup routes
	api.SetupRoutes(r, dispatcher)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.WithCORS(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Logger.Fatal("Failed to start server: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Infof("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Errorf("Server shutdown failed: %v", err)
	}

	// Let queued notifications finish
	webhook.Wait(ctx)
	if brevo != nil {
		brevo.Wait(ctx)
	}
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		logging.Logger.Fatal("Failed to generate secret: ", err)
	}
	return hex.EncodeToString(b)
}
