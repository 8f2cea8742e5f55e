package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/adjust"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/audit"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/checkout"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/config"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/coupon"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/database"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/escrow"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/gateway"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/handlers"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/ledger"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/logging"
	mW "github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/middleware"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/models"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/notify"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/resilience"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func main() {
	// Initialize config
	if err := config.Load(".env"); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	logger, err := logging.NewLogger(logging.GetConfig())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	logging.SetGlobal(logger)

	cfg := config.GetServerConfig()
	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET_KEY is required")
	}

	redisClient := database.InitRedis(logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	exec := resilience.NewExecutor(resilience.GetPolicy(), logger)

	// Ledger backend
	var (
		db      *sql.DB
		store   ledger.Store
		coupons coupon.Validator
		emitter audit.Emitter = audit.NewZapLogger(logger)
	)
	switch cfg.LedgerBackend {
	case config.BackendMemory:
		logger.Warn("Using in-memory ledger; balances are lost on restart")
		store = ledger.NewMemoryStore(ledger.WithGateways(models.PaymentGateway{
			ID:                  "gw-wallet",
			Provider:            models.ProviderWallet,
			Name:                "Wallet",
			IsActive:            true,
			IsTestMode:          true,
			Config:              models.WalletConfig{},
			SupportedCurrencies: []string{cfg.DefaultCurrency},
		}))
		coupons = coupon.Static{}
	case config.BackendPostgres:
		db, err = database.InitDB(database.GetConfig(), logger)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		store = ledger.NewPostgresStore(db, exec, logger)
		coupons = coupon.NewPostgresValidator(db, redisClient, exec, logger)
		emitter = audit.Multi{audit.NewDBLogger(db), emitter}
	default:
		logger.Fatal("Unknown ledger backend", zap.String("backend", cfg.LedgerBackend))
	}

	// Initialize services
	notifier := notify.NewRedisQueue(redisClient, logger)
	auditor := audit.NewSafe(emitter, logger)
	directory := gateway.NewDirectory(store, logger)
	breakers := resilience.DefaultBreakerConfig()
	adapters := gateway.NewSet(
		gateway.NewWave(nil, resilience.NewBreaker(string(models.ProviderWave), breakers, logger), logger),
		gateway.NewCinetPay(nil, resilience.NewBreaker(string(models.ProviderCinetPay), breakers, logger), logger),
		gateway.NewBankTransfer(),
		gateway.NewCash(notifier),
		gateway.NewWallet(store),
	)
	escrowManager := escrow.NewManager(store, coupons, logger)
	adjustService := adjust.NewService(store, escrowManager, auditor)
	orchestrator := checkout.New(checkout.Deps{
		Store:     store,
		Directory: directory,
		Adapters:  adapters,
		Escrow:    escrowManager,
		Executor:  exec,
		Redis:     redisClient,
		Notifier:  notifier,
		Logger:    logger,
	}, checkout.GetConfig())

	checkoutHandler := handlers.NewCheckoutHandler(orchestrator)
	webhookHandler := handlers.NewWebhookHandler(directory, adapters, orchestrator, logger)
	accountHandler := handlers.NewAccountHandler(directory, store, cfg.DefaultCurrency)
	adminHandler := handlers.NewAdminHandler(adjustService, escrowManager, orchestrator, auditor)

	// Initialize auth middleware with Redis
	auth := mW.NewAuthenticator(cfg.JWTSecret, redisClient, logger)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: cfg.AllowCredentials(),
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "ledger": cfg.LedgerBackend})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Provider callbacks authenticate by signature
		r.Post("/webhooks/{provider}", webhookHandler.Receive)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware)

			r.Get("/gateways", accountHandler.Gateways)
			r.Get("/wallet", accountHandler.Wallet)

			r.Post("/checkout", checkoutHandler.Initiate)
			r.Get("/checkout/{reference}", checkoutHandler.Status)

			r.Route("/admin", func(r chi.Router) {
				r.Use(mW.AdminOnly)

				r.Post("/escrow/deposit", adminHandler.Deposit)
				r.Post("/escrow/{shipmentId}/release", adminHandler.Release)
				r.Post("/transactions/{transactionId}/refund", adminHandler.Refund)
				r.Post("/wallets/{ownerId}/adjust", adminHandler.Adjust)
				r.Post("/checkout/{reference}/validate", adminHandler.ValidateOffline)
			})
		})
	})

	// Start server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		logger.Info("Server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}
