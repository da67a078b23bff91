package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banking/underwriting-risk/internal/analytics"
	"github.com/banking/underwriting-risk/internal/api"
	"github.com/banking/underwriting-risk/internal/config"
	"github.com/banking/underwriting-risk/internal/crypto"
	"github.com/banking/underwriting-risk/internal/events"
	"github.com/banking/underwriting-risk/internal/reasoning"
	"github.com/banking/underwriting-risk/internal/repository/elasticsearch"
	"github.com/banking/underwriting-risk/internal/repository/postgres"
	"github.com/banking/underwriting-risk/internal/repository/s3"
	"github.com/banking/underwriting-risk/internal/risk"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// 1. Config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	sugar.Info("Starting Underwriting Risk Service...")

	// 3. Crypto / Security
	signer, err := crypto.NewResultSigner(cfg.Signing.ResultHMACSecret)
	if err != nil {
		sugar.Fatalf("Failed to initialize result signer: %v", err)
	}

	// 4. Repositories
	pool, err := postgres.NewPool(context.Background(), cfg.Database)
	if err != nil {
		sugar.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pool.Close()

	txnRepo := postgres.NewTransactionRepository(pool)
	profileRepo := postgres.NewProfileRepository(pool)
	extractionRepo := postgres.NewExtractionRepository(pool)
	riskRepo := postgres.NewRiskRepository(pool)

	esRepo, err := elasticsearch.NewSearchRepository(cfg.Elasticsearch)
	if err != nil {
		sugar.Warnf("Failed to connect to Elasticsearch: %v (Search capabilities will be limited)", err)
		esRepo = nil
	}
	// Keep the indexer interface nil when the repo is absent; a typed-nil
	// pointer inside the interface would slip past the service's nil check.
	var searchIndexer risk.SearchIndexer
	if esRepo != nil {
		searchIndexer = esRepo
	}

	s3Repo, err := s3.NewReportRepository(context.Background(), cfg.S3)
	if err != nil {
		sugar.Fatalf("Failed to initialize S3 repository: %v", err)
	}

	// 5. Analytics + Risk Service
	analyzer := analytics.NewAnalyzer(cfg.Analytics, analytics.DefaultRuleSet(), txnRepo, logger)
	reasoner := reasoning.NewOpenAIReasoner(cfg.Reasoning, logger)

	riskService := risk.NewService(
		cfg.Analytics,
		cfg.Scoring,
		analyzer,
		extractionRepo,
		riskRepo,
		searchIndexer,
		s3Repo,
		profileRepo,
		reasoner,
		signer,
		logger,
	)

	// 6. Kafka Consumer
	consumer, err := events.NewRiskConsumer(cfg.Kafka, riskService, profileRepo, logger)
	if err != nil {
		sugar.Fatalf("Failed to create Kafka consumer: %v", err)
	}

	// Start Consumer in background
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sugar.Info("Starting Kafka consumer loop...")
		if err := consumer.Start(ctx); err != nil {
			sugar.Errorf("Kafka consumer failed: %v", err)
		}
	}()
	defer consumer.Close()

	// 7. API Server
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	riskHandler := api.NewRiskHandler(riskService, analyzer, esRepo)

	apiGroup := e.Group("/risk")

	// Security: Add JWT Authentication
	keyData, err := os.ReadFile(cfg.Auth.JWTPublicKeyPath)
	var signingKey interface{}
	if err == nil {
		signingKey, err = jwt.ParseRSAPublicKeyFromPEM(keyData)
		if err != nil {
			sugar.Warnf("Failed to parse JWT public key: %v", err)
		}
	} else {
		sugar.Warnf("JWT public key not found at %s: %v", cfg.Auth.JWTPublicKeyPath, err)
	}

	if signingKey != nil {
		config := echojwt.Config{
			SigningKey:    signingKey,
			SigningMethod: "RS256",
			NewClaimsFunc: func(c echo.Context) jwt.Claims {
				return new(jwt.MapClaims)
			},
		}
		apiGroup.Use(echojwt.WithConfig(config))
		sugar.Info("JWT Authentication enabled for /risk/*")
	} else {
		sugar.Warn("JWT Authentication DISABLED - Missing Public Key (Security Risk)")
	}

	riskHandler.RegisterRoutes(apiGroup)

	// Health Check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Start Server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Shutting down the server: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sugar.Info("Shutting down service...")
	// Timeout for shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		sugar.Fatal(err)
	}
}
