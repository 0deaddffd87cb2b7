package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/feedback-gateway/internal/api"
	"github.com/ignite/feedback-gateway/internal/config"
	"github.com/ignite/feedback-gateway/internal/disposition"
	"github.com/ignite/feedback-gateway/internal/identity"
	"github.com/ignite/feedback-gateway/internal/pkg/logger"
	"github.com/ignite/feedback-gateway/internal/repository/postgres"
	"github.com/ignite/feedback-gateway/internal/ses"
	"github.com/ignite/feedback-gateway/internal/suppression"
	"github.com/ignite/feedback-gateway/internal/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	if cfg.Logging.RedactPII != nil {
		logger.SetRedactPII(*cfg.Logging.RedactPII)
	}

	if cfg.Database.URL == "" {
		log.Fatal("database url is required (config database.url or DATABASE_URL)")
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	if err := db.Ping(); err != nil {
		log.Fatalf("ping database: %v", err)
	}
	logger.Info("database connected")

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis unreachable, suppression cache disabled", "error", err.Error())
			redisClient = nil
		}
	}

	profiles := postgres.NewProfileRepo(db)
	feedback := postgres.NewFeedbackStore(db)
	checker := suppression.NewChecker(feedback, redisClient, cfg.Redis.CacheTTL())

	sinks := []disposition.SuppressionSink{checker}
	if cfg.SES.Enabled {
		mirror, err := ses.NewSuppressor(context.Background(), cfg.SES)
		if err != nil {
			logger.Warn("SES suppression mirror disabled", "error", err.Error())
		} else {
			sinks = append(sinks, mirror)
			logger.Info("SES suppression mirror enabled", "region", cfg.SES.Region)
		}
	}
	engine := disposition.NewEngine(feedback, sinks...)

	verifier := identity.NewTokenVerifier(cfg.Identity.TokenSecret)
	extractor := identity.NewExtractor(verifier, cfg.Identity.Header)

	confirmClient := &http.Client{Timeout: cfg.Webhook.ConfirmTimeout()}
	handlers := api.NewHandlers(
		profiles, feedback, extractor, engine, checker,
		confirmClient, cfg.Webhook.MaxBodyBytes, db,
	)
	server := api.NewServer(cfg.Server, handlers)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Retention.Enabled {
		retention := worker.NewRetentionWorker(feedback, cfg.Retention.Interval(), cfg.Retention.RetentionWindow())
		go retention.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err.Error())
		}
	}
}
