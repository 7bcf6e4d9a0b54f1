package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sifan077/hyperindex/config"
	apprepository "github.com/sifan077/hyperindex/internal/app/repository"
	appserver "github.com/sifan077/hyperindex/internal/app/server"
	appservice "github.com/sifan077/hyperindex/internal/app/service"
	httpUtil "github.com/sifan077/hyperindex/internal/http/util"
	"github.com/sifan077/hyperindex/internal/infra/logger"
	infraNATS "github.com/sifan077/hyperindex/internal/infra/nats"
	infraPostgres "github.com/sifan077/hyperindex/internal/infra/postgres"
	infraPrometheus "github.com/sifan077/hyperindex/internal/infra/prometheus"
	infraRedis "github.com/sifan077/hyperindex/internal/infra/redis"
	"go.uber.org/zap"
)

const (
	serviceName     = "hyperindex"
	shutdownTimeout = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.MustInit(logger.Config{Development: true}).Fatal("Failed to load config", zap.Error(err))
	}

	log := logger.MustInit(logger.FromConfig(cfg, serviceName))
	defer func() { _ = logger.Sync() }()

	log.Info("Configuration loaded successfully",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Server.Addr),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("redis_port", cfg.Redis.Port),
		zap.String("nats_host", cfg.NATS.Host),
		zap.Int("nats_port", cfg.NATS.Port),
	)
	if cfg.Auth.JWTSecret == "" {
		log.Warn("auth.jwt_secret is empty; every caller will be anonymous")
	}

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres, log)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.Migrate(ctx, sqlDB); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()
	log.Info("Connected to Postgres successfully")

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis successfully")

	natsConn, js, err := infraNATS.Connect(cfg.NATS, log)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Drain()
	log.Info("Connected to NATS successfully")

	if cfg.Server.IsProduction() {
		promServer := infraPrometheus.NewServer(cfg.Prometheus, nil)
		go func() {
			log.Info("Starting Prometheus metrics server", zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	store := apprepository.NewStore(gormDB)
	auditRepo := apprepository.NewModerationEventRepository(gormDB)

	consumer := appservice.NewModerationConsumer(js, log.Named("moderation-consumer"), auditRepo)
	if err := consumer.Start(ctx); err != nil {
		log.Fatal("Failed to start moderation consumer", zap.Error(err))
	}

	tagResolver := appservice.NewTagResolver()
	if err := tagResolver.Warm(ctx, store.Tags()); err != nil {
		log.Warn("Failed to warm tag resolver; every tag name will be looked up", zap.Error(err))
	}

	deps := appservice.Deps{
		Logger: log,
		Store:  store,
		Reader: apprepository.NewEntryReader(pool),
		Tags:   tagResolver,
		Events: appservice.NewModerationPublisher(js),
		Cache:  appservice.NewRedisListingCache(redisClient, cfg.Cache.DirectoryTTL, log),
		Audit:  auditRepo,
		Paginator: appservice.Paginator{
			DefaultPerPage: cfg.Pagination.DefaultPerPage,
			MaxPerPage:     cfg.Pagination.MaxPerPage,
		},
	}

	server := appserver.New(appserver.Dependencies{
		Logger:      log,
		Redis:       redisClient,
		Tokens:      httpUtil.NewTokenVerifier([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL),
		CookieName:  cfg.Auth.CookieName,
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimit:   cfg.Server.RateLimit,
		Entries:     appservice.NewEntryService(deps),
		Queries:     appservice.NewQueryService(deps),
		Moderation:  appservice.NewModerationService(deps),
	})

	go func() {
		<-ctx.Done()
		log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("Starting HTTP server", zap.String("addr", cfg.Server.Addr))
	if err := server.Listen(cfg.Server.Addr); err != nil {
		log.Error("Fiber server exited", zap.Error(err))
	}
}
