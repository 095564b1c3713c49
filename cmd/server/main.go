package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"openswe.dev/manager/common/id"
	"openswe.dev/manager/common/logger"
	"openswe.dev/manager/common/otel"
	"openswe.dev/manager/core/config"
	"openswe.dev/manager/core/db"
	"openswe.dev/manager/internal/http/middleware"
	httprouter "openswe.dev/manager/internal/http/router"
	"openswe.dev/manager/internal/model"
	"openswe.dev/manager/internal/queue"
	"openswe.dev/manager/internal/service"
	"openswe.dev/manager/internal/store"
	"openswe.dev/manager/internal/tracker"
	"openswe.dev/manager/internal/tracker/github"
	"openswe.dev/manager/internal/tracker/linear"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "manager server starting", "env", cfg.Env, "tracker", cfg.Tracker.Provider)

	if !cfg.Webhook.Verifies() {
		slog.WarnContext(ctx, "no webhook secrets configured, signature verification disabled")
	}

	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Queue.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Queue.Stream)

	producer := queue.NewRedisProducer(redisClient, cfg.Queue.Stream, slog.Default())
	defer producer.Close()

	runs := store.NewRunStore(database.Pool())
	runService := service.NewRunCreationService(runs, producer, slog.Default())

	clients := make(map[model.Provider]tracker.Client)
	if cfg.Tracker.LinearAPIKey != "" {
		clients[model.ProviderLinear] = linear.NewClient(cfg.Tracker.LinearAPIKey)
	}
	if cfg.Tracker.GitHubToken != "" {
		clients[model.ProviderGitHub] = github.NewClient(cfg.Tracker.GitHubToken)
	}

	ingest := service.NewIssueIngestService(runService, clients, defaultRepo(cfg.Runner.TargetRepo), slog.Default())

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, ingest, runs)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, ingest service.IssueIngestService, runs store.RunStore) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, ingest, runs, httprouter.RouterConfig{
		LinearWebhookSecret: cfg.Webhook.LinearSecret,
		GitHubWebhookSecret: cfg.Webhook.GitHubSecret,
	})

	return router
}

func defaultRepo(targetRepo string) *model.Repository {
	owner, repo, ok := strings.Cut(targetRepo, "/")
	if !ok {
		return nil
	}
	return &model.Repository{Owner: owner, Repo: repo}
}

const banner = `
 ██████╗ ██████╗ ███████╗███╗   ██╗    ███████╗██╗    ██╗███████╗
██╔═══██╗██╔══██╗██╔════╝████╗  ██║    ██╔════╝██║    ██║██╔════╝
██║   ██║██████╔╝█████╗  ██╔██╗ ██║    ███████╗██║ █╗ ██║█████╗
██║   ██║██╔═══╝ ██╔══╝  ██║╚██╗██║    ╚════██║██║███╗██║██╔══╝
╚██████╔╝██║     ███████╗██║ ╚████║    ███████║╚███╔███╔╝███████╗
 ╚═════╝ ╚═╝     ╚══════╝╚═╝  ╚═══╝    ╚══════╝ ╚══╝╚══╝ ╚══════╝
`
