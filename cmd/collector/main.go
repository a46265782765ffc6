package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/xiaoxue1272/histories-collector/internal/api"
	"github.com/xiaoxue1272/histories-collector/internal/biz/domain"
	"github.com/xiaoxue1272/histories-collector/internal/biz/usecase"
	"github.com/xiaoxue1272/histories-collector/internal/conf"
	"github.com/xiaoxue1272/histories-collector/internal/data"
	"github.com/xiaoxue1272/histories-collector/internal/idgen"
	"github.com/xiaoxue1272/histories-collector/internal/server"
	"github.com/xiaoxue1272/histories-collector/internal/service"
	"github.com/xiaoxue1272/histories-collector/onebot"
)

const startupTimeout = 30 * time.Second

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid config", "error", err)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	if len(cfg.Collector.EnableGroups) == 0 {
		logger.Warn("ENABLE_GROUPS is empty, every event will be dropped")
	}

	// Initialize the store client and repository layer
	esClient, err := data.NewESClient(cfg.ES)
	if err != nil {
		logger.Fatal("Failed to create es client", "error", err)
	}

	repos, err := data.NewRepositories(esClient, cfg, logger.With("component", "data"))
	if err != nil {
		logger.Fatal("Failed to create repositories", "error", err)
	}
	defer repos.Close()

	// Fatal startup path: the collector must not accept events without a
	// reachable, policy-governed, writable index
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	if err := repos.History.Ping(ctx); err != nil {
		logger.Fatal("Store unreachable", "error", err)
	}
	if err := repos.History.EnsureIndices(ctx); err != nil {
		logger.Fatal("Failed to bootstrap indices", "error", err)
	}

	// Identifier generator, guarded by the persisted issue timestamp
	lastMS, err := repos.State.LastIssued(ctx, cfg.Collector.Instance)
	cancel()
	if err != nil {
		logger.Fatal("Failed to read idgen state", "error", err)
	}
	ids, err := idgen.New(cfg.Collector.Instance, lastMS)
	if err != nil {
		logger.Fatal("Failed to create id generator", "error", err)
	}

	// Usecase and service layers
	enablement := domain.NewEnablementSet(cfg.Collector.EnableGroups)
	parser := usecase.NewChainParser(repos.Media, logger.With("component", "parser"))
	archiveUC := usecase.NewArchiveUsecase(repos.History, parser, ids, logger.With("component", "archive"))
	svc := service.NewCollectorService(archiveUC, enablement, logger.With("component", "collector"))

	retention := time.Duration(cfg.Collector.SpoolRetentionDays) * 24 * time.Hour
	maint := service.NewMaintenanceScheduler(repos.Media, repos.State, ids, cfg.Collector.Instance, retention, logger.With("component", "maintenance"))
	maint.Start(context.Background())

	// Ops endpoints
	opsServer := api.NewServer(cfg.Ops.Addr, svc, logger.With("component", "ops"))
	go func() {
		if err := opsServer.Start(); err != nil {
			logger.Error("Ops server error", "error", err)
		}
	}()
	opsServer.MarkReady()

	// Event source
	obClient := onebot.NewClient(cfg.OneBot.WSURL, cfg.OneBot.AccessToken, logger.With("component", "onebot"))
	srv := server.NewOneBotServer(obClient, svc, enablement, logger.With("component", "server"))

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info("Shutting down")
		srv.Stop()
		opsServer.Stop()
		maint.Stop()
		repos.Close()
		os.Exit(0)
	}()

	logger.Info("Starting histories collector",
		"prefix", cfg.ES.IndexPrefix,
		"groups", len(cfg.Collector.EnableGroups),
		"instance", cfg.Collector.Instance,
	)
	if err := srv.Start(); err != nil {
		logger.Fatal("Server error", "error", err)
	}
}
