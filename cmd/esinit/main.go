// Command esinit runs the index lifecycle bootstrap once and exits: lifecycle
// policy, index template, and the initial write index on a fresh deployment.
// Useful for provisioning a cluster before the collector is deployed.
package main

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/xiaoxue1272/histories-collector/internal/conf"
	"github.com/xiaoxue1272/histories-collector/internal/data"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment variables")
	}

	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid config", "error", err)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	esClient, err := data.NewESClient(cfg.ES)
	if err != nil {
		logger.Fatal("Failed to create es client", "error", err)
	}

	repos, err := data.NewRepositories(esClient, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create repositories", "error", err)
	}
	defer repos.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := repos.History.Ping(ctx); err != nil {
		logger.Fatal("Store unreachable", "error", err)
	}
	if err := repos.History.EnsureIndices(ctx); err != nil {
		logger.Fatal("Failed to bootstrap indices", "error", err)
	}

	logger.Info("Bootstrap complete", "prefix", cfg.ES.IndexPrefix, "alias", data.WriteAlias)
}
