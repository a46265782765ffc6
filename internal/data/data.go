package data

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/elastic/go-elasticsearch/v8"

	"github.com/xiaoxue1272/histories-collector/internal/biz/repo"
	"github.com/xiaoxue1272/histories-collector/internal/conf"
)

// Repositories contains all repositories
type Repositories struct {
	History repo.HistoryRepo
	Media   repo.MediaRepo
	State   repo.StateRepo
}

// NewRepositories creates all repositories
func NewRepositories(esClient *elasticsearch.Client, cfg *conf.Config, logger *log.Logger) (*Repositories, error) {
	stateRepo, err := NewStateRepo(cfg.Collector.StateDBPath)
	if err != nil {
		return nil, err
	}

	probeTimeout := time.Duration(cfg.Collector.ProbeTimeoutSeconds) * time.Second
	mediaRepo, err := NewMediaRepo(cfg.Collector.SpoolDir, probeTimeout, logger)
	if err != nil {
		stateRepo.Close()
		return nil, err
	}

	return &Repositories{
		History: NewHistoryRepo(esClient, cfg.ES.IndexPrefix, stateRepo, logger),
		Media:   mediaRepo,
		State:   stateRepo,
	}, nil
}

// Close releases all repositories
func (r *Repositories) Close() error {
	err := r.History.Close()
	if stateErr := r.State.Close(); err == nil {
		err = stateErr
	}
	return err
}
