package service

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/xiaoxue1272/histories-collector/internal/biz/repo"
	"github.com/xiaoxue1272/histories-collector/internal/idgen"
)

const (
	// idgenFlushInterval bounds how much id-generation progress a crash can
	// lose. The clock guard on startup depends on this value being small.
	idgenFlushInterval = 30 * time.Second

	spoolSweepInterval = 6 * time.Hour
)

// MaintenanceScheduler handles background housekeeping: periodic id-state
// flushes and spool retention sweeps
type MaintenanceScheduler struct {
	media  repo.MediaRepo
	state  repo.StateRepo
	ids    *idgen.Generator
	logger *log.Logger

	instance  int64
	retention time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMaintenanceScheduler creates a new maintenance scheduler
func NewMaintenanceScheduler(
	media repo.MediaRepo,
	state repo.StateRepo,
	ids *idgen.Generator,
	instance int64,
	retention time.Duration,
	logger *log.Logger,
) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		media:     media,
		state:     state,
		ids:       ids,
		logger:    logger,
		instance:  instance,
		retention: retention,
	}
}

// Start starts the scheduler
func (s *MaintenanceScheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.flushLoop()

	if s.retention > 0 {
		s.wg.Add(1)
		go s.sweepLoop()
	} else {
		s.logger.Info("spool retention disabled, no sweeps scheduled")
	}

	s.logger.Info("maintenance scheduler started", "flush_interval", idgenFlushInterval, "retention", s.retention)
}

// Stop stops the scheduler and flushes the id state a final time
func (s *MaintenanceScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.flushIdgenState()
	s.logger.Info("maintenance scheduler stopped")
}

func (s *MaintenanceScheduler) flushLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(idgenFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.flushIdgenState()
		}
	}
}

func (s *MaintenanceScheduler) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(spoolSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sweepSpool()
		}
	}
}

func (s *MaintenanceScheduler) flushIdgenState() {
	last := s.ids.LastIssuedMS()
	if last == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.state.StoreLastIssued(ctx, s.instance, last); err != nil {
		s.logger.Error("failed to flush idgen state", "error", err)
	}
}

func (s *MaintenanceScheduler) sweepSpool() {
	removed, err := s.media.CleanupSpool(s.ctx, s.retention)
	if err != nil {
		s.logger.Error("spool sweep failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Info("spool sweep removed stale attachments", "count", removed)
	}
}
