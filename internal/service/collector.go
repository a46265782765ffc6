package service

import (
	"context"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/xiaoxue1272/histories-collector/internal/biz/domain"
	"github.com/xiaoxue1272/histories-collector/internal/biz/usecase"
	"github.com/xiaoxue1272/histories-collector/internal/metrics"
)

// CollectorService handles inbound group message events
type CollectorService struct {
	archiveUC  *usecase.ArchiveUsecase
	enablement domain.EnablementSet
	logger     *log.Logger

	received atomic.Int64
	dropped  atomic.Int64
	archived atomic.Int64
	failed   atomic.Int64
}

// NewCollectorService creates a new collector service
func NewCollectorService(
	archiveUC *usecase.ArchiveUsecase,
	enablement domain.EnablementSet,
	logger *log.Logger,
) *CollectorService {
	return &CollectorService{
		archiveUC:  archiveUC,
		enablement: enablement,
		logger:     logger,
	}
}

// HandleEvent ingests one group message event end to end: enablement gate,
// parse, persist. Failures are logged and counted, an event never takes the
// collector down.
func (s *CollectorService) HandleEvent(ctx context.Context, event *domain.GroupMessageEvent) {
	s.received.Add(1)
	metrics.EventsReceivedTotal.Inc()

	if !s.enablement.Enabled(event.GroupID) {
		s.dropped.Add(1)
		metrics.EventsDroppedTotal.WithLabelValues("group_disabled").Inc()
		return
	}

	id, err := s.archiveUC.Archive(ctx, event)
	if err != nil {
		s.failed.Add(1)
		metrics.EventsDroppedTotal.WithLabelValues("archive_failed").Inc()
		metrics.WriteFailuresTotal.Inc()
		s.logger.Error("failed to archive message", "group_id", event.GroupID, "message_id", event.MessageID, "error", err)
		return
	}

	s.archived.Add(1)
	metrics.DocumentsWrittenTotal.Inc()
	s.logger.Info("message archived", "id", id, "group_id", event.GroupID, "sender_id", event.SenderID)
}

// Stats is a point-in-time snapshot of the ingest counters
type Stats struct {
	EventsReceived   int64 `json:"events_received"`
	EventsDropped    int64 `json:"events_dropped"`
	DocumentsWritten int64 `json:"documents_written"`
	WriteFailures    int64 `json:"write_failures"`
}

// Stats returns the current ingest counters
func (s *CollectorService) Stats() Stats {
	return Stats{
		EventsReceived:   s.received.Load(),
		EventsDropped:    s.dropped.Load(),
		DocumentsWritten: s.archived.Load(),
		WriteFailures:    s.failed.Load(),
	}
}
