package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/xiaoxue1272/histories-collector/internal/biz/domain"
	"github.com/xiaoxue1272/histories-collector/internal/biz/repo"
	"github.com/xiaoxue1272/histories-collector/internal/idgen"
	"github.com/xiaoxue1272/histories-collector/internal/metrics"
)

// ArchiveUsecase handles message archiving
// Assembles the document for one group message and persists it create-only
type ArchiveUsecase struct {
	history repo.HistoryRepo
	parser  *ChainParser
	ids     *idgen.Generator
	logger  *log.Logger
}

// NewArchiveUsecase creates a new archive usecase
func NewArchiveUsecase(
	history repo.HistoryRepo,
	parser *ChainParser,
	ids *idgen.Generator,
	logger *log.Logger,
) *ArchiveUsecase {
	return &ArchiveUsecase{
		history: history,
		parser:  parser,
		ids:     ids,
		logger:  logger,
	}
}

// Archive builds the document for the event and writes it under a fresh id.
// Returns the assigned id.
func (uc *ArchiveUsecase) Archive(ctx context.Context, event *domain.GroupMessageEvent) (int64, error) {
	start := time.Now()
	extra := uc.parser.Parse(ctx, event.GroupID, event.Elements)
	metrics.ParseDuration.Observe(time.Since(start).Seconds())

	doc := &domain.Document{
		Timestamp:      event.Time.UnixMilli(),
		GroupID:        event.GroupID,
		GroupName:      event.GroupName,
		SenderID:       event.SenderID,
		SenderName:     event.SenderName,
		SenderNickname: event.SenderCard,
		Message:        domain.Outline(event.Elements),
		MessageExtra:   extra,
	}

	id := uc.ids.Next()
	if err := uc.history.Save(ctx, id, doc); err != nil {
		return 0, fmt.Errorf("save document: %w", err)
	}

	uc.logger.Debug("message archived", "id", id, "group_id", event.GroupID, "sender_id", event.SenderID)
	return id, nil
}
