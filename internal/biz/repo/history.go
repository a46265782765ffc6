package repo

import (
	"context"

	"github.com/xiaoxue1272/histories-collector/internal/biz/domain"
)

// HistoryRepo is the message history repository interface
// Responsible for the rolling index store behind the write alias
type HistoryRepo interface {
	// Ping verifies the store is reachable
	Ping(ctx context.Context) error

	// EnsureIndices provisions lifecycle policy, template, first index and
	// write alias on a fresh deployment; a no-op once the alias exists
	EnsureIndices(ctx context.Context) error

	// Save persists one document under the given id through the write alias.
	// Create-only: a second save with the same id fails
	Save(ctx context.Context, id int64, doc *domain.Document) error

	// Close releases the underlying client
	Close() error
}
