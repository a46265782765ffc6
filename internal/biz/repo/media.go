package repo

import (
	"context"
	"time"
)

// MediaRepo is the attachment media repository interface
// Responsible for probing and spooling remote attachment content
type MediaRepo interface {
	// Probe checks the attachment against the size policy without reading
	// its body. It never fails: ok=false carries the reason to record
	Probe(ctx context.Context, url string) (ok bool, reason string)

	// Fetch downloads the attachment into the local spool and returns the
	// stored path
	Fetch(ctx context.Context, groupID int64, name, url string) (string, error)

	// CleanupSpool removes spooled attachments older than the retention
	// window
	CleanupSpool(ctx context.Context, olderThan time.Duration) (int64, error)
}
