package repo

import "context"

// StateRepo is the local collector state repository interface
// Responsible for persistence that must survive restarts (SQLite)
type StateRepo interface {
	// BootstrapCompleted reports whether store provisioning already ran for
	// the alias
	BootstrapCompleted(ctx context.Context, alias string) (bool, error)

	// MarkBootstrapped records that provisioning completed for the alias
	MarkBootstrapped(ctx context.Context, alias, prefix string) error

	// LastIssued returns the last id-generation timestamp recorded for the
	// instance, 0 when none
	LastIssued(ctx context.Context, instance int64) (int64, error)

	// StoreLastIssued records the instance's latest id-generation timestamp
	StoreLastIssued(ctx context.Context, instance, lastMS int64) error

	// Close closes the underlying database
	Close() error
}
