package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xiaoxue1272/histories-collector/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// stateRepo implements the State repository
type stateRepo struct {
	db *sql.DB
}

// NewStateRepo creates a new State repository
func NewStateRepo(dbPath string) (repo.StateRepo, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create tables
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS bootstrap_state (
			alias TEXT PRIMARY KEY,
			index_prefix TEXT NOT NULL,
			completed_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bootstrap_state table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS idgen_state (
			instance INTEGER PRIMARY KEY,
			last_issued_ms INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create idgen_state table: %w", err)
	}

	return &stateRepo{db: db}, nil
}

// BootstrapCompleted reports whether a bootstrap marker exists for the alias
func (r *stateRepo) BootstrapCompleted(ctx context.Context, alias string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT completed_at FROM bootstrap_state WHERE alias = ?
	`, alias)

	var completedAt int64
	err := row.Scan(&completedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query bootstrap state: %w", err)
	}
	return true, nil
}

// MarkBootstrapped records that provisioning completed for the alias
func (r *stateRepo) MarkBootstrapped(ctx context.Context, alias, prefix string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO bootstrap_state (alias, index_prefix, completed_at)
		VALUES (?, ?, ?)
	`, alias, prefix, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to mark bootstrapped: %w", err)
	}
	return nil
}

// LastIssued returns the persisted id-generation timestamp for the instance
func (r *stateRepo) LastIssued(ctx context.Context, instance int64) (int64, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT last_issued_ms FROM idgen_state WHERE instance = ?
	`, instance)

	var lastMS int64
	err := row.Scan(&lastMS)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query idgen state: %w", err)
	}
	return lastMS, nil
}

// StoreLastIssued records the instance's latest id-generation timestamp
func (r *stateRepo) StoreLastIssued(ctx context.Context, instance, lastMS int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO idgen_state (instance, last_issued_ms)
		VALUES (?, ?)
	`, instance, lastMS)
	if err != nil {
		return fmt.Errorf("failed to store idgen state: %w", err)
	}
	return nil
}

// Close closes the database
func (r *stateRepo) Close() error {
	return r.db.Close()
}
