package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/xiaoxue1272/histories-collector/internal/idgen"
)

// MockStateRepo implements repo.StateRepo for testing
type MockStateRepo struct {
	storedInstance int64
	storedLastMS   int64
	stores         int
}

func (m *MockStateRepo) BootstrapCompleted(ctx context.Context, alias string) (bool, error) {
	return false, nil
}

func (m *MockStateRepo) MarkBootstrapped(ctx context.Context, alias, prefix string) error {
	return nil
}

func (m *MockStateRepo) LastIssued(ctx context.Context, instance int64) (int64, error) {
	return m.storedLastMS, nil
}

func (m *MockStateRepo) StoreLastIssued(ctx context.Context, instance, lastMS int64) error {
	m.storedInstance = instance
	m.storedLastMS = lastMS
	m.stores++
	return nil
}

func (m *MockStateRepo) Close() error { return nil }

func TestMaintenanceScheduler_StopFlushesIdgenState(t *testing.T) {
	ids, err := idgen.New(3, 0)
	if err != nil {
		t.Fatalf("Failed to create id generator: %v", err)
	}
	ids.Next()

	state := &MockStateRepo{}
	s := NewMaintenanceScheduler(&MockMediaRepo{}, state, ids, 3, 14*24*time.Hour, log.New(io.Discard))

	s.Start(context.Background())
	s.Stop()

	if state.stores == 0 {
		t.Fatal("Expected a final flush on stop")
	}
	if state.storedInstance != 3 {
		t.Errorf("Expected flush for instance 3, got %d", state.storedInstance)
	}
	if state.storedLastMS != ids.LastIssuedMS() {
		t.Errorf("Expected last issued %d flushed, got %d", ids.LastIssuedMS(), state.storedLastMS)
	}
}

func TestMaintenanceScheduler_NoFlushBeforeFirstID(t *testing.T) {
	ids, err := idgen.New(0, 0)
	if err != nil {
		t.Fatalf("Failed to create id generator: %v", err)
	}

	state := &MockStateRepo{}
	s := NewMaintenanceScheduler(&MockMediaRepo{}, state, ids, 0, 0, log.New(io.Discard))

	s.Start(context.Background())
	s.Stop()

	if state.stores != 0 {
		t.Errorf("Expected no flush before the first id, got %d", state.stores)
	}
}

func TestMaintenanceScheduler_SweepUsesRetention(t *testing.T) {
	ids, err := idgen.New(0, 0)
	if err != nil {
		t.Fatalf("Failed to create id generator: %v", err)
	}

	media := &MockMediaRepo{cleanupRemoved: 2}
	s := NewMaintenanceScheduler(media, &MockStateRepo{}, ids, 0, 14*24*time.Hour, log.New(io.Discard))
	s.ctx = context.Background()

	s.sweepSpool()

	if len(media.cleanups) != 1 {
		t.Fatalf("Expected one sweep, got %d", len(media.cleanups))
	}
	if media.cleanups[0] != 14*24*time.Hour {
		t.Errorf("Expected retention window passed through, got %v", media.cleanups[0])
	}
}
