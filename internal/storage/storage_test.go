package storage

import (
	"context"
	"testing"
	"time"

	"github.com/boardworks/govrec/internal/types"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Path != ".govrec/governance.db" {
		t.Errorf("DefaultConfig path = %s, expected .govrec/governance.db", cfg.Path)
	}
	if cfg.BusyTimeout != 5*time.Second {
		t.Errorf("DefaultConfig busy timeout = %v, expected 5s", cfg.BusyTimeout)
	}
}

// TestNewStorageExplicitConfig verifies the explicit path wins over the
// environment, which only feeds discovery.
func TestNewStorageExplicitConfig(t *testing.T) {
	t.Setenv(EnvDatabasePath, "/nonexistent/env.db")
	ctx := context.Background()

	store, err := NewStorage(ctx, &Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("NewStorage with explicit config failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	meeting := &types.Meeting{
		Date:      types.NewDate(2024, time.March, 12),
		Type:      types.MeetingBoard,
		CreatedBy: "clerk",
	}
	if err := store.CreateMeeting(ctx, meeting); err != nil {
		t.Fatalf("CreateMeeting on :memory: database failed: %v", err)
	}
	if _, err := store.GetMeeting(ctx, meeting.ID); err != nil {
		t.Errorf("GetMeeting failed: %v", err)
	}
}
