package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeLock(t *testing.T, path string, lock ServerLock) {
	t.Helper()
	data, err := json.Marshal(lock)
	if err != nil {
		t.Fatalf("marshal lock: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write lock: %v", err)
	}
}

func TestAcquireAndReleaseServerLock(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "governance.db")

	lockPath, err := AcquireServerLock(dbPath, "127.0.0.1:8080")
	if err != nil {
		t.Fatalf("AcquireServerLock failed: %v", err)
	}
	if lockPath != LockPath(dbPath) {
		t.Errorf("lock path = %s, want %s", lockPath, LockPath(dbPath))
	}

	data, err := os.ReadFile(lockPath)
	if err != nil {
		t.Fatalf("lock file not written: %v", err)
	}
	var lock ServerLock
	if err := json.Unmarshal(data, &lock); err != nil {
		t.Fatalf("lock file is not JSON: %v", err)
	}
	if lock.PID != os.Getpid() || lock.ListenAddr != "127.0.0.1:8080" {
		t.Errorf("unexpected lock contents: %+v", lock)
	}

	// Our own process is alive, so a second acquire must fail
	if _, err := AcquireServerLock(dbPath, "127.0.0.1:9090"); err == nil {
		t.Fatal("expected second AcquireServerLock to fail")
	} else if !strings.Contains(err.Error(), "already using") {
		t.Errorf("unexpected error: %v", err)
	}

	if err := ReleaseServerLock(lockPath); err != nil {
		t.Fatalf("ReleaseServerLock failed: %v", err)
	}
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Errorf("lock file still present after release")
	}
	if err := ReleaseServerLock(lockPath); err != nil {
		t.Errorf("second release should be a no-op, got %v", err)
	}
}

func TestAcquireServerLockReplacesStaleLock(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "governance.db")
	hostname, err := os.Hostname()
	if err != nil {
		t.Skipf("no hostname: %v", err)
	}
	writeLock(t, LockPath(dbPath), ServerLock{
		Holder:    "govrec-serve",
		PID:       1<<31 - 1,
		Hostname:  hostname,
		StartedAt: time.Now().Add(-time.Hour),
	})

	lockPath, err := AcquireServerLock(dbPath, "127.0.0.1:8080")
	if err != nil {
		t.Fatalf("stale lock should be replaced, got %v", err)
	}
	defer func() { _ = ReleaseServerLock(lockPath) }()
}

func TestAcquireServerLockRespectsRemoteHolder(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "governance.db")
	writeLock(t, LockPath(dbPath), ServerLock{
		Holder:   "govrec-serve",
		PID:      1<<31 - 1,
		Hostname: "some-other-host.invalid",
	})

	if _, err := AcquireServerLock(dbPath, "127.0.0.1:8080"); err == nil {
		t.Fatal("a lock held on another host cannot be verified and must be respected")
	}
}

func TestInMemoryDatabaseIsNotLocked(t *testing.T) {
	lockPath, err := AcquireServerLock(":memory:", "127.0.0.1:8080")
	if err != nil {
		t.Fatalf("AcquireServerLock(:memory:) failed: %v", err)
	}
	if lockPath != "" {
		t.Errorf("expected no lock file for :memory:, got %s", lockPath)
	}
}
