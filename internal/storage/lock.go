package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"
)

// ServerLock is the lock file written next to the database while
// `govrec serve` is running, so a second server cannot be started against
// the same records.
type ServerLock struct {
	Holder     string    `json:"holder"`
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname"`
	ListenAddr string    `json:"listen_addr"`
	StartedAt  time.Time `json:"started_at"`
}

// IsAlive reports whether the holder may still be running. Holders on
// other hosts cannot be checked and count as alive.
func (l *ServerLock) IsAlive() bool {
	return isProcessAlive(l.PID, l.Hostname)
}

// LockPath returns the server lock file for a database path.
func LockPath(dbPath string) string {
	return dbPath + ".serve-lock"
}

// AcquireServerLock claims dbPath for this process. A lock left behind by a
// process that no longer exists is replaced. In-memory databases are never
// locked and return an empty path.
// Returns the lock file path for cleanup on shutdown.
func AcquireServerLock(dbPath, listenAddr string) (lockPath string, err error) {
	if dbPath == "" || dbPath == ":memory:" {
		return "", nil
	}
	lockPath = LockPath(dbPath)

	if data, err := os.ReadFile(lockPath); err == nil {
		var existing ServerLock
		if json.Unmarshal(data, &existing) == nil {
			if existing.IsAlive() {
				return "", fmt.Errorf("another govrec server is already using %s (PID %d on %s, listening on %s since %s)",
					dbPath, existing.PID, existing.Hostname, existing.ListenAddr, existing.StartedAt.Format(time.RFC3339))
			}
			// Stale lock - will overwrite
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("failed to get hostname: %w", err)
	}

	data, err := json.MarshalIndent(ServerLock{
		Holder:     "govrec-serve",
		PID:        os.Getpid(),
		Hostname:   hostname,
		ListenAddr: listenAddr,
		StartedAt:  time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal lock: %w", err)
	}

	if err := os.WriteFile(lockPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to create server lock: %w", err)
	}
	return lockPath, nil
}

// ReleaseServerLock removes the lock file. Safe to call with an empty path.
func ReleaseServerLock(lockPath string) error {
	if lockPath == "" {
		return nil
	}
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove server lock: %w", err)
	}
	return nil
}

// isProcessAlive checks if a process with the given PID exists on hostname.
// Processes on other hosts cannot be checked and are assumed alive.
func isProcessAlive(pid int, hostname string) bool {
	currentHost, err := os.Hostname()
	if err != nil {
		return true
	}
	if !strings.EqualFold(hostname, currentHost) {
		return true
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Signal 0 checks for existence without delivering anything
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	// EPERM: the process exists but belongs to someone else
	return err == syscall.EPERM
}
