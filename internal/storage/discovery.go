package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// StateDir is the per-project directory holding the database and config.
	StateDir = ".govrec"

	// DefaultDatabasePath is used when nothing else is configured.
	DefaultDatabasePath = StateDir + "/governance.db"

	// EnvDatabasePath overrides discovery entirely.
	EnvDatabasePath = "GOVREC_DB_PATH"
)

// DiscoverDatabase looks for .govrec/*.db in the current directory only.
// Returns the absolute path to the database file, or an error if not found.
// GOVREC_DB_PATH, when set, is returned as-is without discovery.
func DiscoverDatabase() (string, error) {
	if dbPath := os.Getenv(EnvDatabasePath); dbPath != "" {
		return dbPath, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	return discoverDatabaseInDir(dir)
}

// discoverDatabaseInDir checks for .govrec/*.db in the specified directory
// only. Parent directories are never searched, so a nested checkout cannot
// pick up an enclosing project's records.
func discoverDatabaseInDir(dir string) (string, error) {
	stateDir := filepath.Join(dir, StateDir)

	if info, err := os.Stat(stateDir); err == nil && info.IsDir() {
		entries, err := os.ReadDir(stateDir)
		if err == nil {
			for _, entry := range entries {
				if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".db") {
					absPath, err := filepath.Abs(filepath.Join(stateDir, entry.Name()))
					if err != nil {
						return "", fmt.Errorf("failed to get absolute path: %w", err)
					}
					return absPath, nil
				}
			}
		}
	}

	return "", fmt.Errorf(
		"no %s/*.db found in %s\n"+
			"  Run 'govrec init' to create a governance database in this directory\n"+
			"  Or use --db flag to specify database path explicitly",
		StateDir, dir)
}

// InitProject creates a new .govrec directory and returns the path the
// database should be created at. The database itself is created on first
// connection.
func InitProject(projectDir, name string) (string, error) {
	if _, err := os.Stat(projectDir); os.IsNotExist(err) {
		return "", fmt.Errorf("project directory does not exist: %s", projectDir)
	}

	stateDir := filepath.Join(projectDir, StateDir)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", StateDir, err)
	}

	dbName := name
	if dbName == "" {
		dbName = "governance"
	}
	if !strings.HasSuffix(dbName, ".db") {
		dbName += ".db"
	}

	dbPath := filepath.Join(stateDir, dbName)
	if _, err := os.Stat(dbPath); err == nil {
		return "", fmt.Errorf("database already exists: %s", dbPath)
	}

	return dbPath, nil
}
