package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/boardworks/govrec/internal/authz"
	"github.com/boardworks/govrec/internal/config"
	"github.com/boardworks/govrec/internal/storage"
)

var initWritePolicy bool

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Create a governance database in the current directory",
	Long: `Create a .govrec/ directory holding a SQLite governance database and a
starter config file.

This creates:
  - .govrec/<name>.db (default: governance.db)
  - .govrec/config.yaml
  - .govrec/policy.yaml (with --policy)

Example:
  cd ~/board-records
  govrec init
  govrec init --policy`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := ""
		if len(args) > 0 {
			name = args[0]
		}

		cwd, err := os.Getwd()
		if err != nil {
			fail(fmt.Errorf("failed to get current directory: %w", err))
		}

		path, err := storage.InitProject(cwd, name)
		if err != nil {
			fail(err)
		}

		// Opening the database applies the schema
		db, err := storage.NewStorage(cmd.Context(), &storage.Config{Path: path})
		if err != nil {
			fail(fmt.Errorf("failed to initialize database: %w", err))
		}
		_ = db.Close()

		stateDir := filepath.Dir(path)
		starter := config.Default()
		if initWritePolicy {
			starter.PolicyPath = filepath.Join(stateDir, "policy.yaml")
			data, err := authz.DefaultPolicy().Marshal()
			if err != nil {
				fail(err)
			}
			if err := os.WriteFile(starter.PolicyPath, data, 0644); err != nil {
				fail(fmt.Errorf("failed to write policy: %w", err))
			}
		}
		configFile := filepath.Join(stateDir, "config.yaml")
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			if err := writeStarterConfig(configFile, starter); err != nil {
				fail(err)
			}
		}

		fmt.Printf("\n%s Initialized governance records\n\n", green("✓"))
		fmt.Printf("  Database: %s\n", cyan(path))
		fmt.Printf("  Config:   %s\n", cyan(configFile))
		if initWritePolicy {
			fmt.Printf("  Policy:   %s\n", cyan(starter.PolicyPath))
		}
		fmt.Println()
		fmt.Printf("%s Next steps:\n", gray("→"))
		fmt.Printf("  %s\n", gray("govrec meeting create --date 2024-05-14 --type BOARD"))
		fmt.Printf("  %s\n", gray("govrec serve"))
		fmt.Println()
	},
}

// starterConfig is the subset of config.Config written by init. Durations
// are written as strings so the file stays hand-editable.
type starterConfig struct {
	BusyTimeout     string         `yaml:"busy_timeout"`
	ListenAddr      string         `yaml:"listen_addr"`
	RateLimit       float64        `yaml:"rate_limit"`
	RateBurst       int            `yaml:"rate_burst"`
	OverdueInterval string         `yaml:"overdue_interval"`
	PolicyPath      string         `yaml:"policy_path,omitempty"`
	Logging         config.Logging `yaml:"logging"`
}

func writeStarterConfig(path string, c *config.Config) error {
	data, err := yaml.Marshal(starterConfig{
		BusyTimeout:     c.BusyTimeout.String(),
		ListenAddr:      c.ListenAddr,
		RateLimit:       c.RateLimit,
		RateBurst:       c.RateBurst,
		OverdueInterval: c.OverdueInterval.String(),
		PolicyPath:      c.PolicyPath,
		Logging:         c.Logging,
	})
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func init() {
	initCmd.Flags().BoolVar(&initWritePolicy, "policy", false, "Also write the default capability policy for editing")
	rootCmd.AddCommand(initCmd)
}
