package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boardworks/govrec/internal/config"
	"github.com/boardworks/govrec/internal/governance"
	"github.com/boardworks/govrec/internal/metrics"
	"github.com/boardworks/govrec/internal/storage"
)

var (
	dbPath     string
	actorFlag  string
	configPath string
	jsonOutput bool

	cfg        *config.Config
	logger     *slog.Logger
	store      storage.Storage
	storePath  string
	svc        *governance.Service
	appMetrics *metrics.Metrics
)

var rootCmd = &cobra.Command{
	Use:   "govrec",
	Short: "Board governance records: meetings, minutes, motions and review flags",
	Long: `govrec keeps the official record of a board: meetings, versioned minutes
with an approval workflow, numbered motions with votes, annotations on
governance documents, and compliance review flags.

Every change is attributed to an actor (--actor, GOVREC_ACTOR or $USER) and
written to the audit log.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// init creates the database, doctor opens it step by step, help
		// needs nothing
		switch cmd.Name() {
		case "init", "doctor", "help":
			return
		}
		if err := openStore(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			_ = store.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: discover .govrec/*.db)")
	rootCmd.PersistentFlags().StringVar(&actorFlag, "actor", "", "Actor recorded in the audit log (default: $GOVREC_ACTOR or $USER)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: "+config.DefaultConfigPath+")")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
}

// openStore loads configuration, then opens the database and builds the
// service the subcommands use.
func openStore(ctx context.Context) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	logger = cfg.Logging.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	storePath, err = resolveDatabasePath(dbPath, cfg.DatabasePath)
	if err != nil {
		return err
	}
	store, err = storage.NewStorage(ctx, &storage.Config{Path: storePath, BusyTimeout: cfg.BusyTimeout})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	appMetrics = metrics.New()
	svc, err = governance.New(&governance.Config{
		Store:   store,
		Logger:  logger,
		Metrics: appMetrics,
	})
	return err
}

// resolveDatabasePath prefers the --db flag, then configuration (which
// includes GOVREC_DB_PATH), then discovery in the working directory.
func resolveDatabasePath(flag, configured string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if configured != "" {
		return configured, nil
	}
	return storage.DiscoverDatabase()
}

// currentActor is the --actor flag, then GOVREC_ACTOR, then the OS user.
func currentActor() string {
	if a := strings.TrimSpace(actorFlag); a != "" {
		return a
	}
	if a := strings.TrimSpace(os.Getenv("GOVREC_ACTOR")); a != "" {
		return a
	}
	if a := os.Getenv("USER"); a != "" {
		return a
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
