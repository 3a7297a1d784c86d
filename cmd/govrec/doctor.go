package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/boardworks/govrec/internal/authz"
	"github.com/boardworks/govrec/internal/config"
	"github.com/boardworks/govrec/internal/storage"
	"github.com/boardworks/govrec/internal/types"
)

// doctorReport collects check outcomes. Critical failures stop the run.
type doctorReport struct {
	verbose  bool
	failures []string
	warnings []string
}

func (r *doctorReport) section(name string) {
	fmt.Printf("%s %s\n", cyan("→"), name)
}

func (r *doctorReport) ok(format string, args ...any) {
	fmt.Printf("  %s %s\n", green("✓"), fmt.Sprintf(format, args...))
}

func (r *doctorReport) warn(msg string, err error) {
	r.warnings = append(r.warnings, msg)
	fmt.Printf("  %s %s\n", yellow("⚠"), msg)
	if r.verbose && err != nil {
		fmt.Printf("    %v\n", err)
	}
}

func (r *doctorReport) fail(msg string, err error) {
	r.failures = append(r.failures, msg)
	fmt.Printf("  %s %s\n", red("✗"), msg)
	if r.verbose && err != nil {
		fmt.Printf("    %v\n", err)
	}
}

func (r *doctorReport) critical(msg string, err error) {
	r.fail(msg, err)
	fmt.Printf("\n%s Critical failure prevents govrec from running\n", red("✗"))
	os.Exit(2)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the governance database and configuration",
	Long: `Run health checks on the governance records.

This command checks for:
- Configuration file and environment validity
- Database discovery and accessibility
- Schema version and SQLite integrity
- Stale or active server locks
- Capability policy validity
- Annotations whose motion or minutes target no longer exists
- Overdue review flags

Exit codes:
  0 - All checks passed
  1 - One or more checks failed (but not critical)
  2 - Critical failures that prevent govrec from running`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		verbose, _ := cmd.Flags().GetBool("verbose")
		r := &doctorReport{verbose: verbose}

		fmt.Printf("Running govrec health checks...\n\n")

		r.section("Configuration")
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			r.critical("Configuration is invalid", err)
		}
		r.ok("Configuration loaded")
		if verbose {
			fmt.Printf("    %s\n", cfg)
		}

		r.section("Database discovery")
		path, err := resolveDatabasePath(dbPath, cfg.DatabasePath)
		if err != nil {
			r.critical("No database found", err)
		}
		r.ok("Using database: %s", path)

		r.section("Database file access")
		info, err := os.Stat(path)
		if err != nil {
			r.critical("Cannot access database file", err)
		}
		r.ok("Database file accessible (%d bytes)", info.Size())
		if walInfo, err := os.Stat(path + "-wal"); err == nil {
			if walInfo.ModTime().Sub(info.ModTime()) > 5*time.Minute {
				r.warn("WAL file significantly newer than main DB (consider PRAGMA wal_checkpoint)", nil)
			} else {
				r.ok("WAL mode active")
			}
		}

		r.section("Server lock")
		checkServerLock(r, path)

		db, err := storage.NewStorage(ctx, &storage.Config{Path: path, BusyTimeout: cfg.BusyTimeout})
		if err != nil {
			r.critical("Cannot open database", err)
		}

		r.section("Schema")
		current, latest, err := db.SchemaVersion(ctx)
		switch {
		case err != nil:
			r.fail("Cannot read schema version", err)
		case current != latest:
			r.fail(fmt.Sprintf("Schema at version %d, this build expects %d", current, latest), nil)
		default:
			r.ok("Schema version %d", current)
		}
		problems, err := db.IntegrityCheck(ctx)
		switch {
		case err != nil:
			r.fail("Integrity check could not run", err)
		case len(problems) > 0:
			r.fail(fmt.Sprintf("Integrity check found %d problem(s)", len(problems)), nil)
			for _, p := range problems {
				fmt.Printf("    %s\n", p)
			}
		default:
			r.ok("Integrity check passed")
		}

		r.section("Capability policy")
		if policy, err := authz.LoadPolicy(cfg.PolicyPath); err != nil {
			r.fail("Policy is invalid", err)
		} else if cfg.PolicyPath == "" {
			r.ok("Using built-in policy (%d roles)", len(policy.Roles))
		} else {
			r.ok("Policy %s (%d roles)", cfg.PolicyPath, len(policy.Roles))
		}

		r.section("Annotation targets")
		orphaned, err := orphanedAnnotations(ctx, db, types.MaxPageLimit)
		if err != nil {
			r.fail("Cannot list annotations", err)
		} else if len(orphaned) > 0 {
			r.warn(fmt.Sprintf("%d annotation(s) point at deleted motions or minutes", len(orphaned)), nil)
			if verbose {
				for _, a := range orphaned {
					fmt.Printf("    %s → %s:%s\n", a.ID, a.TargetType, a.TargetID)
				}
			}
		} else {
			r.ok("All motion and minutes annotations resolve")
		}

		r.section("Review flags")
		overdue, err := db.GetOverdueFlags(ctx, today())
		if err != nil {
			r.fail("Cannot list overdue flags", err)
		} else if len(overdue) > 0 {
			r.warn(fmt.Sprintf("%d review flag(s) overdue (see 'govrec flag overdue')", len(overdue)), nil)
		} else {
			r.ok("No overdue review flags")
		}

		_ = db.Close()

		fmt.Println()
		switch {
		case len(r.failures) > 0:
			fmt.Printf("%s %d check(s) failed, %d warning(s)\n", red("✗"), len(r.failures), len(r.warnings))
			os.Exit(1)
		case len(r.warnings) > 0:
			fmt.Printf("%s All checks passed with %d warning(s)\n", yellow("⚠"), len(r.warnings))
		default:
			fmt.Printf("%s All checks passed\n", green("✓"))
		}
	},
}

// orphanedAnnotations pages through every annotation, published or not, and
// returns those whose motion or minutes target no longer exists.
func orphanedAnnotations(ctx context.Context, db storage.Storage, pageSize int) ([]*types.Annotation, error) {
	var orphaned []*types.Annotation
	page := types.Page{Limit: pageSize}
	for {
		batch, err := db.ListAnnotations(ctx, types.AnnotationFilter{IncludeUnpublished: true, Page: page})
		if err != nil {
			return nil, err
		}
		for _, a := range batch {
			if a.TargetMissing {
				orphaned = append(orphaned, a)
			}
		}
		if len(batch) < page.Limit {
			return orphaned, nil
		}
		page.Offset += len(batch)
	}
}

func checkServerLock(r *doctorReport, path string) {
	data, err := os.ReadFile(storage.LockPath(path))
	if os.IsNotExist(err) {
		r.ok("No server running")
		return
	}
	if err != nil {
		r.warn("Cannot read server lock", err)
		return
	}
	var lock storage.ServerLock
	if err := json.Unmarshal(data, &lock); err != nil {
		r.warn("Server lock is corrupt (it will be replaced by the next 'govrec serve')", err)
		return
	}
	if !lock.IsAlive() {
		r.warn(fmt.Sprintf("Stale server lock from PID %d (it will be replaced by the next 'govrec serve')", lock.PID), nil)
		return
	}
	r.ok("Server PID %d on %s listening on %s since %s",
		lock.PID, lock.Hostname, lock.ListenAddr, lock.StartedAt.Local().Format("2006-01-02 15:04"))
}

func init() {
	doctorCmd.Flags().BoolP("verbose", "v", false, "Show details for each check")
	rootCmd.AddCommand(doctorCmd)
}
