// Package monitor runs periodic checks against the governance records while
// the API server is up.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/boardworks/govrec/internal/metrics"
	"github.com/boardworks/govrec/internal/types"
)

// DefaultOverdueInterval is how often overdue review flags are checked.
const DefaultOverdueInterval = time.Hour

// FlagSource lists review flags past their due date.
type FlagSource interface {
	GetOverdueFlags(ctx context.Context, today types.Date) ([]*types.ReviewFlag, error)
}

// OverdueConfig holds the OverdueMonitor's collaborators
type OverdueConfig struct {
	Source  FlagSource
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// Interval between checks. Zero means DefaultOverdueInterval.
	Interval time.Duration

	// Now is the clock used to decide "today". Defaults to time.Now.
	Now func() time.Time
}

// OverdueMonitor logs review flags that are past due and publishes their
// count as a gauge.
type OverdueMonitor struct {
	source   FlagSource
	logger   *slog.Logger
	metrics  *metrics.Metrics
	interval time.Duration
	now      func() time.Time
}

// NewOverdueMonitor creates a monitor. Source is required.
func NewOverdueMonitor(cfg *OverdueConfig) (*OverdueMonitor, error) {
	if cfg == nil || cfg.Source == nil {
		return nil, fmt.Errorf("flag source is required")
	}
	if cfg.Interval < 0 {
		return nil, fmt.Errorf("interval must be non-negative (got %v)", cfg.Interval)
	}
	m := &OverdueMonitor{
		source:   cfg.Source,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		interval: cfg.Interval,
		now:      cfg.Now,
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("component", "overdue-monitor")
	if m.interval == 0 {
		m.interval = DefaultOverdueInterval
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// Run checks immediately, then once per interval until ctx is done. Check
// errors are logged and do not stop the loop. Always returns nil.
func (m *OverdueMonitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("overdue monitor started", "interval", m.interval)
	if _, err := m.Check(ctx); err != nil {
		m.logger.Error("overdue check failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := m.Check(ctx); err != nil && ctx.Err() == nil {
				m.logger.Error("overdue check failed", "error", err)
			}
		}
	}
}

// Check runs one pass and returns the overdue flags it found.
func (m *OverdueMonitor) Check(ctx context.Context) ([]*types.ReviewFlag, error) {
	today := types.DateOf(m.now())
	flags, err := m.source.GetOverdueFlags(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("listing overdue flags: %w", err)
	}

	m.metrics.SetOverdueFlags(len(flags))
	for _, f := range flags {
		m.logger.Warn("review flag overdue",
			"flag_id", f.ID,
			"flag_type", f.FlagType,
			"target", types.Target{Type: f.TargetType, ID: f.TargetID}.String(),
			"due_date", f.DueDate.String(),
			"status", f.Status,
		)
	}
	return flags, nil
}
