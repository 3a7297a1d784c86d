// Package governance exposes the board governance operations: meetings,
// minutes workflow, motions, annotations and review flags.
//
// Every invariant is enforced by the storage layer inside its transactions.
// The Service adds what sits around them: the acting user, audit entries
// recorded after commit, transition metrics and soft-integrity logging.
package governance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/boardworks/govrec/internal/goverr"
	"github.com/boardworks/govrec/internal/metrics"
	"github.com/boardworks/govrec/internal/storage"
	"github.com/boardworks/govrec/internal/types"
)

// Auditor receives one entry per successful mutation. The storage backend
// implements it with its audit_log table; an embedding application can
// supply its own.
type Auditor interface {
	RecordAudit(ctx context.Context, entry *types.AuditEntry) error
}

// Config holds the Service's collaborators
type Config struct {
	Store storage.Storage

	// Auditor defaults to Store.
	Auditor Auditor

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics may be nil.
	Metrics *metrics.Metrics
}

// Service implements the governance operations on top of a Storage
type Service struct {
	store   storage.Storage
	auditor Auditor
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a Service
func New(cfg *Config) (*Service, error) {
	if cfg == nil || cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	s := &Service{
		store:   cfg.Store,
		auditor: cfg.Auditor,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
	if s.auditor == nil {
		s.auditor = cfg.Store
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// ListAudit returns recorded audit entries, newest first.
func (s *Service) ListAudit(ctx context.Context, filter types.AuditFilter) ([]*types.AuditEntry, error) {
	return s.store.ListAudit(ctx, filter)
}

// audit records an entry for a committed mutation. Failures never undo or
// fail the mutation; they are logged and counted.
func (s *Service) audit(ctx context.Context, action types.AuditAction, objectType, objectID, actor string, metadata map[string]any) {
	entry := &types.AuditEntry{
		Action:     action,
		ObjectType: objectType,
		ObjectID:   objectID,
		ActorID:    actor,
		Metadata:   metadata,
	}
	if err := s.auditor.RecordAudit(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Error("failed to record audit entry",
			"action", action,
			"object_type", objectType,
			"object_id", objectID,
			"actor", actor,
			"error", err)
		s.metrics.AuditFailed()
	}
}

func (s *Service) transitioned(ctx context.Context, objectType, objectID, actor string, from, to fmt.Stringer, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["from"] = from.String()
	metadata["to"] = to.String()
	s.metrics.ObserveTransition(objectType, to.String())
	s.audit(ctx, types.AuditTransition, objectType, objectID, actor, metadata)
}

func requireActor(actor string) error {
	if strings.TrimSpace(actor) == "" {
		return goverr.BadRequest("actor is required")
	}
	return nil
}
