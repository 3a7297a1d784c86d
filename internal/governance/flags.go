package governance

import (
	"context"

	"github.com/boardworks/govrec/internal/types"
)

// CreateFlag raises an OPEN review flag against a target
func (s *Service) CreateFlag(ctx context.Context, input *types.ReviewFlag, actor string) (*types.ReviewFlag, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	f := *input
	f.CreatedBy = actor
	if err := s.store.CreateFlag(ctx, &f); err != nil {
		return nil, err
	}
	s.audit(ctx, types.AuditCreated, types.ObjectReviewFlag, f.ID, actor, map[string]any{
		"target_type": string(f.TargetType),
		"target_id":   f.TargetID,
		"flag_type":   string(f.FlagType),
	})
	return &f, nil
}

// GetFlag retrieves a review flag
func (s *Service) GetFlag(ctx context.Context, id string) (*types.ReviewFlag, error) {
	return s.store.GetFlag(ctx, id)
}

// ListFlags lists review flags matching filter
func (s *Service) ListFlags(ctx context.Context, filter types.FlagFilter) ([]*types.ReviewFlag, error) {
	return s.store.ListFlags(ctx, filter)
}

// UpdateFlag edits an OPEN or IN_PROGRESS flag and optionally moves it
// along its workflow.
func (s *Service) UpdateFlag(ctx context.Context, id string, update types.FlagUpdate, actor string) (*types.ReviewFlag, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var from types.FlagStatus
	if update.Status != nil {
		before, err := s.store.GetFlag(ctx, id)
		if err != nil {
			return nil, err
		}
		from = before.Status
	}
	f, err := s.store.UpdateFlag(ctx, id, update, actor)
	if err != nil {
		return nil, err
	}
	if update.HasContentChanges() {
		s.audit(ctx, types.AuditUpdated, types.ObjectReviewFlag, id, actor, changedFields(map[string]bool{
			"title":    update.Title != nil,
			"notes":    update.Notes != nil,
			"due_date": update.DueDate != nil || update.ClearDueDate,
		}))
	}
	if update.Status != nil && from != f.Status {
		s.transitioned(ctx, types.ObjectReviewFlag, id, actor, from, f.Status, nil)
	}
	return f, nil
}

// StartFlag moves an OPEN flag to IN_PROGRESS
func (s *Service) StartFlag(ctx context.Context, id, actor string) (*types.ReviewFlag, error) {
	return s.transitionFlag(ctx, id, types.FlagInProgress, "", actor)
}

// ResolveFlag closes an IN_PROGRESS flag with a resolution
func (s *Service) ResolveFlag(ctx context.Context, id, resolution, actor string) (*types.ReviewFlag, error) {
	return s.transitionFlag(ctx, id, types.FlagResolved, resolution, actor)
}

// DismissFlag closes an IN_PROGRESS flag as not requiring action
func (s *Service) DismissFlag(ctx context.Context, id, resolution, actor string) (*types.ReviewFlag, error) {
	return s.transitionFlag(ctx, id, types.FlagDismissed, resolution, actor)
}

// ReopenFlag returns a RESOLVED or DISMISSED flag to OPEN
func (s *Service) ReopenFlag(ctx context.Context, id, actor string) (*types.ReviewFlag, error) {
	return s.transitionFlag(ctx, id, types.FlagOpen, "", actor)
}

func (s *Service) transitionFlag(ctx context.Context, id string, to types.FlagStatus, resolution, actor string) (*types.ReviewFlag, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	before, err := s.store.GetFlag(ctx, id)
	if err != nil {
		return nil, err
	}
	f, err := s.store.TransitionFlag(ctx, id, to, resolution, actor)
	if err != nil {
		return nil, err
	}
	var metadata map[string]any
	if f.Resolution != "" {
		metadata = map[string]any{"resolution": f.Resolution}
	}
	s.transitioned(ctx, types.ObjectReviewFlag, id, actor, before.Status, to, metadata)
	return f, nil
}

// DeleteFlag removes a flag that is still OPEN
func (s *Service) DeleteFlag(ctx context.Context, id, actor string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if err := s.store.DeleteFlag(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, types.AuditDeleted, types.ObjectReviewFlag, id, actor, nil)
	return nil
}

// GetOverdueFlags returns unresolved flags due before today
func (s *Service) GetOverdueFlags(ctx context.Context, today types.Date) ([]*types.ReviewFlag, error) {
	return s.store.GetOverdueFlags(ctx, today)
}
