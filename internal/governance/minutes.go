package governance

import (
	"context"
	"encoding/json"

	"github.com/boardworks/govrec/internal/types"
)

// CreateMinutes starts version 1 (or the next version after a published
// record) of a meeting's minutes in DRAFT.
func (s *Service) CreateMinutes(ctx context.Context, meetingID string, content json.RawMessage, summary, actor string) (*types.Minutes, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	m, err := s.store.CreateMinutes(ctx, meetingID, content, summary, actor)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, types.AuditCreated, types.ObjectMinutes, m.ID, actor, map[string]any{
		"meeting_id": meetingID,
		"version":    m.Version,
	})
	return m, nil
}

// GetMinutes retrieves one minutes version
func (s *Service) GetMinutes(ctx context.Context, id string) (*types.Minutes, error) {
	return s.store.GetMinutes(ctx, id)
}

// GetCurrentMinutes returns a meeting's current minutes version
func (s *Service) GetCurrentMinutes(ctx context.Context, meetingID string) (*types.Minutes, error) {
	return s.store.GetCurrentMinutes(ctx, meetingID)
}

// ListMinutesVersions returns the version history, oldest first
func (s *Service) ListMinutesVersions(ctx context.Context, meetingID string) ([]*types.Minutes, error) {
	return s.store.ListMinutesVersions(ctx, meetingID)
}

// UpdateMinutes edits content or summary of a DRAFT or REVISED version
func (s *Service) UpdateMinutes(ctx context.Context, id string, update types.MinutesUpdate, actor string) (*types.Minutes, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	m, err := s.store.UpdateMinutes(ctx, id, update, actor)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, types.AuditUpdated, types.ObjectMinutes, id, actor, changedFields(map[string]bool{
		"content": len(update.Content) > 0,
		"summary": update.Summary != nil,
	}))
	return m, nil
}

// SubmitMinutes sends a DRAFT or REVISED version for approval
func (s *Service) SubmitMinutes(ctx context.Context, id, actor string) (*types.Minutes, error) {
	return s.transitionMinutes(ctx, id, types.MinutesSubmitted, actor, "")
}

// ApproveMinutes approves a SUBMITTED version, with optional notes
func (s *Service) ApproveMinutes(ctx context.Context, id, actor, notes string) (*types.Minutes, error) {
	return s.transitionMinutes(ctx, id, types.MinutesApproved, actor, notes)
}

// PublishMinutes makes an APPROVED version the public record
func (s *Service) PublishMinutes(ctx context.Context, id, actor string) (*types.Minutes, error) {
	return s.transitionMinutes(ctx, id, types.MinutesPublished, actor, "")
}

// ArchiveMinutes retires a PUBLISHED version
func (s *Service) ArchiveMinutes(ctx context.Context, id, actor string) (*types.Minutes, error) {
	return s.transitionMinutes(ctx, id, types.MinutesArchived, actor, "")
}

func (s *Service) transitionMinutes(ctx context.Context, id string, to types.MinutesStatus, actor, notes string) (*types.Minutes, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	before, err := s.store.GetMinutes(ctx, id)
	if err != nil {
		return nil, err
	}
	m, err := s.store.TransitionMinutes(ctx, id, to, actor, notes)
	if err != nil {
		return nil, err
	}
	metadata := map[string]any{"version": m.Version}
	if notes != "" {
		metadata["notes"] = notes
	}
	s.transitioned(ctx, types.ObjectMinutes, id, actor, before.Status, to, metadata)
	if to == types.MinutesPublished {
		s.audit(ctx, types.AuditPublished, types.ObjectMinutes, id, actor, map[string]any{"version": m.Version})
	}
	return m, nil
}

// RequestRevision returns a SUBMITTED version to its author with review
// notes. The returned minutes are the new REVISED version.
func (s *Service) RequestRevision(ctx context.Context, id, actor, reviewNotes string) (*types.Minutes, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	m, err := s.store.RequestRevision(ctx, id, actor, reviewNotes)
	if err != nil {
		return nil, err
	}
	s.transitioned(ctx, types.ObjectMinutes, id, actor, types.MinutesSubmitted, types.MinutesRevised, map[string]any{
		"superseded_by": m.ID,
	})
	s.audit(ctx, types.AuditRevised, types.ObjectMinutes, m.ID, actor, map[string]any{
		"from_version_id": id,
		"version":         m.Version,
		"review_notes":    reviewNotes,
	})
	return m, nil
}

// CreateMinutesRevision starts a new DRAFT from the meeting's current
// REVISED, PUBLISHED or ARCHIVED version.
func (s *Service) CreateMinutesRevision(ctx context.Context, meetingID, fromVersionID string, content json.RawMessage, actor string) (*types.Minutes, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	m, err := s.store.CreateMinutesRevision(ctx, meetingID, fromVersionID, content, actor)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, types.AuditRevised, types.ObjectMinutes, m.ID, actor, map[string]any{
		"meeting_id":      meetingID,
		"from_version_id": fromVersionID,
		"version":         m.Version,
	})
	return m, nil
}
