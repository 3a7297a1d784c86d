package governance

import (
	"context"
	"maps"
	"slices"

	"github.com/boardworks/govrec/internal/types"
)

// CreateMeeting records a new meeting created by actor
func (s *Service) CreateMeeting(ctx context.Context, input *types.Meeting, actor string) (*types.Meeting, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	meeting := *input
	meeting.CreatedBy = actor
	if err := s.store.CreateMeeting(ctx, &meeting); err != nil {
		return nil, err
	}
	s.audit(ctx, types.AuditCreated, types.ObjectMeeting, meeting.ID, actor, map[string]any{
		"date": meeting.Date.String(),
		"type": string(meeting.Type),
	})
	return &meeting, nil
}

// GetMeeting retrieves a meeting
func (s *Service) GetMeeting(ctx context.Context, id string) (*types.Meeting, error) {
	return s.store.GetMeeting(ctx, id)
}

// ListMeetings lists meetings with their current minutes and motion counts
func (s *Service) ListMeetings(ctx context.Context, filter types.MeetingFilter) ([]*types.MeetingListItem, error) {
	return s.store.ListMeetings(ctx, filter)
}

// UpdateMeeting edits title, location, attendance or quorum
func (s *Service) UpdateMeeting(ctx context.Context, id string, update types.MeetingUpdate, actor string) (*types.Meeting, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	meeting, err := s.store.UpdateMeeting(ctx, id, update)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, types.AuditUpdated, types.ObjectMeeting, id, actor, changedFields(map[string]bool{
		"title":            update.Title != nil,
		"location":         update.Location != nil,
		"attendance_count": update.AttendanceCount != nil,
		"quorum_met":       update.QuorumMet != nil,
	}))
	return meeting, nil
}

// DeleteMeeting removes a meeting with no minutes or motions
func (s *Service) DeleteMeeting(ctx context.Context, id, actor string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if err := s.store.DeleteMeeting(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, types.AuditDeleted, types.ObjectMeeting, id, actor, nil)
	return nil
}

// changedFields turns a set of field flags into audit metadata.
func changedFields(fields map[string]bool) map[string]any {
	var changed []string
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		if fields[name] {
			changed = append(changed, name)
		}
	}
	return map[string]any{"fields": changed}
}
