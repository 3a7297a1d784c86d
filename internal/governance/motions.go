package governance

import (
	"context"

	"github.com/boardworks/govrec/internal/types"
)

// CreateMotion records a motion in a meeting and assigns its number
func (s *Service) CreateMotion(ctx context.Context, meetingID string, input *types.Motion, actor string) (*types.Motion, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	motion := *input
	motion.MeetingID = meetingID
	motion.CreatedBy = actor
	if err := s.store.CreateMotion(ctx, &motion); err != nil {
		return nil, err
	}
	s.audit(ctx, types.AuditCreated, types.ObjectMotion, motion.ID, actor, map[string]any{
		"meeting_id":    meetingID,
		"motion_number": motion.MotionNumber,
	})
	return &motion, nil
}

// GetMotion retrieves a motion
func (s *Service) GetMotion(ctx context.Context, id string) (*types.Motion, error) {
	return s.store.GetMotion(ctx, id)
}

// ListMotions lists a meeting's motions by number
func (s *Service) ListMotions(ctx context.Context, meetingID string) ([]*types.Motion, error) {
	return s.store.ListMotions(ctx, meetingID)
}

// UpdateMotion edits text, mover or seconder, or withdraws the motion
func (s *Service) UpdateMotion(ctx context.Context, id string, update types.MotionUpdate, actor string) (*types.Motion, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	motion, err := s.store.UpdateMotion(ctx, id, update)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, types.AuditUpdated, types.ObjectMotion, id, actor, changedFields(map[string]bool{
		"motion_text": update.MotionText != nil,
		"moved_by":    update.MovedBy != nil,
		"seconded_by": update.SecondedBy != nil,
		"result":      update.Result != nil,
	}))
	return motion, nil
}

// RecordVote records the tallies and outcome of a motion
func (s *Service) RecordVote(ctx context.Context, id string, vote types.Vote, actor string) (*types.Motion, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	motion, err := s.store.RecordVote(ctx, id, vote)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, types.AuditVoted, types.ObjectMotion, id, actor, map[string]any{
		"votes_yes":     vote.Yes,
		"votes_no":      vote.No,
		"votes_abstain": vote.Abstain,
		"result":        string(vote.Result),
	})
	return motion, nil
}

// DeleteMotion removes a motion that has not been voted on
func (s *Service) DeleteMotion(ctx context.Context, id, actor string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if err := s.store.DeleteMotion(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, types.AuditDeleted, types.ObjectMotion, id, actor, nil)
	return nil
}

// GetMeetingMotionStats counts a meeting's motions by outcome
func (s *Service) GetMeetingMotionStats(ctx context.Context, meetingID string) (*types.MotionStats, error) {
	return s.store.GetMeetingMotionStats(ctx, meetingID)
}
