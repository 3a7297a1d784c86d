package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boardworks/govrec/internal/goverr"
	"github.com/boardworks/govrec/internal/types"
)

func TestCreateMeetingUniquePerDateAndType(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	date := types.NewDate(2024, time.March, 12)
	first := &types.Meeting{Date: date, Type: types.MeetingBoard, CreatedBy: "secretary"}
	if err := store.CreateMeeting(ctx, first); err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}
	if first.ID == "" {
		t.Fatal("Expected meeting ID to be assigned")
	}

	dup := &types.Meeting{Date: date, Type: types.MeetingBoard, CreatedBy: "secretary"}
	assertKind(t, store.CreateMeeting(ctx, dup), goverr.KindConflict)

	// Same date, different type is a different meeting
	exec := &types.Meeting{Date: date, Type: types.MeetingExecutive, CreatedBy: "secretary"}
	if err := store.CreateMeeting(ctx, exec); err != nil {
		t.Fatalf("CreateMeeting for a second type failed: %v", err)
	}
}

func TestCreateMeetingValidation(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		meeting *types.Meeting
	}{
		{"missing date", &types.Meeting{Type: types.MeetingBoard, CreatedBy: "a"}},
		{"bad type", &types.Meeting{Date: types.NewDate(2024, 1, 1), Type: "WEEKLY", CreatedBy: "a"}},
		{"negative attendance", &types.Meeting{Date: types.NewDate(2024, 1, 1), Type: types.MeetingBoard, AttendanceCount: -1, CreatedBy: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertKind(t, store.CreateMeeting(ctx, tt.meeting), goverr.KindBadRequest)
		})
	}
}

func TestGetMeetingNotFound(t *testing.T) {
	store := setupTestDB(t)
	_, err := store.GetMeeting(context.Background(), "missing")
	assertKind(t, err, goverr.KindNotFound)
}

func TestUpdateMeeting(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	meeting := createTestMeeting(t, store)

	attendance := 9
	quorum := true
	location := "Community hall"
	updated, err := store.UpdateMeeting(ctx, meeting.ID, types.MeetingUpdate{
		AttendanceCount: &attendance,
		QuorumMet:       &quorum,
		Location:        &location,
	})
	if err != nil {
		t.Fatalf("UpdateMeeting failed: %v", err)
	}
	if updated.AttendanceCount != 9 || !updated.QuorumMet || updated.Location != location {
		t.Errorf("Update not applied: %+v", updated)
	}
	if updated.Title != meeting.Title {
		t.Errorf("Unset fields must be preserved, title changed to %q", updated.Title)
	}

	got, err := store.GetMeeting(ctx, meeting.ID)
	if err != nil {
		t.Fatalf("GetMeeting failed: %v", err)
	}
	if got.AttendanceCount != 9 || !got.QuorumMet {
		t.Errorf("Update not persisted: %+v", got)
	}
	if got.Date.String() != meeting.Date.String() || got.Type != meeting.Type {
		t.Errorf("Identity fields changed: %s %s", got.Date, got.Type)
	}

	_, err = store.UpdateMeeting(ctx, meeting.ID, types.MeetingUpdate{})
	assertKind(t, err, goverr.KindBadRequest)

	_, err = store.UpdateMeeting(ctx, "missing", types.MeetingUpdate{Location: &location})
	assertKind(t, err, goverr.KindNotFound)
}

func TestListMeetings(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	march := &types.Meeting{Date: types.NewDate(2024, time.March, 1), Type: types.MeetingBoard, CreatedBy: "s"}
	april := &types.Meeting{Date: types.NewDate(2024, time.April, 1), Type: types.MeetingBoard, CreatedBy: "s"}
	special := &types.Meeting{Date: types.NewDate(2024, time.April, 15), Type: types.MeetingSpecial, CreatedBy: "s"}
	for _, m := range []*types.Meeting{march, april, special} {
		if err := store.CreateMeeting(ctx, m); err != nil {
			t.Fatalf("CreateMeeting failed: %v", err)
		}
	}

	if _, err := store.CreateMinutes(ctx, april.ID, nil, "", "s"); err != nil {
		t.Fatalf("CreateMinutes failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := store.CreateMotion(ctx, &types.Motion{MeetingID: april.ID, MotionText: "Approve", CreatedBy: "s"}); err != nil {
			t.Fatalf("CreateMotion failed: %v", err)
		}
	}

	all, err := store.ListMeetings(ctx, types.MeetingFilter{})
	if err != nil {
		t.Fatalf("ListMeetings failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 meetings, got %d", len(all))
	}
	if all[0].ID != special.ID || all[2].ID != march.ID {
		t.Errorf("Expected newest first, got %s, %s, %s", all[0].Date, all[1].Date, all[2].Date)
	}

	aprilItem := all[1]
	if aprilItem.MotionCount != 2 {
		t.Errorf("Expected 2 motions, got %d", aprilItem.MotionCount)
	}
	if aprilItem.LatestMinutes == nil || aprilItem.LatestMinutes.Version != 1 || aprilItem.LatestMinutes.Status != types.MinutesDraft {
		t.Errorf("Expected latest minutes v1 DRAFT, got %+v", aprilItem.LatestMinutes)
	}
	if all[2].LatestMinutes != nil {
		t.Errorf("Expected no minutes for March meeting, got %+v", all[2].LatestMinutes)
	}

	boardType := types.MeetingBoard
	board, err := store.ListMeetings(ctx, types.MeetingFilter{Type: &boardType})
	if err != nil {
		t.Fatalf("ListMeetings by type failed: %v", err)
	}
	if len(board) != 2 {
		t.Errorf("Expected 2 board meetings, got %d", len(board))
	}

	ranged, err := store.ListMeetings(ctx, types.MeetingFilter{
		From: types.NewDate(2024, time.April, 1),
		To:   types.NewDate(2024, time.April, 10),
	})
	if err != nil {
		t.Fatalf("ListMeetings by range failed: %v", err)
	}
	if len(ranged) != 1 || ranged[0].ID != april.ID {
		t.Errorf("Expected only the April 1 meeting in range, got %d results", len(ranged))
	}

	paged, err := store.ListMeetings(ctx, types.MeetingFilter{Page: types.Page{Limit: 1, Offset: 1}})
	if err != nil {
		t.Fatalf("ListMeetings with page failed: %v", err)
	}
	if len(paged) != 1 || paged[0].ID != april.ID {
		t.Errorf("Expected second page to hold the April 1 meeting")
	}
}

func TestDeleteMeetingBlockedByChildren(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	empty := createTestMeeting(t, store)
	if err := store.DeleteMeeting(ctx, empty.ID); err != nil {
		t.Fatalf("DeleteMeeting on empty meeting failed: %v", err)
	}
	_, err := store.GetMeeting(ctx, empty.ID)
	assertKind(t, err, goverr.KindNotFound)

	busy := createTestMeeting(t, store)
	if _, err := store.CreateMinutes(ctx, busy.ID, nil, "", "s"); err != nil {
		t.Fatalf("CreateMinutes failed: %v", err)
	}
	if err := store.CreateMotion(ctx, &types.Motion{MeetingID: busy.ID, MotionText: "Adjourn", CreatedBy: "s"}); err != nil {
		t.Fatalf("CreateMotion failed: %v", err)
	}

	err = store.DeleteMeeting(ctx, busy.ID)
	assertKind(t, err, goverr.KindConflict)
	var gerr *goverr.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("Expected *goverr.Error, got %T", err)
	}
	if gerr.Details["minutes"] != 1 || gerr.Details["motions"] != 1 {
		t.Errorf("Expected blocking counts minutes=1 motions=1, got %v", gerr.Details)
	}

	assertKind(t, store.DeleteMeeting(ctx, "missing"), goverr.KindNotFound)
}
