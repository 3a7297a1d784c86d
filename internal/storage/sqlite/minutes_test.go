package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/boardworks/govrec/internal/goverr"
	"github.com/boardworks/govrec/internal/types"
)

func transition(t *testing.T, store *SQLiteStorage, id string, to types.MinutesStatus) *types.Minutes {
	t.Helper()
	m, err := store.TransitionMinutes(context.Background(), id, to, "clerk", "notes for "+string(to))
	if err != nil {
		t.Fatalf("Transition to %s failed: %v", to, err)
	}
	return m
}

// minutesInState drives a fresh minutes version through the workflow until
// it reaches status.
func minutesInState(t *testing.T, store *SQLiteStorage, status types.MinutesStatus) *types.Minutes {
	t.Helper()
	meeting := createTestMeeting(t, store)

	m, err := store.CreateMinutes(context.Background(), meeting.ID, json.RawMessage(`{"body":"draft"}`), "", "clerk")
	if err != nil {
		t.Fatalf("CreateMinutes failed: %v", err)
	}
	switch status {
	case types.MinutesDraft:
		return m
	case types.MinutesRevised:
		m = transition(t, store, m.ID, types.MinutesSubmitted)
		return transition(t, store, m.ID, types.MinutesRevised)
	}

	for _, next := range []types.MinutesStatus{
		types.MinutesSubmitted, types.MinutesApproved, types.MinutesPublished, types.MinutesArchived,
	} {
		m = transition(t, store, m.ID, next)
		if next == status {
			return m
		}
	}
	t.Fatalf("unreachable status %s", status)
	return nil
}

// stampFor returns the timestamp an edge into status sets.
func stampFor(m *types.Minutes, status types.MinutesStatus) *time.Time {
	switch status {
	case types.MinutesSubmitted:
		return m.SubmittedAt
	case types.MinutesApproved:
		return m.ApprovedAt
	case types.MinutesRevised:
		return m.RevisedAt
	case types.MinutesPublished:
		return m.PublishedAt
	case types.MinutesArchived:
		return m.ArchivedAt
	}
	return nil
}

func TestMinutesTransitionTable(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	for _, from := range types.AllMinutesStatuses {
		for _, to := range types.AllMinutesStatuses {
			t.Run(fmt.Sprintf("%s_to_%s", from, to), func(t *testing.T) {
				m := minutesInState(t, store, from)
				if m.Status != from {
					t.Fatalf("Setup reached %s, wanted %s", m.Status, from)
				}

				moved, err := store.TransitionMinutes(ctx, m.ID, to, "clerk", "review notes")
				if types.CanTransitionMinutes(from, to) {
					if err != nil {
						t.Fatalf("Expected %s -> %s to succeed, got %v", from, to, err)
					}
					if moved.Status != to {
						t.Errorf("Expected status %s, got %s", to, moved.Status)
					}
					if stampFor(moved, to) == nil {
						t.Errorf("Expected %s -> %s to set its timestamp", from, to)
					}
					return
				}
				assertKind(t, err, goverr.KindInvalidTransition)

				unchanged, err := store.GetMinutes(ctx, m.ID)
				if err != nil {
					t.Fatalf("GetMinutes failed: %v", err)
				}
				if unchanged.Status != from {
					t.Errorf("Rejected transition changed status to %s", unchanged.Status)
				}
			})
		}
	}
}

func TestMinutesWorkflowEndToEnd(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	meeting := createTestMeeting(t, store)

	v1, err := store.CreateMinutes(ctx, meeting.ID, nil, "first pass", "clerk")
	if err != nil {
		t.Fatalf("CreateMinutes failed: %v", err)
	}
	if v1.Version != 1 || v1.Status != types.MinutesDraft || string(v1.Content) != "{}" {
		t.Fatalf("Expected v1 DRAFT with empty content, got v%d %s %s", v1.Version, v1.Status, v1.Content)
	}

	// Only one in-flight version per meeting
	_, err = store.CreateMinutes(ctx, meeting.ID, nil, "", "clerk")
	assertKind(t, err, goverr.KindConflict)

	content := json.RawMessage(`{"sections":["call to order"]}`)
	if _, err := store.UpdateMinutes(ctx, v1.ID, types.MinutesUpdate{Content: content}, "editor"); err != nil {
		t.Fatalf("UpdateMinutes on DRAFT failed: %v", err)
	}

	submitted := transition(t, store, v1.ID, types.MinutesSubmitted)
	if submitted.SubmittedAt == nil {
		t.Error("Expected submitted_at to be set")
	}

	summary := "x"
	_, err = store.UpdateMinutes(ctx, v1.ID, types.MinutesUpdate{Summary: &summary}, "editor")
	assertKind(t, err, goverr.KindForbidden)

	_, err = store.RequestRevision(ctx, v1.ID, "reviewer", "  ")
	assertKind(t, err, goverr.KindBadRequest)

	v2, err := store.RequestRevision(ctx, v1.ID, "reviewer", "fix the attendance list")
	if err != nil {
		t.Fatalf("RequestRevision failed: %v", err)
	}
	if v2.Version != 2 || v2.Status != types.MinutesRevised || v2.ReviewNotes != "fix the attendance list" {
		t.Fatalf("Expected v2 REVISED with review notes, got v%d %s %q", v2.Version, v2.Status, v2.ReviewNotes)
	}
	if string(v2.Content) != string(content) {
		t.Errorf("Revision must carry the submitted content, got %s", v2.Content)
	}
	if v2.RevisedAt == nil {
		t.Error("Expected revised_at to be set")
	}

	history, err := store.GetMinutes(ctx, v1.ID)
	if err != nil {
		t.Fatalf("GetMinutes failed: %v", err)
	}
	if history.Status != types.MinutesSubmitted || history.SupersededBy != v2.ID {
		t.Errorf("Submitted version must be kept as superseded history, got %s superseded_by=%q", history.Status, history.SupersededBy)
	}
	if string(history.Content) != string(content) {
		t.Errorf("Superseded version content changed: %s", history.Content)
	}

	// Superseded rows cannot move
	_, err = store.TransitionMinutes(ctx, v1.ID, types.MinutesApproved, "chair", "")
	assertKind(t, err, goverr.KindConflict)

	edited := json.RawMessage(`{"sections":["call to order","attendance"]}`)
	if _, err := store.UpdateMinutes(ctx, v2.ID, types.MinutesUpdate{Content: edited}, "editor"); err != nil {
		t.Fatalf("UpdateMinutes on REVISED failed: %v", err)
	}

	transition(t, store, v2.ID, types.MinutesSubmitted)
	approved, err := store.TransitionMinutes(ctx, v2.ID, types.MinutesApproved, "chair", "approved as amended")
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if approved.ApprovalNotes != "approved as amended" || approved.ApprovedAt == nil {
		t.Errorf("Expected approval notes and approved_at, got %q %v", approved.ApprovalNotes, approved.ApprovedAt)
	}

	published := transition(t, store, v2.ID, types.MinutesPublished)
	if published.PublishedAt == nil {
		t.Error("Expected published_at to be set")
	}

	current, err := store.GetCurrentMinutes(ctx, meeting.ID)
	if err != nil {
		t.Fatalf("GetCurrentMinutes failed: %v", err)
	}
	if current.ID != v2.ID || current.Status != types.MinutesPublished {
		t.Errorf("Expected current to be v2 PUBLISHED, got v%d %s", current.Version, current.Status)
	}

	// Published minutes are the legal record
	_, err = store.UpdateMinutes(ctx, v2.ID, types.MinutesUpdate{Content: content}, "editor")
	assertKind(t, err, goverr.KindForbidden)

	archived := transition(t, store, v2.ID, types.MinutesArchived)
	if archived.ArchivedAt == nil {
		t.Error("Expected archived_at to be set")
	}
	_, err = store.TransitionMinutes(ctx, v2.ID, types.MinutesPublished, "chair", "")
	assertKind(t, err, goverr.KindInvalidTransition)

	// Archived minutes can still seed a new draft
	v3, err := store.CreateMinutesRevision(ctx, meeting.ID, v2.ID, nil, "clerk")
	if err != nil {
		t.Fatalf("CreateMinutesRevision failed: %v", err)
	}
	if v3.Version != 3 || v3.Status != types.MinutesDraft || string(v3.Content) != string(edited) {
		t.Errorf("Expected v3 DRAFT copying v2 content, got v%d %s %s", v3.Version, v3.Status, v3.Content)
	}

	current, err = store.GetCurrentMinutes(ctx, meeting.ID)
	if err != nil {
		t.Fatalf("GetCurrentMinutes failed: %v", err)
	}
	if current.ID != v3.ID {
		t.Errorf("Expected current to be v3, got v%d", current.Version)
	}

	versions, err := store.ListMinutesVersions(ctx, meeting.ID)
	if err != nil {
		t.Fatalf("ListMinutesVersions failed: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("Expected 3 versions, got %d", len(versions))
	}
	for i, v := range versions {
		if v.Version != i+1 {
			t.Errorf("Expected version %d at index %d, got %d", i+1, i, v.Version)
		}
	}
}

func TestUpdateMinutesOnlyInEditableStates(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	body := json.RawMessage(`{"sections":["amended"]}`)

	for _, status := range types.AllMinutesStatuses {
		t.Run(string(status), func(t *testing.T) {
			m := minutesInState(t, store, status)

			updated, err := store.UpdateMinutes(ctx, m.ID, types.MinutesUpdate{Content: body}, "editor")
			if status.IsEditable() {
				if err != nil {
					t.Fatalf("UpdateMinutes in %s failed: %v", status, err)
				}
				if string(updated.Content) != string(body) || updated.Status != status {
					t.Errorf("Expected %s row with new content, got %s %s", status, updated.Status, updated.Content)
				}
				return
			}
			assertKind(t, err, goverr.KindForbidden)

			unchanged, err := store.GetMinutes(ctx, m.ID)
			if err != nil {
				t.Fatalf("GetMinutes failed: %v", err)
			}
			if string(unchanged.Content) == string(body) {
				t.Errorf("Rejected edit changed %s content", status)
			}
		})
	}
}

func TestRequestRevisionChecksEdgeBeforeNotes(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	for _, status := range []types.MinutesStatus{
		types.MinutesDraft, types.MinutesApproved, types.MinutesPublished, types.MinutesArchived,
	} {
		m := minutesInState(t, store, status)
		_, err := store.RequestRevision(ctx, m.ID, "reviewer", "")
		assertKind(t, err, goverr.KindInvalidTransition)
	}

	submitted := minutesInState(t, store, types.MinutesSubmitted)
	_, err := store.RequestRevision(ctx, submitted.ID, "reviewer", "")
	assertKind(t, err, goverr.KindBadRequest)
}

func TestCreateMinutesRevisionRules(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	draft := minutesInState(t, store, types.MinutesDraft)
	_, err := store.CreateMinutesRevision(ctx, draft.MeetingID, draft.ID, nil, "clerk")
	assertKind(t, err, goverr.KindConflict)

	archived := minutesInState(t, store, types.MinutesArchived)
	other := createTestMeeting(t, store)
	_, err = store.CreateMinutesRevision(ctx, other.ID, archived.ID, nil, "clerk")
	assertKind(t, err, goverr.KindNotFound)

	body := json.RawMessage(`{"corrected":true}`)
	next, err := store.CreateMinutesRevision(ctx, archived.MeetingID, archived.ID, body, "clerk")
	if err != nil {
		t.Fatalf("CreateMinutesRevision from ARCHIVED failed: %v", err)
	}
	if string(next.Content) != string(body) {
		t.Errorf("Expected supplied content, got %s", next.Content)
	}

	// The archived version is no longer current, so it cannot seed another revision
	_, err = store.CreateMinutesRevision(ctx, archived.MeetingID, archived.ID, nil, "clerk")
	assertKind(t, err, goverr.KindConflict)

	revised := minutesInState(t, store, types.MinutesRevised)
	fromRevised, err := store.CreateMinutesRevision(ctx, revised.MeetingID, revised.ID, nil, "clerk")
	if err != nil {
		t.Fatalf("CreateMinutesRevision from REVISED failed: %v", err)
	}
	if fromRevised.Version != revised.Version+1 {
		t.Errorf("Expected version %d, got %d", revised.Version+1, fromRevised.Version)
	}
}

func TestMinutesNotFound(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	_, err := store.CreateMinutes(ctx, "missing", nil, "", "clerk")
	assertKind(t, err, goverr.KindNotFound)

	_, err = store.TransitionMinutes(ctx, "missing", types.MinutesSubmitted, "clerk", "")
	assertKind(t, err, goverr.KindNotFound)

	meeting := createTestMeeting(t, store)
	_, err = store.GetCurrentMinutes(ctx, meeting.ID)
	assertKind(t, err, goverr.KindNotFound)

	_, err = store.CreateMinutes(ctx, meeting.ID, json.RawMessage(`{not json`), "", "clerk")
	assertKind(t, err, goverr.KindBadRequest)
}
