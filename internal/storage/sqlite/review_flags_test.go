package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/boardworks/govrec/internal/goverr"
	"github.com/boardworks/govrec/internal/types"
)

func createTestFlag(t *testing.T, store *SQLiteStorage, due types.Date) *types.ReviewFlag {
	t.Helper()
	f := &types.ReviewFlag{
		TargetType: types.TargetPolicy,
		TargetID:   "travel-policy",
		FlagType:   types.FlagPolicyReview,
		Title:      "Annual policy review",
		DueDate:    due,
		CreatedBy:  "compliance",
	}
	if err := store.CreateFlag(context.Background(), f); err != nil {
		t.Fatalf("CreateFlag failed: %v", err)
	}
	return f
}

func TestReviewFlagLifecycle(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	flag := createTestFlag(t, store, types.Date{})
	if flag.Status != types.FlagOpen {
		t.Fatalf("Expected new flag to be OPEN, got %s", flag.Status)
	}

	_, err := store.TransitionFlag(ctx, flag.ID, types.FlagResolved, "done", "auditor")
	assertKind(t, err, goverr.KindInvalidTransition)

	if _, err := store.TransitionFlag(ctx, flag.ID, types.FlagInProgress, "", "auditor"); err != nil {
		t.Fatalf("OPEN -> IN_PROGRESS failed: %v", err)
	}

	_, err = store.TransitionFlag(ctx, flag.ID, types.FlagResolved, "   ", "auditor")
	assertKind(t, err, goverr.KindBadRequest)
	still, err := store.GetFlag(ctx, flag.ID)
	if err != nil {
		t.Fatalf("GetFlag failed: %v", err)
	}
	if still.Status != types.FlagInProgress {
		t.Errorf("Rejected resolve changed status to %s", still.Status)
	}

	resolved, err := store.TransitionFlag(ctx, flag.ID, types.FlagResolved, "Policy updated", "auditor")
	if err != nil {
		t.Fatalf("IN_PROGRESS -> RESOLVED failed: %v", err)
	}
	if resolved.Resolution != "Policy updated" || resolved.ResolvedBy != "auditor" || resolved.ResolvedAt == nil {
		t.Errorf("Expected resolution fields to be set, got %+v", resolved)
	}

	title := "New title"
	_, err = store.UpdateFlag(ctx, flag.ID, types.FlagUpdate{Title: &title}, "auditor")
	assertKind(t, err, goverr.KindForbidden)

	assertKind(t, store.DeleteFlag(ctx, flag.ID), goverr.KindForbidden)

	reopened, err := store.TransitionFlag(ctx, flag.ID, types.FlagOpen, "", "auditor")
	if err != nil {
		t.Fatalf("RESOLVED -> OPEN failed: %v", err)
	}
	if reopened.Resolution != "" || reopened.ResolvedBy != "" || reopened.ResolvedAt != nil {
		t.Errorf("Reopen must clear resolution fields, got %+v", reopened)
	}

	if _, err := store.UpdateFlag(ctx, flag.ID, types.FlagUpdate{Title: &title}, "auditor"); err != nil {
		t.Fatalf("UpdateFlag on reopened flag failed: %v", err)
	}

	if err := store.DeleteFlag(ctx, flag.ID); err != nil {
		t.Fatalf("DeleteFlag on OPEN flag failed: %v", err)
	}
	_, err = store.GetFlag(ctx, flag.ID)
	assertKind(t, err, goverr.KindNotFound)
}

func TestFlagTransitionTable(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	// Paths from OPEN to each status
	paths := map[types.FlagStatus][]types.FlagStatus{
		types.FlagOpen:       nil,
		types.FlagInProgress: {types.FlagInProgress},
		types.FlagResolved:   {types.FlagInProgress, types.FlagResolved},
		types.FlagDismissed:  {types.FlagInProgress, types.FlagDismissed},
	}

	for _, from := range types.AllFlagStatuses {
		for _, to := range types.AllFlagStatuses {
			t.Run(fmt.Sprintf("%s_to_%s", from, to), func(t *testing.T) {
				f := createTestFlag(t, store, types.Date{})
				for _, step := range paths[from] {
					if _, err := store.TransitionFlag(ctx, f.ID, step, "resolution", "auditor"); err != nil {
						t.Fatalf("Setup transition to %s failed: %v", step, err)
					}
				}

				_, err := store.TransitionFlag(ctx, f.ID, to, "resolution", "auditor")
				if types.CanTransitionFlag(from, to) {
					if err != nil {
						t.Errorf("Expected %s -> %s to succeed, got %v", from, to, err)
					}
					return
				}
				assertKind(t, err, goverr.KindInvalidTransition)
			})
		}
	}
}

func TestUpdateFlagWithStatusChange(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	flag := createTestFlag(t, store, types.Date{})

	inProgress := types.FlagInProgress
	notes := "Waiting on counsel"
	updated, err := store.UpdateFlag(ctx, flag.ID, types.FlagUpdate{Notes: &notes, Status: &inProgress}, "auditor")
	if err != nil {
		t.Fatalf("UpdateFlag failed: %v", err)
	}
	if updated.Status != types.FlagInProgress || updated.Notes != notes {
		t.Errorf("Expected IN_PROGRESS with notes, got %s %q", updated.Status, updated.Notes)
	}

	dismissed := types.FlagDismissed
	_, err = store.UpdateFlag(ctx, flag.ID, types.FlagUpdate{Status: &dismissed}, "auditor")
	assertKind(t, err, goverr.KindBadRequest)

	resolution := "Not applicable"
	updated, err = store.UpdateFlag(ctx, flag.ID, types.FlagUpdate{Status: &dismissed, Resolution: &resolution}, "auditor")
	if err != nil {
		t.Fatalf("Dismiss via UpdateFlag failed: %v", err)
	}
	if updated.Resolution != resolution || updated.ResolvedBy != "auditor" {
		t.Errorf("Expected resolution fields, got %+v", updated)
	}
}

func TestOverdueFlags(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	today := types.NewDate(2024, time.June, 15)

	overdue := createTestFlag(t, store, types.NewDate(2024, time.June, 1))
	// Due today, due in the future and undated flags are not overdue
	createTestFlag(t, store, today)
	createTestFlag(t, store, types.NewDate(2024, time.July, 1))
	createTestFlag(t, store, types.Date{})

	closed := createTestFlag(t, store, types.NewDate(2024, time.May, 1))
	if _, err := store.TransitionFlag(ctx, closed.ID, types.FlagInProgress, "", "a"); err != nil {
		t.Fatalf("TransitionFlag failed: %v", err)
	}
	if _, err := store.TransitionFlag(ctx, closed.ID, types.FlagDismissed, "duplicate", "a"); err != nil {
		t.Fatalf("TransitionFlag failed: %v", err)
	}

	flags, err := store.GetOverdueFlags(ctx, today)
	if err != nil {
		t.Fatalf("GetOverdueFlags failed: %v", err)
	}
	if len(flags) != 1 || flags[0].ID != overdue.ID {
		t.Fatalf("Expected exactly the open past-due flag, got %d flags", len(flags))
	}
	if !flags[0].IsOverdue(today) {
		t.Error("Expected IsOverdue to agree with the query")
	}

	open := types.FlagOpen
	list, err := store.ListFlags(ctx, types.FlagFilter{Status: &open})
	if err != nil {
		t.Fatalf("ListFlags failed: %v", err)
	}
	if len(list) != 4 {
		t.Errorf("Expected 4 open flags, got %d", len(list))
	}
	if !list[len(list)-1].DueDate.IsZero() {
		t.Error("Expected undated flags to sort last")
	}
}

func TestListFlagsBreaksDueDateTiesByCreation(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	due := types.DateOf(time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC))
	base := time.Date(2024, time.March, 5, 10, 0, 5, 0, time.UTC)

	first := createTestFlag(t, store, due)
	second := createTestFlag(t, store, due)
	setCreatedAt(t, store, "review_flags", first.ID, base)
	setCreatedAt(t, store, "review_flags", second.ID, base.Add(500*time.Millisecond))

	flags, err := store.ListFlags(ctx, types.FlagFilter{TargetType: types.TargetPolicy, TargetID: "travel-policy"})
	if err != nil {
		t.Fatalf("ListFlags failed: %v", err)
	}
	if len(flags) != 2 || flags[0].ID != first.ID || flags[1].ID != second.ID {
		t.Fatalf("Expected flags in creation order [%s %s], got %d flags", first.ID, second.ID, len(flags))
	}
}
