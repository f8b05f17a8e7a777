/*
Copyright (C) 2026 Millstone Systems

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/millstone-systems/forgeplan/internal/models"
)

func TestAvailabilityTrackerAdvance(t *testing.T) {
	tracker := &AvailabilityTracker{nextFree: make(map[string]time.Time)}
	floor := at(8, 0)

	if got := tracker.NextFree("m1", floor); !got.Equal(floor) {
		t.Fatalf("untracked machine should be free at floor, got %v", got)
	}

	tracker.Advance("m1", at(10, 0))
	if got := tracker.NextFree("m1", floor); !got.Equal(at(10, 0)) {
		t.Fatalf("expected 10:00, got %v", got)
	}

	// Earlier ends never move the tracked value backwards.
	tracker.Advance("m1", at(9, 0))
	if got := tracker.NextFree("m1", floor); !got.Equal(at(10, 0)) {
		t.Fatalf("tracker moved backwards to %v", got)
	}

	// A floor past the tracked end wins.
	if got := tracker.NextFree("m1", at(11, 0)); !got.Equal(at(11, 0)) {
		t.Fatalf("expected floor 11:00, got %v", got)
	}
}

func TestBuildAvailabilitySeedsFromUnfinishedSlots(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db, 2, 3)
	store := newTestStore(t, db)
	now := at(8, 0)

	mustCreateSlot(t, store, f.machines[0].ID, f.operations[0].ID, at(9, 0), at(10, 0))
	late := mustCreateSlot(t, store, f.machines[0].ID, f.operations[1].ID, at(11, 0), at(13, 0))
	done := mustCreateSlot(t, store, f.machines[1].ID, f.operations[2].ID, at(9, 0), at(12, 0))
	if err := db.Model(&models.ScheduleSlot{}).Where("id = ?", done.ID).Update("status", models.SlotCompleted).Error; err != nil {
		t.Fatalf("complete slot: %v", err)
	}

	tracker, err := BuildAvailability(context.Background(), db, testOrg, now)
	if err != nil {
		t.Fatalf("build availability: %v", err)
	}

	if got := tracker.NextFree(f.machines[0].ID, now); !got.Equal(late.ScheduledEnd) {
		t.Fatalf("machine 0 should be free at %v, got %v", late.ScheduledEnd, got)
	}
	if tracker.Tracked(f.machines[1].ID) {
		t.Fatal("completed slots should not seed the tracker")
	}
}
