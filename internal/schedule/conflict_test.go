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

func TestFindConflictOverlap(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db, 1, 2)
	store := newTestStore(t, db)
	machine := f.machines[0]

	existing := mustCreateSlot(t, store, machine.ID, f.operations[0].ID, at(9, 0), at(11, 0))

	detector := store.Detector()
	ctx := context.Background()

	cases := []struct {
		name     string
		start    time.Time
		end      time.Time
		conflict bool
	}{
		{"full overlap", at(9, 0), at(11, 0), true},
		{"partial tail", at(10, 0), at(12, 0), true},
		{"partial head", at(8, 0), at(10, 0), true},
		{"contained", at(9, 30), at(10, 30), true},
		{"containing", at(8, 0), at(12, 0), true},
		{"touching end", at(11, 0), at(12, 0), false},
		{"touching start", at(8, 0), at(9, 0), false},
		{"disjoint after", at(13, 0), at(14, 0), false},
		{"disjoint before", at(6, 0), at(7, 0), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := detector.FindConflict(ctx, testOrg, machine.ID, tc.start, tc.end, "")
			if err != nil {
				t.Fatalf("find conflict: %v", err)
			}
			if tc.conflict && got == nil {
				t.Fatalf("expected conflict with %s, got none", existing.ID)
			}
			if !tc.conflict && got != nil {
				t.Fatalf("expected no conflict, got %s", got.ID)
			}
		})
	}
}

func TestFindConflictExcludesSelf(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db, 1, 1)
	store := newTestStore(t, db)

	slot := mustCreateSlot(t, store, f.machines[0].ID, f.operations[0].ID, at(9, 0), at(11, 0))

	got, err := store.Detector().FindConflict(context.Background(), testOrg, f.machines[0].ID, at(9, 30), at(10, 30), slot.ID)
	if err != nil {
		t.Fatalf("find conflict: %v", err)
	}
	if got != nil {
		t.Fatalf("expected self-exclusion, got conflict with %s", got.ID)
	}
}

func TestFindConflictIgnoresInactiveSlots(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db, 1, 1)
	store := newTestStore(t, db)

	slot := mustCreateSlot(t, store, f.machines[0].ID, f.operations[0].ID, at(9, 0), at(11, 0))

	if err := db.Model(&models.ScheduleSlot{}).Where("id = ?", slot.ID).Update("status", models.SlotCancelled).Error; err != nil {
		t.Fatalf("cancel slot: %v", err)
	}

	got, err := store.Detector().FindConflict(context.Background(), testOrg, f.machines[0].ID, at(9, 30), at(10, 30), "")
	if err != nil {
		t.Fatalf("find conflict: %v", err)
	}
	if got != nil {
		t.Fatalf("cancelled slot should not conflict, got %s", got.ID)
	}
}

func TestFindConflictScopedToMachineAndOrg(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db, 2, 1)
	store := newTestStore(t, db)

	mustCreateSlot(t, store, f.machines[0].ID, f.operations[0].ID, at(9, 0), at(11, 0))

	got, err := store.Detector().FindConflict(context.Background(), testOrg, f.machines[1].ID, at(9, 0), at(11, 0), "")
	if err != nil {
		t.Fatalf("find conflict: %v", err)
	}
	if got != nil {
		t.Fatalf("other machine should not conflict, got %s", got.ID)
	}

	got, err = store.Detector().FindConflict(context.Background(), "other-org", f.machines[0].ID, at(9, 0), at(11, 0), "")
	if err != nil {
		t.Fatalf("find conflict: %v", err)
	}
	if got != nil {
		t.Fatalf("other organization should not conflict, got %s", got.ID)
	}
}
