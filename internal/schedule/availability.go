/*
Copyright (C) 2026 Millstone Systems

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/millstone-systems/forgeplan/internal/models"
)

// AvailabilityTracker holds per-machine next-free instants for one
// scheduling run. It is call-scoped: built fresh per invocation and
// never shared across concurrent runs.
type AvailabilityTracker struct {
	nextFree map[string]time.Time
}

// BuildAvailability seeds a tracker from all unfinished slots ending at
// or after now, keeping the latest scheduled end per machine.
func BuildAvailability(ctx context.Context, db *gorm.DB, organizationID string, now time.Time) (*AvailabilityTracker, error) {
	tracker := &AvailabilityTracker{nextFree: make(map[string]time.Time)}

	var slots []models.ScheduleSlot
	err := db.WithContext(ctx).
		Select("machine_id", "scheduled_end").
		Where("organization_id = ?", organizationID).
		Where("status NOT IN ?", []models.SlotStatus{models.SlotCompleted, models.SlotCancelled}).
		Where("is_completed = ?", false).
		Where("scheduled_end >= ?", now).
		Find(&slots).Error
	if err != nil {
		return nil, err
	}

	for _, slot := range slots {
		tracker.Advance(slot.MachineID, slot.ScheduledEnd)
	}
	return tracker, nil
}

// NextFree returns when the machine can next accept work, never before
// the provided floor.
func (t *AvailabilityTracker) NextFree(machineID string, floor time.Time) time.Time {
	if at, ok := t.nextFree[machineID]; ok && at.After(floor) {
		return at
	}
	return floor
}

// Advance records a placement end; earlier instants never move the
// tracked value backwards.
func (t *AvailabilityTracker) Advance(machineID string, end time.Time) {
	if current, ok := t.nextFree[machineID]; !ok || end.After(current) {
		t.nextFree[machineID] = end
	}
}

// Tracked reports whether the machine has any tracked load.
func (t *AvailabilityTracker) Tracked(machineID string) bool {
	_, ok := t.nextFree[machineID]
	return ok
}
