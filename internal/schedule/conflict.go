/*
Copyright (C) 2026 Millstone Systems

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/millstone-systems/forgeplan/internal/models"
)

// Detector answers time-window overlap queries against persisted slots.
// Pure query, no side effects.
type Detector struct {
	db *gorm.DB
}

// NewDetector creates a conflict detector.
func NewDetector(db *gorm.DB) *Detector {
	return &Detector{db: db}
}

// FindConflict returns one active slot on the machine whose interval
// overlaps [start, end), or nil when the window is clear. Two half-open
// intervals [s1,e1) and [s2,e2) overlap iff s1 < e2 && s2 < e1.
//
// When several slots overlap the probe window, which one is returned is
// unspecified; callers must treat the result as "a conflict exists",
// not "this specific conflict exists". The query orders by
// scheduled_start only to keep behavior stable across backends.
func (d *Detector) FindConflict(ctx context.Context, organizationID, machineID string, start, end time.Time, excludeSlotID string) (*models.ScheduleSlot, error) {
	query := d.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Where("machine_id = ?", machineID).
		Where("status NOT IN ?", []models.SlotStatus{models.SlotCompleted, models.SlotCancelled}).
		Where("scheduled_start < ? AND scheduled_end > ?", end, start)

	if excludeSlotID != "" {
		query = query.Where("id <> ?", excludeSlotID)
	}

	var slot models.ScheduleSlot
	err := query.Order("scheduled_start ASC").First(&slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &slot, nil
}
