/*
Copyright (C) 2026 Millstone Systems

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// SlotStatus tracks a schedule slot through its lifecycle.
type SlotStatus string

const (
	SlotScheduled SlotStatus = "SCHEDULED"
	SlotCompleted SlotStatus = "COMPLETED"
	SlotCancelled SlotStatus = "CANCELLED"
)

// ScheduleSlot assigns one operation to one machine for a time interval.
type ScheduleSlot struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	OrganizationID string `gorm:"type:uuid;index:idx_slots_org;not null"`
	FacilityID     string `gorm:"type:uuid;index:idx_slots_facility;not null"`

	MachineID   string `gorm:"type:uuid;index:idx_slots_machine_time;not null"`
	OperationID string `gorm:"type:uuid;index:idx_slots_operation;not null"`
	WorkOrderID string `gorm:"type:uuid;index:idx_slots_work_order;not null"`

	ScheduledStart time.Time `gorm:"index:idx_slots_machine_time;not null"`
	ScheduledEnd   time.Time `gorm:"not null"`

	// Informational breakdown of the interval. The sum is the basis for
	// duration estimates in bulk/auto placement but is not forced to
	// equal the interval length.
	SetupMinutes    int `gorm:"not null;default:0"`
	RunMinutes      int `gorm:"not null;default:0"`
	TeardownMinutes int `gorm:"not null;default:0"`

	Priority       int `gorm:"not null;default:0"`
	SequenceNumber int `gorm:"not null;default:0"`

	Status SlotStatus `gorm:"type:varchar(16);index;not null;default:'SCHEDULED'"`

	// Conflicts are recorded at write time, never recomputed lazily.
	HasConflict    bool   `gorm:"not null;default:false"`
	ConflictReason string `gorm:"type:text"`

	// Locking freezes the slot against update/delete, independent of
	// conflict state.
	IsLocked   bool       `gorm:"not null;default:false"`
	LockedBy   *string    `gorm:"type:uuid"`
	LockedAt   *time.Time ``
	LockReason string     `gorm:"type:text"`

	// Progress flags are set by production execution; read-only guards here.
	IsStarted   bool `gorm:"not null;default:false"`
	IsCompleted bool `gorm:"not null;default:false"`

	ScheduledBy string `gorm:"type:uuid"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name for GORM.
func (ScheduleSlot) TableName() string {
	return "schedule_slots"
}

// DurationMinutes is the scheduled interval length in whole minutes.
func (s ScheduleSlot) DurationMinutes() int {
	return int(s.ScheduledEnd.Sub(s.ScheduledStart) / time.Minute)
}

// IsActive reports whether the slot still occupies machine time for
// conflict purposes.
func (s ScheduleSlot) IsActive() bool {
	return s.Status != SlotCompleted && s.Status != SlotCancelled
}
