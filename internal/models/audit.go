/*
Copyright (C) 2026 Millstone Systems

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// AuditAction defines the type of audited action.
type AuditAction string

// Audit action constants for scheduling operations.
const (
	AuditActionSlotCreate   AuditAction = "slot.create"
	AuditActionSlotUpdate   AuditAction = "slot.update"
	AuditActionSlotDelete   AuditAction = "slot.delete"
	AuditActionSlotLock     AuditAction = "slot.lock"
	AuditActionSlotUnlock   AuditAction = "slot.unlock"
	AuditActionBulkSchedule AuditAction = "schedule.bulk"
	AuditActionAutoSchedule AuditAction = "schedule.auto"
)

// AuditLog records scheduling mutations for traceability.
type AuditLog struct {
	ID             string         `gorm:"type:uuid;primaryKey"`
	Timestamp      time.Time      `gorm:"index:idx_audit_timestamp;not null"`
	OrganizationID string         `gorm:"type:uuid;index:idx_audit_org;not null"`
	UserID         *string        `gorm:"type:uuid;index:idx_audit_user"` // NULL for system actions
	FacilityID     *string        `gorm:"type:uuid;index:idx_audit_facility"`
	Action         AuditAction    `gorm:"type:varchar(64);index:idx_audit_action;not null"`
	ResourceType   string         `gorm:"type:varchar(64)"` // "slot", "operation", ...
	ResourceID     string         `gorm:"type:uuid"`
	Details        map[string]any `gorm:"type:jsonb;serializer:json"`
	CreatedAt      time.Time
}

// TableName returns the table name for GORM.
func (AuditLog) TableName() string {
	return "audit_logs"
}
