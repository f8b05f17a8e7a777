/*
Copyright (C) 2026 Millstone Systems

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"github.com/millstone-systems/forgeplan/internal/models"
	"gorm.io/gorm"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		// Master data
		&models.Facility{},
		&models.WorkCenter{},
		&models.Machine{},
		&models.WorkOrder{},
		&models.Operation{},

		// Scheduling
		&models.ScheduleSlot{},

		// Audit trail
		&models.AuditLog{},
	); err != nil {
		return err
	}

	return applyPostgresSlotIntervalGuard(database)
}

// applyPostgresSlotIntervalGuard enforces end > start at the database
// level on postgres. Overlaps are intentionally NOT rejected here: the
// engine records them as advisory conflicts instead.
func applyPostgresSlotIntervalGuard(database *gorm.DB) error {
	if database.Dialector.Name() != "postgres" {
		return nil
	}

	stmt := `
DO $$
BEGIN
  IF NOT EXISTS (
    SELECT 1 FROM pg_constraint WHERE conname = 'chk_schedule_slots_interval'
  ) THEN
    ALTER TABLE schedule_slots
      ADD CONSTRAINT chk_schedule_slots_interval
      CHECK (scheduled_end > scheduled_start);
  END IF;
END;
$$;
`
	if err := database.Exec(stmt).Error; err != nil {
		return fmt.Errorf("apply postgres slot interval guard: %w", err)
	}

	return nil
}
