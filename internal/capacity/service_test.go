/*
Copyright (C) 2026 Millstone Systems

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package capacity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/millstone-systems/forgeplan/internal/models"
	"github.com/millstone-systems/forgeplan/internal/schedule"
)

const testOrg = "22222222-2222-2222-2222-222222222222"

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Facility{},
		&models.WorkCenter{},
		&models.Machine{},
		&models.ScheduleSlot{},
	); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

func seedMachine(t *testing.T, db *gorm.DB, facilityID string, dailyHours float64, name string) models.Machine {
	t.Helper()

	workCenter := models.WorkCenter{
		ID:                 uuid.NewString(),
		OrganizationID:     testOrg,
		FacilityID:         facilityID,
		Name:               name + " center",
		DailyCapacityHours: dailyHours,
		Active:             true,
	}
	if err := db.Create(&workCenter).Error; err != nil {
		t.Fatalf("seed work center: %v", err)
	}

	machine := models.Machine{
		ID:             uuid.NewString(),
		OrganizationID: testOrg,
		FacilityID:     facilityID,
		WorkCenterID:   workCenter.ID,
		Name:           name,
		Status:         models.MachineAvailable,
		Active:         true,
	}
	if err := db.Create(&machine).Error; err != nil {
		t.Fatalf("seed machine: %v", err)
	}
	return machine
}

func seedSlot(t *testing.T, db *gorm.DB, machine models.Machine, start time.Time, minutes int, status models.SlotStatus) models.ScheduleSlot {
	t.Helper()

	slot := models.ScheduleSlot{
		ID:             uuid.NewString(),
		OrganizationID: testOrg,
		FacilityID:     machine.FacilityID,
		MachineID:      machine.ID,
		OperationID:    uuid.NewString(),
		WorkOrderID:    uuid.NewString(),
		ScheduledStart: start,
		ScheduledEnd:   start.Add(time.Duration(minutes) * time.Minute),
		Status:         status,
	}
	if err := db.Create(&slot).Error; err != nil {
		t.Fatalf("seed slot: %v", err)
	}
	return slot
}

func seedFacility(t *testing.T, db *gorm.DB) models.Facility {
	t.Helper()
	facility := models.Facility{
		ID:             uuid.NewString(),
		OrganizationID: testOrg,
		Name:           "Plant 1",
		Timezone:       "UTC",
	}
	if err := db.Create(&facility).Error; err != nil {
		t.Fatalf("seed facility: %v", err)
	}
	return facility
}

func TestMachineCapacityUtilization(t *testing.T) {
	db := setupTestDB(t)
	facility := seedFacility(t, db)
	machine := seedMachine(t, db, facility.ID, 8, "Mill 01")
	svc := NewService(db, 480, zerolog.Nop())

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	seedSlot(t, db, machine, day.Add(8*time.Hour), 200, models.SlotScheduled)
	seedSlot(t, db, machine, day.Add(13*time.Hour), 200, models.SlotScheduled)
	// Cancelled work never counts.
	seedSlot(t, db, machine, day.Add(17*time.Hour), 120, models.SlotCancelled)
	// Next day's work stays on the next day.
	seedSlot(t, db, machine, day.Add(30*time.Hour), 60, models.SlotScheduled)

	report, err := svc.MachineCapacity(context.Background(), testOrg, machine.ID, day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("machine capacity: %v", err)
	}

	if report.DailyCapacityMinutes != 480 {
		t.Fatalf("expected 480 minute days, got %d", report.DailyCapacityMinutes)
	}
	if len(report.Days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(report.Days))
	}

	first := report.Days[0]
	if first.Date != "2026-03-02" {
		t.Fatalf("unexpected first day %s", first.Date)
	}
	if first.ScheduledMinutes != 400 {
		t.Fatalf("expected 400 scheduled minutes, got %d", first.ScheduledMinutes)
	}
	if first.UtilizationPercent != 83.3 {
		t.Fatalf("expected 83.3%% utilization, got %v", first.UtilizationPercent)
	}
	if len(first.Slots) != 2 {
		t.Fatalf("expected 2 slots on first day, got %d", len(first.Slots))
	}

	second := report.Days[1]
	if second.ScheduledMinutes != 60 || len(second.Slots) != 1 {
		t.Fatalf("expected 60 minutes / 1 slot on second day, got %d/%d", second.ScheduledMinutes, len(second.Slots))
	}
}

func TestMachineCapacityDefaultsWhenWorkCenterUnset(t *testing.T) {
	db := setupTestDB(t)
	facility := seedFacility(t, db)
	machine := seedMachine(t, db, facility.ID, 0, "Lathe 01")
	svc := NewService(db, 600, zerolog.Nop())

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	report, err := svc.MachineCapacity(context.Background(), testOrg, machine.ID, day, day)
	if err != nil {
		t.Fatalf("machine capacity: %v", err)
	}
	if report.DailyCapacityMinutes != 600 {
		t.Fatalf("expected configured default 600, got %d", report.DailyCapacityMinutes)
	}
	if len(report.Days) != 1 || report.Days[0].ScheduledMinutes != 0 {
		t.Fatalf("expected one empty day, got %+v", report.Days)
	}
}

func TestMachineCapacityErrors(t *testing.T) {
	db := setupTestDB(t)
	facility := seedFacility(t, db)
	machine := seedMachine(t, db, facility.ID, 8, "Mill 01")
	svc := NewService(db, 480, zerolog.Nop())
	ctx := context.Background()

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if _, err := svc.MachineCapacity(ctx, testOrg, "missing", day, day); !schedule.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.MachineCapacity(ctx, testOrg, machine.ID, day, day.Add(-24*time.Hour)); !schedule.IsValidation(err) {
		t.Fatalf("expected validation error for inverted range, got %v", err)
	}
}

func TestFacilityCapacitySummaryAggregates(t *testing.T) {
	db := setupTestDB(t)
	facility := seedFacility(t, db)
	mill := seedMachine(t, db, facility.ID, 8, "Mill 01")
	lathe := seedMachine(t, db, facility.ID, 16, "Lathe 01")
	svc := NewService(db, 480, zerolog.Nop())

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	seedSlot(t, db, mill, day.Add(8*time.Hour), 240, models.SlotScheduled)
	seedSlot(t, db, lathe, day.Add(8*time.Hour), 480, models.SlotScheduled)
	seedSlot(t, db, lathe, day.Add(18*time.Hour), 240, models.SlotScheduled)

	summary, err := svc.FacilityCapacitySummary(context.Background(), testOrg, facility.ID, day)
	if err != nil {
		t.Fatalf("facility summary: %v", err)
	}

	if summary.TotalMachines != 2 {
		t.Fatalf("expected 2 machines, got %d", summary.TotalMachines)
	}
	if summary.TotalCapacityMinutes != 480+960 {
		t.Fatalf("expected 1440 capacity minutes, got %d", summary.TotalCapacityMinutes)
	}
	if summary.TotalScheduledMinutes != 960 {
		t.Fatalf("expected 960 scheduled minutes, got %d", summary.TotalScheduledMinutes)
	}
	if summary.TotalJobs != 3 {
		t.Fatalf("expected 3 jobs, got %d", summary.TotalJobs)
	}
	if summary.OverallUtilization != 66.7 {
		t.Fatalf("expected 66.7%% overall, got %v", summary.OverallUtilization)
	}

	// Per-machine lines sum to the facility totals.
	var capSum, schedSum, jobSum int
	for _, m := range summary.Machines {
		capSum += m.CapacityMinutes
		schedSum += m.ScheduledMinutes
		jobSum += m.JobCount
	}
	if capSum != summary.TotalCapacityMinutes || schedSum != summary.TotalScheduledMinutes || jobSum != summary.TotalJobs {
		t.Fatalf("per-machine lines do not add up: %d/%d/%d", capSum, schedSum, jobSum)
	}
}

func TestFacilityCapacitySummaryUnknownFacility(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, 480, zerolog.Nop())

	_, err := svc.FacilityCapacitySummary(context.Background(), testOrg, "missing", time.Now())
	if !schedule.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
