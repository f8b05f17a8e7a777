/*
Copyright (C) 2026 Millstone Systems

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/millstone-systems/forgeplan/internal/models"
)

const testOrg = "11111111-1111-1111-1111-111111111111"

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
		&models.WorkOrder{},
		&models.Operation{},
		&models.ScheduleSlot{},
	); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

type fixture struct {
	facility   models.Facility
	workCenter models.WorkCenter
	machines   []models.Machine
	workOrder  models.WorkOrder
	operations []models.Operation
}

// seedFixture creates one facility, one work center, the requested
// number of machines, and a released work order with operations.
func seedFixture(t *testing.T, db *gorm.DB, machineCount, operationCount int) fixture {
	t.Helper()

	f := fixture{
		facility: models.Facility{
			ID:             uuid.NewString(),
			OrganizationID: testOrg,
			Name:           "Plant 1",
			Timezone:       "UTC",
		},
	}
	f.workCenter = models.WorkCenter{
		ID:                 uuid.NewString(),
		OrganizationID:     testOrg,
		FacilityID:         f.facility.ID,
		Name:               "Milling",
		DailyCapacityHours: 8,
		Active:             true,
	}
	if err := db.Create(&f.facility).Error; err != nil {
		t.Fatalf("seed facility: %v", err)
	}
	if err := db.Create(&f.workCenter).Error; err != nil {
		t.Fatalf("seed work center: %v", err)
	}

	for i := 0; i < machineCount; i++ {
		m := models.Machine{
			ID:             uuid.NewString(),
			OrganizationID: testOrg,
			FacilityID:     f.facility.ID,
			WorkCenterID:   f.workCenter.ID,
			Name:           "Machine " + string(rune('A'+i)),
			Status:         models.MachineAvailable,
			Active:         true,
		}
		if err := db.Create(&m).Error; err != nil {
			t.Fatalf("seed machine: %v", err)
		}
		f.machines = append(f.machines, m)
	}

	f.workOrder = models.WorkOrder{
		ID:             uuid.NewString(),
		OrganizationID: testOrg,
		FacilityID:     f.facility.ID,
		Number:         "WO-0001",
		Quantity:       10,
		Priority:       models.PriorityNormal,
		Status:         models.WorkOrderReleased,
		DueDate:        time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	}
	if err := db.Create(&f.workOrder).Error; err != nil {
		t.Fatalf("seed work order: %v", err)
	}

	for i := 0; i < operationCount; i++ {
		op := models.Operation{
			ID:                      uuid.NewString(),
			OrganizationID:          testOrg,
			WorkOrderID:             f.workOrder.ID,
			WorkCenterID:            f.workCenter.ID,
			SequenceNumber:          (i + 1) * 10,
			Name:                    "Op " + string(rune('1'+i)),
			Status:                  models.OperationPending,
			SetupStandardMinutes:    10,
			RunStandardMinutes:      5,
			TeardownStandardMinutes: 5,
			QuantityRequired:        10,
		}
		if err := db.Create(&op).Error; err != nil {
			t.Fatalf("seed operation: %v", err)
		}
		f.operations = append(f.operations, op)
	}

	return f
}

func newTestStore(t *testing.T, db *gorm.DB) *Store {
	t.Helper()
	store := NewStore(db, nil, zerolog.Nop())
	store.SetNow(func() time.Time {
		return time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	})
	return store
}

func mustCreateSlot(t *testing.T, store *Store, machineID, operationID string, start, end time.Time) *SlotDetail {
	t.Helper()
	detail, err := store.CreateSlot(context.Background(), testOrg, CreateSlotInput{
		MachineID:      machineID,
		OperationID:    operationID,
		ScheduledStart: start,
		ScheduledEnd:   end,
		ScheduledBy:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("create slot: %v", err)
	}
	return detail
}

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
}
