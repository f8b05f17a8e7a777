package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/millstone-systems/forgeplan/internal/db"
	"github.com/millstone-systems/forgeplan/internal/models"
)

var seedOrganizationID string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed demo scheduling data",
	Long:  "Create a demo facility with work centers, machines, and released work orders for local development",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedOrganizationID, "org", "", "organization id to seed under (generated when empty)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := db.Close(database); err != nil {
			logger.Error().Err(err).Msg("close database failed")
		}
	}()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	orgID := seedOrganizationID
	if orgID == "" {
		orgID = uuid.NewString()
	}

	if err := seedDemoData(database, orgID); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	logger.Info().Str("organization_id", orgID).Msg("demo data seeded")
	fmt.Printf("organization_id: %s\n", orgID)
	return nil
}

func seedDemoData(database *gorm.DB, orgID string) error {
	now := time.Now().UTC()

	facility := models.Facility{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		Name:           "Plant 1",
		Timezone:       "UTC",
	}

	milling := models.WorkCenter{
		ID:                 uuid.NewString(),
		OrganizationID:     orgID,
		FacilityID:         facility.ID,
		Name:               "CNC Milling",
		DailyCapacityHours: 8,
		Active:             true,
	}
	turning := models.WorkCenter{
		ID:                 uuid.NewString(),
		OrganizationID:     orgID,
		FacilityID:         facility.ID,
		Name:               "Turning",
		DailyCapacityHours: 16,
		Active:             true,
	}

	machines := []models.Machine{
		{ID: uuid.NewString(), OrganizationID: orgID, FacilityID: facility.ID, WorkCenterID: milling.ID, Name: "Mill 01", Status: models.MachineAvailable, Active: true},
		{ID: uuid.NewString(), OrganizationID: orgID, FacilityID: facility.ID, WorkCenterID: milling.ID, Name: "Mill 02", Status: models.MachineAvailable, Active: true},
		{ID: uuid.NewString(), OrganizationID: orgID, FacilityID: facility.ID, WorkCenterID: turning.ID, Name: "Lathe 01", Status: models.MachineAvailable, Active: true},
	}

	workOrders := []models.WorkOrder{
		{
			ID:             uuid.NewString(),
			OrganizationID: orgID,
			FacilityID:     facility.ID,
			Number:         "WO-1001",
			PartNumber:     "BRKT-220",
			Quantity:       50,
			Priority:       models.PriorityHigh,
			Status:         models.WorkOrderReleased,
			DueDate:        now.Add(5 * 24 * time.Hour),
		},
		{
			ID:             uuid.NewString(),
			OrganizationID: orgID,
			FacilityID:     facility.ID,
			Number:         "WO-1002",
			PartNumber:     "SHAFT-114",
			Quantity:       20,
			Priority:       models.PriorityNormal,
			Status:         models.WorkOrderReleased,
			DueDate:        now.Add(9 * 24 * time.Hour),
		},
	}

	operations := []models.Operation{
		{
			ID:                      uuid.NewString(),
			OrganizationID:          orgID,
			WorkOrderID:             workOrders[0].ID,
			WorkCenterID:            milling.ID,
			SequenceNumber:          10,
			Name:                    "Rough mill",
			Status:                  models.OperationPending,
			SetupStandardMinutes:    30,
			RunStandardMinutes:      3,
			TeardownStandardMinutes: 10,
			QuantityRequired:        50,
		},
		{
			ID:                      uuid.NewString(),
			OrganizationID:          orgID,
			WorkOrderID:             workOrders[0].ID,
			WorkCenterID:            milling.ID,
			SequenceNumber:          20,
			Name:                    "Finish mill",
			Status:                  models.OperationPending,
			SetupStandardMinutes:    20,
			RunStandardMinutes:      2,
			TeardownStandardMinutes: 5,
			QuantityRequired:        50,
		},
		{
			ID:                      uuid.NewString(),
			OrganizationID:          orgID,
			WorkOrderID:             workOrders[1].ID,
			WorkCenterID:            turning.ID,
			SequenceNumber:          10,
			Name:                    "Turn OD",
			Status:                  models.OperationPending,
			SetupStandardMinutes:    45,
			RunStandardMinutes:      6,
			TeardownStandardMinutes: 15,
			QuantityRequired:        20,
		},
	}

	return database.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&facility).Error; err != nil {
			return err
		}
		if err := tx.Create(&milling).Error; err != nil {
			return err
		}
		if err := tx.Create(&turning).Error; err != nil {
			return err
		}
		if err := tx.Create(&machines).Error; err != nil {
			return err
		}
		if err := tx.Create(&workOrders).Error; err != nil {
			return err
		}
		return tx.Create(&operations).Error
	})
}
