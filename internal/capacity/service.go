/*
Copyright (C) 2026 Millstone Systems

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package capacity

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/millstone-systems/forgeplan/internal/models"
	"github.com/millstone-systems/forgeplan/internal/schedule"
)

// Service aggregates committed slot durations into utilization reports.
// Read-only: capacity queries never mutate state.
type Service struct {
	db                   *gorm.DB
	logger               zerolog.Logger
	defaultDailyCapacity int // minutes, used when a work center has no daily hours set
}

// NewService creates the capacity calculator.
func NewService(db *gorm.DB, defaultDailyCapacityMinutes int, logger zerolog.Logger) *Service {
	if defaultDailyCapacityMinutes <= 0 {
		defaultDailyCapacityMinutes = 480
	}
	return &Service{
		db:                   db,
		logger:               logger.With().Str("component", "capacity").Logger(),
		defaultDailyCapacity: defaultDailyCapacityMinutes,
	}
}

// DayCapacity reports one calendar day of one machine.
type DayCapacity struct {
	Date               string                `json:"date"` // YYYY-MM-DD, UTC
	AvailableMinutes   int                   `json:"available_minutes"`
	ScheduledMinutes   int                   `json:"scheduled_minutes"`
	UtilizationPercent float64               `json:"utilization_percent"`
	Slots              []models.ScheduleSlot `json:"slots"`
}

// MachineCapacityReport covers a date range for one machine.
type MachineCapacityReport struct {
	MachineID            string        `json:"machine_id"`
	MachineName          string        `json:"machine_name"`
	DailyCapacityMinutes int           `json:"daily_capacity_minutes"`
	Days                 []DayCapacity `json:"days"`
}

// MachineCapacity sums slot minutes per calendar day in [from, to]
// against the machine's work-center daily capacity. A slot counts
// toward the day its scheduled start falls on, in UTC.
func (s *Service) MachineCapacity(ctx context.Context, organizationID, machineID string, from, to time.Time) (*MachineCapacityReport, error) {
	machine, err := s.loadMachine(ctx, organizationID, machineID)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, &schedule.ValidationError{Reason: "to date must not be before from date"}
	}

	capacityMinutes := s.workCenterDailyMinutes(ctx, organizationID, machine.WorkCenterID)

	fromDay := startOfDayUTC(from)
	toDay := startOfDayUTC(to)

	slots, err := s.slotsInRange(ctx, organizationID, machine.ID, fromDay, toDay.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}

	byDay := make(map[string][]models.ScheduleSlot)
	for _, slot := range slots {
		key := slot.ScheduledStart.UTC().Format("2006-01-02")
		byDay[key] = append(byDay[key], slot)
	}

	report := &MachineCapacityReport{
		MachineID:            machine.ID,
		MachineName:          machine.Name,
		DailyCapacityMinutes: capacityMinutes,
	}

	for day := fromDay; !day.After(toDay); day = day.Add(24 * time.Hour) {
		key := day.Format("2006-01-02")
		daySlots := byDay[key]
		scheduled := 0
		for _, slot := range daySlots {
			scheduled += slot.DurationMinutes()
		}
		if daySlots == nil {
			daySlots = []models.ScheduleSlot{}
		}
		report.Days = append(report.Days, DayCapacity{
			Date:               key,
			AvailableMinutes:   capacityMinutes,
			ScheduledMinutes:   scheduled,
			UtilizationPercent: utilization(scheduled, capacityMinutes),
			Slots:              daySlots,
		})
	}

	return report, nil
}

// MachineDaySummary is one machine's line in a facility summary.
type MachineDaySummary struct {
	MachineID          string  `json:"machine_id"`
	MachineName        string  `json:"machine_name"`
	CapacityMinutes    int     `json:"capacity_minutes"`
	ScheduledMinutes   int     `json:"scheduled_minutes"`
	UtilizationPercent float64 `json:"utilization_percent"`
	JobCount           int     `json:"job_count"`
}

// FacilitySummary aggregates all active machines of a facility for one date.
type FacilitySummary struct {
	FacilityID            string              `json:"facility_id"`
	Date                  string              `json:"date"`
	TotalMachines         int                 `json:"total_machines"`
	TotalCapacityMinutes  int                 `json:"total_capacity_minutes"`
	TotalScheduledMinutes int                 `json:"total_scheduled_minutes"`
	OverallUtilization    float64             `json:"overall_utilization"`
	TotalJobs             int                 `json:"total_jobs"`
	Machines              []MachineDaySummary `json:"machines"`
}

// FacilityCapacitySummary computes the per-machine and aggregate
// utilization of a facility on a single date.
func (s *Service) FacilityCapacitySummary(ctx context.Context, organizationID, facilityID string, date time.Time) (*FacilitySummary, error) {
	if err := s.ensureFacility(ctx, organizationID, facilityID); err != nil {
		return nil, err
	}

	var machines []models.Machine
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Where("facility_id = ?", facilityID).
		Where("active = ?", true).
		Order("name ASC").
		Find(&machines).Error
	if err != nil {
		return nil, err
	}

	dayStart := startOfDayUTC(date)
	dayEnd := dayStart.Add(24 * time.Hour)

	capacityByCenter := make(map[string]int)

	summary := &FacilitySummary{
		FacilityID:    facilityID,
		Date:          dayStart.Format("2006-01-02"),
		TotalMachines: len(machines),
		Machines:      []MachineDaySummary{},
	}

	for _, machine := range machines {
		capacityMinutes, ok := capacityByCenter[machine.WorkCenterID]
		if !ok {
			capacityMinutes = s.workCenterDailyMinutes(ctx, organizationID, machine.WorkCenterID)
			capacityByCenter[machine.WorkCenterID] = capacityMinutes
		}

		slots, err := s.slotsInRange(ctx, organizationID, machine.ID, dayStart, dayEnd)
		if err != nil {
			return nil, err
		}

		scheduled := 0
		for _, slot := range slots {
			scheduled += slot.DurationMinutes()
		}

		summary.Machines = append(summary.Machines, MachineDaySummary{
			MachineID:          machine.ID,
			MachineName:        machine.Name,
			CapacityMinutes:    capacityMinutes,
			ScheduledMinutes:   scheduled,
			UtilizationPercent: utilization(scheduled, capacityMinutes),
			JobCount:           len(slots),
		})

		summary.TotalCapacityMinutes += capacityMinutes
		summary.TotalScheduledMinutes += scheduled
		summary.TotalJobs += len(slots)
	}

	summary.OverallUtilization = utilization(summary.TotalScheduledMinutes, summary.TotalCapacityMinutes)

	return summary, nil
}

// slotsInRange returns non-cancelled slots whose scheduled start falls
// in [from, to).
func (s *Service) slotsInRange(ctx context.Context, organizationID, machineID string, from, to time.Time) ([]models.ScheduleSlot, error) {
	var slots []models.ScheduleSlot
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Where("machine_id = ?", machineID).
		Where("status <> ?", models.SlotCancelled).
		Where("scheduled_start >= ? AND scheduled_start < ?", from, to).
		Order("scheduled_start ASC").
		Find(&slots).Error
	return slots, err
}

func (s *Service) workCenterDailyMinutes(ctx context.Context, organizationID, workCenterID string) int {
	var workCenter models.WorkCenter
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", organizationID, workCenterID).
		First(&workCenter).Error
	if err != nil || workCenter.DailyCapacityHours <= 0 {
		return s.defaultDailyCapacity
	}
	return int(workCenter.DailyCapacityHours * 60)
}

func (s *Service) loadMachine(ctx context.Context, organizationID, machineID string) (*models.Machine, error) {
	var machine models.Machine
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", organizationID, machineID).
		First(&machine).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &schedule.NotFoundError{Resource: "machine", ID: machineID}
	}
	if err != nil {
		return nil, err
	}
	return &machine, nil
}

func (s *Service) ensureFacility(ctx context.Context, organizationID, facilityID string) error {
	var facility models.Facility
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", organizationID, facilityID).
		First(&facility).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &schedule.NotFoundError{Resource: "facility", ID: facilityID}
	}
	return err
}

func startOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func utilization(scheduledMinutes, capacityMinutes int) float64 {
	if capacityMinutes <= 0 {
		return 0
	}
	pct := float64(scheduledMinutes) / float64(capacityMinutes) * 100
	return math.Round(pct*10) / 10
}
