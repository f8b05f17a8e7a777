/*
Copyright (C) 2026 Millstone Systems

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/millstone-systems/forgeplan/internal/events"
	"github.com/millstone-systems/forgeplan/internal/models"
	"github.com/millstone-systems/forgeplan/internal/telemetry"
)

// AutoScheduler places unscheduled released operations onto the least
// loaded eligible machines, ordered by a pluggable strategy.
type AutoScheduler struct {
	db     *gorm.DB
	store  *Store
	bus    *events.Bus
	logger zerolog.Logger
	now    func() time.Time
}

// NewAutoScheduler creates the auto-scheduler.
func NewAutoScheduler(db *gorm.DB, store *Store, bus *events.Bus, logger zerolog.Logger) *AutoScheduler {
	return &AutoScheduler{
		db:     db,
		store:  store,
		bus:    bus,
		logger: logger.With().Str("component", "autoscheduler").Logger(),
		now:    time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (a *AutoScheduler) SetNow(now func() time.Time) {
	if now != nil {
		a.now = now
		a.store.SetNow(now)
	}
}

// AutoScheduleRequest narrows the operation selection and picks the
// ordering strategy.
type AutoScheduleRequest struct {
	WorkOrderIDs []string
	FacilityID   string
	HorizonDate  time.Time
	Strategy     string
	RequestedBy  string
}

// OperationError reports a per-operation placement failure.
type OperationError struct {
	OperationID string `json:"operation_id"`
	Error       string `json:"error"`
}

// AutoScheduleResult summarizes a run. Partial success is the normal
// outcome, not an exceptional one.
type AutoScheduleResult struct {
	ScheduledCount int                   `json:"scheduled_count"`
	ErrorCount     int                   `json:"error_count"`
	Strategy       string                `json:"strategy"`
	Slots          []models.ScheduleSlot `json:"slots"`
	Errors         []OperationError      `json:"errors"`
}

// Run selects candidate operations, orders them, and places each onto
// the machine with the earliest tracked availability in its work
// center. Operations that cannot be placed are reported, never fatal.
func (a *AutoScheduler) Run(ctx context.Context, organizationID string, req AutoScheduleRequest) (*AutoScheduleResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "autoscheduler", "Run")
	defer span.End()

	strategy, err := ParseStrategy(req.Strategy)
	if err != nil {
		return nil, err
	}
	if req.HorizonDate.IsZero() {
		return nil, &ValidationError{Reason: "horizon date is required"}
	}

	started := time.Now()
	now := a.now()
	telemetry.AutoScheduleRunsTotal.WithLabelValues(strategy.Name()).Inc()
	telemetry.AddSpanAttributes(span, map[string]any{
		"organization_id": organizationID,
		"strategy":        strategy.Name(),
	})

	candidates, err := a.selectCandidates(ctx, organizationID, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	strategy.order(candidates, now)

	machinesByCenter, err := a.eligibleMachines(ctx, organizationID, req.FacilityID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	tracker, err := BuildAvailability(ctx, a.db, organizationID, now)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &AutoScheduleResult{
		Strategy: strategy.Name(),
		Slots:    []models.ScheduleSlot{},
		Errors:   []OperationError{},
	}

	for _, cand := range candidates {
		machines := machinesByCenter[cand.operation.WorkCenterID]
		if len(machines) == 0 {
			result.Errors = append(result.Errors, OperationError{
				OperationID: cand.operation.ID,
				Error:       "no eligible machines in work center",
			})
			telemetry.AutoScheduleOperationsTotal.WithLabelValues("no_machine").Inc()
			continue
		}

		// Least loaded wins; ties keep the first machine encountered.
		chosen := machines[0]
		chosenFree := tracker.NextFree(chosen.ID, now)
		for _, m := range machines[1:] {
			if free := tracker.NextFree(m.ID, now); free.Before(chosenFree) {
				chosen = m
				chosenFree = free
			}
		}

		start := chosenFree
		end := start.Add(cand.duration)
		if end.After(req.HorizonDate) {
			result.Errors = append(result.Errors, OperationError{
				OperationID: cand.operation.ID,
				Error:       "placement would exceed the scheduling horizon",
			})
			telemetry.AutoScheduleOperationsTotal.WithLabelValues("horizon_exceeded").Inc()
			continue
		}

		detail, err := a.store.CreateSlot(ctx, organizationID, CreateSlotInput{
			MachineID:       chosen.ID,
			OperationID:     cand.operation.ID,
			WorkOrderID:     cand.operation.WorkOrderID,
			FacilityID:      chosen.FacilityID,
			ScheduledStart:  start,
			ScheduledEnd:    end,
			SetupMinutes:    cand.operation.SetupStandardMinutes,
			RunMinutes:      cand.operation.RunStandardMinutes * maxInt(cand.operation.QuantityRequired, 1),
			TeardownMinutes: cand.operation.TeardownStandardMinutes,
			Priority:        cand.workOrder.Priority.Rank(),
			SequenceNumber:  cand.operation.SequenceNumber,
			ScheduledBy:     req.RequestedBy,
			Source:          SourceAuto,
		})
		if err != nil {
			result.Errors = append(result.Errors, OperationError{
				OperationID: cand.operation.ID,
				Error:       err.Error(),
			})
			telemetry.AutoScheduleOperationsTotal.WithLabelValues("error").Inc()
			continue
		}

		tracker.Advance(chosen.ID, end)
		result.Slots = append(result.Slots, detail.ScheduleSlot)
		telemetry.AutoScheduleOperationsTotal.WithLabelValues("scheduled").Inc()
	}

	result.ScheduledCount = len(result.Slots)
	result.ErrorCount = len(result.Errors)

	telemetry.ScheduleBuildDuration.WithLabelValues("auto").Observe(time.Since(started).Seconds())

	a.logger.Info().
		Str("strategy", strategy.Name()).
		Int("scheduled", result.ScheduledCount).
		Int("errors", result.ErrorCount).
		Msg("auto-schedule run finished")

	if a.bus != nil {
		a.bus.Publish(events.EventAutoScheduled, events.Payload{
			"organization_id": organizationID,
			"user_id":         req.RequestedBy,
			"resource_type":   "schedule_run",
			"strategy":        strategy.Name(),
			"scheduled_count": result.ScheduledCount,
			"error_count":     result.ErrorCount,
		})
	}

	return result, nil
}

// selectCandidates loads operations of released/in-progress work orders
// that are pending/ready, unscheduled, and due within the horizon.
func (a *AutoScheduler) selectCandidates(ctx context.Context, organizationID string, req AutoScheduleRequest) ([]candidate, error) {
	woQuery := a.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Where("status IN ?", []models.WorkOrderStatus{models.WorkOrderReleased, models.WorkOrderInProgress}).
		Where("due_date <= ?", req.HorizonDate)
	if len(req.WorkOrderIDs) > 0 {
		woQuery = woQuery.Where("id IN ?", req.WorkOrderIDs)
	}
	if req.FacilityID != "" {
		woQuery = woQuery.Where("facility_id = ?", req.FacilityID)
	}

	var workOrders []models.WorkOrder
	if err := woQuery.Find(&workOrders).Error; err != nil {
		return nil, err
	}
	if len(workOrders) == 0 {
		return nil, nil
	}

	ordersByID := make(map[string]models.WorkOrder, len(workOrders))
	orderIDs := make([]string, 0, len(workOrders))
	for _, wo := range workOrders {
		ordersByID[wo.ID] = wo
		orderIDs = append(orderIDs, wo.ID)
	}

	var operations []models.Operation
	err := a.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Where("work_order_id IN ?", orderIDs).
		Where("status IN ?", []models.OperationStatus{models.OperationPending, models.OperationReady}).
		Where("scheduled_start IS NULL").
		Order("work_order_id ASC").
		Order("sequence_number ASC").
		Find(&operations).Error
	if err != nil {
		return nil, err
	}

	candidates := make([]candidate, 0, len(operations))
	for _, op := range operations {
		wo := ordersByID[op.WorkOrderID]
		candidates = append(candidates, candidate{
			operation: op,
			workOrder: wo,
			duration:  time.Duration(op.EstimatedDurationMinutes()) * time.Minute,
		})
	}
	return candidates, nil
}

// eligibleMachines groups active, non-offline machines by work center.
// Order within a group is stable (name, then id) so tie-breaking is
// deterministic.
func (a *AutoScheduler) eligibleMachines(ctx context.Context, organizationID, facilityID string) (map[string][]models.Machine, error) {
	query := a.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Where("active = ?", true).
		Where("status <> ?", models.MachineOffline)
	if facilityID != "" {
		query = query.Where("facility_id = ?", facilityID)
	}

	var machines []models.Machine
	if err := query.Order("name ASC").Order("id ASC").Find(&machines).Error; err != nil {
		return nil, err
	}

	grouped := make(map[string][]models.Machine)
	for _, m := range machines {
		grouped[m.WorkCenterID] = append(grouped[m.WorkCenterID], m)
	}
	return grouped, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
