/*
Copyright (C) 2026 Millstone Systems

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/millstone-systems/forgeplan/internal/events"
	"github.com/millstone-systems/forgeplan/internal/models"
	"github.com/millstone-systems/forgeplan/internal/telemetry"
)

// BulkModeForward reorders operations by work-order priority and due
// date before packing; any other mode preserves caller order.
const BulkModeForward = "forward"

// Packer lays out back-to-back slots on a single machine.
type Packer struct {
	db     *gorm.DB
	store  *Store
	bus    *events.Bus
	logger zerolog.Logger
}

// NewPacker creates the bulk packer.
func NewPacker(db *gorm.DB, store *Store, bus *events.Bus, logger zerolog.Logger) *Packer {
	return &Packer{
		db:     db,
		store:  store,
		bus:    bus,
		logger: logger.With().Str("component", "bulk_packer").Logger(),
	}
}

// BulkSchedule packs the given operations sequentially onto one machine
// starting at startDate. Placement is non-overlapping by construction;
// conflicts can only arise from pre-existing slots, which the store
// flags but never blocks on. A failed placement aborts the remainder;
// slots already created stay committed and are returned alongside the
// error.
func (p *Packer) BulkSchedule(ctx context.Context, organizationID, machineID string, operationIDs []string, startDate time.Time, mode, userID string) ([]models.ScheduleSlot, error) {
	ctx, span := telemetry.StartSpan(ctx, "bulk_packer", "BulkSchedule")
	defer span.End()

	if len(operationIDs) == 0 {
		return nil, &ValidationError{Reason: "no operations supplied"}
	}
	if startDate.IsZero() {
		return nil, &ValidationError{Reason: "start date is required"}
	}

	started := time.Now()

	machine, err := p.store.loadMachine(ctx, organizationID, machineID)
	if err != nil {
		return nil, err
	}

	operations, err := p.resolveOperations(ctx, organizationID, operationIDs)
	if err != nil {
		return nil, err
	}

	if mode == BulkModeForward {
		if err := p.orderForward(ctx, organizationID, operations); err != nil {
			return nil, err
		}
	}

	slots := make([]models.ScheduleSlot, 0, len(operations))
	cursor := startDate

	for _, op := range operations {
		duration := time.Duration(op.EstimatedDurationMinutes()) * time.Minute
		end := cursor.Add(duration)

		detail, err := p.store.CreateSlot(ctx, organizationID, CreateSlotInput{
			MachineID:       machine.ID,
			OperationID:     op.ID,
			WorkOrderID:     op.WorkOrderID,
			FacilityID:      machine.FacilityID,
			ScheduledStart:  cursor,
			ScheduledEnd:    end,
			SetupMinutes:    op.SetupStandardMinutes,
			RunMinutes:      op.RunStandardMinutes * maxInt(op.QuantityRequired, 1),
			TeardownMinutes: op.TeardownStandardMinutes,
			SequenceNumber:  op.SequenceNumber,
			ScheduledBy:     userID,
			Source:          SourceBulk,
		})
		if err != nil {
			telemetry.RecordError(span, err)
			return slots, err
		}

		slots = append(slots, detail.ScheduleSlot)
		cursor = end
	}

	telemetry.ScheduleBuildDuration.WithLabelValues("bulk").Observe(time.Since(started).Seconds())

	p.logger.Info().
		Str("machine", machine.ID).
		Int("slots", len(slots)).
		Str("mode", mode).
		Msg("bulk schedule packed")

	if p.bus != nil {
		p.bus.Publish(events.EventBulkScheduled, events.Payload{
			"organization_id": organizationID,
			"user_id":         userID,
			"resource_type":   "machine",
			"resource_id":     machine.ID,
			"facility_id":     machine.FacilityID,
			"slot_count":      len(slots),
			"mode":            mode,
		})
	}

	return slots, nil
}

// resolveOperations loads every referenced operation, failing if any id
// is unknown, and returns them in caller order.
func (p *Packer) resolveOperations(ctx context.Context, organizationID string, operationIDs []string) ([]models.Operation, error) {
	var operations []models.Operation
	err := p.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Where("id IN ?", operationIDs).
		Find(&operations).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Operation, len(operations))
	for _, op := range operations {
		byID[op.ID] = op
	}

	ordered := make([]models.Operation, 0, len(operationIDs))
	for _, id := range operationIDs {
		op, ok := byID[id]
		if !ok {
			return nil, &NotFoundError{Resource: "operation", ID: id}
		}
		ordered = append(ordered, op)
	}
	return ordered, nil
}

// orderForward sorts operations by work-order priority rank then due
// date, ascending.
func (p *Packer) orderForward(ctx context.Context, organizationID string, operations []models.Operation) error {
	ids := make([]string, 0, len(operations))
	seen := make(map[string]struct{}, len(operations))
	for _, op := range operations {
		if _, ok := seen[op.WorkOrderID]; !ok {
			seen[op.WorkOrderID] = struct{}{}
			ids = append(ids, op.WorkOrderID)
		}
	}

	var workOrders []models.WorkOrder
	err := p.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Where("id IN ?", ids).
		Find(&workOrders).Error
	if err != nil {
		return err
	}
	if len(workOrders) != len(ids) {
		return errors.New("bulk schedule: missing work order for operation")
	}

	byID := make(map[string]models.WorkOrder, len(workOrders))
	for _, wo := range workOrders {
		byID[wo.ID] = wo
	}

	sort.SliceStable(operations, func(i, j int) bool {
		a := byID[operations[i].WorkOrderID]
		b := byID[operations[j].WorkOrderID]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		return a.DueDate.Before(b.DueDate)
	})
	return nil
}
