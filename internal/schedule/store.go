/*
Copyright (C) 2026 Millstone Systems

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/millstone-systems/forgeplan/internal/events"
	"github.com/millstone-systems/forgeplan/internal/models"
	"github.com/millstone-systems/forgeplan/internal/telemetry"
)

// Placement sources, used for metrics and audit detail.
const (
	SourceManual = "manual"
	SourceBulk   = "bulk"
	SourceAuto   = "auto"
)

// Store owns all mutation of persisted schedule slots. Every mutation
// runs inside one transaction together with the operation mirror write.
type Store struct {
	db       *gorm.DB
	detector *Detector
	bus      *events.Bus
	logger   zerolog.Logger
	now      func() time.Time
}

// NewStore creates the slot store.
func NewStore(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Store {
	return &Store{
		db:       db,
		detector: NewDetector(db),
		bus:      bus,
		logger:   logger.With().Str("component", "slot_store").Logger(),
		now:      time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (s *Store) SetNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Detector exposes the store's conflict detector.
func (s *Store) Detector() *Detector {
	return s.detector
}

// CreateSlotInput carries the fields of a new slot.
type CreateSlotInput struct {
	MachineID       string
	OperationID     string
	WorkOrderID     string
	FacilityID      string
	ScheduledStart  time.Time
	ScheduledEnd    time.Time
	SetupMinutes    int
	RunMinutes      int
	TeardownMinutes int
	Priority        int
	SequenceNumber  int
	ScheduledBy     string
	Source          string
}

// UpdateSlotPatch applies partial updates; nil fields are untouched.
type UpdateSlotPatch struct {
	MachineID       *string
	ScheduledStart  *time.Time
	ScheduledEnd    *time.Time
	SetupMinutes    *int
	RunMinutes      *int
	TeardownMinutes *int
	Priority        *int
	SequenceNumber  *int
	UpdatedBy       string
}

// MachineSummary is the denormalized machine view attached to a slot.
type MachineSummary struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Status       models.MachineStatus `json:"status"`
	WorkCenterID string               `json:"work_center_id"`
}

// OperationSummary is the denormalized operation view attached to a slot.
type OperationSummary struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Status         models.OperationStatus `json:"status"`
	SequenceNumber int                    `json:"sequence_number"`
}

// WorkOrderSummary is the denormalized work order view attached to a slot.
type WorkOrderSummary struct {
	ID       string                   `json:"id"`
	Number   string                   `json:"number"`
	Priority models.WorkOrderPriority `json:"priority"`
	Status   models.WorkOrderStatus   `json:"status"`
	DueDate  time.Time                `json:"due_date"`
}

// SlotDetail is a slot with its referenced entities summarized.
type SlotDetail struct {
	models.ScheduleSlot
	Machine   *MachineSummary   `json:"machine,omitempty"`
	Operation *OperationSummary `json:"operation,omitempty"`
	WorkOrder *WorkOrderSummary `json:"work_order,omitempty"`
}

// CreateSlot validates references, stamps advisory conflict state, and
// persists the slot together with the operation mirror. Conflicts never
// reject the write; only malformed intervals and missing references do.
func (s *Store) CreateSlot(ctx context.Context, organizationID string, input CreateSlotInput) (*SlotDetail, error) {
	if !input.ScheduledEnd.After(input.ScheduledStart) {
		return nil, &ValidationError{Reason: "scheduled end must be after scheduled start"}
	}

	machine, err := s.loadMachine(ctx, organizationID, input.MachineID)
	if err != nil {
		return nil, err
	}
	operation, err := s.loadOperation(ctx, organizationID, input.OperationID)
	if err != nil {
		return nil, err
	}

	workOrderID := input.WorkOrderID
	if workOrderID == "" {
		workOrderID = operation.WorkOrderID
	}
	facilityID := input.FacilityID
	if facilityID == "" {
		facilityID = machine.FacilityID
	}

	slot := models.ScheduleSlot{
		ID:              uuid.NewString(),
		OrganizationID:  organizationID,
		FacilityID:      facilityID,
		MachineID:       machine.ID,
		OperationID:     operation.ID,
		WorkOrderID:     workOrderID,
		ScheduledStart:  input.ScheduledStart,
		ScheduledEnd:    input.ScheduledEnd,
		SetupMinutes:    input.SetupMinutes,
		RunMinutes:      input.RunMinutes,
		TeardownMinutes: input.TeardownMinutes,
		Priority:        input.Priority,
		SequenceNumber:  input.SequenceNumber,
		Status:          models.SlotScheduled,
		ScheduledBy:     input.ScheduledBy,
	}

	s.stampConflict(ctx, &slot, "")

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&slot).Error; err != nil {
			return err
		}
		return propagateOperationSchedule(tx, slot)
	})
	if err != nil {
		return nil, err
	}

	source := input.Source
	if source == "" {
		source = SourceManual
	}
	telemetry.SlotsCreatedTotal.WithLabelValues(source).Inc()

	s.logger.Debug().
		Str("slot", slot.ID).
		Str("machine", slot.MachineID).
		Bool("conflict", slot.HasConflict).
		Msg("slot created")

	s.publish(events.EventSlotCreated, organizationID, slot, events.Payload{
		"source":       source,
		"user_id":      input.ScheduledBy,
		"has_conflict": slot.HasConflict,
	})

	return s.detail(ctx, slot, machine, operation), nil
}

// GetSlot loads one slot with summaries.
func (s *Store) GetSlot(ctx context.Context, organizationID, slotID string) (*SlotDetail, error) {
	slot, err := s.loadSlot(ctx, organizationID, slotID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, *slot, nil, nil), nil
}

// UpdateSlot applies a patch to an unlocked, unstarted slot. Timing or
// machine changes re-run conflict detection excluding the slot itself.
func (s *Store) UpdateSlot(ctx context.Context, organizationID, slotID string, patch UpdateSlotPatch) (*SlotDetail, error) {
	slot, err := s.loadSlot(ctx, organizationID, slotID)
	if err != nil {
		return nil, err
	}
	if err := guardMutable(slot); err != nil {
		return nil, err
	}

	placementChanged := false

	if patch.MachineID != nil && *patch.MachineID != slot.MachineID {
		machine, err := s.loadMachine(ctx, organizationID, *patch.MachineID)
		if err != nil {
			return nil, err
		}
		slot.MachineID = machine.ID
		slot.FacilityID = machine.FacilityID
		placementChanged = true
	}
	if patch.ScheduledStart != nil && !patch.ScheduledStart.Equal(slot.ScheduledStart) {
		slot.ScheduledStart = *patch.ScheduledStart
		placementChanged = true
	}
	if patch.ScheduledEnd != nil && !patch.ScheduledEnd.Equal(slot.ScheduledEnd) {
		slot.ScheduledEnd = *patch.ScheduledEnd
		placementChanged = true
	}
	if patch.SetupMinutes != nil {
		slot.SetupMinutes = *patch.SetupMinutes
	}
	if patch.RunMinutes != nil {
		slot.RunMinutes = *patch.RunMinutes
	}
	if patch.TeardownMinutes != nil {
		slot.TeardownMinutes = *patch.TeardownMinutes
	}
	if patch.Priority != nil {
		slot.Priority = *patch.Priority
	}
	if patch.SequenceNumber != nil {
		slot.SequenceNumber = *patch.SequenceNumber
	}

	if !slot.ScheduledEnd.After(slot.ScheduledStart) {
		return nil, &ValidationError{Reason: "scheduled end must be after scheduled start"}
	}

	if placementChanged {
		s.stampConflict(ctx, slot, slot.ID)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(slot).Error; err != nil {
			return err
		}
		if placementChanged {
			return propagateOperationSchedule(tx, *slot)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(events.EventSlotUpdated, organizationID, *slot, events.Payload{
		"user_id":           patch.UpdatedBy,
		"placement_changed": placementChanged,
		"has_conflict":      slot.HasConflict,
	})

	return s.detail(ctx, *slot, nil, nil), nil
}

// DeleteSlot removes an unlocked, unstarted slot and clears the
// operation's scheduling mirror.
func (s *Store) DeleteSlot(ctx context.Context, organizationID, slotID, userID string) error {
	slot, err := s.loadSlot(ctx, organizationID, slotID)
	if err != nil {
		return err
	}
	if err := guardMutable(slot); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.ScheduleSlot{}, "id = ?", slot.ID).Error; err != nil {
			return err
		}
		return clearOperationSchedule(tx, slot.OperationID)
	})
	if err != nil {
		return err
	}

	s.publish(events.EventSlotDeleted, organizationID, *slot, events.Payload{
		"user_id": userID,
	})
	return nil
}

// LockSlot freezes the slot against update/delete. Locking a conflicted
// slot is permitted; the lock is independent of conflict state.
func (s *Store) LockSlot(ctx context.Context, organizationID, slotID, reason, userID string) (*SlotDetail, error) {
	slot, err := s.loadSlot(ctx, organizationID, slotID)
	if err != nil {
		return nil, err
	}

	lockedAt := s.now()
	err = s.db.WithContext(ctx).
		Model(&models.ScheduleSlot{}).
		Where("id = ?", slot.ID).
		Updates(map[string]any{
			"is_locked":   true,
			"locked_by":   userID,
			"locked_at":   lockedAt,
			"lock_reason": reason,
		}).Error
	if err != nil {
		return nil, err
	}

	slot.IsLocked = true
	slot.LockedBy = &userID
	slot.LockedAt = &lockedAt
	slot.LockReason = reason

	s.publish(events.EventSlotLocked, organizationID, *slot, events.Payload{
		"user_id": userID,
		"reason":  reason,
	})

	return s.detail(ctx, *slot, nil, nil), nil
}

// UnlockSlot clears the lock and its metadata.
func (s *Store) UnlockSlot(ctx context.Context, organizationID, slotID, userID string) (*SlotDetail, error) {
	slot, err := s.loadSlot(ctx, organizationID, slotID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).
		Model(&models.ScheduleSlot{}).
		Where("id = ?", slot.ID).
		Updates(map[string]any{
			"is_locked":   false,
			"locked_by":   nil,
			"locked_at":   nil,
			"lock_reason": "",
		}).Error
	if err != nil {
		return nil, err
	}

	slot.IsLocked = false
	slot.LockedBy = nil
	slot.LockedAt = nil
	slot.LockReason = ""

	s.publish(events.EventSlotUnlocked, organizationID, *slot, events.Payload{
		"user_id": userID,
	})

	return s.detail(ctx, *slot, nil, nil), nil
}

// SlotFilter narrows FindSlots; nil fields are ignored.
type SlotFilter struct {
	FacilityID  *string
	MachineID   *string
	WorkOrderID *string
	FromDate    *time.Time
	ToDate      *time.Time
	IsLocked    *bool
	IsCompleted *bool
	HasConflict *bool
	Page        int
	Limit       int
}

// FindSlots lists slots for an organization, ordered by scheduled start
// then priority, paginated.
func (s *Store) FindSlots(ctx context.Context, organizationID string, filter SlotFilter) ([]models.ScheduleSlot, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.ScheduleSlot{}).
		Where("organization_id = ?", organizationID)

	if filter.FacilityID != nil {
		query = query.Where("facility_id = ?", *filter.FacilityID)
	}
	if filter.MachineID != nil {
		query = query.Where("machine_id = ?", *filter.MachineID)
	}
	if filter.WorkOrderID != nil {
		query = query.Where("work_order_id = ?", *filter.WorkOrderID)
	}
	if filter.FromDate != nil {
		query = query.Where("scheduled_start >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("scheduled_end <= ?", *filter.ToDate)
	}
	if filter.IsLocked != nil {
		query = query.Where("is_locked = ?", *filter.IsLocked)
	}
	if filter.IsCompleted != nil {
		query = query.Where("is_completed = ?", *filter.IsCompleted)
	}
	if filter.HasConflict != nil {
		query = query.Where("has_conflict = ?", *filter.HasConflict)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	var slots []models.ScheduleSlot
	err := query.
		Order("scheduled_start ASC").
		Order("priority ASC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&slots).Error
	if err != nil {
		return nil, 0, err
	}

	return slots, total, nil
}

// stampConflict runs the detector and records the result on the slot.
// A detector failure is treated as "no conflict found" rather than
// failing the write; the scan is advisory.
func (s *Store) stampConflict(ctx context.Context, slot *models.ScheduleSlot, excludeID string) {
	conflict, err := s.detector.FindConflict(ctx, slot.OrganizationID, slot.MachineID, slot.ScheduledStart, slot.ScheduledEnd, excludeID)
	if err != nil {
		s.logger.Warn().Err(err).Str("machine", slot.MachineID).Msg("conflict scan failed")
		return
	}
	if conflict == nil {
		slot.HasConflict = false
		slot.ConflictReason = ""
		return
	}
	slot.HasConflict = true
	slot.ConflictReason = fmt.Sprintf(
		"overlaps slot %s (%s - %s) on the same machine",
		conflict.ID,
		conflict.ScheduledStart.UTC().Format(time.RFC3339),
		conflict.ScheduledEnd.UTC().Format(time.RFC3339),
	)
	telemetry.SlotConflictsTotal.Inc()
}

func guardMutable(slot *models.ScheduleSlot) error {
	if slot.IsLocked {
		return &InvalidStateError{Reason: fmt.Sprintf("slot %s is locked", slot.ID)}
	}
	if slot.IsStarted {
		return &InvalidStateError{Reason: fmt.Sprintf("slot %s has already started", slot.ID)}
	}
	return nil
}

// propagateOperationSchedule mirrors slot timing onto the operation.
func propagateOperationSchedule(tx *gorm.DB, slot models.ScheduleSlot) error {
	return tx.Model(&models.Operation{}).
		Where("id = ?", slot.OperationID).
		Updates(map[string]any{
			"scheduled_start":      slot.ScheduledStart,
			"scheduled_end":        slot.ScheduledEnd,
			"scheduled_machine_id": slot.MachineID,
		}).Error
}

// clearOperationSchedule removes the mirror on slot deletion.
func clearOperationSchedule(tx *gorm.DB, operationID string) error {
	return tx.Model(&models.Operation{}).
		Where("id = ?", operationID).
		Updates(map[string]any{
			"scheduled_start":      nil,
			"scheduled_end":        nil,
			"scheduled_machine_id": nil,
		}).Error
}

func (s *Store) loadSlot(ctx context.Context, organizationID, slotID string) (*models.ScheduleSlot, error) {
	var slot models.ScheduleSlot
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", organizationID, slotID).
		First(&slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "slot", ID: slotID}
	}
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (s *Store) loadMachine(ctx context.Context, organizationID, machineID string) (*models.Machine, error) {
	var machine models.Machine
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", organizationID, machineID).
		First(&machine).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "machine", ID: machineID}
	}
	if err != nil {
		return nil, err
	}
	return &machine, nil
}

func (s *Store) loadOperation(ctx context.Context, organizationID, operationID string) (*models.Operation, error) {
	var operation models.Operation
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", organizationID, operationID).
		First(&operation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "operation", ID: operationID}
	}
	if err != nil {
		return nil, err
	}
	return &operation, nil
}

// detail attaches denormalized summaries; lookups that fail are simply
// omitted from the response.
func (s *Store) detail(ctx context.Context, slot models.ScheduleSlot, machine *models.Machine, operation *models.Operation) *SlotDetail {
	d := &SlotDetail{ScheduleSlot: slot}

	if machine == nil {
		machine, _ = s.loadMachine(ctx, slot.OrganizationID, slot.MachineID)
	}
	if machine != nil {
		d.Machine = &MachineSummary{
			ID:           machine.ID,
			Name:         machine.Name,
			Status:       machine.Status,
			WorkCenterID: machine.WorkCenterID,
		}
	}

	if operation == nil {
		operation, _ = s.loadOperation(ctx, slot.OrganizationID, slot.OperationID)
	}
	if operation != nil {
		d.Operation = &OperationSummary{
			ID:             operation.ID,
			Name:           operation.Name,
			Status:         operation.Status,
			SequenceNumber: operation.SequenceNumber,
		}
	}

	var workOrder models.WorkOrder
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", slot.OrganizationID, slot.WorkOrderID).
		First(&workOrder).Error
	if err == nil {
		d.WorkOrder = &WorkOrderSummary{
			ID:       workOrder.ID,
			Number:   workOrder.Number,
			Priority: workOrder.Priority,
			Status:   workOrder.Status,
			DueDate:  workOrder.DueDate,
		}
	}

	return d
}

func (s *Store) publish(eventType events.EventType, organizationID string, slot models.ScheduleSlot, extra events.Payload) {
	if s.bus == nil {
		return
	}
	payload := events.Payload{
		"organization_id": organizationID,
		"facility_id":     slot.FacilityID,
		"resource_type":   "slot",
		"resource_id":     slot.ID,
		"machine_id":      slot.MachineID,
		"operation_id":    slot.OperationID,
	}
	for k, v := range extra {
		payload[k] = v
	}
	s.bus.Publish(eventType, payload)
}
