/*
Copyright (C) 2026 Millstone Systems

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/millstone-systems/forgeplan/internal/events"
	"github.com/millstone-systems/forgeplan/internal/models"
)

// Service handles audit logging by subscribing to events and storing
// audit entries. The sink is fire-and-forget: a failed write is logged
// and dropped, never surfaced to the mutation that produced it.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger
}

// NewService creates a new audit service.
func NewService(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Start subscribes to scheduling events and logs them as audit entries.
func (s *Service) Start(ctx context.Context) {
	slotCreated := s.bus.Subscribe(events.EventSlotCreated)
	slotUpdated := s.bus.Subscribe(events.EventSlotUpdated)
	slotDeleted := s.bus.Subscribe(events.EventSlotDeleted)
	slotLocked := s.bus.Subscribe(events.EventSlotLocked)
	slotUnlocked := s.bus.Subscribe(events.EventSlotUnlocked)
	bulkScheduled := s.bus.Subscribe(events.EventBulkScheduled)
	autoScheduled := s.bus.Subscribe(events.EventAutoScheduled)

	defer func() {
		s.bus.Unsubscribe(events.EventSlotCreated, slotCreated)
		s.bus.Unsubscribe(events.EventSlotUpdated, slotUpdated)
		s.bus.Unsubscribe(events.EventSlotDeleted, slotDeleted)
		s.bus.Unsubscribe(events.EventSlotLocked, slotLocked)
		s.bus.Unsubscribe(events.EventSlotUnlocked, slotUnlocked)
		s.bus.Unsubscribe(events.EventBulkScheduled, bulkScheduled)
		s.bus.Unsubscribe(events.EventAutoScheduled, autoScheduled)
	}()

	s.logger.Info().Msg("audit service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("audit service stopping")
			return

		case payload := <-slotCreated:
			s.logAuditEntry(ctx, models.AuditActionSlotCreate, payload)

		case payload := <-slotUpdated:
			s.logAuditEntry(ctx, models.AuditActionSlotUpdate, payload)

		case payload := <-slotDeleted:
			s.logAuditEntry(ctx, models.AuditActionSlotDelete, payload)

		case payload := <-slotLocked:
			s.logAuditEntry(ctx, models.AuditActionSlotLock, payload)

		case payload := <-slotUnlocked:
			s.logAuditEntry(ctx, models.AuditActionSlotUnlock, payload)

		case payload := <-bulkScheduled:
			s.logAuditEntry(ctx, models.AuditActionBulkSchedule, payload)

		case payload := <-autoScheduled:
			s.logAuditEntry(ctx, models.AuditActionAutoSchedule, payload)
		}
	}
}

// logAuditEntry creates an audit log entry from an event payload.
func (s *Service) logAuditEntry(ctx context.Context, action models.AuditAction, payload events.Payload) {
	entry := &models.AuditLog{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Action:    action,
		Details:   make(map[string]any),
		CreatedAt: time.Now(),
	}

	if orgID, ok := payload["organization_id"].(string); ok {
		entry.OrganizationID = orgID
	}
	if userID, ok := payload["user_id"].(string); ok && userID != "" {
		entry.UserID = &userID
	}
	if facilityID, ok := payload["facility_id"].(string); ok && facilityID != "" {
		entry.FacilityID = &facilityID
	}
	if resourceType, ok := payload["resource_type"].(string); ok {
		entry.ResourceType = resourceType
	}
	if resourceID, ok := payload["resource_id"].(string); ok {
		entry.ResourceID = resourceID
	}

	for k, v := range payload {
		switch k {
		case "organization_id", "user_id", "facility_id", "resource_type", "resource_id":
			// Already extracted
		default:
			entry.Details[k] = v
		}
	}

	if err := s.Log(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("action", string(action)).
			Msg("failed to log audit entry")
	}
}

// Log records an audit entry directly (for non-event-bus actions).
func (s *Service) Log(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.Details == nil {
		entry.Details = make(map[string]any)
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return err
	}

	s.logger.Debug().
		Str("action", string(entry.Action)).
		Str("id", entry.ID).
		Msg("audit entry logged")

	return nil
}

// QueryFilters defines filters for querying audit logs.
type QueryFilters struct {
	UserID     *string
	FacilityID *string
	Action     *models.AuditAction
	StartTime  *time.Time
	EndTime    *time.Time
	Limit      int
	Offset     int
}

// Query retrieves audit logs for an organization with filters.
func (s *Service) Query(ctx context.Context, organizationID string, filters QueryFilters) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.AuditLog{}).
		Where("organization_id = ?", organizationID)

	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.FacilityID != nil {
		query = query.Where("facility_id = ?", *filters.FacilityID)
	}
	if filters.Action != nil {
		query = query.Where("action = ?", *filters.Action)
	}
	if filters.StartTime != nil {
		query = query.Where("timestamp >= ?", *filters.StartTime)
	}
	if filters.EndTime != nil {
		query = query.Where("timestamp <= ?", *filters.EndTime)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	} else {
		query = query.Limit(100)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Order("timestamp DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
