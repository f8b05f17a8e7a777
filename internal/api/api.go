/*
Copyright (C) 2026 Millstone Systems

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/millstone-systems/forgeplan/internal/audit"
	"github.com/millstone-systems/forgeplan/internal/auth"
	"github.com/millstone-systems/forgeplan/internal/capacity"
	"github.com/millstone-systems/forgeplan/internal/events"
	"github.com/millstone-systems/forgeplan/internal/models"
	"github.com/millstone-systems/forgeplan/internal/schedule"
)

// API exposes HTTP handlers.
type API struct {
	db            *gorm.DB
	jwtSecret     []byte
	store         *schedule.Store
	packer        *schedule.Packer
	autoScheduler *schedule.AutoScheduler
	capacitySvc   *capacity.Service
	auditSvc      *audit.Service
	bus           *events.Bus

	// defaultHorizon bounds auto-schedule runs when the request carries
	// no horizon_date.
	defaultHorizon time.Duration

	logger zerolog.Logger
}

// New creates the API router wrapper.
func New(db *gorm.DB, jwtSecret []byte, store *schedule.Store, packer *schedule.Packer, autoScheduler *schedule.AutoScheduler, capacitySvc *capacity.Service, auditSvc *audit.Service, bus *events.Bus, defaultHorizon time.Duration, logger zerolog.Logger) *API {
	return &API{
		db:             db,
		jwtSecret:      jwtSecret,
		store:          store,
		packer:         packer,
		autoScheduler:  autoScheduler,
		capacitySvc:    capacitySvc,
		auditSvc:       auditSvc,
		bus:            bus,
		defaultHorizon: defaultHorizon,
		logger:         logger,
	}
}

// Routes mounts API routes on the provided router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Group(func(pr chi.Router) {
			pr.Use(auth.Middleware(a.jwtSecret))

			pr.Route("/slots", func(r chi.Router) {
				r.Get("/", a.handleSlotsList)
				r.With(a.requireScheduler()).Post("/", a.handleSlotsCreate)
				r.Route("/{slotID}", func(r chi.Router) {
					r.Get("/", a.handleSlotsGet)
					r.With(a.requireScheduler()).Patch("/", a.handleSlotsUpdate)
					r.With(a.requireScheduler()).Delete("/", a.handleSlotsDelete)
					r.With(a.requireScheduler()).Post("/lock", a.handleSlotsLock)
					r.With(a.requireScheduler()).Post("/unlock", a.handleSlotsUnlock)
				})
			})

			pr.Route("/scheduling", func(r chi.Router) {
				r.With(a.requireScheduler()).Post("/bulk", a.handleBulkSchedule)
				r.With(a.requireScheduler()).Post("/auto", a.handleAutoSchedule)
			})

			pr.Route("/capacity", func(r chi.Router) {
				r.Get("/machines/{machineID}", a.handleMachineCapacity)
				r.Get("/facilities/{facilityID}", a.handleFacilityCapacity)
			})

			pr.Get("/machines", a.handleMachinesList)
			pr.Get("/workcenters", a.handleWorkCentersList)

			pr.With(auth.RequireRoles(models.RoleAdmin)).Get("/audit", a.handleAuditList)
		})
	})
}

func (a *API) requireScheduler() func(http.Handler) http.Handler {
	return auth.RequireRoles(models.RoleAdmin, models.RoleScheduler)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleMachinesList(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	query := a.db.WithContext(r.Context()).
		Where("organization_id = ?", claims.OrganizationID)
	if facilityID := r.URL.Query().Get("facility_id"); facilityID != "" {
		query = query.Where("facility_id = ?", facilityID)
	}
	if workCenterID := r.URL.Query().Get("work_center_id"); workCenterID != "" {
		query = query.Where("work_center_id = ?", workCenterID)
	}

	var machines []models.Machine
	if err := query.Order("name ASC").Find(&machines).Error; err != nil {
		a.logger.Error().Err(err).Msg("list machines failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"machines": machines})
}

func (a *API) handleWorkCentersList(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	query := a.db.WithContext(r.Context()).
		Where("organization_id = ?", claims.OrganizationID)
	if facilityID := r.URL.Query().Get("facility_id"); facilityID != "" {
		query = query.Where("facility_id = ?", facilityID)
	}

	var centers []models.WorkCenter
	if err := query.Order("name ASC").Find(&centers).Error; err != nil {
		a.logger.Error().Err(err).Msg("list work centers failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"work_centers": centers})
}

// writeEngineError maps engine error types to HTTP status codes.
func (a *API) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case schedule.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "detail": err.Error()})
	case schedule.IsInvalidState(err):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "invalid_state", "detail": err.Error()})
	case schedule.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "validation_error", "detail": err.Error()})
	default:
		a.logger.Error().Err(err).Msg("engine call failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
