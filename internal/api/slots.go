/*
Copyright (C) 2026 Millstone Systems

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/millstone-systems/forgeplan/internal/auth"
	"github.com/millstone-systems/forgeplan/internal/schedule"
)

type slotCreateRequest struct {
	MachineID       string `json:"machine_id"`
	OperationID     string `json:"operation_id"`
	WorkOrderID     string `json:"work_order_id"`
	FacilityID      string `json:"facility_id"`
	ScheduledStart  string `json:"scheduled_start"`
	ScheduledEnd    string `json:"scheduled_end"`
	SetupMinutes    int    `json:"setup_minutes"`
	RunMinutes      int    `json:"run_minutes"`
	TeardownMinutes int    `json:"teardown_minutes"`
	Priority        int    `json:"priority"`
	SequenceNumber  int    `json:"sequence_number"`
}

type slotUpdateRequest struct {
	MachineID       *string `json:"machine_id"`
	ScheduledStart  *string `json:"scheduled_start"`
	ScheduledEnd    *string `json:"scheduled_end"`
	SetupMinutes    *int    `json:"setup_minutes"`
	RunMinutes      *int    `json:"run_minutes"`
	TeardownMinutes *int    `json:"teardown_minutes"`
	Priority        *int    `json:"priority"`
	SequenceNumber  *int    `json:"sequence_number"`
}

type slotLockRequest struct {
	Reason string `json:"reason"`
}

func (a *API) handleSlotsCreate(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req slotCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.MachineID == "" || req.OperationID == "" {
		writeError(w, http.StatusBadRequest, "machine_and_operation_required")
		return
	}

	start, err := time.Parse(time.RFC3339, req.ScheduledStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_scheduled_start")
		return
	}
	end, err := time.Parse(time.RFC3339, req.ScheduledEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_scheduled_end")
		return
	}

	detail, err := a.store.CreateSlot(r.Context(), claims.OrganizationID, schedule.CreateSlotInput{
		MachineID:       req.MachineID,
		OperationID:     req.OperationID,
		WorkOrderID:     req.WorkOrderID,
		FacilityID:      req.FacilityID,
		ScheduledStart:  start,
		ScheduledEnd:    end,
		SetupMinutes:    req.SetupMinutes,
		RunMinutes:      req.RunMinutes,
		TeardownMinutes: req.TeardownMinutes,
		Priority:        req.Priority,
		SequenceNumber:  req.SequenceNumber,
		ScheduledBy:     claims.UserID,
		Source:          schedule.SourceManual,
	})
	if err != nil {
		a.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, detail)
}

func (a *API) handleSlotsGet(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	slotID := chi.URLParam(r, "slotID")
	detail, err := a.store.GetSlot(r.Context(), claims.OrganizationID, slotID)
	if err != nil {
		a.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (a *API) handleSlotsList(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter := schedule.SlotFilter{}
	q := r.URL.Query()

	if v := q.Get("facility_id"); v != "" {
		filter.FacilityID = &v
	}
	if v := q.Get("machine_id"); v != "" {
		filter.MachineID = &v
	}
	if v := q.Get("work_order_id"); v != "" {
		filter.WorkOrderID = &v
	}
	if v := q.Get("from"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from")
			return
		}
		filter.FromDate = &from
	}
	if v := q.Get("to"); v != "" {
		to, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_to")
			return
		}
		filter.ToDate = &to
	}
	if v := q.Get("is_locked"); v != "" {
		locked := v == "true"
		filter.IsLocked = &locked
	}
	if v := q.Get("is_completed"); v != "" {
		completed := v == "true"
		filter.IsCompleted = &completed
	}
	if v := q.Get("has_conflict"); v != "" {
		conflict := v == "true"
		filter.HasConflict = &conflict
	}
	if v := q.Get("page"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			filter.Page = parsed
		}
	}
	if v := q.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			filter.Limit = parsed
		}
	}

	slots, total, err := a.store.FindSlots(r.Context(), claims.OrganizationID, filter)
	if err != nil {
		a.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"slots": slots,
		"total": total,
	})
}

func (a *API) handleSlotsUpdate(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	slotID := chi.URLParam(r, "slotID")
	var req slotUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	patch := schedule.UpdateSlotPatch{
		MachineID:       req.MachineID,
		SetupMinutes:    req.SetupMinutes,
		RunMinutes:      req.RunMinutes,
		TeardownMinutes: req.TeardownMinutes,
		Priority:        req.Priority,
		SequenceNumber:  req.SequenceNumber,
		UpdatedBy:       claims.UserID,
	}
	if req.ScheduledStart != nil {
		start, err := time.Parse(time.RFC3339, *req.ScheduledStart)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_scheduled_start")
			return
		}
		patch.ScheduledStart = &start
	}
	if req.ScheduledEnd != nil {
		end, err := time.Parse(time.RFC3339, *req.ScheduledEnd)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_scheduled_end")
			return
		}
		patch.ScheduledEnd = &end
	}

	detail, err := a.store.UpdateSlot(r.Context(), claims.OrganizationID, slotID, patch)
	if err != nil {
		a.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (a *API) handleSlotsDelete(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	slotID := chi.URLParam(r, "slotID")
	if err := a.store.DeleteSlot(r.Context(), claims.OrganizationID, slotID, claims.UserID); err != nil {
		a.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSlotsLock(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	slotID := chi.URLParam(r, "slotID")
	var req slotLockRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	detail, err := a.store.LockSlot(r.Context(), claims.OrganizationID, slotID, req.Reason, claims.UserID)
	if err != nil {
		a.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (a *API) handleSlotsUnlock(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	slotID := chi.URLParam(r, "slotID")
	detail, err := a.store.UnlockSlot(r.Context(), claims.OrganizationID, slotID, claims.UserID)
	if err != nil {
		a.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
