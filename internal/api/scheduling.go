/*
Copyright (C) 2026 Millstone Systems

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/millstone-systems/forgeplan/internal/auth"
	"github.com/millstone-systems/forgeplan/internal/schedule"
)

type bulkScheduleRequest struct {
	MachineID    string   `json:"machine_id"`
	OperationIDs []string `json:"operation_ids"`
	StartDate    string   `json:"start_date"`
	Mode         string   `json:"mode"`
}

type autoScheduleRequest struct {
	WorkOrderIDs []string `json:"work_order_ids"`
	FacilityID   string   `json:"facility_id"`
	HorizonDate  string   `json:"horizon_date"`
	Strategy     string   `json:"strategy"`
}

func (a *API) handleBulkSchedule(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req bulkScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.MachineID == "" {
		writeError(w, http.StatusBadRequest, "machine_id_required")
		return
	}

	startDate, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start_date")
		return
	}

	slots, err := a.packer.BulkSchedule(r.Context(), claims.OrganizationID, req.MachineID, req.OperationIDs, startDate, req.Mode, claims.UserID)
	if err != nil {
		// A partial failure still committed earlier slots; report both.
		if len(slots) > 0 {
			writeJSON(w, http.StatusMultiStatus, map[string]any{
				"slots": slots,
				"error": err.Error(),
			})
			return
		}
		a.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"slots": slots})
}

func (a *API) handleAutoSchedule(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req autoScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	// An omitted horizon falls back to the configured scheduling window.
	horizon := time.Now().Add(a.defaultHorizon)
	if req.HorizonDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.HorizonDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_horizon_date")
			return
		}
		horizon = parsed
	}

	result, err := a.autoScheduler.Run(r.Context(), claims.OrganizationID, schedule.AutoScheduleRequest{
		WorkOrderIDs: req.WorkOrderIDs,
		FacilityID:   req.FacilityID,
		HorizonDate:  horizon,
		Strategy:     req.Strategy,
		RequestedBy:  claims.UserID,
	})
	if err != nil {
		a.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
