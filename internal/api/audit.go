/*
Copyright (C) 2026 Millstone Systems

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/millstone-systems/forgeplan/internal/audit"
	"github.com/millstone-systems/forgeplan/internal/auth"
	"github.com/millstone-systems/forgeplan/internal/models"
)

func (a *API) handleAuditList(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filters := audit.QueryFilters{}
	q := r.URL.Query()

	if v := q.Get("user_id"); v != "" {
		filters.UserID = &v
	}
	if v := q.Get("facility_id"); v != "" {
		filters.FacilityID = &v
	}
	if v := q.Get("action"); v != "" {
		action := models.AuditAction(v)
		filters.Action = &action
	}
	if v := q.Get("start"); v != "" {
		start, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start")
			return
		}
		filters.StartTime = &start
	}
	if v := q.Get("end"); v != "" {
		end, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end")
			return
		}
		filters.EndTime = &end
	}
	if v := q.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			filters.Limit = parsed
		}
	}
	if v := q.Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			filters.Offset = parsed
		}
	}

	logs, total, err := a.auditSvc.Query(r.Context(), claims.OrganizationID, filters)
	if err != nil {
		a.logger.Error().Err(err).Msg("audit query failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": logs,
		"total":   total,
	})
}
