/*
Copyright (C) 2026 Millstone Systems

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"testing"
	"time"

	"github.com/millstone-systems/forgeplan/internal/models"
)

func makeCandidate(id string, priority models.WorkOrderPriority, due time.Time, duration time.Duration) candidate {
	return candidate{
		operation: models.Operation{ID: id},
		workOrder: models.WorkOrder{Priority: priority, DueDate: due},
		duration:  duration,
	}
}

func candidateIDs(items []candidate) []string {
	ids := make([]string, len(items))
	for i, c := range items {
		ids[i] = c.operation.ID
	}
	return ids
}

func assertOrder(t *testing.T, items []candidate, want ...string) {
	t.Helper()
	got := candidateIDs(items)
	if len(got) != len(want) {
		t.Fatalf("expected %d candidates, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestParseStrategy(t *testing.T) {
	for _, name := range []string{"", StrategyEarliestDueDate, StrategyShortestJobFirst, StrategyCriticalRatio, StrategyPriority} {
		if _, err := ParseStrategy(name); err != nil {
			t.Fatalf("ParseStrategy(%q): %v", name, err)
		}
	}

	if _, err := ParseStrategy("fifo"); !IsValidation(err) {
		t.Fatalf("expected validation error for unknown strategy, got %v", err)
	}

	s, _ := ParseStrategy("")
	if s.Name() != StrategyEarliestDueDate {
		t.Fatalf("empty strategy should default to earliest_due_date, got %s", s.Name())
	}
}

func TestEarliestDueDateOrder(t *testing.T) {
	now := at(8, 0)
	items := []candidate{
		makeCandidate("b", models.PriorityNormal, now.Add(48*time.Hour), time.Hour),
		makeCandidate("a", models.PriorityNormal, now.Add(24*time.Hour), time.Hour),
		makeCandidate("c", models.PriorityNormal, now.Add(72*time.Hour), time.Hour),
	}
	earliestDueDate{}.order(items, now)
	assertOrder(t, items, "a", "b", "c")
}

func TestShortestJobFirstOrder(t *testing.T) {
	now := at(8, 0)
	items := []candidate{
		makeCandidate("long", models.PriorityNormal, now, 3*time.Hour),
		makeCandidate("short", models.PriorityNormal, now, 30*time.Minute),
		makeCandidate("mid", models.PriorityNormal, now, time.Hour),
	}
	shortestJobFirst{}.order(items, now)
	assertOrder(t, items, "short", "mid", "long")
}

func TestCriticalRatioOrder(t *testing.T) {
	now := at(8, 0)
	// Same due date: the longer job has the smaller ratio, so it goes first.
	items := []candidate{
		makeCandidate("slack", models.PriorityNormal, now.Add(10*time.Hour), time.Hour),
		makeCandidate("tight", models.PriorityNormal, now.Add(10*time.Hour), 5*time.Hour),
	}
	criticalRatio{}.order(items, now)
	assertOrder(t, items, "tight", "slack")

	// Overdue work sorts ahead of future work.
	items = []candidate{
		makeCandidate("future", models.PriorityNormal, now.Add(10*time.Hour), time.Hour),
		makeCandidate("overdue", models.PriorityNormal, now.Add(-2*time.Hour), time.Hour),
	}
	criticalRatio{}.order(items, now)
	assertOrder(t, items, "overdue", "future")
}

func TestPriorityRankOrder(t *testing.T) {
	now := at(8, 0)
	items := []candidate{
		makeCandidate("low", models.PriorityLow, now, time.Hour),
		makeCandidate("critical", models.PriorityCritical, now, time.Hour),
		makeCandidate("normal", models.PriorityNormal, now, time.Hour),
		makeCandidate("urgent", models.PriorityUrgent, now, time.Hour),
	}
	priorityRank{}.order(items, now)
	assertOrder(t, items, "critical", "urgent", "normal", "low")

	// Equal ranks break ties on due date.
	items = []candidate{
		makeCandidate("later", models.PriorityHigh, now.Add(48*time.Hour), time.Hour),
		makeCandidate("sooner", models.PriorityHigh, now.Add(12*time.Hour), time.Hour),
	}
	priorityRank{}.order(items, now)
	assertOrder(t, items, "sooner", "later")
}
