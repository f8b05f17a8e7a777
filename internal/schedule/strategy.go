/*
Copyright (C) 2026 Millstone Systems

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/millstone-systems/forgeplan/internal/models"
)

// Strategy names accepted on the wire.
const (
	StrategyEarliestDueDate  = "earliest_due_date"
	StrategyShortestJobFirst = "shortest_job_first"
	StrategyCriticalRatio    = "critical_ratio"
	StrategyPriority         = "priority"
)

// candidate pairs an operation with its work order and estimated
// duration for ordering purposes.
type candidate struct {
	operation models.Operation
	workOrder models.WorkOrder
	duration  time.Duration
}

// Strategy orders auto-schedule candidates. The set of implementations
// is closed: ParseStrategy is the only constructor.
type Strategy interface {
	Name() string
	order(items []candidate, now time.Time)
}

// ParseStrategy resolves a wire name to a strategy. An empty name
// selects earliest_due_date.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "", StrategyEarliestDueDate:
		return earliestDueDate{}, nil
	case StrategyShortestJobFirst:
		return shortestJobFirst{}, nil
	case StrategyCriticalRatio:
		return criticalRatio{}, nil
	case StrategyPriority:
		return priorityRank{}, nil
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown scheduling strategy %q", name)}
	}
}

type earliestDueDate struct{}

func (earliestDueDate) Name() string { return StrategyEarliestDueDate }

func (earliestDueDate) order(items []candidate, _ time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].workOrder.DueDate.Before(items[j].workOrder.DueDate)
	})
}

type shortestJobFirst struct{}

func (shortestJobFirst) Name() string { return StrategyShortestJobFirst }

func (shortestJobFirst) order(items []candidate, _ time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].duration < items[j].duration
	})
}

// criticalRatio sorts by (time until due) / duration ascending: the
// smaller the ratio, the less slack the operation has.
type criticalRatio struct{}

func (criticalRatio) Name() string { return StrategyCriticalRatio }

func (criticalRatio) order(items []candidate, now time.Time) {
	ratio := func(c candidate) float64 {
		dur := c.duration
		if dur <= 0 {
			dur = time.Minute
		}
		return float64(c.workOrder.DueDate.Sub(now)) / float64(dur)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return ratio(items[i]) < ratio(items[j])
	})
}

type priorityRank struct{}

func (priorityRank) Name() string { return StrategyPriority }

func (priorityRank) order(items []candidate, _ time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := items[i].workOrder.Priority.Rank(), items[j].workOrder.Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		// Equal rank: earlier due date wins.
		return items[i].workOrder.DueDate.Before(items[j].workOrder.DueDate)
	})
}
