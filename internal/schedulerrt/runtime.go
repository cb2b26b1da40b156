// Package schedulerrt is the pure recurrence engine from spec.md §4.1:
// turns (schedule, now) into a deterministic set of due ExecutionTickets,
// and folds a completed ticket back into a schedule delta. It touches no
// storage port directly — the dispatch loop and command lane own
// persistence (spec.md §4.2, §4.3).
package schedulerrt

import (
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/personalagent/runtime/internal/domain"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Runtime computes due windows and folds completed tickets back into
// schedule deltas, per spec.md §4.1.
type Runtime struct{}

// New constructs a Runtime. It carries no state and keeps no record of
// in-flight tickets; CompleteExecution returns only the schedule delta.
func New() *Runtime {
	return &Runtime{}
}

// ClaimDue implements spec.md §4.1 claimDue: for every schedule, compute
// dueWindows(schedule, now) and emit one ExecutionTicket per due window.
func (r *Runtime) ClaimDue(schedules []domain.Schedule, now time.Time) []domain.ExecutionTicket {
	var tickets []domain.ExecutionTicket
	for _, sc := range schedules {
		for _, dueAt := range dueWindows(sc, now) {
			tickets = append(tickets, r.newTicket(sc, dueAt, domain.TriggerSourceFromTrigger(sc.Trigger), now))
		}
	}
	return tickets
}

// TriggerNow implements spec.md §4.1 triggerNow: emit a single Manual
// ticket regardless of scheduleStatus; nil if the schedule has no valid
// recurrence.
func (r *Runtime) TriggerNow(sc domain.Schedule, now time.Time) *domain.ExecutionTicket {
	if !sc.HasRecurrence() {
		return nil
	}
	ticket := r.newTicket(sc, now, domain.Manual, now)
	return &ticket
}

func (r *Runtime) newTicket(sc domain.Schedule, dueAt time.Time, source domain.TriggerSource, now time.Time) domain.ExecutionTicket {
	return domain.ExecutionTicket{
		ExecutionID:   uuid.NewString(),
		ScheduleID:    sc.ScheduleID,
		OwnerAgentID:  sc.OwnerAgentID,
		DueAt:         dueAt,
		TriggerSource: source,
		StartedAt:     now,
		ActionRef:     sc.ActionRef,
	}
}

// dueWindows implements spec.md §4.1 step 2, in order; the first false gate
// returns an empty slice.
func dueWindows(sc domain.Schedule, now time.Time) []time.Time {
	if sc.ScheduleStatus != domain.ScheduleActive {
		return nil
	}
	if sc.NextExecutionAt == nil {
		return nil
	}
	if !sc.HasRecurrence() {
		return nil
	}
	if sc.NextExecutionAt.After(now) {
		return nil
	}

	var windows []time.Time
	switch {
	case sc.RecurrencePattern.IntervalSeconds != nil && *sc.RecurrencePattern.IntervalSeconds > 0:
		step := time.Duration(*sc.RecurrencePattern.IntervalSeconds) * time.Second
		for t := *sc.NextExecutionAt; !t.After(now); t = t.Add(step) {
			windows = append(windows, t)
		}
	case sc.RecurrencePattern.CronExpression != nil:
		// A cron schedule fires once per claim, at nextExecutionAt;
		// CompleteExecution advances it to the next cron instant.
		if _, err := cronParser.Parse(*sc.RecurrencePattern.CronExpression); err != nil {
			return nil
		}
		return []time.Time{*sc.NextExecutionAt}
	default:
		return []time.Time{*sc.NextExecutionAt}
	}

	if sc.CatchUpWindowSeconds > 0 {
		cutoff := now.Add(-time.Duration(sc.CatchUpWindowSeconds) * time.Second)
		filtered := windows[:0:0]
		for _, w := range windows {
			if !w.Before(cutoff) {
				filtered = append(filtered, w)
			}
		}
		windows = filtered
	}

	if len(windows) == 0 {
		return windows
	}

	if sc.AllowsCatchUp {
		max := sc.MaxCatchUpRunsPerTick
		if max < 0 {
			max = 0
		}
		if max < len(windows) {
			windows = windows[:max]
		}
		return windows
	}

	return windows[len(windows)-1:]
}

// CompleteExecution implements spec.md §4.1 completeExecution: computes the
// schedule delta to apply after recording ticket's outcome. Persistence
// happens in the command lane (§4.2), not here.
func CompleteExecution(sc domain.Schedule, ticket domain.ExecutionTicket, outcome domain.ExecutionOutcome, endedAt time.Time) domain.ScheduleDelta {
	var nextExecutionAt *time.Time
	switch {
	case sc.RecurrencePattern.IntervalSeconds != nil && *sc.RecurrencePattern.IntervalSeconds > 0:
		next := ticket.DueAt.Add(time.Duration(*sc.RecurrencePattern.IntervalSeconds) * time.Second)
		nextExecutionAt = &next
	case sc.RecurrencePattern.CronExpression != nil:
		if schedule, err := cronParser.Parse(*sc.RecurrencePattern.CronExpression); err == nil {
			next := schedule.Next(ticket.DueAt)
			nextExecutionAt = &next
		}
	case sc.NextExecutionAt != nil && sc.NextExecutionAt.After(ticket.DueAt):
		nextExecutionAt = sc.NextExecutionAt
	default:
		nextExecutionAt = nil
	}

	status := sc.ScheduleStatus
	if sc.AutoDisableAfterRun {
		status = domain.ScheduleDisabled
		nextExecutionAt = nil
	}

	lastExecutionAt := endedAt
	return domain.ScheduleDelta{
		NextExecutionAt: nextExecutionAt,
		LastExecutionAt: &lastExecutionAt,
		ScheduleStatus:  status,
	}
}
