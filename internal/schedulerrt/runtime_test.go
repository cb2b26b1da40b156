package schedulerrt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/personalagent/runtime/internal/domain"
)

func ptrInt64(v int64) *int64 { return &v }
func ptrTime(t time.Time) *time.Time { return &t }

func TestClaimDueSkipsInactiveOrMissingNextExecution(t *testing.T) {
	rt := New()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	paused := domain.Schedule{
		ScheduleID:      "paused",
		ScheduleStatus:  domain.SchedulePaused,
		NextExecutionAt: ptrTime(now.Add(-time.Hour)),
		RecurrencePattern: domain.RecurrencePattern{IntervalSeconds: ptrInt64(60)},
	}
	noNext := domain.Schedule{
		ScheduleID:        "no-next",
		ScheduleStatus:    domain.ScheduleActive,
		RecurrencePattern: domain.RecurrencePattern{IntervalSeconds: ptrInt64(60)},
	}
	notDue := domain.Schedule{
		ScheduleID:        "not-due",
		ScheduleStatus:    domain.ScheduleActive,
		NextExecutionAt:   ptrTime(now.Add(time.Hour)),
		RecurrencePattern: domain.RecurrencePattern{IntervalSeconds: ptrInt64(60)},
	}

	tickets := rt.ClaimDue([]domain.Schedule{paused, noNext, notDue}, now)
	require.Empty(t, tickets)
}

func TestClaimDueFixedPointFiresOnce(t *testing.T) {
	rt := New()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	sc := domain.Schedule{
		ScheduleID:        "sched-1",
		OwnerAgentID:      "agent-1",
		ScheduleStatus:    domain.ScheduleActive,
		Trigger:           domain.CronTrigger,
		ActionRef:         "action:log",
		NextExecutionAt:   ptrTime(now.Add(-time.Minute)),
		RecurrencePattern: domain.RecurrencePattern{CronExpression: strPtr("@hourly")},
	}

	tickets := rt.ClaimDue([]domain.Schedule{sc}, now)
	require.Len(t, tickets, 1)
	require.Equal(t, domain.CronTick, tickets[0].TriggerSource)
	require.Equal(t, *sc.NextExecutionAt, tickets[0].DueAt)
	require.NotEmpty(t, tickets[0].ExecutionID)
}

func TestClaimDueIntervalCatchUpKeepsBoundedRuns(t *testing.T) {
	rt := New()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	sc := domain.Schedule{
		ScheduleID:            "sched-2",
		ScheduleStatus:        domain.ScheduleActive,
		Trigger:               domain.IntervalTrigger,
		NextExecutionAt:       ptrTime(now.Add(-10 * time.Minute)),
		AllowsCatchUp:         true,
		MaxCatchUpRunsPerTick: 2,
		RecurrencePattern:     domain.RecurrencePattern{IntervalSeconds: ptrInt64(60)},
	}

	tickets := rt.ClaimDue([]domain.Schedule{sc}, now)
	require.Len(t, tickets, 2)
	for _, tk := range tickets {
		require.Equal(t, domain.IntervalTick, tk.TriggerSource)
	}
}

func TestClaimDueIntervalWithoutCatchUpKeepsLastOnly(t *testing.T) {
	rt := New()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	sc := domain.Schedule{
		ScheduleID:        "sched-3",
		ScheduleStatus:    domain.ScheduleActive,
		Trigger:           domain.IntervalTrigger,
		NextExecutionAt:   ptrTime(now.Add(-10 * time.Minute)),
		AllowsCatchUp:     false,
		RecurrencePattern: domain.RecurrencePattern{IntervalSeconds: ptrInt64(60)},
	}

	tickets := rt.ClaimDue([]domain.Schedule{sc}, now)
	require.Len(t, tickets, 1)
	require.Equal(t, now, tickets[0].DueAt)
}

func TestTriggerNowRequiresRecurrence(t *testing.T) {
	rt := New()
	now := time.Now().UTC()

	withoutRecurrence := domain.Schedule{ScheduleID: "sched-4"}
	require.Nil(t, rt.TriggerNow(withoutRecurrence, now))

	withRecurrence := domain.Schedule{
		ScheduleID:        "sched-5",
		ScheduleStatus:    domain.SchedulePaused,
		RecurrencePattern: domain.RecurrencePattern{IntervalSeconds: ptrInt64(60)},
	}
	ticket := rt.TriggerNow(withRecurrence, now)
	require.NotNil(t, ticket)
	require.Equal(t, domain.Manual, ticket.TriggerSource)
}

func TestCompleteExecutionAdvancesIntervalSchedule(t *testing.T) {
	dueAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	endedAt := dueAt.Add(5 * time.Second)
	sc := domain.Schedule{
		ScheduleStatus:    domain.ScheduleActive,
		RecurrencePattern: domain.RecurrencePattern{IntervalSeconds: ptrInt64(60)},
	}
	ticket := domain.ExecutionTicket{DueAt: dueAt}

	delta := CompleteExecution(sc, ticket, domain.Succeeded, endedAt)
	require.NotNil(t, delta.NextExecutionAt)
	require.Equal(t, dueAt.Add(60*time.Second), *delta.NextExecutionAt)
	require.Equal(t, domain.ScheduleActive, delta.ScheduleStatus)
}

func TestCompleteExecutionAutoDisableClearsNext(t *testing.T) {
	dueAt := time.Now().UTC()
	sc := domain.Schedule{
		ScheduleStatus:      domain.ScheduleActive,
		AutoDisableAfterRun: true,
		RecurrencePattern:   domain.RecurrencePattern{IntervalSeconds: ptrInt64(60)},
	}
	ticket := domain.ExecutionTicket{DueAt: dueAt}

	delta := CompleteExecution(sc, ticket, domain.Succeeded, dueAt.Add(time.Second))
	require.Nil(t, delta.NextExecutionAt)
	require.Equal(t, domain.ScheduleDisabled, delta.ScheduleStatus)
}

func TestCompleteExecutionAdvancesCronSchedule(t *testing.T) {
	dueAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	sc := domain.Schedule{
		ScheduleStatus:    domain.ScheduleActive,
		RecurrencePattern: domain.RecurrencePattern{CronExpression: strPtr("@hourly")},
	}
	ticket := domain.ExecutionTicket{DueAt: dueAt}

	delta := CompleteExecution(sc, ticket, domain.Succeeded, dueAt.Add(time.Second))
	require.NotNil(t, delta.NextExecutionAt)
	require.Equal(t, time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC), *delta.NextExecutionAt)
}

func strPtr(s string) *string { return &s }
