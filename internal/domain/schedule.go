package domain

import "time"

// Trigger names the recurrence mechanism driving a schedule.
type Trigger string

const (
	CronTrigger     Trigger = "CronTrigger"
	IntervalTrigger Trigger = "IntervalTrigger"
	EventTrigger    Trigger = "EventTrigger"
)

// TriggerSource records what caused a ScheduledExecution to fire.
type TriggerSource string

const (
	CronTick    TriggerSource = "CronTick"
	IntervalTick TriggerSource = "IntervalTick"
	Event       TriggerSource = "Event"
	Manual      TriggerSource = "Manual"
)

// TriggerSourceFromTrigger maps a schedule's Trigger to the TriggerSource
// recorded on tickets it produces (spec.md §4.1 step 3).
func TriggerSourceFromTrigger(t Trigger) TriggerSource {
	switch t {
	case CronTrigger:
		return CronTick
	case IntervalTrigger:
		return IntervalTick
	case EventTrigger:
		return Event
	default:
		return Manual
	}
}

// ScheduleStatus is the lifecycle state of a Schedule.
type ScheduleStatus string

const (
	ScheduleActive   ScheduleStatus = "Active"
	SchedulePaused   ScheduleStatus = "Paused"
	ScheduleExpired  ScheduleStatus = "Expired"
	ScheduleDisabled ScheduleStatus = "Disabled"
)

// ConcurrencyPolicy controls overlap behavior across runs of one schedule.
// The scope of this spec runs the dispatch loop single-tick-at-a-time (§5),
// so ConcurrencyPolicy is recorded but not separately enforced beyond that.
type ConcurrencyPolicy string

const (
	ConcurrencyAllow   ConcurrencyPolicy = "Allow"
	ConcurrencyForbid  ConcurrencyPolicy = "Forbid"
	ConcurrencyReplace ConcurrencyPolicy = "Replace"
)

// RecurrencePattern describes how often a schedule fires.
type RecurrencePattern struct {
	Label           string
	CronExpression  *string
	IntervalSeconds *int64
}

// Schedule is a recurring trigger bound to an actionRef owned by an agent.
type Schedule struct {
	ScheduleID            string
	OwnerAgentID          string
	RecurrencePattern     RecurrencePattern
	Trigger               Trigger
	ActionRef             string
	ScheduleStatus        ScheduleStatus
	ConcurrencyPolicy     ConcurrencyPolicy
	AllowsCatchUp         bool
	AutoDisableAfterRun   bool
	CatchUpWindowSeconds  int64
	MaxCatchUpRunsPerTick int
	LastExecutionAt       *time.Time
	NextExecutionAt       *time.Time
}

// HasRecurrence reports whether the schedule carries at least one of
// cronExpression/intervalSeconds, the invariant required to produce due
// windows (spec.md §3).
func (s Schedule) HasRecurrence() bool {
	return s.RecurrencePattern.CronExpression != nil || s.RecurrencePattern.IntervalSeconds != nil
}

// ExecutionOutcome is the result recorded for a ScheduledExecution.
type ExecutionOutcome string

const (
	Succeeded ExecutionOutcome = "Succeeded"
	Failed    ExecutionOutcome = "Failed"
	Skipped   ExecutionOutcome = "Skipped"
)

// ScheduledExecution is the durable, idempotent record of one due window
// of a schedule having been dispatched. ExecutionID is the idempotency key
// for the command lane (spec.md §3).
type ScheduledExecution struct {
	ExecutionID   string
	ScheduleID    string
	DueAt         time.Time
	TriggerSource TriggerSource
	Outcome       ExecutionOutcome
	StartedAt     time.Time
	EndedAt       *time.Time
	SkipReason    *string
	CreatedAt     time.Time
}

// ExecutionTicket is the in-memory handle for a single due window of a
// schedule, produced by the Scheduler Runtime and consumed by the Dispatch
// Loop / Action Executor.
type ExecutionTicket struct {
	ExecutionID   string
	ScheduleID    string
	OwnerAgentID  string
	DueAt         time.Time
	TriggerSource TriggerSource
	StartedAt     time.Time
	ActionRef     string
}
