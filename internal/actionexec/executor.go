// Package actionexec is the Action Executor from spec.md §4.4: given a
// ticket, it checks governance policy and then dispatches by actionRef.
// It never returns an error for ticket failures — those are folded into
// the returned ExecutionOutcome, matching the dispatch loop's contract
// that the executor must not throw (spec.md §4.3 step 2a).
package actionexec

import (
	"context"
	"log/slog"

	"github.com/personalagent/runtime/internal/domain"
)

// PolicyEvaluator is the governance dependency the executor consults
// before dispatching a ticket.
type PolicyEvaluator interface {
	EvaluatePolicy(ctx context.Context, input domain.PolicyInput) (domain.PolicyResult, error)
}

// HealthChecker backs the "action:health_check" actionRef: it reports
// whether the store is reachable via a trivial query.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// ActionFunc is a registered handler for one actionRef. A nil return is
// recorded as Succeeded; a returned error is folded into Failed.
type ActionFunc func(ctx context.Context, ticket domain.ExecutionTicket) error

const (
	actionLog         = "action:log"
	actionHealthCheck = "action:health_check"
)

// Executor dispatches ExecutionTickets by actionRef after a governance
// check, per spec.md §4.4.
type Executor struct {
	policy   PolicyEvaluator
	health   HealthChecker
	logger   *slog.Logger
	registry map[string]ActionFunc
}

// New constructs an Executor. health may be nil, in which case
// "action:health_check" always succeeds (no store to ping).
func New(policy PolicyEvaluator, health HealthChecker, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Executor{policy: policy, health: health, logger: logger}
	e.registry = map[string]ActionFunc{
		actionLog: func(ctx context.Context, ticket domain.ExecutionTicket) error {
			e.logger.Info("action executed", "actionRef", actionLog, "scheduleId", ticket.ScheduleID, "executionId", ticket.ExecutionID)
			return nil
		},
		actionHealthCheck: func(ctx context.Context, ticket domain.ExecutionTicket) error {
			if e.health == nil {
				return nil
			}
			return e.health.Ping(ctx)
		},
	}
	return e
}

// Execute implements spec.md §4.4: evaluate policy, then dispatch by
// actionRef. Unknown actionRefs succeed permissively, matching the spec's
// extension-point semantics.
func (e *Executor) Execute(ctx context.Context, ticket domain.ExecutionTicket) domain.ExecutionOutcome {
	result, err := e.policy.EvaluatePolicy(ctx, domain.PolicyInput{
		AgentID: ticket.OwnerAgentID,
		Action:  "ExecuteSchedule",
	})
	if err != nil {
		e.logger.Error("action executor policy check failed", "scheduleId", ticket.ScheduleID, "error", err)
		return domain.Failed
	}
	if result.Decision != domain.Allow {
		e.logger.Warn("action executor skipped ticket: policy denied", "scheduleId", ticket.ScheduleID, "decision", result.Decision, "reason", result.Reason)
		return domain.Skipped
	}

	fn, ok := e.registry[ticket.ActionRef]
	if !ok {
		e.logger.Info("action executor: unregistered actionRef, treating as permissive no-op", "actionRef", ticket.ActionRef, "scheduleId", ticket.ScheduleID)
		return domain.Succeeded
	}

	if err := fn(ctx, ticket); err != nil {
		e.logger.Error("action execution failed", "actionRef", ticket.ActionRef, "scheduleId", ticket.ScheduleID, "error", err)
		return domain.Failed
	}
	return domain.Succeeded
}
