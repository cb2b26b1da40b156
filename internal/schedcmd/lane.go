// Package schedcmd is the durable, idempotent Scheduler Command Lane from
// spec.md §4.2: the primary key is executionId; insert + schedule delta +
// audit write commit as a single atomic transaction.
package schedcmd

import (
	"context"

	"github.com/google/uuid"

	"github.com/personalagent/runtime/internal/clock"
	"github.com/personalagent/runtime/internal/domain"
)

// Payload is the command lane's input: the execution outcome a dispatch
// tick wants recorded, plus the schedule delta the Scheduler Runtime
// computed for it.
type Payload struct {
	Execution    domain.ScheduledExecution
	Delta        domain.ScheduleDelta
	OwnerAgentID string
}

// Result is the command lane's output.
type Result struct {
	Accepted bool
}

// Lane is the Scheduler Command Lane.
type Lane struct {
	tx    domain.TxRunner
	clock clock.Clock
}

// New constructs a Lane backed by tx, the atomic transaction runner shared
// with execution, schedule, and audit storage.
func New(tx domain.TxRunner, c clock.Clock) *Lane {
	return &Lane{tx: tx, clock: c}
}

// Execute implements spec.md §4.2: on a fresh executionId, insert the
// execution, apply the schedule delta, and write a
// "scheduler_command_completed" audit entry, all in one transaction. On a
// duplicate executionId, leave the schedule untouched and write a
// "scheduler_command_ignored" audit entry instead — both paths return
// {accepted:true}, and a transaction failure returns an error with no
// audit entry written.
func (l *Lane) Execute(ctx context.Context, payload Payload) (Result, error) {
	result := Result{}
	err := l.tx.RunCommandTx(ctx, func(ctx context.Context, execs domain.ExecutionStore, sched domain.ScheduleStore, audit domain.AuditStore) error {
		inserted, err := execs.InsertExecution(ctx, payload.Execution)
		if err != nil {
			return err
		}

		reason := "scheduler_command_ignored"
		if inserted {
			reason = "scheduler_command_completed"
			if err := sched.ApplyScheduleDelta(ctx, payload.Execution.ScheduleID, payload.Delta); err != nil {
				return err
			}
		}

		result.Accepted = true
		return audit.WriteAudit(ctx, domain.AuditEntry{
			AuditEntryID: uuid.NewString(),
			AgentID:      payload.OwnerAgentID,
			Decision:     domain.Allow,
			Reason:       reason,
			CreatedAt:    l.clock.Now(),
		})
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}
