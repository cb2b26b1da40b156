package memory

import (
	"context"

	"github.com/personalagent/runtime/internal/domain"
)

// InsertExecution implements domain.ExecutionStore, treating a duplicate
// ExecutionID as a no-op (spec.md §4.2's idempotency requirement).
func (s *Store) InsertExecution(_ context.Context, exec domain.ScheduledExecution) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertExecutionLocked(exec), nil
}

func (s *Store) insertExecutionLocked(exec domain.ScheduledExecution) bool {
	if _, exists := s.executions[exec.ExecutionID]; exists {
		return false
	}
	s.executions[exec.ExecutionID] = exec
	return true
}

// ListExecutionsBySchedule implements domain.ExecutionStore.
func (s *Store) ListExecutionsBySchedule(_ context.Context, scheduleID string) ([]domain.ScheduledExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listExecutionsByScheduleLocked(scheduleID), nil
}

func (s *Store) listExecutionsByScheduleLocked(scheduleID string) []domain.ScheduledExecution {
	var out []domain.ScheduledExecution
	for _, e := range s.executions {
		if e.ScheduleID == scheduleID {
			out = append(out, e)
		}
	}
	return out
}

// GetExecution implements domain.ExecutionStore.
func (s *Store) GetExecution(_ context.Context, executionID string) (domain.ScheduledExecution, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.executions[executionID]
	return e, ok, nil
}

// txView adapts a locked *Store to the ExecutionStore/ScheduleStore/
// AuditStore ports for use inside RunCommandTx's callback, where the outer
// mutex is already held.
type txView struct{ s *Store }

func (v txView) InsertExecution(_ context.Context, exec domain.ScheduledExecution) (bool, error) {
	return v.s.insertExecutionLocked(exec), nil
}
func (v txView) ListExecutionsBySchedule(_ context.Context, scheduleID string) ([]domain.ScheduledExecution, error) {
	return v.s.listExecutionsByScheduleLocked(scheduleID), nil
}
func (v txView) GetExecution(_ context.Context, executionID string) (domain.ScheduledExecution, bool, error) {
	e, ok := v.s.executions[executionID]
	return e, ok, nil
}

func (v txView) GetSchedule(_ context.Context, scheduleID string) (domain.Schedule, error) {
	return v.s.getScheduleLocked(scheduleID)
}
func (v txView) ListSchedules(_ context.Context) ([]domain.Schedule, error) {
	return v.s.listSchedulesLocked(), nil
}
func (v txView) InsertSchedule(_ context.Context, sc domain.Schedule) error {
	v.s.insertScheduleLocked(sc)
	return nil
}
func (v txView) ApplyScheduleDelta(_ context.Context, scheduleID string, delta domain.ScheduleDelta) error {
	return v.s.applyScheduleDeltaLocked(scheduleID, delta)
}

func (v txView) WriteAudit(_ context.Context, entry domain.AuditEntry) error {
	v.s.writeAuditLocked(entry)
	return nil
}
func (v txView) ListAudit(_ context.Context, limit int) ([]domain.AuditEntry, error) {
	return v.s.listAuditLocked(limit), nil
}

// RunCommandTx implements domain.TxRunner. The whole Store is already
// serialized behind one mutex, so "atomic" here means "the callback runs
// under the same lock acquisition and its writes are applied to the maps
// directly with no interleaving reader or writer".
func (s *Store) RunCommandTx(ctx context.Context, fn func(ctx context.Context, execs domain.ExecutionStore, sched domain.ScheduleStore, audit domain.AuditStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	view := txView{s: s}
	return fn(ctx, view, view, view)
}
