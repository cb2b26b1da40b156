package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/personalagent/runtime/internal/domain"
)

func (s *Store) initExecutionSchema() error {
	schema := `CREATE TABLE IF NOT EXISTS executions (
		execution_id   TEXT PRIMARY KEY,
		schedule_id    TEXT NOT NULL,
		due_at         TEXT NOT NULL,
		trigger_source TEXT NOT NULL,
		outcome        TEXT NOT NULL,
		started_at     TEXT NOT NULL,
		ended_at       TEXT,
		skip_reason    TEXT,
		created_at     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_executions_schedule ON executions (schedule_id)`
	_, err := s.db.Exec(schema)
	return err
}

type executionExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// InsertExecution implements domain.ExecutionStore, treating a duplicate
// ExecutionID (the command lane's idempotency key, spec.md §4.2) as a no-op
// rather than an error.
func (s *Store) InsertExecution(ctx context.Context, exec domain.ScheduledExecution) (bool, error) {
	return insertExecutionTx(ctx, s.db, exec)
}

// ListExecutionsBySchedule implements domain.ExecutionStore.
func (s *Store) ListExecutionsBySchedule(ctx context.Context, scheduleID string) ([]domain.ScheduledExecution, error) {
	rows, err := s.db.QueryContext(ctx, executionSelectColumns+` FROM executions WHERE schedule_id = ? ORDER BY due_at ASC`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ScheduledExecution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetExecution implements domain.ExecutionStore.
func (s *Store) GetExecution(ctx context.Context, executionID string) (domain.ScheduledExecution, bool, error) {
	return getExecutionTx(ctx, s.db, executionID)
}

const executionSelectColumns = `SELECT execution_id, schedule_id, due_at, trigger_source, outcome, started_at, ended_at, skip_reason, created_at`

func insertExecutionTx(ctx context.Context, q executionExecer, exec domain.ScheduledExecution) (bool, error) {
	_, _, found, err := lookupExecution(ctx, q, exec.ExecutionID)
	if err != nil {
		return false, err
	}
	if found {
		return false, nil
	}

	var endedAt any
	if exec.EndedAt != nil {
		endedAt = exec.EndedAt.UTC().Format(time.RFC3339Nano)
	}
	if _, err := q.ExecContext(ctx,
		`INSERT INTO executions (execution_id, schedule_id, due_at, trigger_source, outcome, started_at, ended_at, skip_reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exec.ExecutionID, exec.ScheduleID, exec.DueAt.UTC().Format(time.RFC3339Nano), string(exec.TriggerSource),
		string(exec.Outcome), exec.StartedAt.UTC().Format(time.RFC3339Nano), endedAt, exec.SkipReason,
		exec.CreatedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return false, err
	}
	return true, nil
}

func lookupExecution(ctx context.Context, q executionExecer, executionID string) (domain.ScheduledExecution, bool, bool, error) {
	e, ok, err := getExecutionTx(ctx, q, executionID)
	return e, ok, ok, err
}

func getExecutionTx(ctx context.Context, q executionExecer, executionID string) (domain.ScheduledExecution, bool, error) {
	row := q.QueryRowContext(ctx, executionSelectColumns+` FROM executions WHERE execution_id = ?`, executionID)
	e, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ScheduledExecution{}, false, nil
		}
		return domain.ScheduledExecution{}, false, err
	}
	return e, true, nil
}

type executionRowScanner interface {
	Scan(dest ...any) error
}

func scanExecution(row executionRowScanner) (domain.ScheduledExecution, error) {
	var e domain.ScheduledExecution
	var triggerSource, outcome, dueAt, startedAt, createdAt string
	var endedAt, skipReason sql.NullString
	if err := row.Scan(&e.ExecutionID, &e.ScheduleID, &dueAt, &triggerSource, &outcome, &startedAt, &endedAt, &skipReason, &createdAt); err != nil {
		return domain.ScheduledExecution{}, err
	}
	e.TriggerSource = domain.TriggerSource(triggerSource)
	e.Outcome = domain.ExecutionOutcome(outcome)
	var err error
	if e.DueAt, err = time.Parse(time.RFC3339Nano, dueAt); err != nil {
		return domain.ScheduledExecution{}, err
	}
	if e.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return domain.ScheduledExecution{}, err
	}
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return domain.ScheduledExecution{}, err
	}
	if endedAt.Valid && endedAt.String != "" {
		t, err := time.Parse(time.RFC3339Nano, endedAt.String)
		if err != nil {
			return domain.ScheduledExecution{}, err
		}
		e.EndedAt = &t
	}
	if skipReason.Valid {
		e.SkipReason = &skipReason.String
	}
	return e, nil
}

// txExecutionStore, txScheduleStore and txAuditStore adapt a *sql.Tx to the
// ExecutionStore/ScheduleStore/AuditStore ports so RunCommandTx's callback
// can use the same method names it would against the top-level Store.
type txExecutionStore struct{ tx *sql.Tx }

func (t txExecutionStore) InsertExecution(ctx context.Context, exec domain.ScheduledExecution) (bool, error) {
	return insertExecutionTx(ctx, t.tx, exec)
}
func (t txExecutionStore) ListExecutionsBySchedule(ctx context.Context, scheduleID string) ([]domain.ScheduledExecution, error) {
	rows, err := t.tx.QueryContext(ctx, executionSelectColumns+` FROM executions WHERE schedule_id = ? ORDER BY due_at ASC`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ScheduledExecution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
func (t txExecutionStore) GetExecution(ctx context.Context, executionID string) (domain.ScheduledExecution, bool, error) {
	return getExecutionTx(ctx, t.tx, executionID)
}

type txScheduleStore struct{ tx *sql.Tx }

func (t txScheduleStore) GetSchedule(ctx context.Context, scheduleID string) (domain.Schedule, error) {
	return getScheduleTx(ctx, t.tx, scheduleID)
}
func (t txScheduleStore) ListSchedules(ctx context.Context) ([]domain.Schedule, error) {
	rows, err := t.tx.QueryContext(ctx, scheduleSelectColumns+` FROM schedules`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Schedule
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
func (t txScheduleStore) InsertSchedule(ctx context.Context, sc domain.Schedule) error {
	return insertScheduleTx(ctx, t.tx, sc)
}
func (t txScheduleStore) ApplyScheduleDelta(ctx context.Context, scheduleID string, delta domain.ScheduleDelta) error {
	return applyScheduleDeltaTx(ctx, t.tx, scheduleID, delta)
}

type txAuditStore struct{ tx *sql.Tx }

func (t txAuditStore) WriteAudit(ctx context.Context, entry domain.AuditEntry) error {
	return writeAuditTx(ctx, t.tx, entry)
}
func (t txAuditStore) ListAudit(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	return listAuditTx(ctx, t.tx, limit)
}

// RunCommandTx implements domain.TxRunner: spec.md §4.2 requires the
// execution insert, schedule delta, and audit write this callback performs
// to commit or roll back together as a single atomic transaction.
func (s *Store) RunCommandTx(ctx context.Context, fn func(ctx context.Context, execs domain.ExecutionStore, sched domain.ScheduleStore, audit domain.AuditStore) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, txExecutionStore{tx}, txScheduleStore{tx}, txAuditStore{tx}); err != nil {
		return err
	}
	return tx.Commit()
}
