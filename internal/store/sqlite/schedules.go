package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/personalagent/runtime/internal/domain"
)

func (s *Store) initScheduleSchema() error {
	schema := `CREATE TABLE IF NOT EXISTS schedules (
		schedule_id               TEXT PRIMARY KEY,
		owner_agent_id            TEXT NOT NULL,
		recurrence_label          TEXT NOT NULL DEFAULT '',
		cron_expression           TEXT,
		interval_seconds          INTEGER,
		trigger                   TEXT NOT NULL,
		action_ref                TEXT NOT NULL,
		schedule_status           TEXT NOT NULL,
		concurrency_policy        TEXT NOT NULL,
		allows_catch_up           INTEGER NOT NULL DEFAULT 0,
		auto_disable_after_run    INTEGER NOT NULL DEFAULT 0,
		catch_up_window_seconds   INTEGER NOT NULL DEFAULT 0,
		max_catch_up_runs_per_tick INTEGER NOT NULL DEFAULT 1,
		last_execution_at         TEXT,
		next_execution_at         TEXT
	)`
	_, err := s.db.Exec(schema)
	return err
}

// GetSchedule implements domain.ScheduleStore.
func (s *Store) GetSchedule(ctx context.Context, scheduleID string) (domain.Schedule, error) {
	return getScheduleTx(ctx, s.db, scheduleID)
}

// ListSchedules implements domain.ScheduleStore.
func (s *Store) ListSchedules(ctx context.Context) ([]domain.Schedule, error) {
	rows, err := s.db.QueryContext(ctx, scheduleSelectColumns+` FROM schedules`)
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

// InsertSchedule implements domain.ScheduleStore.
func (s *Store) InsertSchedule(ctx context.Context, sc domain.Schedule) error {
	return insertScheduleTx(ctx, s.db, sc)
}

// ApplyScheduleDelta implements domain.ScheduleStore.
func (s *Store) ApplyScheduleDelta(ctx context.Context, scheduleID string, delta domain.ScheduleDelta) error {
	return applyScheduleDeltaTx(ctx, s.db, scheduleID, delta)
}

const scheduleSelectColumns = `SELECT schedule_id, owner_agent_id, recurrence_label, cron_expression, interval_seconds,
	trigger, action_ref, schedule_status, concurrency_policy, allows_catch_up, auto_disable_after_run,
	catch_up_window_seconds, max_catch_up_runs_per_tick, last_execution_at, next_execution_at`

type scheduleExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getScheduleTx(ctx context.Context, q scheduleExecer, scheduleID string) (domain.Schedule, error) {
	row := q.QueryRowContext(ctx, scheduleSelectColumns+` FROM schedules WHERE schedule_id = ?`, scheduleID)
	sc, err := scanSchedule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Schedule{}, &domain.ClusterEntityError{EntityType: "Schedule", Reason: "not found: " + scheduleID}
		}
		return domain.Schedule{}, err
	}
	return sc, nil
}

func insertScheduleTx(ctx context.Context, q scheduleExecer, sc domain.Schedule) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO schedules (schedule_id, owner_agent_id, recurrence_label, cron_expression, interval_seconds,
			trigger, action_ref, schedule_status, concurrency_policy, allows_catch_up, auto_disable_after_run,
			catch_up_window_seconds, max_catch_up_runs_per_tick, last_execution_at, next_execution_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sc.ScheduleID, sc.OwnerAgentID, sc.RecurrencePattern.Label, sc.RecurrencePattern.CronExpression,
		sc.RecurrencePattern.IntervalSeconds, string(sc.Trigger), sc.ActionRef, string(sc.ScheduleStatus),
		string(sc.ConcurrencyPolicy), boolToInt(sc.AllowsCatchUp), boolToInt(sc.AutoDisableAfterRun),
		sc.CatchUpWindowSeconds, sc.MaxCatchUpRunsPerTick,
		formatTimePtr(sc.LastExecutionAt), formatTimePtr(sc.NextExecutionAt))
	return err
}

func applyScheduleDeltaTx(ctx context.Context, q scheduleExecer, scheduleID string, delta domain.ScheduleDelta) error {
	sc, err := getScheduleTx(ctx, q, scheduleID)
	if err != nil {
		return err
	}
	sc.NextExecutionAt = delta.NextExecutionAt
	if delta.LastExecutionAt != nil {
		sc.LastExecutionAt = delta.LastExecutionAt
	}
	sc.ScheduleStatus = delta.ScheduleStatus
	_, err = q.ExecContext(ctx,
		`UPDATE schedules SET schedule_status = ?, last_execution_at = ?, next_execution_at = ? WHERE schedule_id = ?`,
		string(sc.ScheduleStatus), formatTimePtr(sc.LastExecutionAt), formatTimePtr(sc.NextExecutionAt), scheduleID)
	return err
}

type scheduleRowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row scheduleRowScanner) (domain.Schedule, error) {
	var sc domain.Schedule
	var trigger, status, policy string
	var allowsCatchUp, autoDisable int
	var lastExecAt, nextExecAt sql.NullString
	if err := row.Scan(&sc.ScheduleID, &sc.OwnerAgentID, &sc.RecurrencePattern.Label,
		&sc.RecurrencePattern.CronExpression, &sc.RecurrencePattern.IntervalSeconds,
		&trigger, &sc.ActionRef, &status, &policy, &allowsCatchUp, &autoDisable,
		&sc.CatchUpWindowSeconds, &sc.MaxCatchUpRunsPerTick, &lastExecAt, &nextExecAt); err != nil {
		return domain.Schedule{}, err
	}
	sc.Trigger = domain.Trigger(trigger)
	sc.ScheduleStatus = domain.ScheduleStatus(status)
	sc.ConcurrencyPolicy = domain.ConcurrencyPolicy(policy)
	sc.AllowsCatchUp = allowsCatchUp != 0
	sc.AutoDisableAfterRun = autoDisable != 0
	if lastExecAt.Valid && lastExecAt.String != "" {
		t, err := time.Parse(time.RFC3339Nano, lastExecAt.String)
		if err != nil {
			return domain.Schedule{}, err
		}
		sc.LastExecutionAt = &t
	}
	if nextExecAt.Valid && nextExecAt.String != "" {
		t, err := time.Parse(time.RFC3339Nano, nextExecAt.String)
		if err != nil {
			return domain.Schedule{}, err
		}
		sc.NextExecutionAt = &t
	}
	return sc, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
