package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/personalagent/runtime/internal/domain"
)

func (s *Store) initGuardrailSchema() error {
	schema := `CREATE TABLE IF NOT EXISTS guardrail_rules (
		rule_id TEXT PRIMARY KEY,
		scope   TEXT NOT NULL,
		pattern TEXT NOT NULL,
		mode    TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		enabled INTEGER NOT NULL DEFAULT 1
	);
	CREATE TABLE IF NOT EXISTS tool_quota_state (
		agent_id     TEXT NOT NULL,
		tool_name    TEXT NOT NULL,
		max_per_day  INTEGER NOT NULL,
		used_today   INTEGER NOT NULL DEFAULT 0,
		reset_at     TEXT NOT NULL,
		PRIMARY KEY (agent_id, tool_name)
	)`
	_, err := s.db.Exec(schema)
	return err
}

// ListGuardrailRules implements domain.GuardrailStore.
func (s *Store) ListGuardrailRules(ctx context.Context) ([]domain.GuardrailRule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rule_id, scope, pattern, mode, message, enabled FROM guardrail_rules`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.GuardrailRule
	for rows.Next() {
		var r domain.GuardrailRule
		var scope, mode string
		var enabled int
		if err := rows.Scan(&r.RuleID, &scope, &r.Pattern, &mode, &r.Message, &enabled); err != nil {
			return nil, err
		}
		r.Scope = domain.GuardrailScope(scope)
		r.Mode = domain.GuardrailMode(mode)
		r.Enabled = enabled != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertGuardrailRule implements domain.GuardrailStore.
func (s *Store) UpsertGuardrailRule(ctx context.Context, rule domain.GuardrailRule) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO guardrail_rules (rule_id, scope, pattern, mode, message, enabled)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(rule_id) DO UPDATE SET
		   scope = excluded.scope,
		   pattern = excluded.pattern,
		   mode = excluded.mode,
		   message = excluded.message,
		   enabled = excluded.enabled`,
		rule.RuleID, string(rule.Scope), rule.Pattern, string(rule.Mode), rule.Message, boolToInt(rule.Enabled))
	return err
}

// GetToolQuota implements domain.GuardrailStore.
func (s *Store) GetToolQuota(ctx context.Context, agentID, toolName string) (domain.ToolQuotaState, bool, error) {
	var q domain.ToolQuotaState
	var resetAt string
	row := s.db.QueryRowContext(ctx,
		`SELECT agent_id, tool_name, max_per_day, used_today, reset_at
		 FROM tool_quota_state WHERE agent_id = ? AND tool_name = ?`, agentID, toolName)
	if err := row.Scan(&q.AgentID, &q.ToolName, &q.MaxPerDay, &q.UsedToday, &resetAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ToolQuotaState{}, false, nil
		}
		return domain.ToolQuotaState{}, false, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, resetAt)
	if err != nil {
		return domain.ToolQuotaState{}, false, err
	}
	q.ResetAt = parsed
	return q, true, nil
}

// PutToolQuota implements domain.GuardrailStore.
func (s *Store) PutToolQuota(ctx context.Context, state domain.ToolQuotaState) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tool_quota_state (agent_id, tool_name, max_per_day, used_today, reset_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(agent_id, tool_name) DO UPDATE SET
		   max_per_day = excluded.max_per_day,
		   used_today = excluded.used_today,
		   reset_at = excluded.reset_at`,
		state.AgentID, state.ToolName, state.MaxPerDay, state.UsedToday, state.ResetAt.UTC().Format(time.RFC3339Nano))
	return err
}
