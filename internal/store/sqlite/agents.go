package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/personalagent/runtime/internal/domain"
)

func (s *Store) initAgentSchema() error {
	schema := `CREATE TABLE IF NOT EXISTS agents (
		agent_id         TEXT PRIMARY KEY,
		permission_mode  TEXT NOT NULL DEFAULT 'Standard',
		token_budget     INTEGER NOT NULL DEFAULT 0,
		quota_period     TEXT NOT NULL DEFAULT 'Daily',
		tokens_consumed  INTEGER NOT NULL DEFAULT 0,
		budget_reset_at  TEXT
	)`
	_, err := s.db.Exec(schema)
	return err
}

// GetAgent implements domain.AgentStore.
func (s *Store) GetAgent(ctx context.Context, agentID string) (domain.Agent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT agent_id, permission_mode, token_budget, quota_period, tokens_consumed, budget_reset_at
		 FROM agents WHERE agent_id = ?`, agentID)
	return scanAgent(row)
}

// UpsertAgent implements domain.AgentStore.
func (s *Store) UpsertAgent(ctx context.Context, agent domain.Agent) error {
	var resetAt any
	if agent.BudgetResetAt != nil {
		resetAt = agent.BudgetResetAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agents (agent_id, permission_mode, token_budget, quota_period, tokens_consumed, budget_reset_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(agent_id) DO UPDATE SET
		   permission_mode = excluded.permission_mode,
		   token_budget = excluded.token_budget,
		   quota_period = excluded.quota_period,
		   tokens_consumed = excluded.tokens_consumed,
		   budget_reset_at = excluded.budget_reset_at`,
		agent.AgentID, string(agent.PermissionMode), agent.TokenBudget,
		string(agent.QuotaPeriod), agent.TokensConsumed, resetAt)
	return err
}

// ConsumeTokenBudget implements domain.AgentStore per spec.md §4.5 step 3:
// if budgetResetAt <= now, reset tokensConsumed to 0 and extend
// budgetResetAt by one quotaPeriod before consuming.
func (s *Store) ConsumeTokenBudget(ctx context.Context, agentID string, tokens int64, now time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT agent_id, permission_mode, token_budget, quota_period, tokens_consumed, budget_reset_at
		 FROM agents WHERE agent_id = ?`, agentID)
	agent, err := scanAgent(row)
	if err != nil {
		return 0, err
	}

	if agent.BudgetResetAt != nil && !agent.BudgetResetAt.After(now) {
		agent.TokensConsumed = 0
		next := agent.QuotaPeriod.AdvanceQuotaPeriod(*agent.BudgetResetAt)
		agent.BudgetResetAt = &next
	}

	remaining := agent.TokenBudget - agent.TokensConsumed
	if tokens > remaining {
		return remaining, &domain.TokenBudgetExceededError{
			AgentID:         agentID,
			RequestedTokens: tokens,
			RemainingTokens: remaining,
		}
	}

	agent.TokensConsumed += tokens
	var resetAt any
	if agent.BudgetResetAt != nil {
		resetAt = agent.BudgetResetAt.UTC().Format(time.RFC3339Nano)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE agents SET tokens_consumed = ?, budget_reset_at = ? WHERE agent_id = ?`,
		agent.TokensConsumed, resetAt, agentID,
	); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return agent.TokenBudget - agent.TokensConsumed, nil
}

type agentRowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row agentRowScanner) (domain.Agent, error) {
	var a domain.Agent
	var permissionMode, quotaPeriod string
	var resetAt sql.NullString
	if err := row.Scan(&a.AgentID, &permissionMode, &a.TokenBudget, &quotaPeriod, &a.TokensConsumed, &resetAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Agent{}, fmt.Errorf("agent not found: %w", err)
		}
		return domain.Agent{}, err
	}
	a.PermissionMode = domain.PermissionMode(permissionMode)
	a.QuotaPeriod = domain.QuotaPeriod(quotaPeriod)
	if resetAt.Valid && resetAt.String != "" {
		t, err := time.Parse(time.RFC3339Nano, resetAt.String)
		if err != nil {
			return domain.Agent{}, err
		}
		a.BudgetResetAt = &t
	}
	return a, nil
}
