package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/personalagent/runtime/internal/domain"
)

// GetAgent implements domain.AgentStore.
func (s *Store) GetAgent(_ context.Context, agentID string) (domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[agentID]
	if !ok {
		return domain.Agent{}, fmt.Errorf("agent not found: %s", agentID)
	}
	return a, nil
}

// UpsertAgent implements domain.AgentStore.
func (s *Store) UpsertAgent(_ context.Context, agent domain.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[agent.AgentID] = agent
	return nil
}

// ConsumeTokenBudget implements domain.AgentStore, applying the same
// reset-then-consume rule as sqlite.Store.ConsumeTokenBudget (spec.md §4.5
// step 3).
func (s *Store) ConsumeTokenBudget(_ context.Context, agentID string, tokens int64, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agent, ok := s.agents[agentID]
	if !ok {
		return 0, fmt.Errorf("agent not found: %s", agentID)
	}

	if agent.BudgetResetAt != nil && !agent.BudgetResetAt.After(now) {
		agent.TokensConsumed = 0
		next := agent.QuotaPeriod.AdvanceQuotaPeriod(*agent.BudgetResetAt)
		agent.BudgetResetAt = &next
	}

	remaining := agent.TokenBudget - agent.TokensConsumed
	if tokens > remaining {
		// Mirrors sqlite.Store.ConsumeTokenBudget: the reset computed above
		// is part of the same all-or-nothing operation as the consume, so a
		// rejected consume leaves the stored row untouched.
		return remaining, &domain.TokenBudgetExceededError{
			AgentID:         agentID,
			RequestedTokens: tokens,
			RemainingTokens: remaining,
		}
	}

	agent.TokensConsumed += tokens
	s.agents[agentID] = agent
	return agent.TokenBudget - agent.TokensConsumed, nil
}
