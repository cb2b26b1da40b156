package memory

import (
	"context"

	"github.com/personalagent/runtime/internal/domain"
)

// ListGuardrailRules implements domain.GuardrailStore.
func (s *Store) ListGuardrailRules(_ context.Context) ([]domain.GuardrailRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.GuardrailRule, 0, len(s.guardrails))
	for _, r := range s.guardrails {
		out = append(out, r)
	}
	return out, nil
}

// UpsertGuardrailRule implements domain.GuardrailStore.
func (s *Store) UpsertGuardrailRule(_ context.Context, rule domain.GuardrailRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guardrails[rule.RuleID] = rule
	return nil
}

// GetToolQuota implements domain.GuardrailStore.
func (s *Store) GetToolQuota(_ context.Context, agentID, toolName string) (domain.ToolQuotaState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.toolQuotas[toolQuotaKey(agentID, toolName)]
	return q, ok, nil
}

// PutToolQuota implements domain.GuardrailStore.
func (s *Store) PutToolQuota(_ context.Context, state domain.ToolQuotaState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolQuotas[toolQuotaKey(state.AgentID, state.ToolName)] = state
	return nil
}
