// Package governance evaluates policy over agent actions, enforces per-tool
// daily quotas, and keeps the append-only audit log — spec.md §4.6. It is
// adapted from the teacher's internal/guardrails/service.go regex-rule
// evaluator, generalized from tmux session/command targets to agent
// action/command targets.
package governance

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/personalagent/runtime/internal/clock"
	"github.com/personalagent/runtime/internal/domain"
)

// Service evaluates policy, tracks tool quotas, and writes audit entries.
type Service struct {
	guardrails domain.GuardrailStore
	audit      domain.AuditStore
	clock      clock.Clock

	quotaMu sync.Mutex
}

// New constructs a Service backed by the given guardrail and audit stores.
func New(guardrails domain.GuardrailStore, audit domain.AuditStore, c clock.Clock) *Service {
	return &Service{guardrails: guardrails, audit: audit, clock: c}
}

// EvaluatePolicy implements spec.md §4.6: MVP default is Allow with reason
// "mvp_default_allow"; a matching enabled GuardrailRule overrides the
// default, the highest-ranked mode across all matches winning.
func (s *Service) EvaluatePolicy(ctx context.Context, input domain.PolicyInput) (domain.PolicyResult, error) {
	rules, err := s.guardrails.ListGuardrailRules(ctx)
	if err != nil {
		return domain.PolicyResult{}, err
	}

	winningRank := decisionRank(domain.GuardrailModeAllow)
	winningMode := domain.GuardrailModeAllow
	var winningRuleID *string

	action := strings.TrimSpace(input.Action)
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		if rule.Scope != domain.GuardrailScopeAction {
			continue
		}
		matched, err := ruleMatches(rule, action)
		if err != nil {
			slog.Warn("governance rule regex compile failed", "rule", rule.RuleID, "pattern", rule.Pattern, "err", err)
			continue
		}
		if !matched {
			continue
		}
		rank := decisionRank(rule.Mode)
		if rank > winningRank {
			winningRank = rank
			winningMode = rule.Mode
			ruleID := rule.RuleID
			winningRuleID = &ruleID
		}
	}

	if winningMode == domain.GuardrailModeAllow {
		return domain.PolicyResult{Decision: domain.Allow, Reason: "mvp_default_allow"}, nil
	}

	decision := domain.Allow
	reason := "guardrail rule matched"
	switch winningMode {
	case domain.GuardrailModeBlock:
		decision = domain.Deny
		reason = "blocked by guardrail policy"
	case domain.GuardrailModeConfirm:
		decision = domain.RequireApproval
		reason = "requires explicit confirmation"
	case domain.GuardrailModeWarn:
		decision = domain.Allow
		reason = "matched warning policy"
	}
	return domain.PolicyResult{Decision: decision, PolicyID: winningRuleID, Reason: reason}, nil
}

// CheckToolQuota implements spec.md §4.6: normalizes {usedToday, resetAt}
// when now >= resetAt, fails ToolQuotaExceeded when exhausted, otherwise
// increments usedToday atomically: quotaMu is held across the read and the
// write, so concurrent calls through one Service never lose an increment.
func (s *Service) CheckToolQuota(ctx context.Context, agentID, toolName string, now time.Time) error {
	s.quotaMu.Lock()
	defer s.quotaMu.Unlock()

	state, ok, err := s.guardrails.GetToolQuota(ctx, agentID, toolName)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no tool quota configured for agent %s tool %s", agentID, toolName)
	}

	if !now.Before(state.ResetAt) {
		state.UsedToday = 0
		state.ResetAt = startOfUTCDay(now).AddDate(0, 0, 1)
	}

	if state.UsedToday >= state.MaxPerDay {
		if err := s.guardrails.PutToolQuota(ctx, state); err != nil {
			return err
		}
		return &domain.ToolQuotaExceededError{AgentID: agentID, ToolName: toolName, RemainingInvocations: 0}
	}

	state.UsedToday++
	return s.guardrails.PutToolQuota(ctx, state)
}

// WriteAudit implements spec.md §4.6's append-only, createdAt-ordered log.
func (s *Service) WriteAudit(ctx context.Context, entry domain.AuditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.clock.Now()
	}
	return s.audit.WriteAudit(ctx, entry)
}

// ListAudit returns the most recent audit entries, newest first.
func (s *Service) ListAudit(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	return s.audit.ListAudit(ctx, limit)
}

// EnforceSandbox implements spec.md §4.6: wraps effect such that a reported
// violation terminates with a typed SandboxViolationError rather than
// whatever error effect itself would return.
func (s *Service) EnforceSandbox(agentID string, effect func() (violated bool, reason string, err error)) error {
	violated, reason, err := effect()
	if err != nil {
		return err
	}
	if violated {
		return &domain.SandboxViolationError{AgentID: agentID, Reason: reason}
	}
	return nil
}

func ruleMatches(rule domain.GuardrailRule, target string) (bool, error) {
	pattern := strings.TrimSpace(rule.Pattern)
	if pattern == "" || target == "" {
		return false, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(target), nil
}

func decisionRank(mode domain.GuardrailMode) int {
	switch mode {
	case domain.GuardrailModeBlock:
		return 4
	case domain.GuardrailModeConfirm:
		return 3
	case domain.GuardrailModeWarn:
		return 2
	default:
		return 1
	}
}

func startOfUTCDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
