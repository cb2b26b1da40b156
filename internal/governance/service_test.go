package governance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/personalagent/runtime/internal/clock"
	"github.com/personalagent/runtime/internal/domain"
	"github.com/personalagent/runtime/internal/store/memory"
)

func TestEvaluatePolicyDefaultsToAllow(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := New(st, st, clock.NewVirtual(time.Now()))

	result, err := svc.EvaluatePolicy(ctx, domain.PolicyInput{AgentID: "agent-1", Action: "send_email"})
	require.NoError(t, err)
	require.Equal(t, domain.Allow, result.Decision)
	require.Equal(t, "mvp_default_allow", result.Reason)
}

func TestEvaluatePolicyHonorsHighestRankedRule(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := New(st, st, clock.NewVirtual(time.Now()))

	require.NoError(t, st.UpsertGuardrailRule(ctx, domain.GuardrailRule{
		RuleID: "warn-rule", Scope: domain.GuardrailScopeAction, Pattern: "^delete_", Mode: domain.GuardrailModeWarn, Enabled: true,
	}))
	require.NoError(t, st.UpsertGuardrailRule(ctx, domain.GuardrailRule{
		RuleID: "block-rule", Scope: domain.GuardrailScopeAction, Pattern: "^delete_all$", Mode: domain.GuardrailModeBlock, Enabled: true,
	}))

	result, err := svc.EvaluatePolicy(ctx, domain.PolicyInput{AgentID: "agent-1", Action: "delete_all"})
	require.NoError(t, err)
	require.Equal(t, domain.Deny, result.Decision)
	require.NotNil(t, result.PolicyID)
	require.Equal(t, "block-rule", *result.PolicyID)
}

func TestCheckToolQuotaResetsAtUTCDayBoundary(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := New(st, st, clock.NewVirtual(time.Now()))

	resetAt := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.PutToolQuota(ctx, domain.ToolQuotaState{
		AgentID: "agent-1", ToolName: "web_search", MaxPerDay: 2, UsedToday: 2, ResetAt: resetAt,
	}))

	err := svc.CheckToolQuota(ctx, "agent-1", "web_search", resetAt.Add(-time.Minute))
	require.Error(t, err)
	var quotaErr *domain.ToolQuotaExceededError
	require.ErrorAs(t, err, &quotaErr)

	require.NoError(t, svc.CheckToolQuota(ctx, "agent-1", "web_search", resetAt))

	state, ok, err := st.GetToolQuota(ctx, "agent-1", "web_search")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), state.UsedToday)
	require.Equal(t, resetAt.AddDate(0, 0, 1), state.ResetAt)
}

func TestEnforceSandboxWrapsViolation(t *testing.T) {
	svc := New(memory.New(), memory.New(), clock.NewVirtual(time.Now()))

	err := svc.EnforceSandbox("agent-1", func() (bool, string, error) {
		return true, "attempted filesystem write outside sandbox root", nil
	})
	require.Error(t, err)
	var sandboxErr *domain.SandboxViolationError
	require.ErrorAs(t, err, &sandboxErr)
}
