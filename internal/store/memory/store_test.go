package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/personalagent/runtime/internal/domain"
)

func TestConsumeTokenBudgetResetsAfterPeriod(t *testing.T) {
	ctx := context.Background()
	s := New()

	resetAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertAgent(ctx, domain.Agent{
		AgentID:        "agent-1",
		TokenBudget:    100,
		QuotaPeriod:    domain.QuotaDaily,
		TokensConsumed: 90,
		BudgetResetAt:  &resetAt,
	}))

	// Before reset: only 10 tokens remain.
	_, err := s.ConsumeTokenBudget(ctx, "agent-1", 50, resetAt.Add(-time.Hour))
	require.Error(t, err)
	var budgetErr *domain.TokenBudgetExceededError
	require.ErrorAs(t, err, &budgetErr)

	// At/after resetAt: tokensConsumed resets to 0 before the new consume.
	remaining, err := s.ConsumeTokenBudget(ctx, "agent-1", 50, resetAt)
	require.NoError(t, err)
	require.Equal(t, int64(50), remaining)

	agent, err := s.GetAgent(ctx, "agent-1")
	require.NoError(t, err)
	require.Equal(t, int64(50), agent.TokensConsumed)
	require.NotNil(t, agent.BudgetResetAt)
	require.Equal(t, resetAt.AddDate(0, 0, 1), *agent.BudgetResetAt)
}

func TestAppendTurnDeduplicatesByTurnID(t *testing.T) {
	ctx := context.Background()
	s := New()

	req := domain.AppendTurnRequest{
		TurnID:          "turn-1",
		SessionID:       "session-1",
		ConversationID:  "conv-1",
		ParticipantRole: domain.RoleUser,
		MessageID:       "msg-1",
		MessageContent:  "hello",
		CreatedAt:       time.Now().UTC(),
	}

	first, err := s.AppendTurn(ctx, req)
	require.NoError(t, err)
	require.Equal(t, 0, first.TurnIndex)

	second, err := s.AppendTurn(ctx, req)
	require.NoError(t, err)
	require.Equal(t, first, second)

	turns, err := s.ListTurns(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
}

func TestUpdateContextWindowRejectsOverflow(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.StartSession(ctx, domain.Session{
		SessionID:     "session-1",
		TokenCapacity: 100,
		TokensUsed:    80,
	}))

	_, err := s.UpdateContextWindow(ctx, "session-1", 50)
	require.Error(t, err)
	var windowErr *domain.ContextWindowExceededError
	require.ErrorAs(t, err, &windowErr)

	used, err := s.UpdateContextWindow(ctx, "session-1", 10)
	require.NoError(t, err)
	require.Equal(t, int64(90), used)

	used, err = s.UpdateContextWindow(ctx, "session-1", -200)
	require.NoError(t, err)
	require.Equal(t, int64(0), used)
}

func TestMemorySearchPaginatesAndForgetRoundTrips(t *testing.T) {
	ctx := context.Background()
	s := New()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := s.Encode(ctx, domain.MemoryItem{
			MemoryItemID: "mem-" + string(rune('a'+i)),
			AgentID:      "agent-1",
			Tier:         domain.TierEpisodic,
			Scope:        domain.ScopeSession,
			Source:       domain.SourceAgent,
			Content:      "note about trip",
			Sensitivity:  domain.SensitivityInternal,
			CreatedAt:    base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	page1, err := s.Search(ctx, domain.MemorySearchQuery{AgentID: "agent-1", Query: "trip", Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1.Items, 2)
	require.Equal(t, 5, page1.TotalCount)
	require.NotNil(t, page1.Cursor)

	page2, err := s.Search(ctx, domain.MemorySearchQuery{AgentID: "agent-1", Query: "trip", Limit: 2, Cursor: page1.Cursor})
	require.NoError(t, err)
	require.Len(t, page2.Items, 2)

	cutoff := base.Add(3 * time.Hour)
	deleted, err := s.Forget(ctx, "agent-1", cutoff)
	require.NoError(t, err)
	require.Equal(t, 3, deleted)

	remaining, err := s.Search(ctx, domain.MemorySearchQuery{AgentID: "agent-1", Query: "trip"})
	require.NoError(t, err)
	require.Equal(t, 2, remaining.TotalCount)
}

func TestRunCommandTxAppliesInsertAndDeltaTogether(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.InsertSchedule(ctx, domain.Schedule{
		ScheduleID:     "sched-1",
		ScheduleStatus: domain.ScheduleActive,
	}))

	now := time.Now().UTC()
	err := s.RunCommandTx(ctx, func(ctx context.Context, execs domain.ExecutionStore, sched domain.ScheduleStore, audit domain.AuditStore) error {
		if _, err := execs.InsertExecution(ctx, domain.ScheduledExecution{
			ExecutionID: "exec-1",
			ScheduleID:  "sched-1",
			DueAt:       now,
			StartedAt:   now,
			Outcome:     domain.Succeeded,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		return sched.ApplyScheduleDelta(ctx, "sched-1", domain.ScheduleDelta{
			LastExecutionAt: &now,
			ScheduleStatus:  domain.ScheduleActive,
		})
	})
	require.NoError(t, err)

	_, found, err := s.GetExecution(ctx, "exec-1")
	require.NoError(t, err)
	require.True(t, found)

	sc, err := s.GetSchedule(ctx, "sched-1")
	require.NoError(t, err)
	require.NotNil(t, sc.LastExecutionAt)
}
