package turns

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/personalagent/runtime/internal/clock"
	"github.com/personalagent/runtime/internal/config"
	"github.com/personalagent/runtime/internal/domain"
	"github.com/personalagent/runtime/internal/sessions"
	"github.com/personalagent/runtime/internal/store/memory"
)

type fakeHandle struct {
	parts []domain.ModelPart
	err   error
}

func (h fakeHandle) Stream(ctx context.Context, systemPrompt, userContent string) (<-chan domain.ModelPart, error) {
	if h.err != nil {
		return nil, h.err
	}
	ch := make(chan domain.ModelPart, len(h.parts))
	for _, p := range h.parts {
		ch <- p
	}
	close(ch)
	return ch, nil
}

type fakeResolver struct {
	handle ModelHandle
	err    error
}

func (r fakeResolver) Resolve(ctx context.Context, provider, modelID string) (ModelHandle, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.handle, nil
}

func newTestPipeline(t *testing.T, resolver ModelResolver) (*Pipeline, *memory.Store) {
	st := memory.New()
	require.NoError(t, st.StartSession(context.Background(), domain.Session{
		SessionID: "sess-1", ConversationID: "conv-1", TokenCapacity: 1000, TokensUsed: 0,
	}))
	require.NoError(t, st.UpsertAgent(context.Background(), domain.Agent{
		AgentID: "agent-1", PermissionMode: domain.PermissionStandard,
		TokenBudget: 1000, QuotaPeriod: domain.QuotaDaily,
	}))

	agentConfigs := map[string]config.AgentConfig{
		"agent-1": {
			Persona: config.PersonaConfig{Name: "default", SystemPrompt: "be helpful"},
			Model:   config.ModelConfig{Provider: "anthropic", ModelID: "claude-3-5-sonnet"},
		},
	}

	p := New(st, st, st, resolver, agentConfigs, clock.Real{}, sessions.New(), nil)
	return p, st
}

func drain(t *testing.T, ch <-chan domain.TurnStreamEvent, timeout time.Duration) []domain.TurnStreamEvent {
	var events []domain.TurnStreamEvent
	deadline := time.After(timeout)
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, e)
		case <-deadline:
			t.Fatal("timed out waiting for turn stream")
			return nil
		}
	}
}

func TestProcessTurn_SessionNotFoundReturnsErrorDirectly(t *testing.T) {
	p, _ := newTestPipeline(t, fakeResolver{})
	_, err := p.ProcessTurn(context.Background(), Payload{
		TurnID: "t1", SessionID: "missing-session", AgentID: "agent-1", Content: "hi",
	})
	require.Error(t, err)
	var notFound *domain.SessionNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestProcessTurn_HappyPathEmitsStartedDeltaAndCompleted(t *testing.T) {
	resolver := fakeResolver{handle: fakeHandle{parts: []domain.ModelPart{
		{Kind: domain.PartTextDelta, TextDelta: "Hel"},
		{Kind: domain.PartTextDelta, TextDelta: "lo"},
		{Kind: domain.PartFinish, FinishReason: "stop", OutputTokens: 5},
	}}}
	p, st := newTestPipeline(t, resolver)

	ch, err := p.ProcessTurn(context.Background(), Payload{
		TurnID: "t1", SessionID: "sess-1", ConversationID: "conv-1", AgentID: "agent-1",
		Content: "hi", InputTokens: 10,
	})
	require.NoError(t, err)

	events := drain(t, ch, 2*time.Second)
	require.Len(t, events, 4)
	require.Equal(t, domain.EventTurnStarted, events[0].Type)
	require.Equal(t, int64(0), events[0].Sequence)
	require.Equal(t, domain.EventAssistantDelta, events[1].Type)
	require.Equal(t, "Hel", events[1].Delta)
	require.Equal(t, domain.EventAssistantDelta, events[2].Type)
	require.Equal(t, "lo", events[2].Delta)
	require.Equal(t, domain.EventTurnCompleted, events[3].Type)
	require.Equal(t, "stop", events[3].FinishReason)

	for i, e := range events {
		require.Equal(t, int64(i), e.Sequence)
	}

	turns, err := st.ListTurns(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, domain.RoleUser, turns[0].ParticipantRole)
	require.Equal(t, domain.RoleAssistant, turns[1].ParticipantRole)
	require.Equal(t, "Hello", turns[1].MessageContent)

	sess, err := st.GetSession(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Equal(t, int64(15), sess.TokensUsed)
}

func TestProcessTurn_ModelResolveErrorEmitsTurnFailed(t *testing.T) {
	resolver := fakeResolver{err: errors.New("no provider configured")}
	p, _ := newTestPipeline(t, resolver)

	ch, err := p.ProcessTurn(context.Background(), Payload{
		TurnID: "t2", SessionID: "sess-1", ConversationID: "conv-1", AgentID: "agent-1",
		Content: "hi", InputTokens: 1,
	})
	require.NoError(t, err)

	events := drain(t, ch, 2*time.Second)
	require.Len(t, events, 2)
	require.Equal(t, domain.EventTurnStarted, events[0].Type)
	require.Equal(t, domain.EventTurnFailed, events[1].Type)
	require.Equal(t, domain.MaxSafeSequence, events[1].Sequence)
}

func TestProcessTurn_DuplicateTurnIDAttachesToSameBroadcast(t *testing.T) {
	release := make(chan struct{})
	resolver := fakeResolver{handle: blockingHandle{release: release}}
	p, _ := newTestPipeline(t, resolver)

	ch1, err := p.ProcessTurn(context.Background(), Payload{
		TurnID: "t3", SessionID: "sess-1", ConversationID: "conv-1", AgentID: "agent-1",
		Content: "hi", InputTokens: 1,
	})
	require.NoError(t, err)

	ch2, err := p.ProcessTurn(context.Background(), Payload{
		TurnID: "t3", SessionID: "sess-1", ConversationID: "conv-1", AgentID: "agent-1",
		Content: "hi", InputTokens: 1,
	})
	require.NoError(t, err)

	close(release)

	events1 := drain(t, ch1, 2*time.Second)
	events2 := drain(t, ch2, 2*time.Second)
	require.Equal(t, events1, events2)
}

type blockingHandle struct {
	release chan struct{}
}

func (h blockingHandle) Stream(ctx context.Context, systemPrompt, userContent string) (<-chan domain.ModelPart, error) {
	ch := make(chan domain.ModelPart, 1)
	go func() {
		defer close(ch)
		<-h.release
		ch <- domain.ModelPart{Kind: domain.PartFinish, FinishReason: "stop"}
	}()
	return ch, nil
}
