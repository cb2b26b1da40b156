package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/personalagent/runtime/internal/clock"
	"github.com/personalagent/runtime/internal/config"
	"github.com/personalagent/runtime/internal/domain"
	"github.com/personalagent/runtime/internal/events"
	"github.com/personalagent/runtime/internal/idgen"
	"github.com/personalagent/runtime/internal/security"
	"github.com/personalagent/runtime/internal/sessions"
	"github.com/personalagent/runtime/internal/store/memory"
	"github.com/personalagent/runtime/internal/turns"
)

type fakeHandle struct{}

func (fakeHandle) Stream(ctx context.Context, systemPrompt, userContent string) (<-chan domain.ModelPart, error) {
	ch := make(chan domain.ModelPart, 2)
	ch <- domain.ModelPart{Kind: domain.PartTextDelta, TextDelta: "hi"}
	ch <- domain.ModelPart{Kind: domain.PartFinish, FinishReason: "stop"}
	close(ch)
	return ch, nil
}

type fakeResolver struct{}

func (fakeResolver) Resolve(ctx context.Context, provider, modelID string) (turns.ModelHandle, error) {
	return fakeHandle{}, nil
}

func newTestHandler(t *testing.T) (*http.ServeMux, *memory.Store) {
	t.Helper()
	st := memory.New()
	require.NoError(t, st.UpsertAgent(context.Background(), domain.Agent{
		AgentID: "agent-1", PermissionMode: domain.PermissionStandard,
		TokenBudget: 1000, QuotaPeriod: domain.QuotaDaily,
	}))

	agentConfigs := map[string]config.AgentConfig{
		"agent-1": {Model: config.ModelConfig{Provider: "anthropic", ModelID: "claude-3-5-sonnet"}},
	}
	pipeline := turns.New(st, st, st, fakeResolver{}, agentConfigs, clock.Real{}, sessions.New(), nil)

	guard := security.New("", nil, security.CookieSecureAuto)
	mux := http.NewServeMux()
	Register(mux, Config{
		Guard:    guard,
		Channels: st,
		Sessions: st,
		Pipeline: pipeline,
		Hub:      events.NewHub(),
		IDs:      idgen.NewSequence("session-1", "conv-1"),
	})
	return mux, st
}

func TestHealth(t *testing.T) {
	mux, _ := newTestHandler(t)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRuntimeStatus(t *testing.T) {
	mux, _ := newTestHandler(t)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runtime/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "personal-agent", body["service"])
}

func TestCreateChannel(t *testing.T) {
	mux, st := newTestHandler(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/channels/chan-1/create", strings.NewReader(`{"channelType":"Web","agentId":"agent-1"}`))
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	ch, ok, err := st.GetChannel(context.Background(), "chan-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "agent-1", ch.AgentID)
	require.NotEmpty(t, ch.ActiveSessionID)
}

func TestSendChannelMessage_UnknownChannel(t *testing.T) {
	mux, _ := newTestHandler(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/channels/missing/messages", strings.NewReader(`{"content":"hi"}`))
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendChannelMessage_StreamsSSE(t *testing.T) {
	mux, st := newTestHandler(t)

	createW := httptest.NewRecorder()
	mux.ServeHTTP(createW, httptest.NewRequest(http.MethodPost, "/channels/chan-1/create", strings.NewReader(`{"channelType":"Web","agentId":"agent-1"}`)))
	require.Equal(t, http.StatusNoContent, createW.Code)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/channels/chan-1/messages", strings.NewReader(`{"content":"hello there"}`))
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	require.Contains(t, body, "event: turn.started")
	require.Contains(t, body, "event: turn.completed")

	ch, ok, err := st.GetChannel(context.Background(), "chan-1")
	require.NoError(t, err)
	require.True(t, ok)
	turnsList, err := st.ListTurns(context.Background(), ch.ActiveSessionID)
	require.NoError(t, err)
	require.Len(t, turnsList, 2)
}

func TestSubmitTurn_MissingAgentIsBadRequest(t *testing.T) {
	mux, st := newTestHandler(t)
	require.NoError(t, st.StartSession(context.Background(), domain.Session{SessionID: "sess-1", TokenCapacity: 1000}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sessions/sess-1/turns", strings.NewReader(`{"content":"hi"}`))
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitTurn_StreamsSSE(t *testing.T) {
	mux, st := newTestHandler(t)
	require.NoError(t, st.StartSession(context.Background(), domain.Session{SessionID: "sess-1", TokenCapacity: 1000}))

	w := httptest.NewRecorder()
	body := `{"turnId":"t1","agentId":"agent-1","content":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/sessions/sess-1/turns", strings.NewReader(body))
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "event: turn.completed")
}

func TestOriginGuardRejectsForeignOrigin(t *testing.T) {
	st := memory.New()
	guard := security.New("secret-token", nil, security.CookieSecureAuto)
	mux := http.NewServeMux()
	Register(mux, Config{Guard: guard, Channels: st, Sessions: st})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/runtime/status", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}
