package turns

import (
	"context"
	"strings"

	"github.com/personalagent/runtime/internal/clock"
	"github.com/personalagent/runtime/internal/config"
	"github.com/personalagent/runtime/internal/domain"
	"github.com/personalagent/runtime/internal/events"
	"github.com/personalagent/runtime/internal/sessions"
)

// ModelResolver obtains a credentialed ModelHandle for an agent's
// configured (provider, modelId). Satisfied by *modelregistry.Registry;
// kept as an interface so this package never imports modelregistry's
// fast-shot dependency directly.
type ModelResolver interface {
	Resolve(ctx context.Context, provider, modelID string) (ModelHandle, error)
}

// ModelHandle mirrors modelregistry.ModelHandle without importing it.
type ModelHandle interface {
	Stream(ctx context.Context, systemPrompt, userContent string) (<-chan domain.ModelPart, error)
}

// Payload is processTurn's input (spec.md §4.5).
type Payload struct {
	TurnID         string
	SessionID      string
	ConversationID string
	AgentID        string
	Content        string
	ContentBlocks  []domain.ContentBlock
	InputTokens    int64
}

// Pipeline is the Turn Processing Pipeline (spec.md §4.5), grounded on the
// teacher's runbook runner progress-callback pattern generalized from a
// single callback into a replay-capable broadcast channel.
type Pipeline struct {
	sessionsStore domain.SessionStore
	agents        domain.AgentStore
	turnsStore    domain.TurnStore
	models        ModelResolver
	agentConfigs  map[string]config.AgentConfig
	clock         clock.Clock
	sessionLocks  *sessions.Registry
	inflight      *Registry
	hub           *events.Hub
}

// New constructs a Pipeline. agentConfigs maps agentId to its persona/model
// configuration (config.Config.Agents). hub may be nil.
func New(
	sessionsStore domain.SessionStore,
	agents domain.AgentStore,
	turnsStore domain.TurnStore,
	models ModelResolver,
	agentConfigs map[string]config.AgentConfig,
	c clock.Clock,
	sessionLocks *sessions.Registry,
	hub *events.Hub,
) *Pipeline {
	return &Pipeline{
		sessionsStore: sessionsStore,
		agents:        agents,
		turnsStore:    turnsStore,
		models:        models,
		agentConfigs:  agentConfigs,
		clock:         c,
		sessionLocks:  sessionLocks,
		inflight:      NewRegistry(),
		hub:           hub,
	}
}

// ProcessTurn runs steps 1-9 of spec.md §4.5. Errors from steps 1-4
// (before turn.started is emitted) are returned directly; errors from step
// 6 onward are emitted as a terminal turn.failed event and the returned
// error is nil.
//
// A concurrent call with the same TurnID attaches to the already-running
// pipeline's broadcast instead of starting a second one.
func (p *Pipeline) ProcessTurn(ctx context.Context, payload Payload) (<-chan domain.TurnStreamEvent, error) {
	if ch, ok := p.inflight.Attach(payload.TurnID); ok {
		return ch, nil
	}

	var (
		session  domain.Session
		agentCfg config.AgentConfig
	)

	err := p.sessionLocks.Do(payload.SessionID, func() error {
		var loadErr error
		session, loadErr = p.sessionsStore.GetSession(ctx, payload.SessionID)
		if loadErr != nil {
			return loadErr
		}

		if _, updErr := p.sessionsStore.UpdateContextWindow(ctx, payload.SessionID, payload.InputTokens); updErr != nil {
			return updErr
		}

		var ok bool
		agentCfg, ok = p.agentConfigs[payload.AgentID]
		if !ok {
			return &domain.TurnProcessingError{TurnID: payload.TurnID, Reason: "no configuration for agent " + payload.AgentID}
		}

		if _, consumeErr := p.agents.ConsumeTokenBudget(ctx, payload.AgentID, payload.InputTokens, p.clock.Now()); consumeErr != nil {
			return consumeErr
		}

		_, appendErr := p.turnsStore.AppendTurn(ctx, domain.AppendTurnRequest{
			TurnID:          payload.TurnID,
			SessionID:       payload.SessionID,
			ConversationID:  payload.ConversationID,
			ParticipantRole: domain.RoleUser,
			MessageID:       payload.TurnID,
			MessageContent:  payload.Content,
			ContentBlocks:   payload.ContentBlocks,
			CreatedAt:       p.clock.Now(),
		})
		return appendErr
	})
	if err != nil {
		return nil, err
	}

	_ = session // loaded to surface SessionNotFound before step 5; not otherwise needed here

	publish, subscription, finish := p.inflight.Start(payload.TurnID)
	go p.run(ctx, payload, agentCfg, publish, finish)
	return subscription, nil
}

func (p *Pipeline) run(
	ctx context.Context,
	payload Payload,
	agentCfg config.AgentConfig,
	publish func(domain.TurnStreamEvent),
	finish func(),
) {
	defer finish()

	seq := int64(0)
	emit := func(e domain.TurnStreamEvent) {
		e.Sequence = seq
		e.TurnID = payload.TurnID
		seq++
		publish(e)
	}
	fail := func(err error) {
		publish(domain.TurnStreamEvent{
			Type:      domain.EventTurnFailed,
			Sequence:  domain.MaxSafeSequence,
			TurnID:    payload.TurnID,
			SessionID: payload.SessionID,
			ErrorCode: domain.TurnErrorCode(err),
			Message:   err.Error(),
		})
		p.publishHubEvent(events.TypeTurnFailed, payload.TurnID, payload.SessionID, map[string]any{"errorCode": domain.TurnErrorCode(err)})
	}

	emit(domain.TurnStreamEvent{Type: domain.EventTurnStarted, SessionID: payload.SessionID})
	p.publishHubEvent(events.TypeTurnStarted, payload.TurnID, payload.SessionID, nil)

	handle, err := p.models.Resolve(ctx, agentCfg.Model.Provider, agentCfg.Model.ModelID)
	if err != nil {
		fail(err)
		return
	}

	modelParts, err := handle.Stream(ctx, agentCfg.Persona.SystemPrompt, payload.Content)
	if err != nil {
		fail(err)
		return
	}

	var (
		textBuilder    strings.Builder
		blocks         []domain.ContentBlock
		finishReason   string
		usageJSON      *string
		outputTokens   int64
	)

	for part := range modelParts {
		switch part.Kind {
		case domain.PartTextDelta:
			textBuilder.WriteString(part.TextDelta)
			emit(domain.TurnStreamEvent{Type: domain.EventAssistantDelta, Delta: part.TextDelta})
		case domain.PartToolCall:
			blocks = append(blocks, domain.ContentBlock{
				Kind: domain.BlockToolUse, ToolCallID: part.ToolCallID, ToolName: part.ToolName, InputJSON: part.InputJSON,
			})
			emit(domain.TurnStreamEvent{
				Type: domain.EventToolCall, ToolCallID: part.ToolCallID, ToolName: part.ToolName, InputJSON: part.InputJSON,
			})
		case domain.PartToolResult:
			blocks = append(blocks, domain.ContentBlock{
				Kind: domain.BlockToolResult, ToolCallID: part.ToolCallID, ToolName: part.ToolName,
				OutputJSON: part.OutputJSON, IsError: part.IsError,
			})
			emit(domain.TurnStreamEvent{
				Type: domain.EventToolResult, ToolCallID: part.ToolCallID, ToolName: part.ToolName,
				OutputJSON: part.OutputJSON, IsError: part.IsError,
			})
		case domain.PartMedia:
			if strings.HasPrefix(part.MediaType, "image/") {
				blocks = append(blocks, domain.ContentBlock{Kind: domain.BlockImage, MediaType: part.MediaType, Source: part.Source})
			}
		case domain.PartFinish:
			finishReason = part.FinishReason
			outputTokens = part.OutputTokens
			if part.ModelUsageJSON != "" {
				usage := part.ModelUsageJSON
				usageJSON = &usage
			}
		}
	}

	if text := textBuilder.String(); text != "" {
		blocks = append([]domain.ContentBlock{{Kind: domain.BlockText, Text: text}}, blocks...)
	}

	var finishReasonPtr *string
	if finishReason != "" {
		finishReasonPtr = &finishReason
	}

	err = p.sessionLocks.Do(payload.SessionID, func() error {
		_, appendErr := p.turnsStore.AppendTurn(ctx, domain.AppendTurnRequest{
			TurnID:            payload.TurnID + ":assistant",
			SessionID:         payload.SessionID,
			ConversationID:    payload.ConversationID,
			ParticipantRole:   domain.RoleAssistant,
			MessageID:         payload.TurnID + ":assistant",
			MessageContent:    textBuilder.String(),
			ContentBlocks:     blocks,
			ModelFinishReason: finishReasonPtr,
			ModelUsageJSON:    usageJSON,
			CreatedAt:         p.clock.Now(),
		})
		if appendErr != nil {
			return appendErr
		}
		_, updErr := p.sessionsStore.UpdateContextWindow(ctx, payload.SessionID, outputTokens)
		return updErr
	})
	if err != nil {
		fail(err)
		return
	}

	emit(domain.TurnStreamEvent{Type: domain.EventTurnCompleted, FinishReason: finishReason})
	p.publishHubEvent(events.TypeTurnCompleted, payload.TurnID, payload.SessionID, map[string]any{"finishReason": finishReason})
}

func (p *Pipeline) publishHubEvent(eventType, turnID, sessionID string, extra map[string]any) {
	if p.hub == nil {
		return
	}
	payload := map[string]any{"turnId": turnID, "sessionId": sessionID}
	for k, v := range extra {
		payload[k] = v
	}
	p.hub.Publish(events.NewEvent(eventType, payload))
}
