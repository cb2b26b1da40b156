package httpapi

import (
	"net/http"

	"github.com/personalagent/runtime/internal/domain"
	"github.com/personalagent/runtime/internal/turns"
)

type createChannelRequest struct {
	ChannelType string `json:"channelType"`
	AgentID     string `json:"agentId"`
}

// createChannel implements POST /channels/{channelId}/create: starts a
// fresh session/conversation pair and upserts the channel bound to it
// (spec.md §3: "Lifecycle: upserted on createChannel").
func (h *Handler) createChannel(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("channelId")

	var req createChannelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if req.AgentID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "agentId is required")
		return
	}

	sessionID := h.ids.NewID()
	conversationID := h.ids.NewID()
	now := h.clock.Now()

	if err := h.sessions.StartSession(r.Context(), domain.Session{
		SessionID: sessionID, ConversationID: conversationID, TokenCapacity: defaultSessionTokenCapacity,
	}); err != nil {
		logHandlerError("createChannel: start session failed", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to start session")
		return
	}

	channel := domain.Channel{
		ChannelID:            channelID,
		ChannelType:          domain.ChannelType(req.ChannelType),
		AgentID:              req.AgentID,
		ActiveSessionID:      sessionID,
		ActiveConversationID: conversationID,
		CreatedAt:            now,
	}
	if err := h.channels.UpsertChannel(r.Context(), channel); err != nil {
		logHandlerError("createChannel: upsert channel failed", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to create channel")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type sendChannelMessageRequest struct {
	Content string `json:"content"`
}

// sendChannelMessage implements POST /channels/{channelId}/messages: loads
// the channel's active session/conversation and runs it through the Turn
// Processing Pipeline, streaming the result as SSE.
func (h *Handler) sendChannelMessage(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("channelId")

	channel, ok, err := h.channels.GetChannel(r.Context(), channelID)
	if err != nil {
		logHandlerError("sendChannelMessage: get channel failed", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to load channel")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "CHANNEL_NOT_FOUND", "channel not found")
		return
	}

	var req sendChannelMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	payload := turns.Payload{
		TurnID:         h.ids.NewID(),
		SessionID:      channel.ActiveSessionID,
		ConversationID: channel.ActiveConversationID,
		AgentID:        channel.AgentID,
		Content:        req.Content,
		InputTokens:    estimateTokens(req.Content),
	}

	stream, err := h.pipeline.ProcessTurn(r.Context(), payload)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, domain.TurnErrorCode(err), err.Error())
		return
	}
	streamTurnEvents(w, r, stream)
}

// estimateTokens is a provider-agnostic token-count heuristic (~4 bytes
// per token); exact tokenization is provider-specific and out of scope
// (spec.md §1).
func estimateTokens(content string) int64 {
	n := int64(len(content)) / 4
	if n == 0 && content != "" {
		n = 1
	}
	return n
}
