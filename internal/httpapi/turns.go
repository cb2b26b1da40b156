package httpapi

import (
	"net/http"

	"github.com/personalagent/runtime/internal/domain"
	"github.com/personalagent/runtime/internal/turns"
)

// submitTurnRequest is the JSON body of POST /sessions/{sessionId}/turns,
// mirroring processTurn's payload (spec.md §4.5) minus sessionId, which
// comes from the path, and createdAt, which the pipeline stamps itself.
type submitTurnRequest struct {
	TurnID         string               `json:"turnId"`
	ConversationID string               `json:"conversationId"`
	AgentID        string               `json:"agentId"`
	Content        string               `json:"content"`
	ContentBlocks  []domain.ContentBlock `json:"contentBlocks"`
	InputTokens    int64                `json:"inputTokens"`
}

// submitTurn implements POST /sessions/{sessionId}/turns.
func (h *Handler) submitTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")

	var req submitTurnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if req.AgentID == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "agentId and content are required")
		return
	}
	if req.TurnID == "" {
		req.TurnID = h.ids.NewID()
	}
	inputTokens := req.InputTokens
	if inputTokens == 0 {
		inputTokens = estimateTokens(req.Content)
	}

	payload := turns.Payload{
		TurnID:         req.TurnID,
		SessionID:      sessionID,
		ConversationID: req.ConversationID,
		AgentID:        req.AgentID,
		Content:        req.Content,
		ContentBlocks:  req.ContentBlocks,
		InputTokens:    inputTokens,
	}

	stream, err := h.pipeline.ProcessTurn(r.Context(), payload)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, domain.TurnErrorCode(err), err.Error())
		return
	}
	streamTurnEvents(w, r, stream)
}
