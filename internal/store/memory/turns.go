package memory

import (
	"context"

	"github.com/personalagent/runtime/internal/domain"
)

// AppendTurn implements domain.TurnStore, assigning a dense per-session
// turnIndex and deduplicating on turnId (spec.md §3).
func (s *Store) AppendTurn(_ context.Context, req domain.AppendTurnRequest) (domain.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.turns[req.SessionID]
	for _, t := range existing {
		if t.TurnID == req.TurnID {
			return t, nil
		}
	}

	turn := domain.Turn{
		TurnID:            req.TurnID,
		SessionID:         req.SessionID,
		ConversationID:    req.ConversationID,
		TurnIndex:         len(existing),
		ParticipantRole:   req.ParticipantRole,
		MessageID:         req.MessageID,
		MessageContent:    req.MessageContent,
		ContentBlocks:     cloneContentBlocks(req.ContentBlocks),
		ModelFinishReason: req.ModelFinishReason,
		ModelUsageJSON:    req.ModelUsageJSON,
		CreatedAt:         req.CreatedAt,
	}
	s.turns[req.SessionID] = append(existing, turn)
	return turn, nil
}

// ListTurns implements domain.TurnStore, ordered by turnIndex ascending.
func (s *Store) ListTurns(_ context.Context, sessionID string) ([]domain.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.turns[sessionID]
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

// GetTurn implements domain.TurnStore.
func (s *Store) GetTurn(_ context.Context, sessionID, turnID string) (domain.Turn, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.turns[sessionID] {
		if t.TurnID == turnID {
			return t, true, nil
		}
	}
	return domain.Turn{}, false, nil
}
