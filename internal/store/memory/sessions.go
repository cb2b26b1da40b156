package memory

import (
	"context"

	"github.com/personalagent/runtime/internal/domain"
)

// GetSession implements domain.SessionStore.
func (s *Store) GetSession(_ context.Context, sessionID string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return domain.Session{}, &domain.SessionNotFoundError{SessionID: sessionID}
	}
	return sess, nil
}

// StartSession implements domain.SessionStore.
func (s *Store) StartSession(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.SessionID] = session
	return nil
}

// UpdateContextWindow implements domain.SessionStore.
func (s *Store) UpdateContextWindow(_ context.Context, sessionID string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return 0, &domain.SessionNotFoundError{SessionID: sessionID}
	}

	next := sess.TokensUsed + delta
	if next < 0 {
		next = 0
	}
	if next > sess.TokenCapacity {
		return sess.TokensUsed, &domain.ContextWindowExceededError{
			SessionID:           sessionID,
			TokenCapacity:       sess.TokenCapacity,
			AttemptedTokensUsed: next,
		}
	}

	sess.TokensUsed = next
	s.sessions[sessionID] = sess
	return next, nil
}
