package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/personalagent/runtime/internal/domain"
)

func (s *Store) initSessionSchema() error {
	schema := `CREATE TABLE IF NOT EXISTS sessions (
		session_id      TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		token_capacity  INTEGER NOT NULL,
		tokens_used     INTEGER NOT NULL DEFAULT 0
	)`
	_, err := s.db.Exec(schema)
	return err
}

// GetSession implements domain.SessionStore.
func (s *Store) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	var sess domain.Session
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, conversation_id, token_capacity, tokens_used
		 FROM sessions WHERE session_id = ?`, sessionID)
	if err := row.Scan(&sess.SessionID, &sess.ConversationID, &sess.TokenCapacity, &sess.TokensUsed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, &domain.SessionNotFoundError{SessionID: sessionID}
		}
		return domain.Session{}, err
	}
	return sess, nil
}

// StartSession implements domain.SessionStore.
func (s *Store) StartSession(ctx context.Context, session domain.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, conversation_id, token_capacity, tokens_used)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   conversation_id = excluded.conversation_id,
		   token_capacity = excluded.token_capacity,
		   tokens_used = excluded.tokens_used`,
		session.SessionID, session.ConversationID, session.TokenCapacity, session.TokensUsed)
	return err
}

// UpdateContextWindow implements domain.SessionStore: applies delta to
// tokensUsed, clamped at 0 on negative deltas, rejecting the update with
// ContextWindowExceededError if the result would exceed tokenCapacity.
func (s *Store) UpdateContextWindow(ctx context.Context, sessionID string, delta int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var capacity, used int64
	row := tx.QueryRowContext(ctx,
		`SELECT token_capacity, tokens_used FROM sessions WHERE session_id = ?`, sessionID)
	if err := row.Scan(&capacity, &used); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, &domain.SessionNotFoundError{SessionID: sessionID}
		}
		return 0, err
	}

	next := used + delta
	if next < 0 {
		next = 0
	}
	if next > capacity {
		return used, &domain.ContextWindowExceededError{
			SessionID:           sessionID,
			TokenCapacity:       capacity,
			AttemptedTokensUsed: next,
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET tokens_used = ? WHERE session_id = ?`, next, sessionID,
	); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return next, nil
}
