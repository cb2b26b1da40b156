package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/personalagent/runtime/internal/domain"
)

func (s *Store) initTurnSchema() error {
	schema := `CREATE TABLE IF NOT EXISTS turns (
		turn_id             TEXT NOT NULL,
		session_id          TEXT NOT NULL,
		conversation_id     TEXT NOT NULL,
		turn_index          INTEGER NOT NULL,
		participant_role    TEXT NOT NULL,
		message_id          TEXT NOT NULL,
		message_content     TEXT NOT NULL,
		content_blocks_json TEXT NOT NULL DEFAULT '[]',
		model_finish_reason TEXT,
		model_usage_json    TEXT,
		created_at          TEXT NOT NULL,
		PRIMARY KEY (session_id, turn_id)
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session_index ON turns (session_id, turn_index)`
	_, err := s.db.Exec(schema)
	return err
}

// AppendTurn implements domain.TurnStore, assigning a dense per-session
// turnIndex and deduplicating on turnId (spec.md §3): re-appending an
// already-stored turnId returns the existing row unchanged.
func (s *Store) AppendTurn(ctx context.Context, req domain.AppendTurnRequest) (domain.Turn, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Turn{}, err
	}
	defer func() { _ = tx.Rollback() }()

	existing, ok, err := getTurnTx(ctx, tx, req.SessionID, req.TurnID)
	if err != nil {
		return domain.Turn{}, err
	}
	if ok {
		return existing, nil
	}

	var maxIndex sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(turn_index) FROM turns WHERE session_id = ?`, req.SessionID,
	).Scan(&maxIndex); err != nil {
		return domain.Turn{}, err
	}
	nextIndex := 0
	if maxIndex.Valid {
		nextIndex = int(maxIndex.Int64) + 1
	}

	blocksJSON, err := json.Marshal(req.ContentBlocks)
	if err != nil {
		return domain.Turn{}, fmt.Errorf("marshal content blocks: %w", err)
	}

	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		return domain.Turn{}, fmt.Errorf("append turn %s: createdAt is required", req.TurnID)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO turns (turn_id, session_id, conversation_id, turn_index, participant_role,
			message_id, message_content, content_blocks_json, model_finish_reason, model_usage_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.TurnID, req.SessionID, req.ConversationID, nextIndex, string(req.ParticipantRole),
		req.MessageID, req.MessageContent, string(blocksJSON), req.ModelFinishReason, req.ModelUsageJSON,
		createdAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return domain.Turn{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Turn{}, err
	}

	return domain.Turn{
		TurnID:            req.TurnID,
		SessionID:         req.SessionID,
		ConversationID:    req.ConversationID,
		TurnIndex:         nextIndex,
		ParticipantRole:   req.ParticipantRole,
		MessageID:         req.MessageID,
		MessageContent:    req.MessageContent,
		ContentBlocks:     req.ContentBlocks,
		ModelFinishReason: req.ModelFinishReason,
		ModelUsageJSON:    req.ModelUsageJSON,
		CreatedAt:         createdAt,
	}, nil
}

// ListTurns implements domain.TurnStore, ordered by turnIndex ascending.
func (s *Store) ListTurns(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT turn_id, session_id, conversation_id, turn_index, participant_role, message_id,
			message_content, content_blocks_json, model_finish_reason, model_usage_json, created_at
		 FROM turns WHERE session_id = ? ORDER BY turn_index ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []domain.Turn
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// GetTurn implements domain.TurnStore.
func (s *Store) GetTurn(ctx context.Context, sessionID, turnID string) (domain.Turn, bool, error) {
	return getTurnTx(ctx, s.db, sessionID, turnID)
}

type turnQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getTurnTx(ctx context.Context, q turnQueryer, sessionID, turnID string) (domain.Turn, bool, error) {
	row := q.QueryRowContext(ctx,
		`SELECT turn_id, session_id, conversation_id, turn_index, participant_role, message_id,
			message_content, content_blocks_json, model_finish_reason, model_usage_json, created_at
		 FROM turns WHERE session_id = ? AND turn_id = ?`, sessionID, turnID)
	t, err := scanTurn(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Turn{}, false, nil
		}
		return domain.Turn{}, false, err
	}
	return t, true, nil
}

type turnRowScanner interface {
	Scan(dest ...any) error
}

func scanTurn(row turnRowScanner) (domain.Turn, error) {
	var t domain.Turn
	var role, createdAt, blocksJSON string
	var finishReason, usageJSON sql.NullString
	if err := row.Scan(&t.TurnID, &t.SessionID, &t.ConversationID, &t.TurnIndex, &role, &t.MessageID,
		&t.MessageContent, &blocksJSON, &finishReason, &usageJSON, &createdAt); err != nil {
		return domain.Turn{}, err
	}
	t.ParticipantRole = domain.ParticipantRole(role)
	if finishReason.Valid {
		t.ModelFinishReason = &finishReason.String
	}
	if usageJSON.Valid {
		t.ModelUsageJSON = &usageJSON.String
	}
	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return domain.Turn{}, err
	}
	t.CreatedAt = parsed
	if err := json.Unmarshal([]byte(blocksJSON), &t.ContentBlocks); err != nil {
		return domain.Turn{}, fmt.Errorf("unmarshal content blocks: %w", err)
	}
	return t, nil
}
