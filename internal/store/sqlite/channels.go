package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/personalagent/runtime/internal/domain"
)

func (s *Store) initChannelSchema() error {
	schema := `CREATE TABLE IF NOT EXISTS channels (
		channel_id              TEXT PRIMARY KEY,
		channel_type             TEXT NOT NULL,
		agent_id                 TEXT NOT NULL,
		active_session_id        TEXT NOT NULL DEFAULT '',
		active_conversation_id   TEXT NOT NULL DEFAULT '',
		created_at               TEXT NOT NULL
	)`
	_, err := s.db.Exec(schema)
	return err
}

// UpsertChannel implements domain.ChannelStore.
func (s *Store) UpsertChannel(ctx context.Context, ch domain.Channel) error {
	createdAt := ch.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO channels (channel_id, channel_type, agent_id, active_session_id, active_conversation_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(channel_id) DO UPDATE SET
		   channel_type = excluded.channel_type,
		   agent_id = excluded.agent_id,
		   active_session_id = excluded.active_session_id,
		   active_conversation_id = excluded.active_conversation_id`,
		ch.ChannelID, string(ch.ChannelType), ch.AgentID, ch.ActiveSessionID, ch.ActiveConversationID,
		createdAt.Format(time.RFC3339Nano))
	return err
}

// GetChannel implements domain.ChannelStore.
func (s *Store) GetChannel(ctx context.Context, channelID string) (domain.Channel, bool, error) {
	var ch domain.Channel
	var channelType, createdAt string
	row := s.db.QueryRowContext(ctx,
		`SELECT channel_id, channel_type, agent_id, active_session_id, active_conversation_id, created_at
		 FROM channels WHERE channel_id = ?`, channelID)
	if err := row.Scan(&ch.ChannelID, &channelType, &ch.AgentID, &ch.ActiveSessionID, &ch.ActiveConversationID, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Channel{}, false, nil
		}
		return domain.Channel{}, false, err
	}
	ch.ChannelType = domain.ChannelType(channelType)
	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return domain.Channel{}, false, err
	}
	ch.CreatedAt = parsed
	return ch, true, nil
}
