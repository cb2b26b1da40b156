package sqlite

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/personalagent/runtime/internal/domain"
)

func (s *Store) initMemorySchema() error {
	schema := `CREATE TABLE IF NOT EXISTS memory_items (
		memory_item_id       TEXT PRIMARY KEY,
		agent_id             TEXT NOT NULL,
		tier                 TEXT NOT NULL,
		scope                TEXT NOT NULL,
		source               TEXT NOT NULL,
		content              TEXT NOT NULL,
		metadata_json        TEXT,
		generated_by_turn_id TEXT,
		session_id           TEXT,
		sensitivity          TEXT NOT NULL,
		created_at           TEXT NOT NULL,
		updated_at           TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memory_agent_created ON memory_items (agent_id, created_at)`
	_, err := s.db.Exec(schema)
	return err
}

// Encode implements domain.MemoryStore.
func (s *Store) Encode(ctx context.Context, item domain.MemoryItem) (domain.MemoryItem, error) {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = item.CreatedAt
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memory_items (memory_item_id, agent_id, tier, scope, source, content, metadata_json,
			generated_by_turn_id, session_id, sensitivity, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(memory_item_id) DO UPDATE SET
		   content = excluded.content,
		   metadata_json = excluded.metadata_json,
		   updated_at = excluded.updated_at`,
		item.MemoryItemID, item.AgentID, string(item.Tier), string(item.Scope), string(item.Source),
		item.Content, item.MetadataJSON, item.GeneratedByTurnID, item.SessionID, string(item.Sensitivity),
		item.CreatedAt.UTC().Format(time.RFC3339Nano), item.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return domain.MemoryItem{}, err
	}
	return item, nil
}

// Search implements domain.MemoryStore with content LIKE matching and an
// opaque numeric-offset cursor (spec.md §8 scenario 6).
func (s *Store) Search(ctx context.Context, q domain.MemorySearchQuery) (domain.MemorySearchResult, error) {
	offset := 0
	if q.Cursor != nil {
		decoded, err := decodeCursor(*q.Cursor)
		if err != nil {
			return domain.MemorySearchResult{}, fmt.Errorf("invalid cursor: %w", err)
		}
		offset = decoded
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	order := "created_at DESC"
	if q.Sort == domain.CreatedAsc {
		order = "created_at ASC"
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memory_items WHERE agent_id = ? AND content LIKE ?`,
		q.AgentID, "%"+q.Query+"%",
	).Scan(&total); err != nil {
		return domain.MemorySearchResult{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT memory_item_id, agent_id, tier, scope, source, content, metadata_json, generated_by_turn_id,
			session_id, sensitivity, created_at, updated_at
		 FROM memory_items WHERE agent_id = ? AND content LIKE ?
		 ORDER BY `+order+` LIMIT ? OFFSET ?`,
		q.AgentID, "%"+q.Query+"%", limit, offset)
	if err != nil {
		return domain.MemorySearchResult{}, err
	}
	defer rows.Close()

	var items []domain.MemoryItem
	for rows.Next() {
		item, err := scanMemoryItem(rows)
		if err != nil {
			return domain.MemorySearchResult{}, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.MemorySearchResult{}, err
	}

	result := domain.MemorySearchResult{Items: items, TotalCount: total}
	if next := offset + len(items); next < total {
		cursor := encodeCursor(next)
		result.Cursor = &cursor
	}
	return result, nil
}

// Forget implements domain.MemoryStore.
func (s *Store) Forget(ctx context.Context, agentID string, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM memory_items WHERE agent_id = ? AND created_at < ?`,
		agentID, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

type memoryRowScanner interface {
	Scan(dest ...any) error
}

func scanMemoryItem(row memoryRowScanner) (domain.MemoryItem, error) {
	var item domain.MemoryItem
	var tier, scope, source, sensitivity, createdAt, updatedAt string
	var metadataJSON, generatedByTurnID, sessionID sql.NullString
	if err := row.Scan(&item.MemoryItemID, &item.AgentID, &tier, &scope, &source, &item.Content,
		&metadataJSON, &generatedByTurnID, &sessionID, &sensitivity, &createdAt, &updatedAt); err != nil {
		return domain.MemoryItem{}, err
	}
	item.Tier = domain.MemoryTier(tier)
	item.Scope = domain.MemoryScope(scope)
	item.Source = domain.MemorySource(source)
	item.Sensitivity = domain.MemorySensitivity(sensitivity)
	if metadataJSON.Valid {
		item.MetadataJSON = &metadataJSON.String
	}
	if generatedByTurnID.Valid {
		item.GeneratedByTurnID = &generatedByTurnID.String
	}
	if sessionID.Valid {
		item.SessionID = &sessionID.String
	}
	var err error
	if item.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return domain.MemoryItem{}, err
	}
	if item.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return domain.MemoryItem{}, err
	}
	return item, nil
}

func encodeCursor(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

func decodeCursor(cursor string) (int, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(cursor))
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(raw))
}
