package memory

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/personalagent/runtime/internal/domain"
)

// Encode implements domain.MemoryStore.
func (s *Store) Encode(_ context.Context, item domain.MemoryItem) (domain.MemoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = item.CreatedAt
	}

	for i, existing := range s.memoryItems {
		if existing.MemoryItemID == item.MemoryItemID {
			s.memoryItems[i] = item
			return item, nil
		}
	}
	s.memoryItems = append(s.memoryItems, item)
	return item, nil
}

// Search implements domain.MemoryStore with substring content matching and
// an opaque numeric-offset cursor (spec.md §8 scenario 6).
func (s *Store) Search(_ context.Context, q domain.MemorySearchQuery) (domain.MemorySearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

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

	var matches []domain.MemoryItem
	for _, item := range s.memoryItems {
		if item.AgentID == q.AgentID && strings.Contains(item.Content, q.Query) {
			matches = append(matches, item)
		}
	}

	less := func(i, j int) bool { return matches[i].CreatedAt.Before(matches[j].CreatedAt) }
	if q.Sort == domain.CreatedDesc || q.Sort == "" {
		less = func(i, j int) bool { return matches[i].CreatedAt.After(matches[j].CreatedAt) }
	}
	sort.SliceStable(matches, less)

	total := len(matches)
	end := offset + limit
	if end > total {
		end = total
	}
	if offset > total {
		offset = total
	}
	page := append([]domain.MemoryItem(nil), matches[offset:end]...)

	result := domain.MemorySearchResult{Items: page, TotalCount: total}
	if end < total {
		cursor := encodeCursor(end)
		result.Cursor = &cursor
	}
	return result, nil
}

// Forget implements domain.MemoryStore.
func (s *Store) Forget(_ context.Context, agentID string, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []domain.MemoryItem
	deleted := 0
	for _, item := range s.memoryItems {
		if item.AgentID == agentID && item.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, item)
	}
	s.memoryItems = kept
	return deleted, nil
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
