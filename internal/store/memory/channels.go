package memory

import (
	"context"
	"time"

	"github.com/personalagent/runtime/internal/domain"
)

// UpsertChannel implements domain.ChannelStore.
func (s *Store) UpsertChannel(_ context.Context, ch domain.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = time.Now().UTC()
	}
	s.channels[ch.ChannelID] = ch
	return nil
}

// GetChannel implements domain.ChannelStore.
func (s *Store) GetChannel(_ context.Context, channelID string) (domain.Channel, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[channelID]
	return ch, ok, nil
}
