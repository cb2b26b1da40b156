package memory

import (
	"context"

	"github.com/personalagent/runtime/internal/domain"
)

// WriteAudit implements domain.AuditStore.
func (s *Store) WriteAudit(_ context.Context, entry domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeAuditLocked(entry)
	return nil
}

func (s *Store) writeAuditLocked(entry domain.AuditEntry) {
	s.audit = append(s.audit, entry)
}

// ListAudit implements domain.AuditStore, newest first.
func (s *Store) ListAudit(_ context.Context, limit int) ([]domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listAuditLocked(limit), nil
}

func (s *Store) listAuditLocked(limit int) []domain.AuditEntry {
	if limit <= 0 {
		limit = 100
	}
	n := len(s.audit)
	start := n - limit
	if start < 0 {
		start = 0
	}
	out := make([]domain.AuditEntry, 0, n-start)
	for i := n - 1; i >= start; i-- {
		out = append(out, s.audit[i])
	}
	return out
}
