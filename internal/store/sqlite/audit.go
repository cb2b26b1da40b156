package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/personalagent/runtime/internal/domain"
)

func (s *Store) initAuditSchema() error {
	schema := `CREATE TABLE IF NOT EXISTS audit_entries (
		audit_entry_id TEXT PRIMARY KEY,
		agent_id       TEXT NOT NULL,
		session_id     TEXT,
		decision       TEXT NOT NULL,
		reason         TEXT NOT NULL,
		created_at     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_entries (created_at DESC)`
	_, err := s.db.Exec(schema)
	return err
}

type auditExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// WriteAudit implements domain.AuditStore, an append-only log (spec.md §4.6).
func (s *Store) WriteAudit(ctx context.Context, entry domain.AuditEntry) error {
	return writeAuditTx(ctx, s.db, entry)
}

// ListAudit implements domain.AuditStore, newest first.
func (s *Store) ListAudit(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	return listAuditTx(ctx, s.db, limit)
}

func writeAuditTx(ctx context.Context, q auditExecer, entry domain.AuditEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		return errAuditMissingCreatedAt
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO audit_entries (audit_entry_id, agent_id, session_id, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.AuditEntryID, entry.AgentID, entry.SessionID, string(entry.Decision), entry.Reason,
		createdAt.UTC().Format(time.RFC3339Nano))
	return err
}

func listAuditTx(ctx context.Context, q auditExecer, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := q.QueryContext(ctx,
		`SELECT audit_entry_id, agent_id, session_id, decision, reason, created_at
		 FROM audit_entries ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var sessionID sql.NullString
		var decision, createdAt string
		if err := rows.Scan(&e.AuditEntryID, &e.AgentID, &sessionID, &decision, &e.Reason, &createdAt); err != nil {
			return nil, err
		}
		e.Decision = domain.PolicyDecision(decision)
		if sessionID.Valid {
			e.SessionID = &sessionID.String
		}
		parsed, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, err
		}
		e.CreatedAt = parsed
		out = append(out, e)
	}
	return out, rows.Err()
}

var errAuditMissingCreatedAt = errors.New("audit entry missing createdAt")
