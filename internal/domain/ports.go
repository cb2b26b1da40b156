package domain

import (
	"context"
	"time"
)

// AgentStore persists Agent records and enforces the token-budget
// consume/reset invariant described in spec.md §3.
type AgentStore interface {
	GetAgent(ctx context.Context, agentID string) (Agent, error)
	UpsertAgent(ctx context.Context, agent Agent) error
	// ConsumeTokenBudget applies spec.md §4.5 step 3's reset-then-consume
	// rule atomically and returns the agent's remaining budget.
	ConsumeTokenBudget(ctx context.Context, agentID string, tokens int64, now time.Time) (remaining int64, err error)
}

// SessionStore persists Session records.
type SessionStore interface {
	GetSession(ctx context.Context, sessionID string) (Session, error)
	StartSession(ctx context.Context, session Session) error
	// UpdateContextWindow applies delta to tokensUsed, clamped at 0 on
	// negative deltas, failing with ContextWindowExceededError if the new
	// value would exceed tokenCapacity.
	UpdateContextWindow(ctx context.Context, sessionID string, delta int64) (tokensUsed int64, err error)
}

// TurnStore persists Turn records with dense per-session turnIndex
// assignment and turnId-based deduplication (spec.md §3).
type TurnStore interface {
	AppendTurn(ctx context.Context, req AppendTurnRequest) (Turn, error)
	ListTurns(ctx context.Context, sessionID string) ([]Turn, error)
	GetTurn(ctx context.Context, sessionID, turnID string) (Turn, bool, error)
}

// ChannelStore persists Channel records.
type ChannelStore interface {
	UpsertChannel(ctx context.Context, ch Channel) error
	GetChannel(ctx context.Context, channelID string) (Channel, bool, error)
}

// ScheduleStore persists Schedule records and exposes the due-window query
// the Scheduler Runtime needs.
type ScheduleStore interface {
	GetSchedule(ctx context.Context, scheduleID string) (Schedule, error)
	ListSchedules(ctx context.Context) ([]Schedule, error)
	InsertSchedule(ctx context.Context, s Schedule) error
	// ApplyScheduleDelta persists the nextExecutionAt/status/lastExecutionAt
	// changes computed by the Scheduler Runtime's completeExecution.
	ApplyScheduleDelta(ctx context.Context, scheduleID string, delta ScheduleDelta) error
}

// ScheduleDelta is the mutation the Scheduler Runtime asks the Command Lane
// to apply to a schedule after completing an execution (spec.md §4.1).
// NextExecutionAt is always authoritative (nil means "clear it", per
// completeExecution's "else: null" branch) — unlike a partial-update patch,
// this delta always carries the Scheduler Runtime's full computed result for
// these three fields.
type ScheduleDelta struct {
	NextExecutionAt *time.Time
	LastExecutionAt *time.Time
	ScheduleStatus  ScheduleStatus
}

// ExecutionStore persists ScheduledExecution rows, keyed idempotently by
// ExecutionID (spec.md §3, §4.2).
type ExecutionStore interface {
	// InsertExecution inserts a new row. inserted is false (and no error)
	// when a row with the same ExecutionID already existed.
	InsertExecution(ctx context.Context, exec ScheduledExecution) (inserted bool, err error)
	ListExecutionsBySchedule(ctx context.Context, scheduleID string) ([]ScheduledExecution, error)
	GetExecution(ctx context.Context, executionID string) (ScheduledExecution, bool, error)
}

// AuditStore is the append-only audit log.
type AuditStore interface {
	WriteAudit(ctx context.Context, entry AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]AuditEntry, error)
}

// MemoryStore persists MemoryItem records.
type MemoryStore interface {
	Encode(ctx context.Context, item MemoryItem) (MemoryItem, error)
	Search(ctx context.Context, q MemorySearchQuery) (MemorySearchResult, error)
	// Forget deletes every item for agentID with createdAt < cutoff and
	// returns the number of rows removed (spec.md §8 round-trip law).
	Forget(ctx context.Context, agentID string, cutoff time.Time) (deleted int, err error)
}

// GuardrailStore persists GuardrailRule and tool-quota state.
type GuardrailStore interface {
	ListGuardrailRules(ctx context.Context) ([]GuardrailRule, error)
	UpsertGuardrailRule(ctx context.Context, rule GuardrailRule) error
	GetToolQuota(ctx context.Context, agentID, toolName string) (ToolQuotaState, bool, error)
	PutToolQuota(ctx context.Context, state ToolQuotaState) error
}

// TxRunner atomically applies a command-lane command spanning an execution
// insert, schedule delta, and audit write in one transaction (spec.md
// §4.2's "single atomic transaction" requirement). Implementations must
// roll back and return an error without performing any audit write when
// the transaction fails.
type TxRunner interface {
	RunCommandTx(ctx context.Context, fn func(ctx context.Context, execs ExecutionStore, sched ScheduleStore, audit AuditStore) error) error
}
