package domain

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// TokenBudgetExceededError is returned when consuming tokens would push an
// agent's budget past its cap (spec.md §7).
type TokenBudgetExceededError struct {
	AgentID         string
	RequestedTokens int64
	RemainingTokens int64
}

func (e *TokenBudgetExceededError) Error() string {
	return fmt.Sprintf("token budget exceeded for agent %s: requested %s, remaining %s",
		e.AgentID, humanize.Comma(e.RequestedTokens), humanize.Comma(e.RemainingTokens))
}

// ToolQuotaExceededError is returned when a tool's daily invocation quota
// is exhausted.
type ToolQuotaExceededError struct {
	AgentID              string
	ToolName             string
	RemainingInvocations int64
}

func (e *ToolQuotaExceededError) Error() string {
	return fmt.Sprintf("tool quota exceeded for agent %s tool %s: %d remaining",
		e.AgentID, e.ToolName, e.RemainingInvocations)
}

// SandboxViolationError is returned when an effect violates sandbox policy.
type SandboxViolationError struct {
	AgentID string
	Reason  string
}

func (e *SandboxViolationError) Error() string {
	return fmt.Sprintf("sandbox violation for agent %s: %s", e.AgentID, e.Reason)
}

// SessionNotFoundError is returned when a session lookup misses.
type SessionNotFoundError struct {
	SessionID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session not found: %s", e.SessionID)
}

// ContextWindowExceededError is returned when a context-window update would
// push tokensUsed past tokenCapacity.
type ContextWindowExceededError struct {
	SessionID             string
	TokenCapacity         int64
	AttemptedTokensUsed   int64
}

func (e *ContextWindowExceededError) Error() string {
	return fmt.Sprintf("context window exceeded for session %s: capacity %s, attempted %s",
		e.SessionID, humanize.Comma(e.TokenCapacity), humanize.Comma(e.AttemptedTokensUsed))
}

// ClusterEntityError wraps a storage/transport failure at an entity
// boundary (spec.md §7).
type ClusterEntityError struct {
	EntityType string
	Reason     string
	Err        error
}

func (e *ClusterEntityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s entity error: %s: %v", e.EntityType, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s entity error: %s", e.EntityType, e.Reason)
}

func (e *ClusterEntityError) Unwrap() error {
	return e.Err
}

// TurnProcessingError is a pipeline-internal failure.
type TurnProcessingError struct {
	TurnID string
	Reason string
}

func (e *TurnProcessingError) Error() string {
	return fmt.Sprintf("turn processing error for turn %s: %s", e.TurnID, e.Reason)
}

// TurnErrorCode extracts the errorCode to surface on a turn.failed event
// (spec.md §7: "errorCode = error._tag (or \"TurnProcessingError\")").
func TurnErrorCode(err error) string {
	switch err.(type) {
	case *TokenBudgetExceededError:
		return "TokenBudgetExceeded"
	case *ToolQuotaExceededError:
		return "ToolQuotaExceeded"
	case *SandboxViolationError:
		return "SandboxViolation"
	case *SessionNotFoundError:
		return "SessionNotFound"
	case *ContextWindowExceededError:
		return "ContextWindowExceeded"
	case *ClusterEntityError:
		return "ClusterEntityError"
	case *TurnProcessingError:
		return "TurnProcessingError"
	default:
		return "TurnProcessingError"
	}
}

// TodoNotFoundError is the example CRUD surface named in spec.md §7; it is
// retained only as the documented HTTP 404 mapping target and is not wired
// to any store (the todo CRUD surface itself is out of scope, spec.md §1).
type TodoNotFoundError struct {
	TodoID string
}

func (e *TodoNotFoundError) Error() string {
	return fmt.Sprintf("todo not found: %s", e.TodoID)
}
