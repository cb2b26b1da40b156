// Package memory is an in-process, map-backed implementation of every
// domain.*Store port, used by tests and by SPEC_FULL.md's deterministic
// scenario suite (spec.md §8) in place of the sqlite package.
package memory

import (
	"sync"

	"github.com/personalagent/runtime/internal/domain"
)

// Store holds every entity table behind one mutex, mirroring the single
// writer-serialized sqlite.Store but without touching disk.
type Store struct {
	mu sync.Mutex

	agents      map[string]domain.Agent
	sessions    map[string]domain.Session
	turns       map[string][]domain.Turn // sessionID -> turns ordered by turnIndex
	channels    map[string]domain.Channel
	schedules   map[string]domain.Schedule
	executions  map[string]domain.ScheduledExecution
	audit       []domain.AuditEntry
	memoryItems []domain.MemoryItem
	guardrails  map[string]domain.GuardrailRule
	toolQuotas  map[string]domain.ToolQuotaState // agentID+"|"+toolName
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		agents:     make(map[string]domain.Agent),
		sessions:   make(map[string]domain.Session),
		turns:      make(map[string][]domain.Turn),
		channels:   make(map[string]domain.Channel),
		schedules:  make(map[string]domain.Schedule),
		executions: make(map[string]domain.ScheduledExecution),
		guardrails: make(map[string]domain.GuardrailRule),
		toolQuotas: make(map[string]domain.ToolQuotaState),
	}
}

func toolQuotaKey(agentID, toolName string) string {
	return agentID + "|" + toolName
}

func cloneContentBlocks(blocks []domain.ContentBlock) []domain.ContentBlock {
	if blocks == nil {
		return nil
	}
	out := make([]domain.ContentBlock, len(blocks))
	copy(out, blocks)
	return out
}
