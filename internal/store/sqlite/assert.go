package sqlite

import "github.com/personalagent/runtime/internal/domain"

var (
	_ domain.AgentStore     = (*Store)(nil)
	_ domain.SessionStore   = (*Store)(nil)
	_ domain.TurnStore      = (*Store)(nil)
	_ domain.ChannelStore   = (*Store)(nil)
	_ domain.ScheduleStore  = (*Store)(nil)
	_ domain.ExecutionStore = (*Store)(nil)
	_ domain.AuditStore     = (*Store)(nil)
	_ domain.MemoryStore    = (*Store)(nil)
	_ domain.GuardrailStore = (*Store)(nil)
	_ domain.TxRunner       = (*Store)(nil)
)
