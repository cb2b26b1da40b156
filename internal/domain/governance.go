package domain

import "time"

// PolicyDecision is the outcome of a governance policy evaluation.
type PolicyDecision string

const (
	Allow           PolicyDecision = "Allow"
	Deny            PolicyDecision = "Deny"
	RequireApproval PolicyDecision = "RequireApproval"
)

// PolicyInput is the input to Governance.EvaluatePolicy.
type PolicyInput struct {
	AgentID   string
	SessionID *string
	Action    string
}

// PolicyResult is the output of Governance.EvaluatePolicy.
type PolicyResult struct {
	Decision PolicyDecision
	PolicyID *string
	Reason   string
}

// AuditEntry is an append-only record of a governance decision.
type AuditEntry struct {
	AuditEntryID string
	AgentID      string
	SessionID    *string
	Decision     PolicyDecision
	Reason       string
	CreatedAt    time.Time
}

// GuardrailScope selects whether a GuardrailRule matches an action name or
// a free-form command string.
type GuardrailScope string

const (
	GuardrailScopeAction  GuardrailScope = "Action"
	GuardrailScopeCommand GuardrailScope = "Command"
)

// GuardrailMode is the effect a matching GuardrailRule has.
type GuardrailMode string

const (
	GuardrailModeAllow   GuardrailMode = "Allow"
	GuardrailModeWarn    GuardrailMode = "Warn"
	GuardrailModeConfirm GuardrailMode = "Confirm"
	GuardrailModeBlock   GuardrailMode = "Block"
)

// GuardrailRule is a regex policy rule layered above the MVP default-allow
// evaluator (SPEC_FULL.md §3.E).
type GuardrailRule struct {
	RuleID  string
	Scope   GuardrailScope
	Pattern string
	Mode    GuardrailMode
	Message string
	Enabled bool
}

// ToolQuotaState is the durable per-(agent,tool) daily quota counter.
type ToolQuotaState struct {
	AgentID     string
	ToolName    string
	MaxPerDay   int64
	UsedToday   int64
	ResetAt     time.Time
}

// MemoryTier is the retention/retrieval class of a MemoryItem.
type MemoryTier string

const (
	TierWorking    MemoryTier = "Working"
	TierEpisodic   MemoryTier = "Episodic"
	TierSemantic   MemoryTier = "Semantic"
	TierProcedural MemoryTier = "Procedural"
)

// MemoryScope is the visibility scope of a MemoryItem.
type MemoryScope string

const (
	ScopeSession MemoryScope = "Session"
	ScopeProject MemoryScope = "Project"
	ScopeGlobal  MemoryScope = "Global"
)

// MemorySource identifies who produced a MemoryItem.
type MemorySource string

const (
	SourceUser   MemorySource = "User"
	SourceSystem MemorySource = "System"
	SourceAgent  MemorySource = "Agent"
)

// MemorySensitivity is the confidentiality class of a MemoryItem.
type MemorySensitivity string

const (
	SensitivityPublic       MemorySensitivity = "Public"
	SensitivityInternal     MemorySensitivity = "Internal"
	SensitivityConfidential MemorySensitivity = "Confidential"
	SensitivityRestricted   MemorySensitivity = "Restricted"
)

// MemoryItem is a stored piece of agent memory.
type MemoryItem struct {
	MemoryItemID     string
	AgentID          string
	Tier             MemoryTier
	Scope            MemoryScope
	Source           MemorySource
	Content          string
	MetadataJSON     *string
	GeneratedByTurnID *string
	SessionID        *string
	Sensitivity      MemorySensitivity
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// MemorySortOrder controls MemoryStore.Search ordering.
type MemorySortOrder string

const (
	CreatedDesc MemorySortOrder = "CreatedDesc"
	CreatedAsc  MemorySortOrder = "CreatedAsc"
)

// MemorySearchQuery is the input to MemoryStore.Search.
type MemorySearchQuery struct {
	AgentID string
	Query   string
	Sort    MemorySortOrder
	Limit   int
	Cursor  *string
}

// MemorySearchResult is the output of MemoryStore.Search, paginated via an
// opaque cursor (spec.md §8 scenario 6).
type MemorySearchResult struct {
	Items      []MemoryItem
	Cursor     *string
	TotalCount int
}
