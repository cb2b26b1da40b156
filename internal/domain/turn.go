package domain

import "time"

// ParticipantRole identifies who produced a turn.
type ParticipantRole string

const (
	RoleUser      ParticipantRole = "User"
	RoleAssistant ParticipantRole = "Assistant"
	RoleSystem    ParticipantRole = "System"
	RoleTool      ParticipantRole = "Tool"
)

// BlockKind tags the variant a ContentBlock carries.
type BlockKind string

const (
	BlockText      BlockKind = "Text"
	BlockToolUse   BlockKind = "ToolUse"
	BlockToolResult BlockKind = "ToolResult"
	BlockImage     BlockKind = "Image"
)

// ContentBlock is a tagged union over the four block variants named in
// spec.md §3. Exactly the fields relevant to Kind are populated; this
// mirrors the teacher's flat-struct-with-discriminant style used for
// store.OpsSchedule rather than introducing a Go interface hierarchy that
// would complicate JSON round-tripping.
type ContentBlock struct {
	Kind BlockKind

	// TextBlock
	Text string

	// ToolUseBlock
	ToolCallID string
	ToolName   string
	InputJSON  string

	// ToolResultBlock (ToolCallID/ToolName shared with ToolUseBlock)
	OutputJSON string
	IsError    bool

	// ImageBlock
	MediaType string
	Source    string
	AltText   *string
}

// Turn is a single participant utterance appended to a session.
type Turn struct {
	TurnID            string
	SessionID         string
	ConversationID    string
	TurnIndex         int
	ParticipantRole   ParticipantRole
	MessageID         string
	MessageContent    string
	ContentBlocks     []ContentBlock
	ModelFinishReason *string
	ModelUsageJSON    *string
	CreatedAt         time.Time
}

// AppendTurnRequest is the input to TurnStore.AppendTurn.
type AppendTurnRequest struct {
	TurnID            string
	SessionID         string
	ConversationID    string
	ParticipantRole   ParticipantRole
	MessageID         string
	MessageContent    string
	ContentBlocks     []ContentBlock
	ModelFinishReason *string
	ModelUsageJSON    *string
	CreatedAt         time.Time
}
