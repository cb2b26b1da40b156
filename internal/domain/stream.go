package domain

// MaxSafeSequence is the terminal sequence number stamped on a
// turn.failed event (spec.md §4.5 step 9).
const MaxSafeSequence int64 = 1<<53 - 1

// StreamEventType tags the variant a TurnStreamEvent carries.
type StreamEventType string

const (
	EventTurnStarted    StreamEventType = "turn.started"
	EventAssistantDelta StreamEventType = "assistant.delta"
	EventToolCall       StreamEventType = "tool.call"
	EventToolResult     StreamEventType = "tool.result"
	EventTurnCompleted  StreamEventType = "turn.completed"
	EventTurnFailed     StreamEventType = "turn.failed"
)

// TurnStreamEvent is the flat tagged-union event the Turn Processing
// Pipeline emits, one per step of spec.md §4.5. Exactly the fields
// relevant to Type are populated, mirroring ContentBlock's discriminant
// style.
type TurnStreamEvent struct {
	Type      StreamEventType
	Sequence  int64
	TurnID    string
	SessionID string

	// assistant.delta
	Delta string

	// tool.call / tool.result
	ToolCallID string
	ToolName   string
	InputJSON  string
	OutputJSON string
	IsError    bool

	// turn.completed
	FinishReason string

	// turn.failed
	ErrorCode string
	Message   string
}

// ModelPartKind tags the variant a ModelPart carries, as streamed by a
// ModelHandle (spec.md §4.5 step 6).
type ModelPartKind string

const (
	PartTextDelta   ModelPartKind = "TextDelta"
	PartToolCall    ModelPartKind = "ToolCall"
	PartToolResult  ModelPartKind = "ToolResult"
	PartMedia       ModelPartKind = "Media"
	PartFinish      ModelPartKind = "Finish"
)

// ModelPart is one chunk of a streamed model response.
type ModelPart struct {
	Kind ModelPartKind

	// PartTextDelta
	TextDelta string

	// PartToolCall / PartToolResult
	ToolCallID string
	ToolName   string
	InputJSON  string
	OutputJSON string
	IsError    bool

	// PartMedia
	MediaType string
	Source    string

	// PartFinish
	FinishReason   string
	ModelUsageJSON string
	OutputTokens   int64
}
