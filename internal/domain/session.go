package domain

// Session is a bounded context window over one conversation.
type Session struct {
	SessionID      string
	ConversationID string
	TokenCapacity  int64
	TokensUsed     int64
}
