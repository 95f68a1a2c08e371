package models

import "time"

// Sender roles for a chat message.
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// Conversation is one chat thread owned by a user. UpdatedAt moves whenever
// a message is appended or the title changes.
type Conversation struct {
	ID        string
	UserID    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CodeBlock is a fenced code snippet extracted from an assistant reply and
// kept as structured message metadata.
type CodeBlock struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Language string `json:"language"`
}

// Message is one entry in a conversation. Messages are append-only and
// ordered by CreatedAt ascending.
type Message struct {
	ID             string
	ConversationID string
	Content        string
	Sender         string
	CreatedAt      time.Time
	CodeBlocks     []CodeBlock
}
