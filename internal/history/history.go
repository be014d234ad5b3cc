// Package history owns the append-only session and message records shared
// with the conversation-history feature. The gateway only ever appends
// messages and touches the session timestamp.
package history

import (
	"context"
	"time"
)

type Session struct {
	ID        string
	TenantID  string
	UpdatedAt time.Time
}

type Message struct {
	ID         string
	SessionID  string
	Role       string // "user" or "assistant"
	Content    string
	TokensUsed int // 0 for user messages
	CreatedAt  time.Time
}

type Store interface {
	AppendMessage(ctx context.Context, msg *Message) error
	TouchSession(ctx context.Context, sessionID string) error
	GetMessages(ctx context.Context, sessionID string, limit int) ([]*Message, error)
}
