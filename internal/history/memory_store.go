package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps sessions and messages in process memory, for local
// development and tests.
type MemoryStore struct {
	mu       sync.Mutex
	messages map[string][]*Message
	sessions map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages: make(map[string][]*Message),
		sessions: make(map[string]time.Time),
	}
}

func (s *MemoryStore) AppendMessage(_ context.Context, msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg.ID = uuid.New().String()
	msg.CreatedAt = time.Now()
	copied := *msg
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], &copied)
	return nil
}

func (s *MemoryStore) TouchSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = time.Now()
	return nil
}

func (s *MemoryStore) GetMessages(_ context.Context, sessionID string, limit int) ([]*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*Message, len(msgs))
	for i, m := range msgs {
		copied := *m
		out[i] = &copied
	}
	return out, nil
}
