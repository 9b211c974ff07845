// internal/models/conversation.go
package models

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message of a conversation.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session holds the sliding history window of a streaming conversation.
type Session struct {
	ID        string    `json:"id"`
	Turns     []Turn    `json:"turns"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Append adds a turn and keeps at most window turns.
func (s *Session) Append(turn Turn, window int) {
	s.Turns = append(s.Turns, turn)
	if window > 0 && len(s.Turns) > window {
		s.Turns = append([]Turn(nil), s.Turns[len(s.Turns)-window:]...)
	}
	s.UpdatedAt = turn.Timestamp
}

// History returns a copy of the stored turns.
func (s *Session) History() []Turn {
	out := make([]Turn, len(s.Turns))
	copy(out, s.Turns)
	return out
}

// InteractionRecord is handed to the persistence collaborator.
type InteractionRecord struct {
	ID        string                 `json:"id" db:"id"`
	SessionID string                 `json:"sessionId" db:"session_id"`
	Type      string                 `json:"type" db:"type"`
	Payload   map[string]interface{} `json:"payload" db:"payload"`
	Timestamp time.Time              `json:"timestamp" db:"created_at"`
}
