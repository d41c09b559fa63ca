package services

import (
	"venting/models"

	"github.com/cockroachdb/errors"
)

const (
	// RetainedTurns is how many user/assistant turns survive a trim (6 exchanges).
	RetainedTurns = 12
	// MaxConversationLen is the stored length that triggers a trim.
	MaxConversationLen = RetainedTurns + 1
)

var ErrSystemRole = errors.New("system message is pinned and cannot be appended")

// Conversation keeps the system message pinned at index 0 and the turns in a
// fixed-capacity ring, so trimming only moves the head.
//
// The ring holds two turns beyond the retention window: a full exchange is
// appended before Trim runs, and the model must see the pending user turn.
type Conversation struct {
	system models.Message
	ring   []models.Message
	head   int
	size   int
}

func NewConversation(systemPrompt string) *Conversation {
	return &Conversation{
		system: models.Message{Role: models.RoleSystem, Content: systemPrompt},
		ring:   make([]models.Message, RetainedTurns+2),
	}
}

// Append adds a user or assistant turn. When the ring is full the oldest turn
// is overwritten.
func (c *Conversation) Append(msg models.Message) error {
	if msg.Role == models.RoleSystem {
		return ErrSystemRole
	}
	tail := (c.head + c.size) % len(c.ring)
	c.ring[tail] = msg
	if c.size == len(c.ring) {
		c.head = (c.head + 1) % len(c.ring)
		return nil
	}
	c.size++
	return nil
}

// Len counts the system message too.
func (c *Conversation) Len() int {
	return c.size + 1
}

// Trim drops the oldest turns once Len exceeds MaxConversationLen, leaving the
// system message and the last RetainedTurns turns. It reports whether
// anything was dropped.
func (c *Conversation) Trim() bool {
	if c.Len() <= MaxConversationLen {
		return false
	}
	drop := c.size - RetainedTurns
	c.head = (c.head + drop) % len(c.ring)
	c.size = RetainedTurns
	return true
}

// Messages returns a copy of the conversation in order, system message first.
func (c *Conversation) Messages() []models.Message {
	out := make([]models.Message, 0, c.Len())
	out = append(out, c.system)
	for i := 0; i < c.size; i++ {
		out = append(out, c.ring[(c.head+i)%len(c.ring)])
	}
	return out
}
