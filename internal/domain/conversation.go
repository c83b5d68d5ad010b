package domain

import "time"

// Conversation is the ordered message history of one chat session.
// Index 0 always holds the system preamble. A Conversation is not safe
// for concurrent use; its owner serialises access.
type Conversation struct {
	preamble string
	messages []Message
	now      func() time.Time
}

func NewConversation(preamble string, now func() time.Time) *Conversation {
	if now == nil {
		now = time.Now
	}
	c := &Conversation{
		preamble: preamble,
		now:      now,
	}
	c.Reset()
	return c
}

func (c *Conversation) Append(role, content string) Message {
	msg := Message{
		Role:      role,
		Content:   content,
		Timestamp: c.now(),
	}
	c.messages = append(c.messages, msg)
	return msg
}

// Reset drops everything but a fresh system preamble.
func (c *Conversation) Reset() {
	c.messages = []Message{{
		Role:      RoleSystem,
		Content:   c.preamble,
		Timestamp: c.now(),
	}}
}

// PopLastExchange removes a trailing (user, assistant) pair and returns
// the user content. It does nothing when the tail is not such a pair.
func (c *Conversation) PopLastExchange() (string, bool) {
	n := len(c.messages)
	if n < 3 {
		return "", false
	}
	user, reply := c.messages[n-2], c.messages[n-1]
	if user.Role != RoleUser || reply.Role != RoleAssistant {
		return "", false
	}
	c.messages = c.messages[:n-2]
	return user.Content, true
}

func (c *Conversation) Len() int {
	return len(c.messages)
}

func (c *Conversation) Last() (Message, bool) {
	if len(c.messages) <= 1 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Messages returns a copy of the full history, preamble included.
func (c *Conversation) Messages() []Message {
	return append([]Message(nil), c.messages...)
}

// Visible returns a copy of the history without the preamble.
func (c *Conversation) Visible() []Message {
	return append([]Message(nil), c.messages[1:]...)
}

func (c *Conversation) Preamble() string {
	return c.preamble
}
