package domain

import "time"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role      string
	Content   string
	Timestamp time.Time
}

// IsVisible reports whether the message belongs in a rendered transcript.
func (m Message) IsVisible() bool {
	return m.Role != RoleSystem
}
