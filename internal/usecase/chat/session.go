package chat

import (
	"maps"
	"sync"
	"time"

	"nexus-chat/internal/domain"
)

// CopyConfirmation is how long a "Copied!" marker stays on a message.
const CopyConfirmation = 2 * time.Second

// Notice is an assistant-style line that is displayed but never sent to
// the model: apologies, tool switches, capability warnings.
type Notice struct {
	// After is the number of visible messages that preceded the notice.
	After     int
	Text      string
	Timestamp time.Time
}

// Session is one user's conversation plus the transient UI state that
// goes with it.
type Session struct {
	mu sync.Mutex

	id    string
	conv  *domain.Conversation
	usage domain.UsageCounters
	now   func() time.Time

	pending     bool
	listening   bool
	draft       string
	activeTool  string
	notices     []Notice
	liked       map[int]bool
	copied      int
	copiedUntil time.Time

	epoch      uint64
	lastActive time.Time
}

func NewSession(id, preamble, activeTool string, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{
		id:         id,
		conv:       domain.NewConversation(preamble, now),
		now:        now,
		activeTool: activeTool,
		liked:      make(map[int]bool),
		copied:     -1,
		lastActive: now(),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Snapshot is a consistent copy of a session taken under its lock.
type Snapshot struct {
	ID          string
	Messages    []domain.Message
	Notices     []Notice
	Usage       domain.UsageCounters
	Pending     bool
	Listening   bool
	Draft       string
	ActiveTool  string
	Liked       map[int]bool
	Copied      int
	CopiedUntil time.Time
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:          s.id,
		Messages:    s.conv.Visible(),
		Notices:     append([]Notice(nil), s.notices...),
		Usage:       s.usage,
		Pending:     s.pending,
		Listening:   s.listening,
		Draft:       s.draft,
		ActiveTool:  s.activeTool,
		Liked:       maps.Clone(s.liked),
		Copied:      s.copied,
		CopiedUntil: s.copiedUntil,
	}
}

// History returns the full conversation, system preamble included.
func (s *Session) History() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.Messages()
}

// reset must be called with mu held.
func (s *Session) reset() {
	s.conv.Reset()
	s.epoch++
	s.pending = false
	s.notices = nil
	s.liked = make(map[int]bool)
	s.copied = -1
	s.copiedUntil = time.Time{}
	s.draft = ""
}

// addNotice must be called with mu held.
func (s *Session) addNotice(text string) {
	s.notices = append(s.notices, Notice{
		After:     s.conv.Len() - 1,
		Text:      text,
		Timestamp: s.now(),
	})
}

// touch must be called with mu held.
func (s *Session) touch() {
	s.lastActive = s.now()
}

// visibleAt must be called with mu held.
func (s *Session) visibleAt(index int) (domain.Message, bool) {
	visible := s.conv.Visible()
	if index < 0 || index >= len(visible) {
		return domain.Message{}, false
	}
	return visible[index], true
}
