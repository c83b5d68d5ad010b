// Package view projects a chat session onto a toolkit-independent page
// description. Build is a pure function: the same snapshot and options
// always produce the same page.
package view

import (
	"time"

	"nexus-chat/internal/config"
	"nexus-chat/internal/domain"
	"nexus-chat/internal/usecase/chat"
)

const (
	Greeting    = "Hello! I'm your Nexus AI assistant. How can I help you today?"
	PendingText = "Thinking..."
	timeLayout  = "15:04"
)

type BlockKind string

const (
	BlockGreeting  BlockKind = "greeting"
	BlockUser      BlockKind = "user"
	BlockAssistant BlockKind = "assistant"
	BlockNotice    BlockKind = "notice"
)

type ActionKind string

const (
	ActionCopy       ActionKind = "copy"
	ActionLike       ActionKind = "like"
	ActionRegenerate ActionKind = "regenerate"
)

type Action struct {
	Kind  ActionKind
	Label string
	// Done marks a confirmed action: "Copied!" or "Liked!".
	Done bool
}

type Block struct {
	Kind BlockKind
	// Index is the position among visible messages, -1 for greeting and
	// notices.
	Index   int
	Raw     string
	Nodes   []Node
	Time    string
	Actions []Action
}

type Badge struct {
	Status chat.Status
	Label  string
	OK     bool
}

type PromptButton struct {
	Index  int
	Label  string
	Prompt string
}

type ToolButton struct {
	Name   string
	Active bool
}

type Page struct {
	Theme       domain.Theme
	ThemeToggle string
	Badge       Badge
	Greeting    Block
	Blocks      []Block
	Pending     bool
	Listening   bool
	Draft       string
	CanSubmit   bool
	Prompts     []PromptButton
	Tools       []ToolButton
	Usage       domain.UsageCounters
}

type Options struct {
	Theme        domain.Theme
	Status       chat.Status
	QuickPrompts []config.QuickPrompt
	Tools        []string
	Now          time.Time
}

func Build(snap chat.Snapshot, opts Options) Page {
	page := Page{
		Theme:       opts.Theme,
		ThemeToggle: themeToggleLabel(opts.Theme),
		Badge:       badge(opts.Status),
		Greeting: Block{
			Kind:  BlockGreeting,
			Index: -1,
			Raw:   Greeting,
			Nodes: Plain(Greeting),
			Time:  "Just now",
		},
		Pending:   snap.Pending,
		Listening: snap.Listening,
		Draft:     snap.Draft,
		CanSubmit: !snap.Pending,
		Usage:     snap.Usage,
	}

	for i, p := range opts.QuickPrompts {
		page.Prompts = append(page.Prompts, PromptButton{Index: i, Label: p.Label, Prompt: p.Prompt})
	}
	for _, name := range opts.Tools {
		page.Tools = append(page.Tools, ToolButton{Name: name, Active: name == snap.ActiveTool})
	}

	lastAssistant := -1
	for i, m := range snap.Messages {
		if m.Role == domain.RoleAssistant {
			lastAssistant = i
		}
	}

	notices := snap.Notices
	emitNotices := func(upTo int) {
		for len(notices) > 0 && notices[0].After <= upTo {
			page.Blocks = append(page.Blocks, noticeBlock(notices[0]))
			notices = notices[1:]
		}
	}

	emitNotices(0)
	for i, m := range snap.Messages {
		page.Blocks = append(page.Blocks, messageBlock(i, m, snap, opts.Now, i == lastAssistant))
		emitNotices(i + 1)
	}
	for _, n := range notices {
		page.Blocks = append(page.Blocks, noticeBlock(n))
	}

	return page
}

func messageBlock(index int, m domain.Message, snap chat.Snapshot, now time.Time, last bool) Block {
	b := Block{
		Index: index,
		Raw:   m.Content,
		Time:  m.Timestamp.Format(timeLayout),
	}
	if m.Role == domain.RoleUser {
		b.Kind = BlockUser
		b.Nodes = Plain(m.Content)
		return b
	}

	b.Kind = BlockAssistant
	b.Nodes = Expand(m.Content)

	copied := snap.Copied == index && now.Before(snap.CopiedUntil)
	b.Actions = append(b.Actions, Action{Kind: ActionCopy, Label: "Copy", Done: copied})
	if copied {
		b.Actions[0].Label = "Copied!"
	}
	if last && !snap.Pending {
		b.Actions = append(b.Actions, Action{Kind: ActionRegenerate, Label: "Regenerate"})
	}
	if snap.Liked[index] {
		b.Actions = append(b.Actions, Action{Kind: ActionLike, Label: "Liked!", Done: true})
	} else {
		b.Actions = append(b.Actions, Action{Kind: ActionLike, Label: "Like"})
	}
	return b
}

func noticeBlock(n chat.Notice) Block {
	return Block{
		Kind:  BlockNotice,
		Index: -1,
		Raw:   n.Text,
		Nodes: Expand(n.Text),
		Time:  n.Timestamp.Format(timeLayout),
	}
}

func badge(status chat.Status) Badge {
	switch status {
	case chat.StatusKeyNeeded:
		return Badge{Status: status, Label: "API Key Needed"}
	case chat.StatusSimulated:
		return Badge{Status: status, Label: "Simulated Mode", OK: true}
	default:
		return Badge{Status: chat.StatusConnected, Label: "API Connected", OK: true}
	}
}

func themeToggleLabel(t domain.Theme) string {
	if t.IsDark() {
		return "Light"
	}
	return "Dark"
}

// FindAction looks up an action on a block by kind.
func (b Block) FindAction(kind ActionKind) (Action, bool) {
	for _, a := range b.Actions {
		if a.Kind == kind {
			return a, true
		}
	}
	return Action{}, false
}
