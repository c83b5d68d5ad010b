package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"nexus-chat/internal/config"
	"nexus-chat/internal/domain"
)

type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float32
}

type Message struct {
	Role    string
	Content string
}

type Completion struct {
	Text        string
	TotalTokens int
}

type Clipboard interface {
	WriteText(text string) error
}

type SessionStore interface {
	Get(id string) (*Session, bool)
	Put(s *Session)
	Delete(id string)
}

type Status string

const (
	StatusConnected Status = "connected"
	StatusKeyNeeded Status = "key-needed"
	StatusSimulated Status = "simulated"
)

const keyNeededNotice = "⚠️ Please set OPENAI_API_KEY to enable real AI responses."

type Service struct {
	store     SessionStore
	client    Client
	clipboard Clipboard
	cfg       config.Config
	log       *log.Logger
	now       func() time.Time

	mu sync.Mutex
}

func NewService(store SessionStore, client Client, clipboard Clipboard, cfg config.Config, logger *log.Logger) *Service {
	return &Service{
		store:     store,
		client:    client,
		clipboard: clipboard,
		cfg:       cfg,
		log:       logger,
		now:       time.Now,
	}
}

func (s *Service) Status() Status {
	if s.cfg.Backend == config.BackendSimulated {
		return StatusSimulated
	}
	if !s.cfg.HasAPIKey() {
		return StatusKeyNeeded
	}
	return StatusConnected
}

func (s *Service) QuickPrompts() []config.QuickPrompt {
	return slices.Clone(s.cfg.QuickPrompts)
}

func (s *Service) Tools() []string {
	return slices.Clone(s.cfg.Tools)
}

// Session returns the session for id, creating it on first use.
func (s *Service) Session(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.store.Get(id); ok {
		return sess
	}

	activeTool := ""
	if len(s.cfg.Tools) > 0 {
		activeTool = s.cfg.Tools[0]
	}
	sess := NewSession(id, s.cfg.AssistantPrompt, activeTool, s.now)
	if s.Status() == StatusKeyNeeded {
		sess.addNotice(keyNeededNotice)
	}
	s.store.Put(sess)
	s.log.Debug("session created", "session", id)
	return sess
}

func (s *Service) Snapshot(id string) Snapshot {
	return s.Session(id).Snapshot()
}

// Exchange is one outstanding completion request for a session.
type Exchange struct {
	Prompt string

	session *Session
	epoch   uint64
	request CompletionRequest
}

// Ask validates and records a user turn and marks the session pending.
// The reply is produced by Complete.
func (s *Service) Ask(id, text string) (*Exchange, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	sess := s.Session(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.pending {
		return nil, ErrBusy
	}
	sess.conv.Append(domain.RoleUser, text)
	sess.draft = ""
	return s.begin(sess, text), nil
}

// Rewind prepares a regeneration: the last (question, answer) pair is
// dropped and the question asked again. A question left unanswered by a
// failed call is simply asked again.
func (s *Service) Rewind(id string) (*Exchange, error) {
	sess := s.Session(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.pending {
		return nil, ErrBusy
	}

	prompt, ok := sess.conv.PopLastExchange()
	if ok {
		sess.conv.Append(domain.RoleUser, prompt)
		s.dropStaleMarks(sess)
		return s.begin(sess, prompt), nil
	}

	last, ok := sess.conv.Last()
	if !ok || last.Role != domain.RoleUser {
		return nil, ErrNoExchange
	}
	return s.begin(sess, last.Content), nil
}

// begin must be called with sess.mu held.
func (s *Service) begin(sess *Session, prompt string) *Exchange {
	history := sess.conv.Messages()
	messages := make([]Message, 0, len(history))
	for _, m := range history {
		messages = append(messages, Message{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	sess.pending = true
	sess.touch()

	return &Exchange{
		Prompt:  prompt,
		session: sess,
		epoch:   sess.epoch,
		request: CompletionRequest{
			Model:       s.cfg.Model,
			Messages:    messages,
			MaxTokens:   s.cfg.MaxTokens,
			Temperature: s.cfg.Temperature,
		},
	}
}

// dropStaleMarks forgets likes and copy markers on messages that no longer
// exist. Must be called with sess.mu held.
func (s *Service) dropStaleMarks(sess *Session) {
	n := sess.conv.Len() - 1
	for idx := range sess.liked {
		if idx >= n-1 {
			delete(sess.liked, idx)
		}
	}
	if sess.copied >= n-1 {
		sess.copied = -1
	}
}

// Complete performs the completion call for ex. On success the reply is
// appended and returned. On failure the conversation is left untouched,
// an apology notice is recorded and a *CompletionError is returned. The
// pending mark is always cleared.
func (s *Service) Complete(ctx context.Context, ex *Exchange) (string, error) {
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	started := s.now()
	resp, err := s.client.Complete(ctx, ex.request)

	sess := ex.session
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.epoch != ex.epoch {
		s.log.Debug("dropping reply for a reset chat", "session", sess.id)
		return "", ErrDiscarded
	}
	sess.pending = false
	sess.touch()

	if err != nil {
		cerr := AsCompletionError(err)
		sess.addNotice(Apology(cerr))
		s.log.Warn("completion failed", "session", sess.id, "err", cerr.Reason)
		return "", cerr
	}

	sess.conv.Append(domain.RoleAssistant, resp.Text)
	sess.usage.Record(resp.TotalTokens)
	s.log.Info("completion done",
		"session", sess.id,
		"tokens", resp.TotalTokens,
		"took", s.now().Sub(started).Round(time.Millisecond))
	return resp.Text, nil
}

func (s *Service) Submit(ctx context.Context, id, text string) (string, error) {
	ex, err := s.Ask(id, text)
	if err != nil {
		return "", err
	}
	return s.Complete(ctx, ex)
}

func (s *Service) Regenerate(ctx context.Context, id string) (string, error) {
	ex, err := s.Rewind(id)
	if err != nil {
		return "", err
	}
	return s.Complete(ctx, ex)
}

// Reset serves both "clear chat" and "new chat". A reply still in flight
// is discarded when it arrives.
func (s *Service) Reset(id string) {
	sess := s.Session(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.reset()
	sess.touch()
	s.log.Debug("chat reset", "session", id)
}

func (s *Service) SetDraft(id, text string) {
	sess := s.Session(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.draft = text
	sess.touch()
}

// UseQuickPrompt copies a quick prompt into the draft. Nothing is sent.
func (s *Service) UseQuickPrompt(id string, index int) (string, error) {
	if index < 0 || index >= len(s.cfg.QuickPrompts) {
		return "", fmt.Errorf("%w: %d", ErrUnknownPrompt, index)
	}
	prompt := s.cfg.QuickPrompts[index].Prompt
	s.SetDraft(id, prompt)
	return prompt, nil
}

func (s *Service) SelectTool(id, name string) error {
	idx := slices.IndexFunc(s.cfg.Tools, func(t string) bool {
		return strings.EqualFold(t, strings.TrimSpace(name))
	})
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	tool := s.cfg.Tools[idx]

	sess := s.Session(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.activeTool = tool
	sess.addNotice(fmt.Sprintf("Switching to %s mode...", tool))
	sess.touch()
	return nil
}

func (s *Service) Like(id string, index int) error {
	sess := s.Session(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	msg, ok := sess.visibleAt(index)
	if !ok || msg.Role != domain.RoleAssistant {
		return fmt.Errorf("%w: %d", ErrUnknownMessage, index)
	}
	sess.liked[index] = true
	sess.touch()
	return nil
}

// Copy puts the stored text of a message on the clipboard. A refused
// clipboard write is reported as a notice, not as an error.
func (s *Service) Copy(id string, index int) (string, error) {
	sess := s.Session(id)
	sess.mu.Lock()
	msg, ok := sess.visibleAt(index)
	epoch := sess.epoch
	sess.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownMessage, index)
	}

	var err error
	if s.clipboard == nil {
		err = errors.New("no clipboard available")
	} else {
		err = s.clipboard.WriteText(msg.Content)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touch()
	if err != nil {
		s.log.Warn("clipboard write failed", "session", id, "err", err)
		sess.addNotice("Could not copy to the clipboard: " + err.Error())
		return msg.Content, nil
	}
	if sess.epoch != epoch {
		return msg.Content, nil
	}
	s.markCopied(sess, index)
	return msg.Content, nil
}

// MarkCopied records a copy the client performed itself, e.g. in the
// browser, and starts the confirmation.
func (s *Service) MarkCopied(id string, index int) (string, error) {
	sess := s.Session(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	msg, ok := sess.visibleAt(index)
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownMessage, index)
	}
	sess.touch()
	s.markCopied(sess, index)
	return msg.Content, nil
}

// markCopied must be called with sess.mu held.
func (s *Service) markCopied(sess *Session, index int) {
	sess.copied = index
	sess.copiedUntil = s.now().Add(CopyConfirmation)
}

// BeginListening turns the listening indicator on for a capture.
func (s *Service) BeginListening(id string) {
	sess := s.Session(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.listening = true
	sess.touch()
}

// FinishListening always turns the indicator off. A transcript lands in
// the draft; a failure becomes a notice.
func (s *Service) FinishListening(id, transcript string, err error) {
	sess := s.Session(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.listening = false
	sess.touch()
	if err != nil {
		s.log.Warn("speech capture failed", "session", id, "err", err)
		sess.addNotice(SpeechNotice(err))
		return
	}
	sess.draft = strings.TrimSpace(transcript)
}

// Notify records a notice on the session.
func (s *Service) Notify(id, text string) {
	sess := s.Session(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.addNotice(text)
	sess.touch()
}

// Forget drops a session from the registry entirely.
func (s *Service) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Delete(id)
}
