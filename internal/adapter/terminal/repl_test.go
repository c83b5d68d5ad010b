package terminal

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus-chat/internal/adapter/memory"
	"nexus-chat/internal/config"
	"nexus-chat/internal/domain"
	"nexus-chat/internal/logger"
	"nexus-chat/internal/usecase/chat"
	"nexus-chat/internal/usecase/speech"
	"nexus-chat/internal/usecase/theme"
)

type scriptedInput struct {
	lines       []string
	suggestions []string
	history     []string
}

func (s *scriptedInput) next() (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedInput) Prompt(string) (string, error) {
	return s.next()
}

func (s *scriptedInput) PromptWithSuggestion(_, text string, _ int) (string, error) {
	s.suggestions = append(s.suggestions, text)
	return s.next()
}

func (s *scriptedInput) AppendHistory(item string) {
	s.history = append(s.history, item)
}

type echoClient struct{}

func (echoClient) Complete(_ context.Context, req chat.CompletionRequest) (chat.Completion, error) {
	last := req.Messages[len(req.Messages)-1]
	return chat.Completion{Text: "echo: " + last.Content, TotalTokens: 3}, nil
}

type memClipboard struct{ text string }

func (m *memClipboard) WriteText(text string) error {
	m.text = text
	return nil
}

type fixedTranscriber struct{}

func (fixedTranscriber) Transcribe(context.Context, speech.Request) (string, error) {
	return "  dictated words ", nil
}

type replFixture struct {
	repl  *REPL
	in    *scriptedInput
	out   *bytes.Buffer
	chat  *chat.Service
	prefs *memory.Preferences
	clip  *memClipboard
}

func newREPL(t *testing.T, transcriber speech.Transcriber, lines ...string) *replFixture {
	t.Helper()

	cfg := config.Config{
		OpenAIKey:       "sk-test",
		Backend:         config.BackendLive,
		AssistantPrompt: "sys",
		QuickPrompts:    config.DefaultQuickPrompts(),
		Tools:           config.DefaultTools(),
	}
	clip := &memClipboard{}
	chatSvc := chat.NewService(memory.NewStore(0), echoClient{}, clip, cfg, logger.Discard())
	prefs := memory.NewPreferences()
	themeSvc := theme.NewService(prefs, domain.ThemeLight, logger.Discard())

	out := &bytes.Buffer{}
	in := &scriptedInput{lines: lines}
	r := NewREPL(context.Background(), chatSvc, speech.NewService(transcriber, cfg), themeSvc, logger.Discard(), out, termenv.Ascii)
	r.in = in
	r.now = func() time.Time { return time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC) }

	return &replFixture{repl: r, in: in, out: out, chat: chatSvc, prefs: prefs, clip: clip}
}

func TestParseCommand(t *testing.T) {
	assert.Equal(t, command{name: "copy", arg: "2"}, parseCommand("/copy 2"))
	assert.Equal(t, command{name: "tool", arg: "Code"}, parseCommand("  /TOOL   Code "))
	assert.Equal(t, command{name: "quit"}, parseCommand("/quit"))
	assert.Equal(t, command{name: "voice", arg: "my note.ogg"}, parseCommand("/voice my note.ogg"))
}

func TestREPLChatRoundTrip(t *testing.T) {
	f := newREPL(t, nil, "hello", "/quit")
	require.NoError(t, f.repl.Run(context.Background()))

	out := f.out.String()
	assert.Contains(t, out, "Hello! I'm your Nexus AI assistant.")
	assert.Contains(t, out, "[1] You")
	assert.Contains(t, out, "echo: hello")
	assert.Contains(t, out, "[Copy]")
	assert.Equal(t, []string{"hello", "/quit"}, f.in.history)

	snap := f.chat.Snapshot(SessionID)
	assert.Len(t, snap.Messages, 2)
	assert.Equal(t, 3, snap.Usage.Tokens)
}

func TestREPLEndsOnEOF(t *testing.T) {
	f := newREPL(t, nil)
	assert.NoError(t, f.repl.Run(context.Background()))
}

func TestREPLClearNeedsConfirmation(t *testing.T) {
	f := newREPL(t, nil, "hello", "/clear", "n", "/new", "y")
	require.NoError(t, f.repl.Run(context.Background()))

	assert.Empty(t, f.chat.Snapshot(SessionID).Messages)
	assert.Equal(t, 0, f.repl.shown)
}

func TestREPLCopyAndLike(t *testing.T) {
	f := newREPL(t, nil, "hello", "/copy 2", "/like 2", "/like 1", "/copy 9")
	require.NoError(t, f.repl.Run(context.Background()))

	assert.Equal(t, "echo: hello", f.clip.text)
	snap := f.chat.Snapshot(SessionID)
	assert.True(t, snap.Liked[1])
	assert.False(t, snap.Liked[0])

	out := f.out.String()
	assert.Contains(t, out, "Copied!")
	assert.Contains(t, out, "Only replies can be liked.")
	assert.Contains(t, out, "No message 9.")
}

func TestREPLPromptPrefillsNextLine(t *testing.T) {
	f := newREPL(t, nil, "/prompt 1", "edited prompt")
	require.NoError(t, f.repl.Run(context.Background()))

	require.Len(t, f.in.suggestions, 1)
	assert.Equal(t, config.DefaultQuickPrompts()[0].Prompt, f.in.suggestions[0])
	assert.Equal(t, "edited prompt", f.chat.Snapshot(SessionID).Messages[0].Content)
}

func TestREPLToolAndTheme(t *testing.T) {
	f := newREPL(t, nil, "/tool write", "/theme")
	require.NoError(t, f.repl.Run(context.Background()))

	assert.Contains(t, f.out.String(), "Switching to Write mode...")
	assert.Equal(t, "Write", f.chat.Snapshot(SessionID).ActiveTool)

	got, err := f.prefs.Theme(context.Background(), SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.ThemeDark, got)
}

func TestREPLRegenerate(t *testing.T) {
	f := newREPL(t, nil, "/regen", "hello", "/regen")
	require.NoError(t, f.repl.Run(context.Background()))

	assert.Contains(t, f.out.String(), "Nothing to regenerate yet.")
	snap := f.chat.Snapshot(SessionID)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "echo: hello", snap.Messages[1].Content)
}

func TestREPLVoice(t *testing.T) {
	audio := filepath.Join(t.TempDir(), "note.ogg")
	require.NoError(t, os.WriteFile(audio, []byte("fake audio"), 0o600))

	f := newREPL(t, fixedTranscriber{}, "/voice "+audio, "")
	require.NoError(t, f.repl.Run(context.Background()))

	require.Len(t, f.in.suggestions, 1)
	assert.Equal(t, "dictated words", f.in.suggestions[0])
	assert.False(t, f.chat.Snapshot(SessionID).Listening)
}

func TestREPLVoiceUnavailable(t *testing.T) {
	f := newREPL(t, nil, "/voice missing.ogg")
	require.NoError(t, f.repl.Run(context.Background()))

	assert.Contains(t, f.out.String(), "Voice input failed")
}
