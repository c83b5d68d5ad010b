package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/peterh/liner"

	"nexus-chat/internal/usecase/chat"
	"nexus-chat/internal/usecase/speech"
	"nexus-chat/internal/usecase/theme"
	"nexus-chat/internal/view"
)

// SessionID is the single session the terminal drives.
const SessionID = "terminal"

const prompt = "you> "

// LineReader is the subset of liner.State the REPL reads from.
type LineReader interface {
	Prompt(p string) (string, error)
	PromptWithSuggestion(p, text string, pos int) (string, error)
	AppendHistory(item string)
}

type REPL struct {
	chat   *chat.Service
	speech *speech.Service
	theme  *theme.Service
	log    *log.Logger
	render *Renderer
	in     LineReader
	now    func() time.Time

	historyFile string
	// shown counts blocks of the current page already printed.
	shown   int
	greeted bool
}

func NewREPL(ctx context.Context, chatSvc *chat.Service, speechSvc *speech.Service, themeSvc *theme.Service, logger *log.Logger, out io.Writer, profile termenv.Profile) *REPL {
	return &REPL{
		chat:        chatSvc,
		speech:      speechSvc,
		theme:       themeSvc,
		log:         logger,
		render:      NewRenderer(out, profile, themeSvc.Current(ctx, SessionID)),
		now:         time.Now,
		historyFile: historyPath(),
	}
}

func historyPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "nexus", "history")
}

// Run reads lines until /quit, Ctrl+C or Ctrl+D.
func (r *REPL) Run(ctx context.Context) error {
	if r.in == nil {
		line := liner.NewLiner()
		line.SetCtrlCAborts(true)
		r.loadHistory(line)
		defer func() {
			r.saveHistory(line)
			line.Close()
		}()
		r.in = line
	}

	page := r.page(ctx)
	r.show(page)
	snap := r.chat.Snapshot(SessionID)
	r.render.Status(page.Badge, snap.Usage, snap.ActiveTool)
	r.render.Info("Type /help for commands.")

	for {
		if ctx.Err() != nil {
			return nil
		}

		input, err := r.readLine()
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.in.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if !r.command(ctx, parseCommand(input)) {
				return nil
			}
			continue
		}
		r.submit(ctx, input)
	}
}

// readLine offers the session draft, if any, as editable input.
func (r *REPL) readLine() (string, error) {
	draft := r.chat.Snapshot(SessionID).Draft
	if draft == "" {
		return r.in.Prompt(prompt)
	}
	r.chat.SetDraft(SessionID, "")
	return r.in.PromptWithSuggestion(prompt, draft, -1)
}

func (r *REPL) submit(ctx context.Context, text string) {
	ex, err := r.chat.Ask(SessionID, text)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return
	case errors.Is(err, chat.ErrBusy):
		r.render.Warn("Still waiting for the previous reply.")
		return
	case err != nil:
		r.render.Warn(err.Error())
		return
	}

	r.show(r.page(ctx))
	r.render.Info(view.PendingText)
	if _, err := r.chat.Complete(ctx, ex); err != nil {
		r.log.Debug("completion failed", "err", err)
	}
	r.show(r.page(ctx))
}

func (r *REPL) regenerate(ctx context.Context) {
	ex, err := r.chat.Rewind(SessionID)
	if err != nil {
		if errors.Is(err, chat.ErrNoExchange) {
			r.render.Warn("Nothing to regenerate yet.")
			return
		}
		r.render.Warn(err.Error())
		return
	}

	r.render.Info(view.PendingText)
	if _, err := r.chat.Complete(ctx, ex); err != nil {
		r.log.Debug("completion failed", "err", err)
	}
	page := r.page(ctx)
	if n := len(page.Blocks); n > 0 {
		r.render.Block(page.Blocks[n-1])
	}
	r.shown = len(page.Blocks)
}

func (r *REPL) page(ctx context.Context) view.Page {
	return view.Build(r.chat.Snapshot(SessionID), view.Options{
		Theme:        r.theme.Current(ctx, SessionID),
		Status:       r.chat.Status(),
		QuickPrompts: r.chat.QuickPrompts(),
		Tools:        r.chat.Tools(),
		Now:          r.now(),
	})
}

// show prints the blocks added since the last call. The greeting opens
// every fresh transcript.
func (r *REPL) show(page view.Page) {
	if !r.greeted {
		r.render.Block(page.Greeting)
		r.greeted = true
	}
	r.shown = min(r.shown, len(page.Blocks))
	for _, b := range page.Blocks[r.shown:] {
		r.render.Block(b)
	}
	r.shown = len(page.Blocks)
}

func (r *REPL) confirm(question string) bool {
	answer, err := r.in.Prompt(question + " [y/N] ")
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// command runs a slash command and reports whether the loop continues.
func (r *REPL) command(ctx context.Context, cmd command) bool {
	switch cmd.name {
	case "quit", "exit":
		return false

	case "help":
		r.render.Info(helpText)

	case "clear", "new":
		question := "Start new conversation?"
		if cmd.name == "clear" {
			question = "Clear all messages and start new conversation?"
		}
		if r.confirm(question) {
			r.chat.Reset(SessionID)
			r.shown = 0
			r.greeted = false
			r.show(r.page(ctx))
		}

	case "regen", "regenerate":
		r.regenerate(ctx)

	case "copy":
		index, ok := r.messageIndex(cmd.arg)
		if !ok {
			return true
		}
		if _, err := r.chat.Copy(SessionID, index); err != nil {
			r.render.Warn("No message " + cmd.arg + ".")
			return true
		}
		r.reportCopy(ctx, index)

	case "like":
		index, ok := r.messageIndex(cmd.arg)
		if !ok {
			return true
		}
		if err := r.chat.Like(SessionID, index); err != nil {
			r.render.Warn("Only replies can be liked.")
			return true
		}
		r.render.Info("Liked!")

	case "prompt", "prompts":
		if cmd.arg == "" {
			for i, p := range r.chat.QuickPrompts() {
				r.render.Info(fmt.Sprintf("%d. %s: %s", i+1, p.Label, p.Prompt))
			}
			return true
		}
		n, err := strconv.Atoi(cmd.arg)
		if err != nil {
			r.render.Warn("Usage: /prompt N")
			return true
		}
		if _, err := r.chat.UseQuickPrompt(SessionID, n-1); err != nil {
			r.render.Warn("No prompt " + cmd.arg + ".")
		}

	case "tool", "tools":
		if cmd.arg == "" {
			r.render.Info("Modes: " + strings.Join(r.chat.Tools(), ", "))
			return true
		}
		if err := r.chat.SelectTool(SessionID, cmd.arg); err != nil {
			r.render.Warn("Unknown mode " + cmd.arg + ".")
			return true
		}
		r.show(r.page(ctx))

	case "theme":
		next, err := r.theme.Toggle(ctx, SessionID)
		if err != nil {
			r.render.Warn("Theme not saved: " + err.Error())
		}
		r.render.SetTheme(next)
		r.render.Info("Theme: " + string(next))

	case "usage":
		snap := r.chat.Snapshot(SessionID)
		r.render.Status(r.page(ctx).Badge, snap.Usage, snap.ActiveTool)

	case "voice":
		r.voice(ctx, cmd.arg)

	default:
		r.render.Warn("Unknown command /" + cmd.name + ". Type /help.")
	}
	return true
}

func (r *REPL) messageIndex(arg string) (int, bool) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		r.render.Warn("Give the message number shown in brackets, e.g. /copy 2")
		return 0, false
	}
	return n - 1, true
}

func (r *REPL) reportCopy(ctx context.Context, index int) {
	snap := r.chat.Snapshot(SessionID)
	if snap.Copied == index {
		r.render.Info("Copied!")
		return
	}
	r.show(r.page(ctx))
}

func (r *REPL) voice(ctx context.Context, path string) {
	if path == "" {
		r.render.Warn("Usage: /voice FILE")
		return
	}

	r.chat.BeginListening(SessionID)
	r.render.Info("Listening...")
	text, err := r.transcribeFile(ctx, path)
	r.chat.FinishListening(SessionID, text, err)
	if err != nil {
		r.show(r.page(ctx))
		return
	}
	r.render.Info("Transcript ready, edit it and press Enter to send.")
}

func (r *REPL) transcribeFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	return r.speech.Capture(ctx, speech.Audio{
		FileName: filepath.Base(path),
		Data:     f,
		Size:     info.Size(),
	})
}

func (r *REPL) loadHistory(line *liner.State) {
	if f, err := os.Open(r.historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
}

func (r *REPL) saveHistory(line *liner.State) {
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0o700); err != nil {
		return
	}
	f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = line.WriteHistory(f)
}
