package terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromastyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"nexus-chat/internal/domain"
	"nexus-chat/internal/view"
)

type palette struct {
	user, assistant, notice, muted, accent, bold lipgloss.Style
	code                                         string
}

// Renderer writes view blocks to a terminal in the colours of the active
// theme.
type Renderer struct {
	out     io.Writer
	lg      *lipgloss.Renderer
	profile termenv.Profile
	pal     palette
}

func NewRenderer(out io.Writer, profile termenv.Profile, theme domain.Theme) *Renderer {
	lg := lipgloss.NewRenderer(out, termenv.WithProfile(profile))
	lg.SetColorProfile(profile)
	r := &Renderer{out: out, lg: lg, profile: profile}
	r.SetTheme(theme)
	return r
}

// DetectTheme picks dark when the terminal reports a dark background.
func DetectTheme() domain.Theme {
	if termenv.HasDarkBackground() {
		return domain.ThemeDark
	}
	return domain.ThemeLight
}

func (r *Renderer) SetTheme(theme domain.Theme) {
	if theme.IsDark() {
		r.pal = palette{
			user:      r.lg.NewStyle().Foreground(lipgloss.Color("#8AB4F8")).Bold(true),
			assistant: r.lg.NewStyle().Foreground(lipgloss.Color("#A78BFA")).Bold(true),
			notice:    r.lg.NewStyle().Foreground(lipgloss.Color("#FBBF24")).Italic(true),
			muted:     r.lg.NewStyle().Foreground(lipgloss.Color("#9A9DB0")),
			accent:    r.lg.NewStyle().Foreground(lipgloss.Color("#34D399")),
			bold:      r.lg.NewStyle().Bold(true),
			code:      "monokai",
		}
		return
	}
	r.pal = palette{
		user:      r.lg.NewStyle().Foreground(lipgloss.Color("#1D4ED8")).Bold(true),
		assistant: r.lg.NewStyle().Foreground(lipgloss.Color("#5B21B6")).Bold(true),
		notice:    r.lg.NewStyle().Foreground(lipgloss.Color("#B45309")).Italic(true),
		muted:     r.lg.NewStyle().Foreground(lipgloss.Color("#6B7080")),
		accent:    r.lg.NewStyle().Foreground(lipgloss.Color("#2F9E62")),
		bold:      r.lg.NewStyle().Bold(true),
		code:      "github",
	}
}

func (r *Renderer) Block(b view.Block) {
	fmt.Fprintln(r.out, r.header(b))
	fmt.Fprintln(r.out, r.body(b))
	if actions := r.actions(b); actions != "" {
		fmt.Fprintln(r.out, actions)
	}
	fmt.Fprintln(r.out)
}

func (r *Renderer) header(b view.Block) string {
	switch b.Kind {
	case view.BlockUser:
		return fmt.Sprintf("%s %s %s", r.pal.muted.Render(fmt.Sprintf("[%d]", b.Index+1)), r.pal.user.Render("You"), r.pal.muted.Render(b.Time))
	case view.BlockAssistant:
		return fmt.Sprintf("%s %s %s", r.pal.muted.Render(fmt.Sprintf("[%d]", b.Index+1)), r.pal.assistant.Render("Nexus AI"), r.pal.muted.Render(b.Time))
	case view.BlockNotice:
		return r.pal.notice.Render("Nexus AI") + " " + r.pal.muted.Render(b.Time)
	default:
		return r.pal.assistant.Render("Nexus AI") + " " + r.pal.muted.Render(b.Time)
	}
}

func (r *Renderer) body(b view.Block) string {
	if b.Kind == view.BlockNotice {
		return r.pal.notice.Render(view.PlainText(b.Nodes))
	}

	parts := make([]string, 0, len(b.Nodes))
	for i, n := range b.Nodes {
		var s string
		switch n.Kind {
		case view.NodeCode:
			s = r.highlight(n.Code, n.Lang)
		case view.NodeListItem:
			s = "  • " + r.inlines(n.Inlines)
		default:
			s = r.inlines(n.Inlines)
		}
		if i > 0 && !(n.Kind == view.NodeListItem && b.Nodes[i-1].Kind == view.NodeListItem) {
			s = "\n" + s
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n")
}

func (r *Renderer) inlines(inlines []view.Inline) string {
	var sb strings.Builder
	for _, in := range inlines {
		if in.Bold {
			sb.WriteString(r.pal.bold.Render(in.Text))
			continue
		}
		sb.WriteString(in.Text)
	}
	return sb.String()
}

func (r *Renderer) actions(b view.Block) string {
	labels := make([]string, 0, len(b.Actions))
	for _, a := range b.Actions {
		style := r.pal.muted
		if a.Done {
			style = r.pal.accent
		}
		labels = append(labels, style.Render("["+a.Label+"]"))
	}
	return strings.Join(labels, " ")
}

// highlight renders a code block with chroma. Without colour support the
// code is printed as is.
func (r *Renderer) highlight(code, lang string) string {
	code = strings.TrimRight(code, "\n")
	if r.profile == termenv.Ascii {
		return code
	}

	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromastyles.Get(r.pal.code)
	if style == nil {
		style = chromastyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if r.profile == termenv.TrueColor {
		formatter = formatters.Get("terminal16m")
	}
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}

func (r *Renderer) Status(badge view.Badge, usage domain.UsageCounters, activeTool string) {
	style := r.pal.accent
	if !badge.OK {
		style = r.pal.notice
	}
	fmt.Fprintf(r.out, "%s  %s\n",
		style.Render(badge.Label),
		r.pal.muted.Render(fmt.Sprintf("mode: %s · messages: %d · tokens: %d", activeTool, usage.Messages, usage.Tokens)))
}

func (r *Renderer) Info(text string) {
	fmt.Fprintln(r.out, r.pal.muted.Render(text))
}

func (r *Renderer) Warn(text string) {
	fmt.Fprintln(r.out, r.pal.notice.Render(text))
}
