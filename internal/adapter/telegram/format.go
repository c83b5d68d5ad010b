package telegram

import (
	"html"
	"strings"

	"nexus-chat/internal/view"
)

// formatHTML renders expanded message text in the HTML subset Telegram
// accepts.
func formatHTML(nodes []view.Node) string {
	var sb strings.Builder
	for i, n := range nodes {
		if i > 0 {
			sb.WriteString("\n")
			if n.Kind != view.NodeListItem || nodes[i-1].Kind != view.NodeListItem {
				sb.WriteString("\n")
			}
		}
		switch n.Kind {
		case view.NodeCode:
			if n.Lang != "" {
				sb.WriteString(`<pre><code class="language-` + html.EscapeString(n.Lang) + `">`)
			} else {
				sb.WriteString("<pre><code>")
			}
			sb.WriteString(html.EscapeString(strings.TrimRight(n.Code, "\n")))
			sb.WriteString("</code></pre>")
		case view.NodeListItem:
			sb.WriteString("• ")
			writeInlines(&sb, n.Inlines)
		default:
			writeInlines(&sb, n.Inlines)
		}
	}
	return sb.String()
}

func writeInlines(sb *strings.Builder, inlines []view.Inline) {
	for _, in := range inlines {
		text := html.EscapeString(in.Text)
		if in.Bold {
			sb.WriteString("<b>" + text + "</b>")
			continue
		}
		sb.WriteString(text)
	}
}
