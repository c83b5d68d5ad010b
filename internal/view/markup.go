package view

import (
	"regexp"
	"strings"
)

type NodeKind string

const (
	NodeParagraph NodeKind = "paragraph"
	NodeCode      NodeKind = "code"
	NodeListItem  NodeKind = "list-item"
)

// Node is one block of expanded message text.
type Node struct {
	Kind    NodeKind
	Lang    string
	Code    string
	Inlines []Inline
}

type Inline struct {
	Text string
	Bold bool
}

var (
	fencePattern = regexp.MustCompile("```(\\w+)?\\n([\\s\\S]*?)```")
	boldPattern  = regexp.MustCompile(`\*\*(.*?)\*\*`)
	itemPattern  = regexp.MustCompile(`^\s*[-*]\s+(.+)$`)
)

// Expand interprets the lightweight markup of a message: fenced code,
// **bold**, "- " or "* " list items and blank-line separated paragraphs.
// The input is never modified.
func Expand(text string) []Node {
	var nodes []Node
	rest := text
	for {
		loc := fencePattern.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}
		nodes = append(nodes, expandProse(rest[:loc[0]])...)
		node := Node{Kind: NodeCode, Code: rest[loc[4]:loc[5]]}
		if loc[2] >= 0 {
			node.Lang = rest[loc[2]:loc[3]]
		}
		nodes = append(nodes, node)
		rest = rest[loc[1]:]
	}
	return append(nodes, expandProse(rest)...)
}

// Plain wraps text as a single paragraph without interpreting markup.
func Plain(text string) []Node {
	return []Node{{Kind: NodeParagraph, Inlines: []Inline{{Text: text}}}}
}

// expandProse keeps blank paragraphs so the spacing of the message
// survives. Blank lines left over after list items are dropped.
func expandProse(text string) []Node {
	if text == "" {
		return nil
	}

	var nodes []Node
	for _, para := range strings.Split(text, "\n\n") {
		var lines []string
		hadItem := false
		flush := func() {
			joined := strings.Join(lines, "\n")
			lines = nil
			if hadItem && strings.TrimSpace(joined) == "" {
				return
			}
			nodes = append(nodes, Node{
				Kind:    NodeParagraph,
				Inlines: expandInline(joined),
			})
		}

		for _, line := range strings.Split(para, "\n") {
			if m := itemPattern.FindStringSubmatch(line); m != nil {
				if len(lines) > 0 {
					flush()
				}
				hadItem = true
				nodes = append(nodes, Node{
					Kind:    NodeListItem,
					Inlines: expandInline(m[1]),
				})
				continue
			}
			lines = append(lines, line)
		}
		if len(lines) > 0 {
			flush()
		}
	}
	return nodes
}

func expandInline(text string) []Inline {
	var out []Inline
	last := 0
	for _, loc := range boldPattern.FindAllStringSubmatchIndex(text, -1) {
		if loc[0] > last {
			out = append(out, Inline{Text: text[last:loc[0]]})
		}
		out = append(out, Inline{Text: text[loc[2]:loc[3]], Bold: true})
		last = loc[1]
	}
	if last < len(text) {
		out = append(out, Inline{Text: text[last:]})
	}
	return out
}

// PlainText flattens expanded nodes back to text with the markers removed.
func PlainText(nodes []Node) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n.Kind == NodeCode {
			parts = append(parts, n.Code)
			continue
		}
		var b strings.Builder
		for _, in := range n.Inlines {
			b.WriteString(in.Text)
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}
