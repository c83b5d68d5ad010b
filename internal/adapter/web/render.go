package web

import (
	"bytes"
	"embed"
	"html/template"
	"math"
	"net/http"

	"nexus-chat/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"groups": groupNodes,
}).ParseFS(templateFS, "templates/*.html"))

type pageData struct {
	view.Page
	SpeechAvailable bool
	// Refresh is the meta refresh interval in seconds, 0 for none.
	Refresh int
}

// nodeGroup bundles consecutive list items so they render inside one <ul>.
type nodeGroup struct {
	List  bool
	Nodes []view.Node
}

func groupNodes(nodes []view.Node) []nodeGroup {
	var out []nodeGroup
	for _, n := range nodes {
		isItem := n.Kind == view.NodeListItem
		if isItem && len(out) > 0 && out[len(out)-1].List {
			out[len(out)-1].Nodes = append(out[len(out)-1].Nodes, n)
			continue
		}
		out = append(out, nodeGroup{List: isItem, Nodes: []view.Node{n}})
	}
	return out
}

func (s *Server) buildPage(r *http.Request, id string) pageData {
	now := s.now()
	snap := s.chat.Snapshot(id)
	page := view.Build(snap, view.Options{
		Theme:        s.theme.Current(r.Context(), id),
		Status:       s.chat.Status(),
		QuickPrompts: s.chat.QuickPrompts(),
		Tools:        s.chat.Tools(),
		Now:          now,
	})

	data := pageData{
		Page:            page,
		SpeechAvailable: s.speech.Available(),
	}
	switch {
	case page.Pending || page.Listening:
		data.Refresh = 1
	case snap.Copied >= 0 && now.Before(snap.CopiedUntil):
		data.Refresh = int(math.Ceil(snap.CopiedUntil.Sub(now).Seconds()))
	}
	return data
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name, id string) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, s.buildPage(r, id)); err != nil {
		s.log.Error("render failed", "template", name, "err", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}
