package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"nexus-chat/internal/usecase/chat"
	"nexus-chat/internal/usecase/speech"
	"nexus-chat/internal/usecase/theme"
)

const (
	clientCookie  = "nexus_client"
	maxVoiceBytes = 25 << 20
	maxFormBytes  = 1 << 20
)

// Server is the browser surface. Completions started by a request keep
// running after the response is written; the page polls until they
// settle.
type Server struct {
	chat   *chat.Service
	speech *speech.Service
	theme  *theme.Service
	log    *log.Logger
	now    func() time.Time

	base     context.Context
	inflight sync.WaitGroup
}

func NewServer(base context.Context, chatSvc *chat.Service, speechSvc *speech.Service, themeSvc *theme.Service, logger *log.Logger) *Server {
	return &Server{
		chat:   chatSvc,
		speech: speechSvc,
		theme:  themeSvc,
		log:    logger,
		now:    time.Now,
		base:   base,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":     true,
			"time":   s.now().UTC().Format(time.RFC3339Nano),
			"status": s.chat.Status(),
			"speech": s.speech.Available(),
		})
	})

	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /transcript", s.handleTranscript)

	mux.HandleFunc("POST /messages", s.handleSubmit)
	mux.HandleFunc("POST /messages/regenerate", s.handleRegenerate)
	mux.HandleFunc("POST /messages/{index}/copy", s.handleCopy)
	mux.HandleFunc("POST /messages/{index}/like", s.handleLike)

	mux.HandleFunc("POST /chat/clear", s.handleReset)
	mux.HandleFunc("POST /chat/new", s.handleReset)

	mux.HandleFunc("POST /prompts/{index}", s.handlePrompt)
	mux.HandleFunc("POST /tools/{name}", s.handleTool)
	mux.HandleFunc("POST /theme", s.handleTheme)
	mux.HandleFunc("POST /voice", s.handleVoice)

	mux.Handle("GET /static/", http.FileServerFS(staticFS))
	return mux
}

// Wait blocks until every completion started by the server has settled.
func (s *Server) Wait() {
	s.inflight.Wait()
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	id := s.clientID(w, r)
	s.render(w, r, "page", id)
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	id := s.clientID(w, r)
	s.render(w, r, "transcript", id)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id := s.clientID(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	ex, err := s.chat.Ask(id, r.PostFormValue("message"))
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
	case errors.Is(err, chat.ErrBusy):
		s.chat.SetDraft(id, r.PostFormValue("message"))
	case err != nil:
		s.log.Error("submit failed", "session", id, "err", err)
	default:
		s.completeAsync(ex, id)
	}
	redirectHome(w, r)
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	id := s.clientID(w, r)
	ex, err := s.chat.Rewind(id)
	if err != nil {
		if !errors.Is(err, chat.ErrNoExchange) && !errors.Is(err, chat.ErrBusy) {
			s.log.Error("regenerate failed", "session", id, "err", err)
		}
		redirectHome(w, r)
		return
	}
	s.completeAsync(ex, id)
	redirectHome(w, r)
}

func (s *Server) completeAsync(ex *chat.Exchange, id string) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if _, err := s.chat.Complete(s.base, ex); err != nil && !errors.Is(err, chat.ErrDiscarded) {
			s.log.Debug("completion settled with error", "session", id, "err", err)
		}
	}()
}

func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	id := s.clientID(w, r)
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	// The browser writes its own clipboard; the server only confirms.
	if _, err := s.chat.MarkCopied(id, index); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	id := s.clientID(w, r)
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	if err := s.chat.Like(id, index); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := s.clientID(w, r)
	s.chat.Reset(id)
	redirectHome(w, r)
}

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	id := s.clientID(w, r)
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	if _, err := s.chat.UseQuickPrompt(id, index); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	id := s.clientID(w, r)
	if err := s.chat.SelectTool(id, r.PathValue("name")); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	id := s.clientID(w, r)
	if _, err := s.theme.Toggle(r.Context(), id); err != nil {
		s.log.Warn("theme not saved", "session", id, "err", err)
	}
	redirectHome(w, r)
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	id := s.clientID(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, maxVoiceBytes)

	s.chat.BeginListening(id)
	if err := r.ParseMultipartForm(maxFormBytes); err != nil {
		s.chat.FinishListening(id, "", err)
		redirectHome(w, r)
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		s.chat.FinishListening(id, "", speech.ErrEmptyAudio)
		redirectHome(w, r)
		return
	}
	defer file.Close()

	text, err := s.speech.Capture(r.Context(), speech.Audio{
		FileName: header.Filename,
		Data:     file,
		Size:     header.Size,
	})
	s.chat.FinishListening(id, text, err)
	redirectHome(w, r)
}

// clientID identifies the browser by a long-lived cookie, issuing one on
// first contact.
func (s *Server) clientID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(clientCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     clientCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func pathIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		http.Error(w, "bad index", http.StatusBadRequest)
		return 0, false
	}
	return index, true
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
