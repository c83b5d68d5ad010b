package speech

import (
	"context"
	"errors"
	"io"
	"strings"

	"nexus-chat/internal/config"
)

var (
	ErrUnavailable = errors.New("speech recognition is not available")
	ErrEmptyAudio  = errors.New("empty audio")
	ErrNoSpeech    = errors.New("no speech recognized")
)

type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (string, error)
}

type Request struct {
	Model    string
	Language string
	FileName string
	Audio    io.Reader
}

// Audio is one captured recording.
type Audio struct {
	FileName string
	Data     io.Reader
	Size     int64
}

type Service struct {
	client Transcriber
	cfg    config.Config
}

// NewService accepts a nil client; every capture then fails with
// ErrUnavailable.
func NewService(client Transcriber, cfg config.Config) *Service {
	return &Service{
		client: client,
		cfg:    cfg,
	}
}

func (s *Service) Available() bool {
	return s != nil && s.client != nil
}

func (s *Service) Capture(ctx context.Context, audio Audio) (string, error) {
	if !s.Available() {
		return "", ErrUnavailable
	}
	if audio.Data == nil || audio.Size == 0 {
		return "", ErrEmptyAudio
	}

	name := audio.FileName
	if strings.TrimSpace(name) == "" {
		name = "voice.ogg"
	}

	text, err := s.client.Transcribe(ctx, Request{
		Model:    s.cfg.TranscribeModel,
		Language: "en",
		FileName: name,
		Audio:    audio.Data,
	})
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}
