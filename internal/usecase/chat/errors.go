package chat

import (
	"context"
	"errors"
	"fmt"

	"nexus-chat/internal/usecase/speech"
)

var (
	ErrEmptyMessage   = errors.New("empty message")
	ErrBusy           = errors.New("a reply is still being generated")
	ErrNoExchange     = errors.New("nothing to regenerate")
	ErrUnknownMessage = errors.New("unknown message")
	ErrUnknownPrompt  = errors.New("unknown quick prompt")
	ErrUnknownTool    = errors.New("unknown tool")
	ErrDiscarded      = errors.New("reply discarded after the chat was reset")
)

// CompletionError is the single failure type of a completion call. Reason
// is meant to be shown to the user as is.
type CompletionError struct {
	Reason string
	Err    error
}

func (e *CompletionError) Error() string {
	return "completion failed: " + e.Reason
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

func NewCompletionError(reason string, err error) *CompletionError {
	return &CompletionError{Reason: reason, Err: err}
}

// AsCompletionError folds any client error into a CompletionError.
func AsCompletionError(err error) *CompletionError {
	if err == nil {
		return nil
	}
	var cerr *CompletionError
	if errors.As(err, &cerr) {
		return cerr
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewCompletionError("the request timed out", err)
	case errors.Is(err, context.Canceled):
		return NewCompletionError("the request was cancelled", err)
	}
	return NewCompletionError(err.Error(), err)
}

// Apology is the assistant-style line shown in place of a failed reply.
func Apology(err error) string {
	reason := "unknown error"
	if cerr := AsCompletionError(err); cerr != nil && cerr.Reason != "" {
		reason = cerr.Reason
	}
	return fmt.Sprintf("Sorry, I encountered an error: %s. Please try again.", reason)
}

// SpeechNotice is the user-facing line for a failed voice capture.
func SpeechNotice(err error) string {
	switch {
	case errors.Is(err, speech.ErrUnavailable):
		return "Speech recognition is not supported here."
	case errors.Is(err, speech.ErrNoSpeech):
		return "I could not hear anything in that recording."
	default:
		return "Voice input failed: " + err.Error()
	}
}
