package openai

import (
	"context"

	openaiapi "github.com/sashabaranov/go-openai"

	"nexus-chat/internal/usecase/speech"
)

func (c *Client) Transcribe(ctx context.Context, req speech.Request) (string, error) {
	if !c.hasKey {
		return "", speech.ErrUnavailable
	}

	resp, err := c.api.CreateTranscription(ctx, openaiapi.AudioRequest{
		Model:    req.Model,
		FilePath: req.FileName,
		Reader:   req.Audio,
		Language: req.Language,
		Format:   openaiapi.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
