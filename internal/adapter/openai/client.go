package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openaiapi "github.com/sashabaranov/go-openai"

	"nexus-chat/internal/usecase/chat"
)

var errNoKey = chat.NewCompletionError("API key not configured", nil)

type Client struct {
	api    *openaiapi.Client
	hasKey bool
}

// NewClient builds a client for an OpenAI-compatible endpoint. An empty
// baseURL keeps the library default; httpClient may be nil.
func NewClient(token, baseURL string, httpClient *http.Client) *Client {
	cfg := openaiapi.DefaultConfig(token)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	var doer openaiapi.HTTPDoer = http.DefaultClient
	if httpClient != nil {
		doer = httpClient
	}
	cfg.HTTPClient = explicitFields{next: doer}
	return &Client{
		api:    openaiapi.NewClientWithConfig(cfg),
		hasKey: strings.TrimSpace(token) != "",
	}
}

func (c *Client) Complete(ctx context.Context, req chat.CompletionRequest) (chat.Completion, error) {
	if !c.hasKey {
		return chat.Completion{}, errNoKey
	}

	apiReq := openaiapi.ChatCompletionRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      false,
		Messages:    toAPIMessages(req.Messages),
	}

	resp, err := c.api.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return chat.Completion{}, classify(err)
	}

	if len(resp.Choices) == 0 {
		return chat.Completion{}, chat.NewCompletionError("malformed response: no choices", nil)
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return chat.Completion{}, chat.NewCompletionError("malformed response: empty message content", nil)
	}

	return chat.Completion{
		Text:        content,
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}

func toAPIMessages(msgs []chat.Message) []openaiapi.ChatCompletionMessage {
	res := make([]openaiapi.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		res = append(res, openaiapi.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return res
}

// classify turns library errors into user-facing completion errors.
func classify(err error) error {
	var apiErr *openaiapi.APIError
	if errors.As(err, &apiErr) {
		reason := fmt.Sprintf("API Error: %d", apiErr.HTTPStatusCode)
		if apiErr.Message != "" {
			reason += " (" + apiErr.Message + ")"
		}
		return chat.NewCompletionError(reason, err)
	}

	var reqErr *openaiapi.RequestError
	if errors.As(err, &reqErr) {
		return chat.NewCompletionError(fmt.Sprintf("API Error: %d", reqErr.HTTPStatusCode), err)
	}

	// Context errors keep their identity so the caller can word them.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	return chat.NewCompletionError(err.Error(), err)
}
