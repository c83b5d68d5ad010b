// Package simulated answers completion requests locally with canned text
// after an artificial delay. It stands in for the live endpoint in demos
// and offline development.
package simulated

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"nexus-chat/internal/usecase/chat"
)

var DefaultReplies = []string{
	"That's a great question! Here is a short overview:\n\n- **Start small** and iterate\n- Measure before you optimise\n- Keep the feedback loop tight",
	"I'd be happy to help with that. In short, the answer depends on your constraints, but a **simple approach** usually works best first.",
	"Here's a quick example:\n\n```go\nfunc greet(name string) string {\n\treturn \"Hello, \" + name\n}\n```\n\nLet me know if you want it extended.",
	"Interesting! Let me think about that.\n\nThe key idea is to break the problem into smaller steps and tackle them one at a time.",
	"Sure thing. Could you share a bit more context so I can give you a more **precise** answer?",
}

type Client struct {
	mu       sync.Mutex
	rnd      *rand.Rand
	replies  []string
	minDelay time.Duration
	maxDelay time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewClient seeds from the clock when seed is 0.
func NewClient(seed int64, minDelay, maxDelay time.Duration, replies []string) *Client {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if len(replies) == 0 {
		replies = DefaultReplies
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Client{
		rnd:      rand.New(rand.NewSource(seed)),
		replies:  replies,
		minDelay: minDelay,
		maxDelay: maxDelay,
		sleep:    sleepContext,
	}
}

func (c *Client) Complete(ctx context.Context, req chat.CompletionRequest) (chat.Completion, error) {
	c.mu.Lock()
	reply := c.replies[c.rnd.Intn(len(c.replies))]
	delay := c.minDelay
	if span := c.maxDelay - c.minDelay; span > 0 {
		delay += time.Duration(c.rnd.Int63n(int64(span)))
	}
	c.mu.Unlock()

	if err := c.sleep(ctx, delay); err != nil {
		return chat.Completion{}, err
	}

	return chat.Completion{
		Text:        reply,
		TotalTokens: estimateTokens(req.Messages) + estimateTokens([]chat.Message{{Content: reply}}),
	}, nil
}

// estimateTokens uses the rough four-tokens-per-three-words rule.
func estimateTokens(msgs []chat.Message) int {
	words := 0
	for _, m := range msgs {
		words += len(strings.Fields(m.Content))
	}
	return (words*4 + 2) / 3
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
