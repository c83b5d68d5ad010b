package simulated

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus-chat/internal/usecase/chat"
)

func req(text string) chat.CompletionRequest {
	return chat.CompletionRequest{Messages: []chat.Message{{Role: "user", Content: text}}}
}

func TestSameSeedSameReplies(t *testing.T) {
	a := NewClient(42, 0, 0, nil)
	b := NewClient(42, 0, 0, nil)

	for i := 0; i < 5; i++ {
		ra, err := a.Complete(context.Background(), req("hi"))
		require.NoError(t, err)
		rb, err := b.Complete(context.Background(), req("hi"))
		require.NoError(t, err)
		assert.Equal(t, ra, rb)
		assert.Contains(t, DefaultReplies, ra.Text)
		assert.Positive(t, ra.TotalTokens)
	}
}

func TestDelayWithinRange(t *testing.T) {
	c := NewClient(7, 10*time.Millisecond, 20*time.Millisecond, []string{"only"})
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	for i := 0; i < 20; i++ {
		resp, err := c.Complete(context.Background(), req("x"))
		require.NoError(t, err)
		assert.Equal(t, "only", resp.Text)
	}
	for _, d := range slept {
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.Less(t, d, 20*time.Millisecond)
	}
}

func TestCancelledContext(t *testing.T) {
	c := NewClient(1, time.Hour, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Complete(ctx, req("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, estimateTokens(nil))
	assert.Equal(t, 4, estimateTokens([]chat.Message{{Content: "one two three"}}))
}
