package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus-chat/internal/domain"
	"nexus-chat/internal/usecase/chat"
)

func TestStoreGetPut(t *testing.T) {
	s := NewStore(time.Hour)

	_, ok := s.Get("a")
	assert.False(t, ok)

	sess := chat.NewSession("a", "sys", "", nil)
	s.Put(sess)

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Same(t, sess, got)

	s.Delete("a")
	_, ok = s.Get("a")
	assert.False(t, ok)
}

func TestStoreExpiresIdleSessions(t *testing.T) {
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(time.Minute)
	s.now = func() time.Time { return clock }

	s.Put(chat.NewSession("old", "sys", "", func() time.Time { return clock.Add(-2 * time.Minute) }))
	s.Put(chat.NewSession("fresh", "sys", "", func() time.Time { return clock }))

	_, ok := s.Get("old")
	assert.False(t, ok)
	_, ok = s.Get("fresh")
	assert.True(t, ok)

	s.Put(chat.NewSession("old2", "sys", "", func() time.Time { return clock.Add(-time.Hour) }))
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())
}

func TestStoreWithoutTTLKeepsEverything(t *testing.T) {
	s := NewStore(0)
	s.Put(chat.NewSession("x", "sys", "", func() time.Time { return time.Unix(0, 0) }))

	_, ok := s.Get("x")
	assert.True(t, ok)
}

func TestPreferences(t *testing.T) {
	p := NewPreferences()
	ctx := context.Background()

	_, err := p.Theme(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrNoPreference)

	require.NoError(t, p.SetTheme(ctx, "c1", domain.ThemeDark))
	th, err := p.Theme(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.ThemeDark, th)
}
