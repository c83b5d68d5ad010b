package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus-chat/internal/config"
	"nexus-chat/internal/domain"
	"nexus-chat/internal/usecase/chat"
	"nexus-chat/internal/view"
)

func TestIsAllowedUser(t *testing.T) {
	open := config.Config{}
	assert.True(t, isAllowedUser(42, open))

	restricted := config.Config{AllowedUserIDs: []int64{1, 2}, AdminUserIDs: []int64{9}}
	assert.True(t, isAllowedUser(2, restricted))
	assert.True(t, isAllowedUser(9, restricted))
	assert.False(t, isAllowedUser(3, restricted))
}

func TestSplitText(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitText("short", 10))
	assert.Equal(t, []string{"abc", "def", "g"}, splitText("abcdefg", 3))
	assert.Equal(t, []string{"привет"}, splitText("привет", 0))

	chunks := splitText(strings.Repeat("ж", 7), 3)
	assert.Equal(t, []string{"жжж", "жжж", "ж"}, chunks)
}

func TestStripMention(t *testing.T) {
	assert.Equal(t, "Explain quantum computing", stripMention("@NexusBot Explain quantum computing", "NexusBot"))
	assert.Equal(t, "hello", stripMention("@nexusbot hello", "NexusBot"))
	assert.Equal(t, "hello", stripMention("hello", "NexusBot"))
	assert.Equal(t, "@other hi", stripMention("@other hi", "NexusBot"))
	assert.Equal(t, "hi", stripMention("hi", ""))
}

func TestParseCallback(t *testing.T) {
	action, arg := parseCallback("like:3")
	assert.Equal(t, actionLike, action)
	assert.Equal(t, "3", arg)

	action, arg = parseCallback("regen")
	assert.Equal(t, actionRegenerate, action)
	assert.Empty(t, arg)

	action, arg = parseCallback("regen:4")
	assert.Equal(t, actionRegenerate, action)
	assert.Equal(t, "4", arg)

	action, arg = parseCallback(callbackData(actionTool, "Code"))
	assert.Equal(t, actionTool, action)
	assert.Equal(t, "Code", arg)
}

func TestReplyKeyboard(t *testing.T) {
	kb := replyKeyboard(5, false)
	require.Len(t, kb.InlineKeyboard, 1)
	row := kb.InlineKeyboard[0]
	require.Len(t, row, 2)
	assert.Equal(t, "regen:5", *row[0].CallbackData)
	assert.Equal(t, "like:5", *row[1].CallbackData)

	liked := replyKeyboard(5, true)
	assert.Equal(t, "Liked!", liked.InlineKeyboard[0][1].Text)
}

func TestRetryKeyboard(t *testing.T) {
	kb := retryKeyboard(2)
	require.Len(t, kb.InlineKeyboard, 1)
	require.Len(t, kb.InlineKeyboard[0], 1)
	assert.Equal(t, "regen:2", *kb.InlineKeyboard[0][0].CallbackData)
}

func TestPromptKeyboardPrefillsWithoutSending(t *testing.T) {
	prompts := config.DefaultQuickPrompts()
	kb := promptKeyboard(prompts)
	require.Len(t, kb.InlineKeyboard, len(prompts))
	for i, row := range kb.InlineKeyboard {
		require.Len(t, row, 1)
		assert.Equal(t, prompts[i].Label, row[0].Text)
		require.NotNil(t, row[0].SwitchInlineQueryCurrentChat)
		assert.Equal(t, prompts[i].Prompt, *row[0].SwitchInlineQueryCurrentChat)
		assert.Nil(t, row[0].CallbackData)
	}
}

func TestToolKeyboardMarksActive(t *testing.T) {
	kb := toolKeyboard([]string{"Chat", "Code"}, "Code")
	row := kb.InlineKeyboard[0]
	assert.Equal(t, "Chat", row[0].Text)
	assert.Equal(t, "✓ Code", row[1].Text)
	assert.Equal(t, "tool:Code", *row[1].CallbackData)
}

func TestConfirmKeyboard(t *testing.T) {
	row := confirmKeyboard().InlineKeyboard[0]
	assert.Equal(t, "reset:yes", *row[0].CallbackData)
	assert.Equal(t, "reset:no", *row[1].CallbackData)
}

func TestFormatHTML(t *testing.T) {
	got := formatHTML(view.Expand("Use **care** & test:\n- one\n- two\n```go\nx := 1 < 2\n```"))
	assert.Equal(t,
		"Use <b>care</b> &amp; test:\n\n• one\n• two\n\n<pre><code class=\"language-go\">x := 1 &lt; 2</code></pre>",
		got)
}

func TestUsageText(t *testing.T) {
	snap := chat.Snapshot{Usage: domain.UsageCounters{Messages: 3, Tokens: 120}}
	assert.Equal(t, "Messages sent: 3\nTokens used: 120", usageText(snap))
}

func TestVoiceFileName(t *testing.T) {
	assert.Equal(t, "voice.ogg", voiceFileName("voice/file_1.oga"))
	assert.Equal(t, "voice.mp3", voiceFileName("music/file_2.mp3"))
	assert.Equal(t, "voice.ogg", voiceFileName("noext"))
}

func TestSessionID(t *testing.T) {
	assert.Equal(t, "tg:-100123", sessionID(-100123))
}
