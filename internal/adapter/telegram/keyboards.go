package telegram

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nexus-chat/internal/config"
)

const (
	actionRegenerate = "regen"
	actionLike       = "like"
	actionTool       = "tool"
	actionReset      = "reset"
)

// parseCallback splits callback data of the form "action" or "action:arg".
func parseCallback(data string) (action, arg string) {
	action, arg, _ = strings.Cut(data, ":")
	return action, arg
}

func callbackData(action, arg string) string {
	if arg == "" {
		return action
	}
	return action + ":" + arg
}

func replyKeyboard(index int, liked bool) tgbotapi.InlineKeyboardMarkup {
	like := "👍 Like"
	if liked {
		like = "Liked!"
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔄 Regenerate", callbackData(actionRegenerate, strconv.Itoa(index))),
		tgbotapi.NewInlineKeyboardButtonData(like, callbackData(actionLike, strconv.Itoa(index))),
	))
}

// retryKeyboard goes under an apology; index is the unanswered question.
func retryKeyboard(index int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔄 Retry", callbackData(actionRegenerate, strconv.Itoa(index))),
	))
}

func confirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Yes", callbackData(actionReset, "yes")),
		tgbotapi.NewInlineKeyboardButtonData("No", callbackData(actionReset, "no")),
	))
}

// promptKeyboard offers each quick prompt as a button that fills the input
// field of the current chat without sending.
func promptKeyboard(prompts []config.QuickPrompt) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(prompts))
	for _, p := range prompts {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(prefillButton(p.Label, p.Prompt)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func transcriptKeyboard(text string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(prefillButton("✏️ Use as message", text)))
}

func prefillButton(label, text string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.InlineKeyboardButton{
		Text:                         label,
		SwitchInlineQueryCurrentChat: &text,
	}
}

func toolKeyboard(tools []string, active string) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(tools))
	for _, t := range tools {
		label := t
		if t == active {
			label = "✓ " + t
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, callbackData(actionTool, t)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}
