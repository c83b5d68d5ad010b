package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nexus-chat/internal/config"
	"nexus-chat/internal/usecase/chat"
	"nexus-chat/internal/usecase/speech"
	"nexus-chat/internal/view"
)

const (
	messageLimit    = 4096
	confirmResetMsg = "Clear all messages and start new conversation?"
	busyMsg         = "Still working on your previous message, one moment..."
	emptyMsg        = "I need some text to work with."
	staleRegenMsg   = "Only the latest reply can be regenerated."
)

type Bot struct {
	api    *tgbotapi.BotAPI
	cfg    config.Config
	chat   *chat.Service
	speech *speech.Service
	log    *log.Logger
	http   *http.Client

	wg sync.WaitGroup
}

func NewBot(cfg config.Config, chatSvc *chat.Service, speechSvc *speech.Service, logger *log.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}

	return &Bot{
		api:    api,
		cfg:    cfg,
		chat:   chatSvc,
		speech: speechSvc,
		log:    logger,
		http:   &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Run polls for updates until ctx is done, then waits for the handlers it
// started.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("telegram bot started", "user", b.api.Self.UserName)
	defer func() {
		b.api.StopReceivingUpdates()
		b.wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			switch {
			case update.Message != nil && update.Message.From != nil:
				b.spawn(func() { b.handleMessage(ctx, update.Message) })
			case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
				b.spawn(func() { b.handleCallback(ctx, update.CallbackQuery) })
			}
		}
	}
}

func (b *Bot) spawn(fn func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn()
	}()
}

func sessionID(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !isAllowedUser(msg.From.ID, b.cfg) {
		b.reply(msg.Chat.ID, msg.MessageID, "access denied", nil)
		return
	}

	id := sessionID(msg.Chat.ID)
	switch {
	case msg.Voice != nil:
		b.handleVoice(ctx, msg)
	case msg.IsCommand():
		b.handleCommand(msg, id)
	default:
		b.submit(ctx, msg.Chat.ID, msg.MessageID, stripMention(msg.Text, b.api.Self.UserName))
	}
}

func (b *Bot) handleCommand(msg *tgbotapi.Message, id string) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		b.reply(chatID, 0, view.Greeting, promptKeyboard(b.chat.QuickPrompts()))
	case "new", "clear":
		b.reply(chatID, msg.MessageID, confirmResetMsg, confirmKeyboard())
	case "prompts":
		b.reply(chatID, 0, "Pick a prompt to drop it into your message box:", promptKeyboard(b.chat.QuickPrompts()))
	case "tools":
		snap := b.chat.Snapshot(id)
		b.reply(chatID, 0, "Choose a mode:", toolKeyboard(b.chat.Tools(), snap.ActiveTool))
	case "usage":
		b.reply(chatID, msg.MessageID, usageText(b.chat.Snapshot(id)), nil)
	default:
		b.reply(chatID, msg.MessageID, "Unknown command. Try /prompts, /tools, /usage or /new.", nil)
	}
}

func (b *Bot) submit(ctx context.Context, chatID int64, replyTo int, text string) {
	id := sessionID(chatID)
	ex, err := b.chat.Ask(id, text)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		b.reply(chatID, replyTo, emptyMsg, nil)
		return
	case errors.Is(err, chat.ErrBusy):
		b.reply(chatID, replyTo, busyMsg, nil)
		return
	case err != nil:
		b.log.Error("submit failed", "session", id, "err", err)
		return
	}
	b.complete(ctx, chatID, replyTo, ex)
}

func (b *Bot) complete(ctx context.Context, chatID int64, replyTo int, ex *chat.Exchange) {
	id := sessionID(chatID)
	b.sendChatAction(chatID, tgbotapi.ChatTyping)

	text, err := b.chat.Complete(ctx, ex)
	switch {
	case errors.Is(err, chat.ErrDiscarded):
		return
	case err != nil:
		index := len(b.chat.Snapshot(id).Messages) - 1
		b.reply(chatID, replyTo, chat.Apology(err), retryKeyboard(index))
		return
	}

	snap := b.chat.Snapshot(id)
	index := len(snap.Messages) - 1
	b.sendAnswer(chatID, replyTo, text, replyKeyboard(index, false))
}

// isLatest reports whether arg names the last visible message, the only
// one a regenerate button may act on.
func (b *Bot) isLatest(id, arg string) bool {
	index, err := strconv.Atoi(arg)
	if err != nil {
		return false
	}
	return index == len(b.chat.Snapshot(id).Messages)-1
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	chatID := q.Message.Chat.ID
	if q.From == nil || !isAllowedUser(q.From.ID, b.cfg) {
		b.answer(q.ID, "access denied")
		return
	}

	id := sessionID(chatID)
	action, arg := parseCallback(q.Data)
	switch action {
	case actionRegenerate:
		if !b.isLatest(id, arg) {
			b.answer(q.ID, staleRegenMsg)
			return
		}
		ex, err := b.chat.Rewind(id)
		if err != nil {
			b.answer(q.ID, callbackError(err))
			return
		}
		b.answer(q.ID, "Regenerating...")
		b.complete(ctx, chatID, 0, ex)

	case actionLike:
		index, err := strconv.Atoi(arg)
		if err == nil {
			err = b.chat.Like(id, index)
		}
		if err != nil {
			b.answer(q.ID, "That message is gone.")
			return
		}
		b.answer(q.ID, "Liked!")
		b.edit(tgbotapi.NewEditMessageReplyMarkup(chatID, q.Message.MessageID, replyKeyboard(index, true)))

	case actionTool:
		if err := b.chat.SelectTool(id, arg); err != nil {
			b.answer(q.ID, "Unknown mode.")
			return
		}
		notice := fmt.Sprintf("Switching to %s mode...", arg)
		b.answer(q.ID, notice)
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, q.Message.MessageID, notice,
			toolKeyboard(b.chat.Tools(), b.chat.Snapshot(id).ActiveTool))
		b.edit(edit)

	case actionReset:
		text := "Kept the conversation."
		if arg == "yes" {
			b.chat.Reset(id)
			text = "Started a new conversation."
		}
		b.answer(q.ID, text)
		b.edit(tgbotapi.NewEditMessageText(chatID, q.Message.MessageID, text))

	default:
		b.answer(q.ID, "")
	}
}

func callbackError(err error) string {
	switch {
	case errors.Is(err, chat.ErrBusy):
		return busyMsg
	case errors.Is(err, chat.ErrNoExchange):
		return "Nothing to regenerate yet."
	default:
		return "Something went wrong."
	}
}

func (b *Bot) handleVoice(ctx context.Context, msg *tgbotapi.Message) {
	id := sessionID(msg.Chat.ID)
	b.chat.BeginListening(id)
	b.sendChatAction(msg.Chat.ID, tgbotapi.ChatTyping)

	text, err := b.transcribeVoice(ctx, msg.Voice)
	b.chat.FinishListening(id, text, err)
	if err != nil {
		b.reply(msg.Chat.ID, msg.MessageID, chat.SpeechNotice(err), nil)
		return
	}

	text = b.chat.Snapshot(id).Draft
	b.reply(msg.Chat.ID, msg.MessageID, "I heard: "+text, transcriptKeyboard(text))
}

func (b *Bot) reply(chatID int64, replyTo int, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("failed to send reply", "chat", chatID, "err", err)
	}
}

// sendAnswer renders an assistant reply as HTML. Replies too long for one
// message go out as a markdown document.
func (b *Bot) sendAnswer(chatID int64, replyTo int, text string, markup tgbotapi.InlineKeyboardMarkup) {
	formatted := formatHTML(view.Expand(text))
	if shouldSendAsFile(formatted) {
		if err := b.sendAsFile(chatID, replyTo, text, markup); err != nil {
			b.log.Warn("failed to send file", "chat", chatID, "err", err)
			for _, chunk := range splitText(text, messageLimit) {
				b.reply(chatID, replyTo, chunk, nil)
			}
		}
		return
	}

	msg := tgbotapi.NewMessage(chatID, formatted)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyToMessageID = replyTo
	msg.ReplyMarkup = markup
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("html reply rejected, sending plain text", "chat", chatID, "err", err)
		b.reply(chatID, replyTo, text, markup)
	}
}

func (b *Bot) sendAsFile(chatID int64, replyTo int, content string, markup tgbotapi.InlineKeyboardMarkup) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  "response.md",
		Bytes: []byte(content),
	})
	doc.ReplyToMessageID = replyTo
	doc.ReplyMarkup = markup

	_, err := b.api.Send(doc)
	return err
}

func (b *Bot) sendChatAction(chatID int64, action string) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, action)); err != nil {
		b.log.Debug("failed to send chat action", "chat", chatID, "err", err)
	}
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.Debug("failed to answer callback", "err", err)
	}
}

func (b *Bot) edit(c tgbotapi.Chattable) {
	if _, err := b.api.Request(c); err != nil {
		b.log.Debug("failed to edit message", "err", err)
	}
}

func shouldSendAsFile(text string) bool {
	return len([]rune(text)) > messageLimit
}

func isAllowedUser(userID int64, cfg config.Config) bool {
	for _, id := range cfg.AdminUserIDs {
		if id == userID {
			return true
		}
	}

	if len(cfg.AllowedUserIDs) == 0 {
		return true
	}

	for _, id := range cfg.AllowedUserIDs {
		if id == userID {
			return true
		}
	}

	return false
}

// stripMention removes the "@bot " prefix Telegram inserts when a prompt
// button fills the input field.
func stripMention(text, botName string) string {
	if botName == "" {
		return text
	}
	prefix := "@" + botName
	if len(text) >= len(prefix) && strings.EqualFold(text[:len(prefix)], prefix) {
		return strings.TrimSpace(text[len(prefix):])
	}
	return text
}

func usageText(snap chat.Snapshot) string {
	return fmt.Sprintf("Messages sent: %d\nTokens used: %d", snap.Usage.Messages, snap.Usage.Tokens)
}

func splitText(text string, chunkSize int) []string {
	if chunkSize <= 0 {
		return []string{text}
	}

	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	chunks := make([]string, 0, len(runes)/chunkSize+1)
	for start := 0; start < len(runes); start += chunkSize {
		end := min(start+chunkSize, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}
