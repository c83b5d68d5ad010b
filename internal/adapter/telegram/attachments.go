package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nexus-chat/internal/usecase/speech"
)

const maxVoiceBytes = 20 << 20

func (b *Bot) transcribeVoice(ctx context.Context, voice *tgbotapi.Voice) (string, error) {
	if !b.speech.Available() {
		return "", speech.ErrUnavailable
	}

	data, name, err := b.fetchFile(ctx, voice.FileID)
	if err != nil {
		return "", fmt.Errorf("download voice note: %w", err)
	}

	return b.speech.Capture(ctx, speech.Audio{
		FileName: voiceFileName(name),
		Data:     bytes.NewReader(data),
		Size:     int64(len(data)),
	})
}

func (b *Bot) fetchFile(ctx context.Context, fileID string) ([]byte, string, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("telegram file api: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxVoiceBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > maxVoiceBytes {
		return nil, "", fmt.Errorf("voice note larger than %d bytes", maxVoiceBytes)
	}
	return data, file.FilePath, nil
}

// voiceFileName keeps the extension of the stored file so the recognizer
// can tell the audio format. Telegram voice notes are ogg/opus.
func voiceFileName(filePath string) string {
	if ext := path.Ext(filePath); ext != "" {
		if ext == ".oga" {
			ext = ".ogg"
		}
		return "voice" + ext
	}
	return "voice.ogg"
}
