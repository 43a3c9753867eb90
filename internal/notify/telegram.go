// Package notify delivers reminder dispatch messages through the Telegram
// bot API and decorates them with a short motivational line.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

const defaultTelegramEndpoint = "https://api.telegram.org"

// Telegram sends bot messages. With an empty token every call is a logged
// no-op, mirroring an unconfigured deployment.
type Telegram struct {
	httpClient *http.Client
	token      string
	logger     *slog.Logger
	endpoint   string // swappable for tests
}

func NewTelegram(httpClient *http.Client, token string, logger *slog.Logger) *Telegram {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Telegram{
		httpClient: httpClient,
		token:      token,
		logger:     logger,
		endpoint:   defaultTelegramEndpoint,
	}
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type replyMarkup struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type sendMessageReq struct {
	ChatID      string       `json:"chat_id"`
	Text        string       `json:"text"`
	ReplyMarkup *replyMarkup `json:"reply_markup,omitempty"`
}

func (t *Telegram) Send(ctx context.Context, chatID, text string) error {
	return t.post(ctx, "sendMessage", sendMessageReq{ChatID: chatID, Text: text})
}

// SendReminder sends a dispatch message with the reaction keyboard attached.
// The button callbacks come back through the webhook as "<action>:<id>".
func (t *Telegram) SendReminder(ctx context.Context, chatID, text string, reminderID uint64) error {
	return t.post(ctx, "sendMessage", sendMessageReq{
		ChatID: chatID,
		Text:   text,
		ReplyMarkup: &replyMarkup{InlineKeyboard: [][]inlineButton{{
			{Text: "✅ Done", CallbackData: fmt.Sprintf("done:%d", reminderID)},
			{Text: "⏳ +20m", CallbackData: fmt.Sprintf("snooze:%d", reminderID)},
			{Text: "⏭ Skip", CallbackData: fmt.Sprintf("ignore:%d", reminderID)},
		}}},
	})
}

// AnswerCallback acknowledges a button press so the client stops its spinner.
func (t *Telegram) AnswerCallback(ctx context.Context, callbackID, text string) error {
	payload := map[string]string{"callback_query_id": callbackID}
	if text != "" {
		payload["text"] = text
	}
	return t.post(ctx, "answerCallbackQuery", payload)
}

// SetWebhook points the bot's webhook at url. Called once at startup when a
// public URL is configured.
func (t *Telegram) SetWebhook(ctx context.Context, url string) error {
	return t.post(ctx, "setWebhook", map[string]string{"url": url})
}

func (t *Telegram) post(ctx context.Context, method string, payload any) error {
	if t.token == "" {
		t.logger.Info("telegram token unset, skipping call", "method", method)
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/%s", t.endpoint, t.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.logger.Error("telegram call failed", "method", method, "error", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.logger.Error("telegram rejected call", "method", method, "status", resp.StatusCode)
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}
