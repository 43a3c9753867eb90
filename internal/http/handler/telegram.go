package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"tonalli/internal/auth"
	"tonalli/internal/habit"
)

// Bot is the slice of the Telegram client the webhook needs.
type Bot interface {
	Send(ctx context.Context, chatID, text string) error
	SendReminder(ctx context.Context, chatID, text string, reminderID uint64) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// ChatTone generates the motivational line echoed back on /add.
type ChatTone interface {
	DispatchLine(ctx context.Context, reminderText string, streak, failures int) string
}

// TelegramHandler receives bot updates: reaction button callbacks and the
// /start, /reminders, /add, /help chat commands. Chat users are provisioned
// lazily by telegram id.
type TelegramHandler struct {
	Svc    *habit.Service
	DB     *gorm.DB
	Bot    Bot
	Tone   ChatTone // optional
	Logger *slog.Logger
}

type tgChat struct {
	ID int64 `json:"id"`
}

type tgFrom struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
}

type tgMessage struct {
	Chat tgChat `json:"chat"`
	From tgFrom `json:"from"`
	Text string `json:"text"`
}

type tgCallback struct {
	ID      string     `json:"id"`
	Data    string     `json:"data"`
	Message *tgMessage `json:"message"`
}

type tgUpdate struct {
	Message       *tgMessage  `json:"message"`
	CallbackQuery *tgCallback `json:"callback_query"`
}

// Webhook always answers {"ok":true} on handled updates; Telegram retries
// anything else.
func (h *TelegramHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var upd tgUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	switch {
	case upd.CallbackQuery != nil:
		h.handleCallback(r.Context(), upd.CallbackQuery)
	case upd.Message != nil:
		h.handleMessage(r.Context(), upd.Message)
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleCallback applies a reaction button press. Callback data is
// "<action>:<reminder id>" as attached by SendReminder.
func (h *TelegramHandler) handleCallback(ctx context.Context, cb *tgCallback) {
	action, idStr, ok := strings.Cut(cb.Data, ":")
	reminderID, err := strconv.ParseUint(idStr, 10, 64)
	if !ok || err != nil {
		_ = h.Bot.AnswerCallback(ctx, cb.ID, "Unrecognized action.")
		return
	}

	updated, err := h.Svc.ApplyChatReaction(ctx, reminderID, action)
	if err != nil {
		if errors.Is(err, habit.ErrNotFound) {
			_ = h.Bot.AnswerCallback(ctx, cb.ID, "Reminder not found.")
			return
		}
		h.Logger.Error("chat reaction failed", "reminder_id", reminderID, "action", action, "error", err)
		_ = h.Bot.AnswerCallback(ctx, cb.ID, "Something went wrong.")
		return
	}

	var response string
	switch action {
	case "done":
		response = fmt.Sprintf("Marked %q as completed. Nice work!", updated.Text)
	case "snooze":
		response = "Snoozed. I'll remind you again in 20 minutes."
	case "ignore":
		response = "Okay, skipping this one for now."
	}

	_ = h.Bot.AnswerCallback(ctx, cb.ID, "")
	if cb.Message != nil && response != "" {
		_ = h.Bot.Send(ctx, strconv.FormatInt(cb.Message.Chat.ID, 10), response)
	}
}

func (h *TelegramHandler) handleMessage(ctx context.Context, msg *tgMessage) {
	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	user, err := h.getOrCreateUser(ctx, strconv.FormatInt(msg.From.ID, 10), msg.From.FirstName)
	if err != nil {
		h.Logger.Error("chat user lookup failed", "telegram_id", msg.From.ID, "error", err)
		return
	}

	text := strings.TrimSpace(msg.Text)
	switch {
	case strings.HasPrefix(text, "/start"):
		_ = h.Bot.Send(ctx, chatID, fmt.Sprintf(
			"Hi %s! I'm Tonalli, here to help you keep your habits.\n"+
				"Commands:\n"+
				"/reminders - list your pending reminders\n"+
				"/add <text> - add a reminder\n"+
				"/help - show help", msg.From.FirstName))

	case strings.HasPrefix(text, "/reminders"):
		h.listReminders(ctx, chatID, user.ID)

	case strings.HasPrefix(text, "/add"):
		h.addReminder(ctx, chatID, user.ID, strings.TrimSpace(strings.TrimPrefix(text, "/add")))

	case strings.HasPrefix(text, "/help"):
		_ = h.Bot.Send(ctx, chatID,
			"Available commands:\n"+
				"/start - start the bot\n"+
				"/reminders - list pending reminders\n"+
				"/add <text> - add a new reminder\n"+
				"/help - show this help")

	default:
		_ = h.Bot.Send(ctx, chatID, "Unrecognized command. Use /help to see what I can do.")
	}
}

func (h *TelegramHandler) listReminders(ctx context.Context, chatID string, userID uint64) {
	rows, err := h.Svc.ListPendingReminders(ctx, userID)
	if err != nil {
		h.Logger.Error("chat reminder list failed", "user_id", userID, "error", err)
		return
	}
	if len(rows) == 0 {
		_ = h.Bot.Send(ctx, chatID, "You have no pending reminders.")
		return
	}

	var b strings.Builder
	b.WriteString("Your pending reminders:\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "- %s (%s)\n", r.Text, r.ReminderTime.Format("2006-01-02 15:04"))
	}
	_ = h.Bot.Send(ctx, chatID, b.String())
}

// addReminder creates a reminder due in one hour and sends the confirmation
// with the reaction keyboard attached.
func (h *TelegramHandler) addReminder(ctx context.Context, chatID string, userID uint64, text string) {
	if text == "" {
		_ = h.Bot.Send(ctx, chatID, "Please provide the reminder text. Usage: /add <text>")
		return
	}

	line := ""
	if h.Tone != nil {
		streak, _ := h.Svc.CompletedActivityCount(ctx, userID)
		line = h.Tone.DispatchLine(ctx, text, int(streak), 0)
	}

	created, err := h.Svc.CreateReminder(ctx, userID, habit.CreateReminderInput{
		Text:         text,
		ReminderTime: time.Now().Add(time.Hour),
	})
	if err != nil {
		h.Logger.Error("chat reminder create failed", "user_id", userID, "error", err)
		_ = h.Bot.Send(ctx, chatID, "Could not save that reminder, please try again.")
		return
	}

	response := "Done! Reminder added: " + created.Text
	if line != "" {
		response += "\n\n" + line
	}
	_ = h.Bot.SendReminder(ctx, chatID, response, created.ID)
}

func (h *TelegramHandler) getOrCreateUser(ctx context.Context, telegramID, name string) (*auth.User, error) {
	var u auth.User
	err := h.DB.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&u).Error
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	u = auth.User{TelegramID: &telegramID}
	if name != "" {
		u.Name = &name
	}
	if err := h.DB.WithContext(ctx).Create(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
