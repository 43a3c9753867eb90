package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"tonalli/internal/api"
	"tonalli/internal/habit"
)

type ReminderHandler struct {
	Svc *habit.Service
}

func (h *ReminderHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := pathUser(w, r)
	if !ok {
		return
	}

	rows, err := h.Svc.ListReminders(r.Context(), uid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	out := make([]api.Reminder, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.API())
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := pathUser(w, r)
	if !ok {
		return
	}

	var req api.CreateReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		http.Error(w, "text required", http.StatusBadRequest)
		return
	}
	if req.ReminderTime.IsZero() {
		http.Error(w, "reminder_time required", http.StatusBadRequest)
		return
	}

	var idem *string
	if k := strings.TrimSpace(r.Header.Get("Idempotency-Key")); k != "" {
		idem = &k
	}

	created, err := h.Svc.CreateReminder(r.Context(), uid, habit.CreateReminderInput{
		Text:         req.Text,
		ReminderTime: req.ReminderTime,
		IdemKey:      idem,
	})
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, created.API())
}

func (h *ReminderHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, ok := pathUser(w, r)
	if !ok {
		return
	}
	reminderID, ok := pathID(w, r, "reminderID")
	if !ok {
		return
	}

	var req api.UpdateReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	in := habit.UpdateReminderInput{
		Text:            req.Text,
		ReminderTime:    req.ReminderTime,
		Completed:       req.Completed,
		ContextMetadata: req.ContextMetadata,
	}
	if req.LastReactionStatus != nil {
		s := string(*req.LastReactionStatus)
		in.LastReactionStatus = &s
	}

	updated, err := h.Svc.UpdateReminder(r.Context(), uid, reminderID, in)
	switch {
	case errors.Is(err, habit.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
		return
	case errors.Is(err, habit.ErrInvalidStatus):
		http.Error(w, "invalid reaction status", http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, updated.API())
}

func (h *ReminderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := pathUser(w, r)
	if !ok {
		return
	}
	reminderID, ok := pathID(w, r, "reminderID")
	if !ok {
		return
	}

	err := h.Svc.DeleteReminder(r.Context(), uid, reminderID)
	switch {
	case errors.Is(err, habit.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
