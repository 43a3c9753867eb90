package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"tonalli/internal/api"
	"tonalli/internal/habit"
)

type AgendaHandler struct {
	Svc *habit.Service
}

func (h *AgendaHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := pathUser(w, r)
	if !ok {
		return
	}

	rows, err := h.Svc.ListActivities(r.Context(), uid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	out := make([]api.Activity, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.API())
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AgendaHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := pathUser(w, r)
	if !ok {
		return
	}

	var req api.CreateActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.ActivityType = strings.TrimSpace(req.ActivityType)
	if req.ActivityType == "" {
		http.Error(w, "activity_type required", http.StatusBadRequest)
		return
	}
	if req.ActivityDate.IsZero() {
		http.Error(w, "activity_date required", http.StatusBadRequest)
		return
	}

	created, err := h.Svc.CreateActivity(r.Context(), uid, habit.CreateActivityInput{
		ActivityType: req.ActivityType,
		Description:  req.Description,
		ActivityDate: req.ActivityDate,
		ReminderID:   req.ReminderID,
		Metadata:     req.Metadata,
	})
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, created.API())
}

func (h *AgendaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := pathUser(w, r)
	if !ok {
		return
	}
	activityID, ok := pathID(w, r, "activityID")
	if !ok {
		return
	}

	err := h.Svc.DeleteActivity(r.Context(), uid, activityID)
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
