package handler

import (
	"net/http"

	"tonalli/internal/habit"
)

type SummaryHandler struct {
	Svc *habit.Service
}

func (h *SummaryHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := pathUser(w, r)
	if !ok {
		return
	}

	s, err := h.Svc.Summary(r.Context(), uid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, s.API())
}
