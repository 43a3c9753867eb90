package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tonalli/internal/auth"
)

// pathUser checks that the {userID} path parameter names the authenticated
// user. Every resource route is scoped this way; a mismatch is 403.
func pathUser(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	uid, _ := auth.UserIDFromContext(r.Context())

	pathID, err := strconv.ParseUint(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return 0, false
	}
	if pathID != uid {
		http.Error(w, "forbidden", http.StatusForbidden)
		return 0, false
	}
	return uid, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
