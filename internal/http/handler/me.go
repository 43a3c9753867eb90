package handler

import (
	"net/http"

	"gorm.io/gorm"

	"tonalli/internal/api"
	"tonalli/internal/auth"
)

type MeHandler struct {
	DB *gorm.DB
}

// Me resolves the credential's subject to its account row. Clients call it
// once after login to learn the user id that scopes every resource path.
func (h *MeHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var u auth.User
	if err := h.DB.Where("id = ?", uid).First(&u).Error; err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, api.User{
		ID:         u.ID,
		TelegramID: u.TelegramID,
		Name:       u.Name,
		Email:      u.Email,
		CreatedAt:  u.CreatedAt,
	})
}
