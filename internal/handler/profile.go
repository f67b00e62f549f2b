package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/skillswap/internal/service"
)

// ProfileHandler serves the caller's own account.
type ProfileHandler struct {
	accounts *service.AuthService
	logger   *slog.Logger
}

func NewProfileHandler(accounts *service.AuthService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{accounts: accounts, logger: logger}
}

// HandleGet returns the caller's profile.
//
// HTTP: GET /api/profile
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.Profile(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// updateProfileRequest uses pointers so an absent field is distinguishable
// from an empty one.
type updateProfileRequest struct {
	Name *string `json:"name"`
	Bio  *string `json:"bio"`
}

// HandleUpdate changes name and/or bio.
//
// HTTP: PUT /api/profile
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var body updateProfileRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.accounts.UpdateProfile(r.Context(), actor(r), service.ProfileUpdate{
		Name: body.Name,
		Bio:  body.Bio,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
