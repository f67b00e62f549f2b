package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/skillswap/internal/service"
)

// AdminHandler exposes moderation. Routes are mounted behind RequireAuth and
// RequireAdmin; the service checks the role again.
type AdminHandler struct {
	moderation *service.ModerationService
	logger     *slog.Logger
}

func NewAdminHandler(moderation *service.ModerationService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{moderation: moderation, logger: logger}
}

func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.moderation.ListUsers(r.Context(), actor(r))
	h.respond(w, r, users, err)
}

func (h *AdminHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.moderation.GetUser(r.Context(), actor(r), chi.URLParam(r, "id"))
	h.respond(w, r, user, err)
}

func (h *AdminHandler) HandleListSkills(w http.ResponseWriter, r *http.Request) {
	skills, err := h.moderation.ListSkills(r.Context(), actor(r))
	h.respond(w, r, skills, err)
}

func (h *AdminHandler) HandleGetSkill(w http.ResponseWriter, r *http.Request) {
	skill, err := h.moderation.GetSkill(r.Context(), actor(r), chi.URLParam(r, "id"))
	h.respond(w, r, skill, err)
}

func (h *AdminHandler) HandleListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.moderation.ListRequests(r.Context(), actor(r))
	h.respond(w, r, requests, err)
}

func (h *AdminHandler) HandleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.moderation.GetRequest(r.Context(), actor(r), chi.URLParam(r, "id"))
	h.respond(w, r, req, err)
}

// HandleDeleteUser: DELETE /api/admin/users/{id}. Refuses the caller's own id.
func (h *AdminHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.moderation.DeleteUser(r.Context(), actor(r), chi.URLParam(r, "id")))
}

func (h *AdminHandler) HandleDeleteSkill(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.moderation.DeleteSkill(r.Context(), actor(r), chi.URLParam(r, "id")))
}

// HandleDeleteRequest removes a request in any state.
func (h *AdminHandler) HandleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.moderation.DeleteRequest(r.Context(), actor(r), chi.URLParam(r, "id")))
}

func (h *AdminHandler) respond(w http.ResponseWriter, r *http.Request, data any, err error) {
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (h *AdminHandler) noContent(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
