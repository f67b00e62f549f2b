package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/skillswap/internal/model"
	"github.com/sakif/skillswap/internal/service"
)

// RequestHandler serves the learning-request lifecycle. Every route is
// behind RequireAuth.
type RequestHandler struct {
	lifecycle *service.LifecycleService
	logger    *slog.Logger
}

func NewRequestHandler(lifecycle *service.LifecycleService, logger *slog.Logger) *RequestHandler {
	return &RequestHandler{lifecycle: lifecycle, logger: logger}
}

type createRequestRequest struct {
	SkillID string `json:"skillId"`
	Message string `json:"message"`
}

// HandleCreate sends a request for a skill.
//
// HTTP: POST /api/requests
// REQUEST BODY: {"skillId": "...", "message": "teach me"}
func (h *RequestHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var body createRequestRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	req, err := h.lifecycle.Create(r.Context(), actor(r), body.SkillID, body.Message)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

type respondRequest struct {
	Status model.Status `json:"status"`
}

// HandleRespond accepts or rejects a pending request.
//
// HTTP: PUT /api/requests/{id}
// REQUEST BODY: {"status": "accepted"} or {"status": "rejected"}
//
// A request that was already decided answers 409 invalid_transition.
func (h *RequestHandler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	var body respondRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	req, err := h.lifecycle.Respond(r.Context(), actor(r), chi.URLParam(r, "id"), body.Status)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// HandleCancel withdraws a pending request.
//
// HTTP: DELETE /api/requests/{id}
func (h *RequestHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	if err := h.lifecycle.Cancel(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListReceived: GET /api/requests/received
func (h *RequestHandler) HandleListReceived(w http.ResponseWriter, r *http.Request) {
	requests, err := h.lifecycle.ListReceived(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

// HandleListSent: GET /api/requests/sent
func (h *RequestHandler) HandleListSent(w http.ResponseWriter, r *http.Request) {
	requests, err := h.lifecycle.ListSent(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}
