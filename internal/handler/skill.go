package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/skillswap/internal/apperror"
	"github.com/sakif/skillswap/internal/model"
	"github.com/sakif/skillswap/internal/repository"
	"github.com/sakif/skillswap/internal/service"
)

// SkillHandler serves the public catalog and the caller's own listings.
type SkillHandler struct {
	catalog *service.CatalogService
	logger  *slog.Logger
}

func NewSkillHandler(catalog *service.CatalogService, logger *slog.Logger) *SkillHandler {
	return &SkillHandler{catalog: catalog, logger: logger}
}

// HandleList returns skills matching the query string.
//
// HTTP: GET /api/skills?q=python&category=programming&level=beginner&sort=name&excludeMine=true&limit=20&offset=0
//
// Every parameter is optional. excludeMine needs a bearer token; the route
// runs behind OptionalAuth so anonymous browsing still works.
func (h *SkillHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := repository.SkillFilter{
		Query:    q.Get("q"),
		Category: model.Category(q.Get("category")),
		Level:    model.Level(q.Get("level")),
		Sort:     repository.SkillSort(q.Get("sort")),
	}

	var err error
	if filter.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if filter.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if exclude, _ := strconv.ParseBool(q.Get("excludeMine")); exclude {
		caller := actor(r)
		if caller.UserID == "" {
			writeError(w, r, h.logger, apperror.Unauthenticated("excludeMine requires authentication"))
			return
		}
		filter.ExcludeOwner = caller.UserID
	}

	skills, err := h.catalog.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, skills)
}

// HandleListMine returns the caller's skills.
//
// HTTP: GET /api/skills/my-skills
func (h *SkillHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	skills, err := h.catalog.ListMine(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, skills)
}

// HandleGet returns one skill.
//
// HTTP: GET /api/skills/{id}
func (h *SkillHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	skill, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, skill)
}

type createSkillRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    model.Category `json:"category"`
	Level       model.Level    `json:"level"`
}

// HandleCreate lists a new skill for the caller.
//
// HTTP: POST /api/skills
// REQUEST BODY: {"name": "Python Basics", "description": "...", "category": "programming", "level": "beginner"}
func (h *SkillHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var body createSkillRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	skill, err := h.catalog.Create(r.Context(), actor(r), service.NewSkill{
		Name:        body.Name,
		Description: body.Description,
		Category:    body.Category,
		Level:       body.Level,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, skill)
}

// HandleDelete removes a skill. Owner or admin only.
//
// HTTP: DELETE /api/skills/{id}
func (h *SkillHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// intParam parses an optional non-negative integer query parameter.
func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperror.ValidationFailed(name, name+" must be a non-negative integer")
	}
	return n, nil
}
