package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/skillswap/internal/model"
)

func TestRequestHandler_Lifecycle(t *testing.T) {
	api := newTestAPI(t)
	h := NewRequestHandler(api.lifecycle, api.logger)
	ann := api.user(t, "ann", model.RoleMember)
	bob := api.user(t, "bob", model.RoleMember)
	skill := api.skill(t, ann, "Python Basics")

	// Bob asks Ann to teach him.
	rec := do(t, "/api/requests", http.MethodPost, "/api/requests", h.HandleCreate, bob, map[string]string{
		"skillId": skill.ID,
		"message": "teach me",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	req := decode[model.Request](t, rec)
	assert.Equal(t, model.StatusPending, req.Status)
	assert.Equal(t, "Python Basics", req.SkillName)
	assert.Equal(t, "bob", req.RequesterName)

	// Ann sees it as received, Bob as sent.
	rec = do(t, "/api/requests/received", http.MethodGet, "/api/requests/received", h.HandleListReceived, ann, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Request](t, rec), 1)

	rec = do(t, "/api/requests/sent", http.MethodGet, "/api/requests/sent", h.HandleListSent, bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Request](t, rec), 1)

	// Bob cannot decide his own request.
	rec = do(t, "/api/requests/{id}", http.MethodPut, "/api/requests/"+req.ID, h.HandleRespond, bob, map[string]string{"status": "accepted"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Ann accepts.
	rec = do(t, "/api/requests/{id}", http.MethodPut, "/api/requests/"+req.ID, h.HandleRespond, ann, map[string]string{"status": "accepted"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.StatusAccepted, decode[model.Request](t, rec).Status)

	// Deciding again or cancelling is an invalid transition.
	rec = do(t, "/api/requests/{id}", http.MethodPut, "/api/requests/"+req.ID, h.HandleRespond, ann, map[string]string{"status": "rejected"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decode[ErrorResponse](t, rec).Error)

	rec = do(t, "/api/requests/{id}", http.MethodDelete, "/api/requests/"+req.ID, h.HandleCancel, bob, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRequestHandler_Errors(t *testing.T) {
	api := newTestAPI(t)
	h := NewRequestHandler(api.lifecycle, api.logger)
	ann := api.user(t, "ann", model.RoleMember)
	bob := api.user(t, "bob", model.RoleMember)
	skill := api.skill(t, ann, "Python Basics")

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{"self request", map[string]string{"skillId": skill.ID}, http.StatusBadRequest},
		{"unknown skill", map[string]string{"skillId": "nope"}, http.StatusNotFound},
		{"missing skill id", map[string]string{}, http.StatusBadRequest},
		{"not json", "skillId=1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, "/api/requests", http.MethodPost, "/api/requests", h.HandleCreate, ann, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}

	rec := do(t, "/api/requests", http.MethodPost, "/api/requests", h.HandleCreate, bob, map[string]string{"skillId": skill.ID})
	require.Equal(t, http.StatusCreated, rec.Code)
	req := decode[model.Request](t, rec)

	rec = do(t, "/api/requests/{id}", http.MethodPut, "/api/requests/"+req.ID, h.HandleRespond, ann, map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, "/api/requests/{id}", http.MethodDelete, "/api/requests/"+req.ID, h.HandleCancel, ann, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, "/api/requests/{id}", http.MethodDelete, "/api/requests/"+req.ID, h.HandleCancel, bob, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, "/api/requests/{id}", http.MethodDelete, "/api/requests/"+req.ID, h.HandleCancel, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
