package feed

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-vetrina/internal/common"
	"github.com/noah-isme/backend-vetrina/internal/httperr"
)

// Handler exposes the swipe feed endpoints. Every route requires auth.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Next handles GET /api/v1/feed/next.
func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	item, err := h.service.Next(r.Context(), userID)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	common.Data(w, http.StatusOK, item)
}

type swipeRequest struct {
	Like *bool `json:"like" validate:"required"`
}

// Swipe handles POST /api/v1/feed/swipe.
func (h *Handler) Swipe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req swipeRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		httperr.Write(w, err)
		return
	}
	result, err := h.service.Swipe(r.Context(), userID, *req.Like)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	common.Data(w, http.StatusOK, result)
}

// Reset handles DELETE /api/v1/feed.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.service.Reset(userID)
	common.NoContent(w)
}

func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw, _ := common.UserID(r.Context())
	id, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return uuid.Nil, false
	}
	return id, true
}
