package pricing

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-vetrina/internal/common"
	"github.com/noah-isme/backend-vetrina/internal/httperr"
)

// Handler exposes pricing endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Price handles GET /api/v1/items/{itemID}/price.
func (h *Handler) Price(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathUUID(w, r, "itemID")
	if !ok {
		return
	}
	label, err := h.service.Quote(r.Context(), itemID)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	common.Data(w, http.StatusOK, label)
}

type createDiscountRequest struct {
	Percentage *decimal.Decimal `json:"percentage" validate:"required"`
	ItemID     *uuid.UUID       `json:"item_id"`
	StartDate  *time.Time       `json:"start_date" validate:"required"`
	EndDate    *time.Time       `json:"end_date" validate:"required"`
}

// CreateDiscount handles POST /api/v1/stores/{storeID}/discounts.
func (h *Handler) CreateDiscount(w http.ResponseWriter, r *http.Request) {
	storeID, ok := pathUUID(w, r, "storeID")
	if !ok {
		return
	}
	rawUser, _ := common.UserID(r.Context())
	ownerID, err := uuid.Parse(rawUser)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}

	var req createDiscountRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		httperr.Write(w, err)
		return
	}
	view, err := h.service.CreateDiscount(r.Context(), ownerID, storeID, CreateDiscountInput{
		Percentage: *req.Percentage,
		ItemID:     req.ItemID,
		StartDate:  *req.StartDate,
		EndDate:    *req.EndDate,
	})
	if err != nil {
		httperr.Write(w, err)
		return
	}
	common.Data(w, http.StatusCreated, view)
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid "+param, nil)
		return uuid.Nil, false
	}
	return id, true
}
