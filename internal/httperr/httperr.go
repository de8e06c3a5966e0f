// Package httperr translates pricing and ranking errors into API errors.
package httperr

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-vetrina/internal/common"
	"github.com/noah-isme/backend-vetrina/internal/db"
	"github.com/noah-isme/backend-vetrina/internal/discount"
	"github.com/noah-isme/backend-vetrina/internal/money"
	"github.com/noah-isme/backend-vetrina/internal/ranking"
)

// From maps err onto its AppError. Errors it does not know are left to
// common.ToAppError.
func From(err error) *common.AppError {
	switch {
	case err == nil:
		return nil
	case common.IsAppError(err):
		return common.ToAppError(err)
	case errors.Is(err, ranking.ErrFeedEmpty):
		return common.NewAppError("FEED_EMPTY", "no more items to show", http.StatusNotFound, err)
	case errors.Is(err, discount.ErrValidation):
		return &common.AppError{Code: "VALIDATION_FAILED", Message: "invalid discount", HTTPStatus: http.StatusUnprocessableEntity, Err: err, Details: err.Error()}
	case errors.Is(err, db.ErrCheckViolation):
		return common.NewAppError("VALIDATION_FAILED", "value rejected by storage constraints", http.StatusUnprocessableEntity, err)
	case errors.Is(err, money.ErrCurrencyMismatch):
		return common.NewAppError("CURRENCY_MISMATCH", "currency mismatch", http.StatusConflict, err)
	case errors.Is(err, money.ErrNegativeAmount), errors.Is(err, money.ErrUnknownCurrency):
		return common.NewAppError("INVALID_PRICE", "item price is invalid", http.StatusUnprocessableEntity, err)
	case errors.Is(err, db.ErrDuplicate):
		return common.NewAppError("CONFLICT", "already recorded", http.StatusConflict, err)
	case errors.Is(err, pgx.ErrNoRows):
		return common.NewAppError("NOT_FOUND", "resource not found", http.StatusNotFound, err)
	default:
		return common.ToAppError(err)
	}
}

// Write renders err with the canonical error shape.
func Write(w http.ResponseWriter, err error) {
	if appErr := From(err); appErr != nil {
		common.WriteError(w, appErr)
	}
}
