package handlers

import (
	"errors"
	"net/http"

	"rental-market/internal/models"
)

// statusForError maps engine errors to HTTP status codes. Precondition and
// one-shot violations are client errors; anything else is a 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrMarketNotOpen),
		errors.Is(err, models.ErrPriceTooLow),
		errors.Is(err, models.ErrZeroAmount),
		errors.Is(err, models.ErrNotWithdrawable):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrTooEarly):
		return http.StatusTooEarly
	case errors.Is(err, models.ErrAlreadyResolved),
		errors.Is(err, models.ErrAlreadyPaid),
		errors.Is(err, models.ErrAlreadyWithdrawn),
		errors.Is(err, models.ErrAlreadyClaimed):
		return http.StatusConflict
	case errors.Is(err, models.ErrNotAWinner),
		errors.Is(err, models.ErrNotLongestOwner),
		errors.Is(err, models.ErrPaidNoRent):
		return http.StatusForbidden
	case errors.Is(err, models.ErrInsufficientBalance),
		errors.Is(err, models.ErrInsufficientPot):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}
