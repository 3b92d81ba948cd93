package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/auth"
	availabilityapp "staybook/internal/app/handlers/availability"
	listingsapp "staybook/internal/app/handlers/listings"
	reservationsapp "staybook/internal/app/handlers/reservations"
	rewardsapp "staybook/internal/app/handlers/rewards"
	walletapp "staybook/internal/app/handlers/wallet"
	"staybook/internal/app/policies"
	"staybook/internal/app/uow"
	"staybook/internal/domain/availability"
	"staybook/internal/domain/listings"
	"staybook/internal/domain/reservation"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
	"staybook/internal/domain/wallet"
)

var notFoundErrors = []error{
	listings.ErrNotFound,
	listings.ErrNotOwner,
	reservation.ErrNotFound,
	reservation.ErrNotGuest,
	reservation.ErrNotHost,
	reservation.ErrHoldNotFound,
	wallet.ErrCashoutNotFound,
}

var conflictErrors = []error{
	reservationsapp.ErrDatesUnavailable,
	availability.ErrOverlappingRange,
	uow.ErrConcurrentUpdate,
	reservation.ErrInvalidTransition,
	reservation.ErrActorNotAllowed,
	reservation.ErrNotCheckedOut,
	listings.ErrListingNotBookable,
	listings.ErrInvalidState,
	wallet.ErrCashoutResolved,
	wallet.ErrDuplicateEntry,
	wallet.ErrInsufficientBalance,
}

var validationErrors = []error{
	reservationsapp.ErrCaptureMissing,
	reservationsapp.ErrCheckInPast,
	reservationsapp.ErrCheckInRequired,
	reservationsapp.ErrGuestsLimit,
	reservationsapp.ErrInvalidGuests,
	reservationsapp.ErrIdentityRequired,
	reservationsapp.ErrReservationRequired,
	reservationsapp.ErrListingRequired,
	reservationsapp.ErrInvalidStatusFilter,
	availabilityapp.ErrListingIDRequired,
	listingsapp.ErrListingRequired,
	listingsapp.ErrHostRequired,
	walletapp.ErrHostRequired,
	walletapp.ErrCashoutRequired,
	walletapp.ErrAdminRequired,
	rewardsapp.ErrHostRequired,
	daterange.ErrInvalidDay,
	daterange.ErrInvalidRange,
	listings.ErrDateShape,
	listings.ErrPromoCodeMismatch,
	reservation.ErrInvalidGuests,
	wallet.ErrInvalidAmount,
	wallet.ErrPayoutEmail,
	money.ErrCurrencyMismatch,
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// statusFor maps an application error to its HTTP status. A wrapped
// unreconciled capture keeps the status of its cause.
func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, reservationsapp.ErrCaptureNotAccepted),
		errors.Is(err, policies.ErrCaptureNotFound):
		return http.StatusPaymentRequired
	case matchesAny(err, notFoundErrors):
		return http.StatusNotFound
	case matchesAny(err, conflictErrors):
		return http.StatusConflict
	case matchesAny(err, validationErrors):
		return http.StatusBadRequest
	case errors.Is(err, reservationsapp.ErrHoldsDisabled),
		errors.Is(err, rewardsapp.ErrStoreDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorResponder struct {
	Logger *slog.Logger
	Scope  string
}

func (r errorResponder) handleError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	if errors.Is(err, reservationsapp.ErrCaptureUnreconciled) {
		body["capture_unreconciled"] = true
	}
	if r.Logger != nil {
		fields := []any{"status", status, "error", err, "path", c.FullPath()}
		if p, ok := currentPrincipal(c); ok {
			fields = append(fields, "principal_id", p.ID)
		}
		if status >= http.StatusInternalServerError || body["capture_unreconciled"] != nil {
			r.Logger.Error(r.Scope+" request failed", fields...)
		} else {
			r.Logger.Warn(r.Scope+" request rejected", fields...)
		}
	}
	c.JSON(status, body)
}

func (r errorResponder) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (r errorResponder) unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": what + " unavailable"})
}
