package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/auth"
	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	reservationsapp "staybook/internal/app/handlers/reservations"
	"staybook/internal/app/queries"
)

type ReservationHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type captureRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type confirmReservationRequest struct {
	ListingID  string         `json:"listing_id" binding:"required"`
	CheckIn    string         `json:"check_in" binding:"required"`
	CheckOut   string         `json:"check_out" binding:"required"`
	Guests     int            `json:"guests"`
	PromoCode  string         `json:"promo_code"`
	GuestName  string         `json:"guest_name"`
	GuestEmail string         `json:"guest_email"`
	Capture    captureRequest `json:"capture"`
}

type cancellationRequest struct {
	Reason string `json:"reason"`
}

// Confirm is the capture callback. Retrying it with the same capture id
// returns the reservation created by the first call.
func (h ReservationHandler) Confirm(c *gin.Context) {
	guest, ok := requireRole(c, auth.RoleGuest)
	if !ok {
		return
	}
	if h.Commands == nil {
		h.errors().unavailable(c, "commands bus")
		return
	}
	var req confirmReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errors().badRequest(c, err)
		return
	}
	dr, err := parseRange(req.CheckIn, req.CheckOut)
	if err != nil {
		h.errors().badRequest(c, err)
		return
	}
	cmd := reservationsapp.ConfirmPaymentCommand{
		ListingID:  strings.TrimSpace(req.ListingID),
		GuestID:    guest.ID,
		GuestName:  firstNonEmpty(req.GuestName, guest.Name),
		GuestEmail: firstNonEmpty(req.GuestEmail, guest.Email),
		CheckIn:    dr.CheckIn,
		CheckOut:   dr.CheckOut,
		Guests:     req.Guests,
		PromoCode:  strings.TrimSpace(req.PromoCode),
		Capture: reservationsapp.Capture{
			ID:     strings.TrimSpace(req.Capture.ID),
			Status: strings.TrimSpace(req.Capture.Status),
		},
	}
	result, err := commands.Dispatch[reservationsapp.ConfirmPaymentCommand, dto.Reservation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ReservationHandler) ListMine(c *gin.Context) {
	guest, ok := requireRole(c, auth.RoleGuest)
	if !ok {
		return
	}
	if h.Queries == nil {
		h.errors().unavailable(c, "queries bus")
		return
	}
	query := reservationsapp.ListGuestReservationsQuery{GuestID: guest.ID}
	result, err := queries.Ask[reservationsapp.ListGuestReservationsQuery, dto.ReservationCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) RequestCancellation(c *gin.Context) {
	guest, ok := requireRole(c, auth.RoleGuest)
	if !ok {
		return
	}
	if h.Commands == nil {
		h.errors().unavailable(c, "commands bus")
		return
	}
	var req cancellationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.errors().badRequest(c, err)
			return
		}
	}
	cmd := reservationsapp.RequestCancellationCommand{
		ReservationID: strings.TrimSpace(c.Param("id")),
		GuestID:       guest.ID,
		Reason:        strings.TrimSpace(req.Reason),
	}
	result, err := commands.Dispatch[reservationsapp.RequestCancellationCommand, dto.Reservation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) errors() errorResponder {
	return errorResponder{Logger: h.Logger, Scope: "reservation"}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

var _ ReservationHTTP = ReservationHandler{}
