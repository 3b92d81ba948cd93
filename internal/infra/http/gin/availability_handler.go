package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/auth"
	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	availabilityapp "staybook/internal/app/handlers/availability"
	reservationsapp "staybook/internal/app/handlers/reservations"
	"staybook/internal/app/queries"
	"staybook/internal/domain/shared/daterange"
)

type AvailabilityHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type placeHoldRequest struct {
	CheckIn   string `json:"check_in" binding:"required"`
	CheckOut  string `json:"check_out" binding:"required"`
	Guests    int    `json:"guests" binding:"required"`
	PromoCode string `json:"promo_code"`
}

// Calendar is public. A signed-in guest sees their own hold as open.
func (h AvailabilityHandler) Calendar(c *gin.Context) {
	if h.Queries == nil {
		h.errors().unavailable(c, "queries bus")
		return
	}
	var from time.Time
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		parsed, err := daterange.ParseDay(raw)
		if err != nil {
			h.errors().badRequest(c, err)
			return
		}
		from = parsed
	}
	query := availabilityapp.GetCalendarQuery{ListingID: strings.TrimSpace(c.Param("id")), From: from}
	if p, ok := currentPrincipal(c); ok {
		query.GuestID = p.ID
	}
	result, err := queries.Ask[availabilityapp.GetCalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Quote is public: the price and the checks a confirmation would run, taken
// before the guest pays. Guests defaults to 1.
func (h AvailabilityHandler) Quote(c *gin.Context) {
	if h.Queries == nil {
		h.errors().unavailable(c, "queries bus")
		return
	}
	checkOut := c.Query("check_out")
	if strings.TrimSpace(checkOut) == "" {
		checkOut = c.Query("check_in")
	}
	dr, err := parseRange(c.Query("check_in"), checkOut)
	if err != nil {
		h.errors().badRequest(c, err)
		return
	}
	guests := 1
	if raw := strings.TrimSpace(c.Query("guests")); raw != "" {
		if guests, err = strconv.Atoi(raw); err != nil {
			h.errors().badRequest(c, err)
			return
		}
	}
	query := reservationsapp.GetQuoteQuery{
		ListingID: strings.TrimSpace(c.Param("id")),
		CheckIn:   dr.CheckIn,
		CheckOut:  dr.CheckOut,
		Guests:    guests,
		PromoCode: strings.TrimSpace(c.Query("promo_code")),
	}
	if p, ok := currentPrincipal(c); ok {
		query.GuestID = p.ID
	}
	result, err := queries.Ask[reservationsapp.GetQuoteQuery, dto.Quote](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) PlaceHold(c *gin.Context) {
	guest, ok := requireRole(c, auth.RoleGuest)
	if !ok {
		return
	}
	if h.Commands == nil {
		h.errors().unavailable(c, "commands bus")
		return
	}
	var req placeHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errors().badRequest(c, err)
		return
	}
	dr, err := parseRange(req.CheckIn, req.CheckOut)
	if err != nil {
		h.errors().badRequest(c, err)
		return
	}
	cmd := reservationsapp.PlaceHoldCommand{
		ListingID: strings.TrimSpace(c.Param("id")),
		GuestID:   guest.ID,
		CheckIn:   dr.CheckIn,
		CheckOut:  dr.CheckOut,
		Guests:    req.Guests,
		PromoCode: strings.TrimSpace(req.PromoCode),
	}
	result, err := commands.Dispatch[reservationsapp.PlaceHoldCommand, dto.Hold](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h AvailabilityHandler) errors() errorResponder {
	return errorResponder{Logger: h.Logger, Scope: "availability"}
}

func parseRange(checkIn, checkOut string) (daterange.DateRange, error) {
	in, err := daterange.ParseDay(checkIn)
	if err != nil {
		return daterange.DateRange{}, err
	}
	out, err := daterange.ParseDay(checkOut)
	if err != nil {
		return daterange.DateRange{}, err
	}
	return daterange.DateRange{CheckIn: in, CheckOut: out}, nil
}

var _ AvailabilityHTTP = AvailabilityHandler{}
