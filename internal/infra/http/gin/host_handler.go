package ginserver

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/auth"
	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	listingsapp "staybook/internal/app/handlers/listings"
	reservationsapp "staybook/internal/app/handlers/reservations"
	rewardsapp "staybook/internal/app/handlers/rewards"
	walletapp "staybook/internal/app/handlers/wallet"
	"staybook/internal/app/queries"
	"staybook/internal/domain/shared/daterange"
)

type HostHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type cashoutRequest struct {
	Amount      int64  `json:"amount" binding:"required"`
	PayoutEmail string `json:"payout_email" binding:"required"`
}

type blockedDatesRequest struct {
	Dates []string `json:"dates"`
}

type listingStatusRequest struct {
	Active bool `json:"active"`
}

func (h HostHandler) Reservations(c *gin.Context) {
	host, ok := requireRole(c, auth.RoleHost)
	if !ok {
		return
	}
	if h.Queries == nil {
		h.errors().unavailable(c, "queries bus")
		return
	}
	query := reservationsapp.ListHostReservationsQuery{
		HostID: host.ID,
		Status: strings.TrimSpace(c.Query("status")),
	}
	result, err := queries.Ask[reservationsapp.ListHostReservationsQuery, dto.ReservationCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostHandler) ApproveCancellation(c *gin.Context) {
	h.resolveCancellation(c, true)
}

func (h HostHandler) DeclineCancellation(c *gin.Context) {
	h.resolveCancellation(c, false)
}

func (h HostHandler) resolveCancellation(c *gin.Context, approve bool) {
	host, ok := requireRole(c, auth.RoleHost)
	if !ok {
		return
	}
	if h.Commands == nil {
		h.errors().unavailable(c, "commands bus")
		return
	}
	cmd := reservationsapp.ResolveCancellationCommand{
		ReservationID: strings.TrimSpace(c.Param("id")),
		HostID:        host.ID,
		Approve:       approve,
	}
	result, err := commands.Dispatch[reservationsapp.ResolveCancellationCommand, dto.Reservation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostHandler) Wallet(c *gin.Context) {
	host, ok := requireRole(c, auth.RoleHost)
	if !ok {
		return
	}
	if h.Queries == nil {
		h.errors().unavailable(c, "queries bus")
		return
	}
	result, err := queries.Ask[walletapp.GetWalletQuery, dto.Wallet](c.Request.Context(), h.Queries, walletapp.GetWalletQuery{HostID: host.ID})
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostHandler) RequestCashout(c *gin.Context) {
	host, ok := requireRole(c, auth.RoleHost)
	if !ok {
		return
	}
	if h.Commands == nil {
		h.errors().unavailable(c, "commands bus")
		return
	}
	var req cashoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errors().badRequest(c, err)
		return
	}
	cmd := walletapp.RequestCashoutCommand{
		HostID:      host.ID,
		Amount:      req.Amount,
		PayoutEmail: strings.TrimSpace(req.PayoutEmail),
	}
	result, err := commands.Dispatch[walletapp.RequestCashoutCommand, dto.Cashout](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h HostHandler) Rewards(c *gin.Context) {
	host, ok := requireRole(c, auth.RoleHost)
	if !ok {
		return
	}
	if h.Queries == nil {
		h.errors().unavailable(c, "queries bus")
		return
	}
	result, err := queries.Ask[rewardsapp.GetStandingQuery, dto.Standing](c.Request.Context(), h.Queries, rewardsapp.GetStandingQuery{HostID: host.ID})
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostHandler) errors() errorResponder {
	return errorResponder{Logger: h.Logger, Scope: "host"}
}

// SetBlockedDates replaces the listing's closed days; an empty list reopens
// every day the host had closed.
func (h HostHandler) SetBlockedDates(c *gin.Context) {
	host, ok := requireRole(c, auth.RoleHost)
	if !ok {
		return
	}
	if h.Commands == nil {
		h.errors().unavailable(c, "commands bus")
		return
	}
	var req blockedDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errors().badRequest(c, err)
		return
	}
	dates := make([]time.Time, 0, len(req.Dates))
	for _, raw := range req.Dates {
		d, err := daterange.ParseDay(raw)
		if err != nil {
			h.errors().badRequest(c, err)
			return
		}
		dates = append(dates, d)
	}
	cmd := listingsapp.SetBlockedDatesCommand{
		ListingID: strings.TrimSpace(c.Param("id")),
		HostID:    host.ID,
		Dates:     dates,
	}
	result, err := commands.Dispatch[listingsapp.SetBlockedDatesCommand, dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostHandler) SetListingStatus(c *gin.Context) {
	host, ok := requireRole(c, auth.RoleHost)
	if !ok {
		return
	}
	if h.Commands == nil {
		h.errors().unavailable(c, "commands bus")
		return
	}
	var req listingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errors().badRequest(c, err)
		return
	}
	cmd := listingsapp.SetStatusCommand{
		ListingID: strings.TrimSpace(c.Param("id")),
		HostID:    host.ID,
		Active:    req.Active,
	}
	result, err := commands.Dispatch[listingsapp.SetStatusCommand, dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ HostHTTP = HostHandler{}
