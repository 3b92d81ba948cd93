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
	reservationsapp "staybook/internal/app/handlers/reservations"
	walletapp "staybook/internal/app/handlers/wallet"
)

type AdminHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

type reconcileRequest struct {
	Now *time.Time `json:"now"`
}

func (h AdminHandler) ApproveCashout(c *gin.Context) {
	h.resolveCashout(c, true)
}

func (h AdminHandler) DeclineCashout(c *gin.Context) {
	h.resolveCashout(c, false)
}

func (h AdminHandler) resolveCashout(c *gin.Context, approve bool) {
	admin, ok := requireRole(c, auth.RoleAdmin)
	if !ok {
		return
	}
	if h.Commands == nil {
		h.errors().unavailable(c, "commands bus")
		return
	}
	cmd := walletapp.ResolveCashoutCommand{
		CashoutID: strings.TrimSpace(c.Param("id")),
		AdminID:   admin.ID,
		Approve:   approve,
	}
	result, err := commands.Dispatch[walletapp.ResolveCashoutCommand, dto.Cashout](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Reconcile runs the expiry pass on demand. An optional "now" in the body
// replaces the server clock.
func (h AdminHandler) Reconcile(c *gin.Context) {
	if _, ok := requireRole(c, auth.RoleAdmin); !ok {
		return
	}
	if h.Commands == nil {
		h.errors().unavailable(c, "commands bus")
		return
	}
	var req reconcileRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.errors().badRequest(c, err)
			return
		}
	}
	var cmd reservationsapp.ReconcileExpiredCommand
	if req.Now != nil {
		cmd.Now = req.Now.UTC()
	}
	result, err := commands.Dispatch[reservationsapp.ReconcileExpiredCommand, dto.ReconcileResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.errors().handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) errors() errorResponder {
	return errorResponder{Logger: h.Logger, Scope: "admin"}
}

var _ AdminHTTP = AdminHandler{}
