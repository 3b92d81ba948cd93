package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"staybook/internal/infra/config"
	"staybook/internal/infra/obs"
)

type AvailabilityHTTP interface {
	Calendar(c *gin.Context)
	Quote(c *gin.Context)
	PlaceHold(c *gin.Context)
}

type ReservationHTTP interface {
	Confirm(c *gin.Context)
	ListMine(c *gin.Context)
	RequestCancellation(c *gin.Context)
}

type HostHTTP interface {
	Reservations(c *gin.Context)
	ApproveCancellation(c *gin.Context)
	DeclineCancellation(c *gin.Context)
	Wallet(c *gin.Context)
	RequestCashout(c *gin.Context)
	Rewards(c *gin.Context)
	SetBlockedDates(c *gin.Context)
	SetListingStatus(c *gin.Context)
}

type AdminHTTP interface {
	ApproveCashout(c *gin.Context)
	DeclineCashout(c *gin.Context)
	Reconcile(c *gin.Context)
}

type Handlers struct {
	Availability   AvailabilityHTTP
	Reservation    ReservationHTTP
	Host           HostHTTP
	Admin          AdminHTTP
	AuthMiddleware gin.HandlerFunc
	// RateLimit guards the booking endpoints only.
	RateLimit gin.HandlerFunc
	Metrics   http.Handler
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics))
	}

	limited := []gin.HandlerFunc{}
	if h.RateLimit != nil {
		limited = append(limited, h.RateLimit)
	}

	api := router.Group("/api/v1")
	if h.Availability != nil {
		api.GET("/listings/:id/availability", h.Availability.Calendar)
		api.GET("/listings/:id/quote", h.Availability.Quote)
		api.POST("/listings/:id/holds", append(limited, h.Availability.PlaceHold)...)
	}
	if h.Reservation != nil {
		api.POST("/reservations", append(limited, h.Reservation.Confirm)...)
		api.POST("/reservations/:id/cancellation-request", h.Reservation.RequestCancellation)
		api.GET("/me/reservations", h.Reservation.ListMine)
	}
	if h.Host != nil {
		hostGroup := api.Group("/host")
		hostGroup.GET("/reservations", h.Host.Reservations)
		hostGroup.POST("/reservations/:id/cancellation/approve", h.Host.ApproveCancellation)
		hostGroup.POST("/reservations/:id/cancellation/decline", h.Host.DeclineCancellation)
		hostGroup.GET("/wallet", h.Host.Wallet)
		hostGroup.POST("/cashouts", h.Host.RequestCashout)
		hostGroup.GET("/rewards", h.Host.Rewards)
		hostGroup.PUT("/listings/:id/blocked-dates", h.Host.SetBlockedDates)
		hostGroup.PUT("/listings/:id/status", h.Host.SetListingStatus)
	}
	if h.Admin != nil {
		adminGroup := api.Group("/admin")
		adminGroup.POST("/cashouts/:id/approve", h.Admin.ApproveCashout)
		adminGroup.POST("/cashouts/:id/decline", h.Admin.DeclineCashout)
		adminGroup.POST("/reservations/reconcile", h.Admin.Reconcile)
	}
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			obs.RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
