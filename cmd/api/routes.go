package main

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"healthline-api/internal/auth"
	"healthline-api/internal/calls"
	"healthline-api/internal/config"
	"healthline-api/internal/httpapi"
	"healthline-api/internal/payments"
	"healthline-api/internal/rbac"
	"healthline-api/internal/reporting"
	"healthline-api/pkg/logger"
	"healthline-api/pkg/utils"

	"github.com/gin-gonic/gin"
)

// deps are the constructed handlers the router needs.
// Sessions and DB may be nil.
type deps struct {
	Config   config.Config
	Sessions *auth.Manager
	DB       *sql.DB

	Calls    *calls.Handler
	Payments *payments.Handler
	Reports  *reporting.Handler
	Metrics  http.Handler
}

// newRouter wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func newRouter(log *slog.Logger, d deps) *gin.Engine {
	r := gin.New()
	r.Use(httpapi.Recovery())
	r.Use(logger.Middleware(log))
	// CORS also answers OPTIONS pre-flights for every path.
	r.Use(httpapi.CORS(d.Config.App.CORSAllowedOrigins))

	// public
	r.GET("/healthz", healthz(d.DB))
	r.GET("/metrics", gin.WrapH(d.Metrics))

	session := auth.OptionalSession(d.Sessions)

	// Function-style paths kept for existing web clients.
	fn := r.Group("/functions/v1")
	{
		fn.POST("/vapi-call", session, d.Calls.Start)
		fn.POST("/verify-paystack", d.Payments.Verify)
	}

	v1 := r.Group("/v1")
	{
		v1.POST("/calls/emergency", session, d.Calls.Start)
		v1.POST("/payments/verify", d.Payments.Verify)
	}

	// protected
	authed := v1.Group("")
	authed.Use(auth.RequireSession(d.Sessions))
	{
		authed.GET("/me", httpapi.Me)

		admin := authed.Group("/admin")
		admin.Use(rbac.RequireAdmin(d.Config.Auth.AdminEmails))
		{
			admin.GET("/emergency-calls", d.Reports.List)
			admin.GET("/emergency-calls/summary", d.Reports.Summary)
		}
	}
	return r
}

func healthz(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
				logger.FromGin(c).Warn("health check failed", "err", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": "unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

