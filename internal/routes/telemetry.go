package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/edumeet/errwatch-backend/internal/handler"
	"github.com/edumeet/errwatch-backend/internal/middleware"
	"github.com/edumeet/errwatch-backend/pkg/jwt"
)

// SetupTelemetry configures the error telemetry routes. Ingest is open so
// instrumented pages can report before login; query and resolve require the
// monitoring capability.
func SetupTelemetry(
	router *gin.Engine,
	h *handler.TelemetryHandler,
	jwtManager *jwt.Manager,
	authz middleware.MonitoringAuthorizer,
) {
	api := router.Group("/api/v2/telemetry")
	api.POST("/errors", h.IngestError)

	gate := api.Group("", middleware.JWTAuth(jwtManager), middleware.RequireMonitoring(authz))
	gate.GET("/errors", h.ListErrors)
	gate.PATCH("/errors", h.ResolveError)
}
