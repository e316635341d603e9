package http

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fourseasons/crowdfunding-api/internal/infrastructure/http/handlers"
)

// RegisterProbes mounts the liveness and readiness probes on e. They sit outside
// the /api group and need no authentication.
func RegisterProbes(e *echo.Echo, checks map[string]handlers.Check, log zerolog.Logger) {
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(checks, log)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
}
