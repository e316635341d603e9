package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	"github.com/fourseasons/crowdfunding-api/internal/api/handler"
	"github.com/fourseasons/crowdfunding-api/internal/api/middleware"
	"github.com/fourseasons/crowdfunding-api/internal/core/ports"
	"github.com/fourseasons/crowdfunding-api/internal/core/rbac"
	infrahttp "github.com/fourseasons/crowdfunding-api/internal/infrastructure/http"
	"github.com/fourseasons/crowdfunding-api/internal/infrastructure/http/handlers"
)

// Deps carries everything the router needs to mount the API.
type Deps struct {
	AuthService    ports.AuthService
	ProjectService ports.ProjectService
	AccountService ports.AccountService

	Tokens   middleware.TokenValidator
	Accounts middleware.AccountFinder
	Enforcer *rbac.Enforcer

	// Checks are the readiness probes, keyed by dependency name.
	Checks map[string]handlers.Check
	// Registerer receives the HTTP request metrics. Defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer

	// AuthRateLimit caps requests per second per client IP on /api/auth. Zero disables it.
	AuthRateLimit rate.Limit
	AuthRateBurst int

	Log zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	if d.Enforcer == nil {
		d.Enforcer = rbac.NewEnforcer(nil)
	}
	if d.Registerer == nil {
		d.Registerer = prometheus.DefaultRegisterer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "crowdfunding",
		Registerer: d.Registerer,
		Skipper:    skipOperational,
	}))

	// --- Operational endpoints (no auth required) ---
	infrahttp.RegisterProbes(e, d.Checks, d.Log)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	authHandler := handler.NewAuthHandler(d.AuthService)
	projectHandler := handler.NewProjectHandler(d.ProjectService)
	accountHandler := handler.NewAccountHandler(d.AccountService)

	authenticated := middleware.RequireAuthenticated()
	can := func(perm rbac.Permission) echo.MiddlewareFunc {
		return middleware.RBAC(d.Enforcer, perm)
	}

	api := e.Group("/api", middleware.Authenticate(d.Tokens, d.Accounts, d.Log))

	// --- Auth ---
	auth := api.Group("/auth")
	if d.AuthRateLimit > 0 {
		auth.Use(authRateLimiter(d.AuthRateLimit, d.AuthRateBurst))
	}
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout)

	// --- Projects ---
	// Routes on a single project are checked by the service after the project is
	// loaded, so a missing project is a 404 for every caller.
	projects := api.Group("/projects")
	projects.GET("/public", projectHandler.ListPublic)
	projects.GET("/my", projectHandler.ListMine, can(rbac.ProjectListOwn))
	projects.GET("/admin", projectHandler.ListAll, can(rbac.ProjectListAll))
	projects.POST("", projectHandler.Create, can(rbac.ProjectCreate))
	projects.GET("/:id", projectHandler.Get)
	projects.PUT("/:id", projectHandler.Update)
	projects.DELETE("/:id", projectHandler.Delete)
	projects.POST("/:id/submit", projectHandler.Submit)
	projects.PATCH("/:id/status", projectHandler.UpdateStatus)

	// --- Accounts ---
	users := api.Group("/users", authenticated)
	users.GET("/me", accountHandler.Me)
	users.GET("/:id", accountHandler.Get)
	users.POST("/:id/lock", accountHandler.Lock, can(rbac.AccountManage))
	users.POST("/:id/unlock", accountHandler.Unlock, can(rbac.AccountManage))
	users.PATCH("/:id/role", accountHandler.ChangeRole, can(rbac.AccountManage))

	return e
}

// authRateLimiter throttles credential endpoints per client IP.
func authRateLimiter(limit rate.Limit, burst int) echo.MiddlewareFunc {
	if burst <= 0 {
		burst = 1
	}
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
			Rate:      limit,
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
		},
	})
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		Skipper:      skipOperational,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil || v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}

func skipOperational(c echo.Context) bool {
	p := c.Path()
	return p == "/metrics" || strings.HasPrefix(p, "/health") || strings.HasPrefix(p, "/swagger")
}
