package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/insights/issue-tracker/docs"
	"github.com/insights/issue-tracker/internal/api/handler"
	"github.com/insights/issue-tracker/internal/api/middleware"
	"github.com/insights/issue-tracker/internal/core/policy"
	"github.com/insights/issue-tracker/internal/core/ports"
	"github.com/insights/issue-tracker/internal/infrastructure/http/handlers"
)

// Dependencies are the services the HTTP layer is wired to.
type Dependencies struct {
	Auth      ports.AuthService
	Users     ports.UserService
	Issues    ports.IssueService
	Dashboard ports.DashboardService
	Live      ports.LiveFeed

	// Health lists the backing services probed by /health/ready.
	Health []handlers.Dependency

	// AllowedOrigins restricts CORS and WebSocket origins; empty allows
	// same-origin WebSocket upgrades and any CORS origin.
	AllowedOrigins []string

	Log zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: corsOrigins(deps.AllowedOrigins),
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))
	e.Use(echoprometheus.NewMiddleware("tracker"))

	// --- Operational endpoints (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.Health...)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	authHandler := handler.NewAuthHandler(deps.Auth)
	userHandler := handler.NewUserHandler(deps.Users)
	issueHandler := handler.NewIssueHandler(deps.Issues)
	dashboardHandler := handler.NewDashboardHandler(deps.Dashboard)
	liveHandler := handler.NewLiveHandler(deps.Live, deps.AllowedOrigins, deps.Log)

	authenticated := middleware.Auth(deps.Auth)

	v1 := e.Group("/api/v1")
	v1.POST("/token", authHandler.Token)
	v1.POST("/users", userHandler.Register)

	users := v1.Group("/users", authenticated)
	users.GET("/me", userHandler.Me)
	users.GET("", userHandler.List, middleware.Require(policy.ListUsers))
	users.GET("/:id", userHandler.Get)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	issues := v1.Group("/issues", authenticated)
	issues.POST("", issueHandler.Create)
	issues.GET("", issueHandler.List)
	issues.GET("/:id", issueHandler.Get)
	issues.PUT("/:id", issueHandler.Update)
	issues.PATCH("/:id", issueHandler.Update)
	issues.DELETE("/:id", issueHandler.Delete)

	dashboard := v1.Group("/dashboard", authenticated, middleware.Require(policy.ViewDashboard))
	dashboard.GET("/status_counts", dashboardHandler.StatusCounts)
	dashboard.GET("/snapshots", dashboardHandler.Snapshots)

	e.GET("/ws/issues", liveHandler.Stream, middleware.Auth(deps.Auth, middleware.AllowQueryToken()))

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Status >= http.StatusInternalServerError {
				event = log.Error().Err(v.Error)
			}
			event.
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

func corsOrigins(allowed []string) []string {
	if len(allowed) == 0 {
		return []string{"*"}
	}
	return allowed
}
