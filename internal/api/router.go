package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/taskboard/taskboard-api/docs"
	"github.com/taskboard/taskboard-api/internal/api/handler"
	"github.com/taskboard/taskboard-api/internal/api/middleware"
	"github.com/taskboard/taskboard-api/internal/core/ports"
)

const metricsSubsystem = "taskboard_http"

// Dependencies is everything the router needs to serve requests.
type Dependencies struct {
	Users     ports.UserService
	Tasks     ports.TaskService
	Readiness []handler.Dependency
	Log       zerolog.Logger
	// Registry receives the HTTP metrics. Nil uses the process-wide default.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	promMW := echoprometheus.MiddlewareConfig{Subsystem: metricsSubsystem}
	promHandler := echoprometheus.HandlerConfig{}
	if deps.Registry != nil {
		promMW.Registerer = deps.Registry
		promHandler.Gatherer = deps.Registry
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(promMW))

	// --- Operational endpoints ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Readiness...)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(promHandler))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Resources ---
	users := handler.NewUserHandler(deps.Users, deps.Log)
	tasks := handler.NewTaskHandler(deps.Tasks, deps.Log)

	g := e.Group("/api", middleware.IdempotencyKey())

	g.GET("/users", users.List)
	g.POST("/users", users.Create)
	g.GET("/users/:id", users.Get)
	g.PUT("/users/:id", users.Replace)
	g.DELETE("/users/:id", users.Delete)

	g.GET("/tasks", tasks.List)
	g.POST("/tasks", tasks.Create)
	g.GET("/tasks/:id", tasks.Get)
	g.PUT("/tasks/:id", tasks.Replace)
	g.DELETE("/tasks/:id", tasks.Delete)
	g.GET("/tasks/:id/history", tasks.History)

	return e
}
