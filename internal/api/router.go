package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/pinsync/pinsync-server/internal/api/handler"
	"github.com/pinsync/pinsync-server/internal/api/middleware"
	"github.com/pinsync/pinsync-server/internal/core/ports"
)

// Deps carries the constructed collaborators the router wires into handlers.
// Services are injected rather than built here so the HTTP surface can be
// exercised against test doubles.
type Deps struct {
	Identity   ports.IdentityService
	Approval   ports.ApprovalService
	Engagement ports.EngagementService
	Uploads    ports.UploadService

	// DB and RDB back the readiness probe only.
	DB  *mongo.Database
	RDB *redis.Client

	UploadDir string
	JWTSecret string
	Log       zerolog.Logger

	// PromRegistry overrides the default Prometheus registry. Routers built
	// side by side (tests) need separate registries to avoid duplicate
	// collector registration.
	PromRegistry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.CORS())

	registerer := prometheus.Registerer(prometheus.DefaultRegisterer)
	gatherer := prometheus.Gatherer(prometheus.DefaultGatherer)
	if d.PromRegistry != nil {
		registerer = d.PromRegistry
		gatherer = d.PromRegistry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "pinsync",
		Registerer: registerer,
	}))

	userHandler := handler.NewUserHandler(d.Identity, d.Approval)
	uploadHandler := handler.NewUploadHandler(d.Uploads, d.Engagement)
	authMiddleware := middleware.Auth(d.JWTSecret)

	// --- User routes ---
	e.POST("/users", userHandler.Register)
	e.POST("/users/login", userHandler.Login)
	e.GET("/users", userHandler.List)
	e.GET("/users/me", userHandler.Me, authMiddleware)
	e.GET("/users/username/:username", userHandler.GetByUsername)
	e.PUT("/users/:id", userHandler.UpdateLikedImages)
	e.PUT("/users/:id/approve", userHandler.Approve)
	e.DELETE("/users/:id", userHandler.Delete)

	// --- Upload routes ---
	e.POST("/uploads", uploadHandler.Create)
	e.GET("/uploads", uploadHandler.List)
	e.PUT("/uploads/:id/like", uploadHandler.ToggleLike)
	e.PUT("/uploads/:id/download", uploadHandler.RecordDownload)
	e.DELETE("/uploads/:id", uploadHandler.Delete)

	// --- Stored blobs ---
	if d.UploadDir != "" {
		e.Static("/uploads", d.UploadDir)
	}

	// --- Observability (no auth required) ---
	e.GET("/health", handler.NewHealthHandler().Liveness)
	if d.DB != nil && d.RDB != nil {
		e.GET("/health/ready", handler.NewReadinessHandler(d.DB, d.RDB).Readiness)
	}
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: gatherer,
	}))

	return e
}
