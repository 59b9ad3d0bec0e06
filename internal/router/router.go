// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/Omvpatil/RealEstate/internal/access"
	"github.com/Omvpatil/RealEstate/internal/config"
	"github.com/Omvpatil/RealEstate/internal/handler"
	"github.com/Omvpatil/RealEstate/internal/middleware"
	"github.com/Omvpatil/RealEstate/internal/model"
)

// Deps is everything the HTTP surface needs.  Redis and Metrics may be nil.
type Deps struct {
	Auth     *handler.AuthHandler
	Projects *handler.ProjectHandler
	Bookings *handler.BookingHandler
	Records  *handler.RecordHandler

	Gate         *access.Gate
	DB           *sql.DB
	Redis        *redis.Client
	RateLimit    config.RateLimitConfig
	Cache        config.CacheConfig
	CORSOrigins  []string
	Metrics      http.Handler
	MetricsRoute string
	Log          *logrus.Entry
}

// New builds the Echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(d.Log)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echo.WrapMiddleware(cors.New(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler))
	e.Use(requestLogger(d.Log))

	RegisterRoutes(e, d)
	RegisterAuth(e, d)
	RegisterPublic(e, d)
	RegisterShared(e, d)
	RegisterCustomer(e, d)
	RegisterBuilder(e, d)
	return e
}

// requestLogger logs one line per request.
func requestLogger(log *logrus.Entry) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"request_id": v.RequestID,
			}).Info("request")
			return nil
		},
	})
}

// RegisterRoutes registers health and metrics endpoints.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	if d.DB != nil {
		e.GET("/readyz", handler.Ready(d.DB))
	}
	if d.Metrics != nil && d.MetricsRoute != "" {
		e.GET(d.MetricsRoute, echo.WrapHandler(d.Metrics))
	}
}

// RegisterAuth registers account endpoints under /v1/auth and /v1/me.
func RegisterAuth(e *echo.Echo, d Deps) {
	g := e.Group("/v1/auth")
	g.POST("/register", d.Auth.Register)
	g.POST("/login", d.Auth.Login)

	e.GET("/v1/me", d.Auth.Me, middleware.Authenticate(d.Gate))
}

// RegisterPublic registers unauthenticated browse endpoints.  Responses are
// cached in Redis when it is available.
func RegisterPublic(e *echo.Echo, d Deps) {
	cache := middleware.NewRedisCache(d.Cache, d.Redis)
	e.GET("/v1/projects", d.Projects.List, cache)
	e.GET("/v1/projects/:id", d.Projects.Get, cache)
	e.GET("/v1/projects/:id/units", d.Projects.Units, cache)
	e.GET("/v1/settings", d.Records.ListSettings, cache)
	e.GET("/v1/settings/:key", d.Records.GetSetting, cache)
}

// RegisterShared registers endpoints open to both builders and customers.
// Ownership is checked in the service layer.
func RegisterShared(e *echo.Echo, d Deps) {
	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log)
	g := e.Group(
		"/v1",
		middleware.Authenticate(d.Gate),
		middleware.RequireRole(model.RoleBuilder, model.RoleCustomer),
	)
	g.GET("/bookings", d.Bookings.List)
	g.GET("/bookings/:id", d.Bookings.Get)
	g.POST("/bookings/:id/cancel", d.Bookings.Cancel, limit)
	g.POST("/bookings/:id/payments", d.Bookings.RecordPayment, limit)
	g.GET("/bookings/:id/payments", d.Bookings.PaymentSummary)
	g.GET("/bookings/:id/change-requests", d.Records.ListChangeRequests)

	g.GET("/appointments", d.Records.ListAppointments)
	g.PATCH("/appointments/:id", d.Records.UpdateAppointment)

	g.POST("/messages", d.Records.SendMessage)
	g.GET("/messages", d.Records.ListMessages)
	g.POST("/messages/:id/read", d.Records.ReadMessage)

	g.GET("/notifications", d.Records.ListNotifications)
	g.POST("/notifications/:id/read", d.Records.ReadNotification)
}
