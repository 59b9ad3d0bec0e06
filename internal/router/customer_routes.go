package router

import (
	"github.com/labstack/echo/v4"

	"github.com/Omvpatil/RealEstate/internal/middleware"
	"github.com/Omvpatil/RealEstate/internal/model"
)

// RegisterCustomer registers customer-scoped endpoints under /v1/customer.
// Booking creation is rate limited.
func RegisterCustomer(e *echo.Echo, d Deps) {
	g := e.Group(
		"/v1/customer",
		middleware.Authenticate(d.Gate),
		middleware.RequireRole(model.RoleCustomer),
	)
	g.POST("/bookings", d.Bookings.Create, middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log))
	g.POST("/bookings/:id/change-requests", d.Records.SubmitChangeRequest)
	g.POST("/appointments", d.Records.BookAppointment)
}
