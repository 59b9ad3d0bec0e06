package router

import (
	"github.com/labstack/echo/v4"

	"github.com/Omvpatil/RealEstate/internal/middleware"
	"github.com/Omvpatil/RealEstate/internal/model"
)

// RegisterBuilder registers builder-scoped endpoints under /v1/builder.
// Project ownership is checked per request in the service layer.
func RegisterBuilder(e *echo.Echo, d Deps) {
	g := e.Group(
		"/v1/builder",
		middleware.Authenticate(d.Gate),
		middleware.RequireRole(model.RoleBuilder),
	)

	// ---- Projects ----
	g.POST("/projects", d.Projects.Create)
	g.GET("/projects", d.Projects.ListOwn)
	g.PATCH("/projects/:id", d.Projects.Patch)
	g.DELETE("/projects/:id", d.Projects.Delete)

	// ---- Units ----
	g.POST("/projects/:id/units", d.Projects.CreateUnit)
	g.PATCH("/units/:id", d.Projects.PatchUnit)

	// ---- Bookings ----
	g.GET("/bookings/stats", d.Bookings.Stats)

	// ---- Change requests and settings ----
	g.PATCH("/change-requests/:id", d.Records.ReviewChangeRequest)
	g.PUT("/settings/:key", d.Records.PutSetting)
}
