package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Omvpatil/RealEstate/internal/access"
	"github.com/Omvpatil/RealEstate/internal/repository"
)

// Context keys set by Authenticate.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
	ctxActor  = "actor"
)

// Authenticate returns an Echo middleware that validates a Bearer access
// token through the gate, resolves the caller's role profile and stores
// the resulting access.Actor in the request context.  Handlers read it
// with ActorFrom.
func Authenticate(gate *access.Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			p, err := gate.Authenticate(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			actor, err := gate.Resolve(c.Request().Context(), p)
			if err != nil {
				if repository.KindOf(err) == repository.KindForbidden {
					return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}

			c.Set(ctxUserID, actor.UserID)
			c.Set(ctxRole, string(actor.Role))
			c.Set(ctxActor, actor)
			return next(c)
		}
	}
}

// ActorFrom returns the actor stored by Authenticate.
func ActorFrom(c echo.Context) (access.Actor, bool) {
	a, ok := c.Get(ctxActor).(access.Actor)
	return a, ok
}
