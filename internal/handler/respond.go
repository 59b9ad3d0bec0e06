package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/Omvpatil/RealEstate/internal/access"
	"github.com/Omvpatil/RealEstate/internal/middleware"
	"github.com/Omvpatil/RealEstate/internal/repository"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(k repository.Kind) int {
	switch k {
	case repository.KindNotFound:
		return http.StatusNotFound
	case repository.KindForbidden:
		return http.StatusForbidden
	case repository.KindConflict:
		return http.StatusConflict
	case repository.KindInvalidInput:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// fail writes err as {"error": code, "message": msg}.  Internal errors are
// logged and their detail withheld from the client.
func fail(c echo.Context, log *logrus.Entry, err error) error {
	kind := repository.KindOf(err)
	status := statusFor(kind)
	if kind == repository.KindInternal {
		log.WithError(err).WithFields(logrus.Fields{"method": c.Request().Method, "path": c.Path()}).Error("request failed")
		return c.JSON(status, echo.Map{"error": "internal", "message": "internal error"})
	}
	msg := repository.ErrNotFound.Msg
	var re *repository.Error
	if errors.As(err, &re) {
		msg = re.Msg
	}
	return c.JSON(status, echo.Map{"error": repository.CodeOf(err), "message": msg})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_input", "message": msg})
}

// actorOf returns the authenticated actor or writes 401.
func actorOf(c echo.Context) (access.Actor, error) {
	a, ok := middleware.ActorFrom(c)
	if !ok {
		return access.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
	}
	return a, nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func queryID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.QueryParam(name), 10, 64)
	return id, err == nil && id > 0
}

func queryInt(c echo.Context, name string, def int) int {
	if n, err := strconv.Atoi(c.QueryParam(name)); err == nil {
		return n
	}
	return def
}

// RequestValidator plugs go-playground/validator into Echo's c.Validate.
type RequestValidator struct {
	V *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{V: validator.New(validator.WithRequiredStructEnabled())}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.V.Struct(i)
}

// bind decodes and validates the request body into dst.  A non-nil result
// is an *echo.HTTPError for the handler to return as is.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// ErrorHandler renders *echo.HTTPError in the same {"error","message"}
// shape as fail.
func ErrorHandler(log *logrus.Entry) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if !errors.As(err, &he) {
			_ = fail(c, log, err)
			return
		}
		msg, _ := he.Message.(string)
		if msg == "" {
			msg = http.StatusText(he.Code)
		}
		code := strings.ToLower(strings.ReplaceAll(http.StatusText(he.Code), " ", "_"))
		if he.Code == http.StatusBadRequest {
			code = "invalid_input"
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(he.Code)
			return
		}
		_ = c.JSON(he.Code, echo.Map{"error": code, "message": msg})
	}
}
