package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/Omvpatil/RealEstate/internal/access"
	"github.com/Omvpatil/RealEstate/internal/model"
	"github.com/Omvpatil/RealEstate/internal/repository"
	"github.com/Omvpatil/RealEstate/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Gate       *access.Gate
	Users      *repository.UserRepo
	BcryptCost int
	Log        *logrus.Entry
}

func NewAuthHandler(gate *access.Gate, u *repository.UserRepo, bcryptCost int, log *logrus.Entry) *AuthHandler {
	return &AuthHandler{Gate: gate, Users: u, BcryptCost: bcryptCost, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=builder customer"`
	Phone    string `json:"phone" validate:"required,max=20"`

	CompanyName   string `json:"company_name" validate:"required_if=Role builder,max=255"`
	LicenseNumber string `json:"license_number" validate:"required_if=Role builder,max=100"`
	FirstName     string `json:"first_name" validate:"required_if=Role customer,max=100"`
	LastName      string `json:"last_name" validate:"required_if=Role customer,max=100"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User    model.User `json:"user"`
	Profile any        `json:"profile"`
	Access  tokenPart  `json:"access"`
}

// Register creates a builder or customer account with its profile and
// returns an access token immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var (
		u       model.User
		profile any
		err     error
	)
	switch model.Role(req.Role) {
	case model.RoleBuilder:
		var b model.Builder
		u, b, err = h.Users.CreateBuilder(ctx, req.Email, req.Password, h.BcryptCost, repository.NewBuilder{
			CompanyName:   strings.TrimSpace(req.CompanyName),
			LicenseNumber: strings.TrimSpace(req.LicenseNumber),
			Phone:         req.Phone,
		})
		profile = b
	default:
		var cu model.Customer
		u, cu, err = h.Users.CreateCustomer(ctx, req.Email, req.Password, h.BcryptCost, repository.NewCustomer{
			FirstName: strings.TrimSpace(req.FirstName),
			LastName:  strings.TrimSpace(req.LastName),
			Phone:     req.Phone,
		})
		profile = cu
	}
	if err != nil {
		return fail(c, h.Log, err)
	}

	tok, err := h.Gate.IssueAccessToken(u.ID, u.Role)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, authResp{
		User:    u,
		Profile: profile,
		Access:  tokenPart{Token: tok.Token, Expires: tok.Exp},
	})
}

// Login verifies credentials and returns a fresh access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_credentials", "message": "invalid credentials"})
	}
	if err != nil {
		return fail(c, h.Log, err)
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_credentials", "message": "invalid credentials"})
	}

	tok, err := h.Gate.IssueAccessToken(u.ID, u.Role)
	if err != nil {
		return fail(c, h.Log, err)
	}
	var profile any
	if u.Role == model.RoleBuilder {
		profile, err = h.Users.BuilderByUser(ctx, u.ID)
	} else {
		profile, err = h.Users.CustomerByUser(ctx, u.ID)
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, authResp{
		User:    u,
		Profile: profile,
		Access:  tokenPart{Token: tok.Token, Expires: tok.Exp},
	})
}

// Me returns the authenticated actor.
func (h *AuthHandler) Me(c echo.Context) error {
	a, err := actorOf(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":     a.UserID,
		"role":        a.Role,
		"builder_id":  a.BuilderID,
		"customer_id": a.CustomerID,
	})
}
