package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Omvpatil/RealEstate/internal/model"
	"github.com/Omvpatil/RealEstate/internal/repository"
	"github.com/Omvpatil/RealEstate/internal/service"
)

// BookingHandler exposes the booking lifecycle and the payment ledger.
type BookingHandler struct {
	Svc *service.BookingService
	Log *logrus.Entry
}

func NewBookingHandler(svc *service.BookingService, log *logrus.Entry) *BookingHandler {
	return &BookingHandler{Svc: svc, Log: log}
}

type createBookingReq struct {
	UnitID      uint64          `json:"unit_id" validate:"required"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	PaymentPlan string          `json:"payment_plan" validate:"omitempty,oneof=full_payment installments loan"`
}

type recordPaymentReq struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"payment_method" validate:"omitempty,oneof=cash cheque bank_transfer online loan"`
	Type   string          `json:"payment_type" validate:"omitempty,oneof=token installment final maintenance penalty"`
	Notes  string          `json:"notes" validate:"max=2000"`
}

type bookingResp struct {
	model.Booking
	PaymentProgress decimal.Decimal `json:"payment_progress"`
}

func withProgress(b model.Booking) bookingResp {
	return bookingResp{Booking: b, PaymentProgress: repository.PaymentProgress(b.TotalAmount, b.PaidAmount)}
}

// Create handles POST /customer/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var req createBookingReq
	if err := bind(c, &req); err != nil {
		return err
	}
	b, err := h.Svc.CreateBooking(c.Request().Context(), actor, service.CreateBookingInput{
		UnitID:      req.UnitID,
		TotalAmount: req.TotalAmount,
		PaymentPlan: model.PaymentPlan(req.PaymentPlan),
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, withProgress(b))
}

// Cancel handles POST /bookings/:id/cancel.  Cancelling twice is not an
// error.
func (h *BookingHandler) Cancel(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	b, err := h.Svc.CancelBooking(c.Request().Context(), actor, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, withProgress(b))
}

// Get handles GET /bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	b, err := h.Svc.GetBooking(c.Request().Context(), actor, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, withProgress(b))
}

// List handles GET /bookings.  Customers see their own bookings, builders
// the bookings on their projects.
func (h *BookingHandler) List(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	f := repository.BookingFilter{
		Status:        model.BookingStatus(strings.ToLower(c.QueryParam("status"))),
		PaymentStatus: strings.ToLower(c.QueryParam("payment_status")),
		Limit:         queryInt(c, "limit", 20),
		Offset:        queryInt(c, "offset", 0),
	}
	if pid, ok := queryID(c, "project_id"); ok {
		f.ProjectID = pid
	}
	views, err := h.Svc.ListBookings(c.Request().Context(), actor, f)
	if err != nil {
		return fail(c, h.Log, err)
	}
	type item struct {
		repository.BookingView
		PaymentProgress decimal.Decimal `json:"payment_progress"`
	}
	out := make([]item, 0, len(views))
	for _, v := range views {
		out = append(out, item{BookingView: v, PaymentProgress: v.Progress()})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out, "count": len(out)})
}

// Stats handles GET /builder/bookings/stats.
func (h *BookingHandler) Stats(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	st, err := h.Svc.BuilderStats(c.Request().Context(), actor)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, st)
}

// RecordPayment handles POST /bookings/:id/payments.
func (h *BookingHandler) RecordPayment(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	var req recordPaymentReq
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.Svc.RecordPayment(c.Request().Context(), actor, service.RecordPaymentInput{
		BookingID: id,
		Amount:    req.Amount,
		Method:    model.PaymentMethod(req.Method),
		Type:      model.PaymentType(req.Type),
		Notes:     req.Notes,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	body := echo.Map{
		"payment": res.Payment,
		"booking": withProgress(res.Booking),
	}
	if res.Warning != "" {
		body["warning"] = res.Warning
	}
	return c.JSON(http.StatusCreated, body)
}

// PaymentSummary handles GET /bookings/:id/payments.
func (h *BookingHandler) PaymentSummary(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	sum, err := h.Svc.GetBookingPaymentSummary(c.Request().Context(), actor, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, sum)
}
