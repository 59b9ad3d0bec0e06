package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/Omvpatil/RealEstate/internal/model"
	"github.com/Omvpatil/RealEstate/internal/service"
)

// RecordHandler serves appointments, messages, change requests,
// notifications and settings.
type RecordHandler struct {
	Svc *service.RecordService
	Log *logrus.Entry
}

func NewRecordHandler(svc *service.RecordService, log *logrus.Entry) *RecordHandler {
	return &RecordHandler{Svc: svc, Log: log}
}

// ----- DTOs -----

type appointmentReq struct {
	ProjectID       uint64          `json:"project_id"`
	ScheduledAt     time.Time       `json:"scheduled_at"`
	DurationMinutes int             `json:"duration_minutes"`
	Location        string          `json:"location"`
	Agenda          string          `json:"agenda"`
	Attendees       json.RawMessage `json:"attendees"`
}

type statusReq struct {
	Status      string     `json:"status" validate:"required"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Note        string     `json:"note" validate:"max=5000"`
}

type messageReq struct {
	RecipientID uint64  `json:"recipient_id"`
	Subject     string  `json:"subject"`
	Body        string  `json:"body"`
	ProjectID   *uint64 `json:"project_id"`
	BookingID   *uint64 `json:"booking_id"`
}

type changeRequestReq struct {
	Type        string `json:"request_type"`
	Description string `json:"description"`
}

type settingReq struct {
	Value json.RawMessage `json:"value"`
}

func page(c echo.Context) (int, int) {
	return queryInt(c, "limit", 20), queryInt(c, "offset", 0)
}

// ----- appointments -----

// BookAppointment handles POST /customer/appointments.
func (h *RecordHandler) BookAppointment(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var req appointmentReq
	if err := bind(c, &req); err != nil {
		return err
	}
	a, err := h.Svc.BookAppointment(c.Request().Context(), actor, service.AppointmentInput{
		ProjectID:       req.ProjectID,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		Location:        strings.ToLower(strings.TrimSpace(req.Location)),
		Agenda:          req.Agenda,
		Attendees:       req.Attendees,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, a)
}

// ListAppointments handles GET /appointments.
func (h *RecordHandler) ListAppointments(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	limit, offset := page(c)
	items, err := h.Svc.ListAppointments(c.Request().Context(), actor, limit, offset)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// UpdateAppointment handles PATCH /appointments/:id.
func (h *RecordHandler) UpdateAppointment(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid appointment id")
	}
	var req statusReq
	if err := bind(c, &req); err != nil {
		return err
	}
	a, err := h.Svc.UpdateAppointmentStatus(c.Request().Context(), actor, id,
		model.AppointmentStatus(strings.ToLower(req.Status)), req.ScheduledAt)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, a)
}

// ----- messages -----

// SendMessage handles POST /messages.
func (h *RecordHandler) SendMessage(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var req messageReq
	if err := bind(c, &req); err != nil {
		return err
	}
	m, err := h.Svc.SendMessage(c.Request().Context(), actor, service.MessageInput{
		RecipientID: req.RecipientID,
		Subject:     req.Subject,
		Body:        req.Body,
		ProjectID:   req.ProjectID,
		BookingID:   req.BookingID,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// ListMessages handles GET /messages?box=sent.
func (h *RecordHandler) ListMessages(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	limit, offset := page(c)
	sent := strings.EqualFold(c.QueryParam("box"), "sent")
	items, err := h.Svc.ListMessages(c.Request().Context(), actor, sent, limit, offset)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// ReadMessage handles POST /messages/:id/read.
func (h *RecordHandler) ReadMessage(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid message id")
	}
	if err := h.Svc.MarkMessageRead(c.Request().Context(), actor, id); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- change requests -----

// SubmitChangeRequest handles POST /customer/bookings/:id/change-requests.
func (h *RecordHandler) SubmitChangeRequest(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	var req changeRequestReq
	if err := bind(c, &req); err != nil {
		return err
	}
	cr, err := h.Svc.SubmitChangeRequest(c.Request().Context(), actor, id, service.ChangeRequestInput{
		Type:        strings.ToLower(strings.TrimSpace(req.Type)),
		Description: req.Description,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, cr)
}

// ListChangeRequests handles GET /bookings/:id/change-requests.
func (h *RecordHandler) ListChangeRequests(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	items, err := h.Svc.ListChangeRequests(c.Request().Context(), actor, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// ReviewChangeRequest handles PATCH /builder/change-requests/:id.
func (h *RecordHandler) ReviewChangeRequest(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid change request id")
	}
	var req statusReq
	if err := bind(c, &req); err != nil {
		return err
	}
	cr, err := h.Svc.ReviewChangeRequest(c.Request().Context(), actor, id,
		model.ChangeRequestStatus(strings.ToLower(req.Status)), req.Note)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, cr)
}

// ----- notifications -----

// ListNotifications handles GET /notifications?unread=true.
func (h *RecordHandler) ListNotifications(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	limit, offset := page(c)
	unread, _ := strconv.ParseBool(c.QueryParam("unread"))
	items, err := h.Svc.ListNotifications(c.Request().Context(), actor, unread, limit, offset)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// ReadNotification handles POST /notifications/:id/read.
func (h *RecordHandler) ReadNotification(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid notification id")
	}
	if err := h.Svc.MarkNotificationRead(c.Request().Context(), actor, id); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- settings -----

// ListSettings handles GET /settings.
func (h *RecordHandler) ListSettings(c echo.Context) error {
	items, err := h.Svc.ListSettings(c.Request().Context())
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// GetSetting handles GET /settings/:key.
func (h *RecordHandler) GetSetting(c echo.Context) error {
	st, err := h.Svc.GetSetting(c.Request().Context(), c.Param("key"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, st)
}

// PutSetting handles PUT /builder/settings/:key.
func (h *RecordHandler) PutSetting(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var req settingReq
	if err := bind(c, &req); err != nil {
		return err
	}
	st, err := h.Svc.PutSetting(c.Request().Context(), actor, c.Param("key"), req.Value)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, st)
}
