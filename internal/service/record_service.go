package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/Omvpatil/RealEstate/internal/access"
	"github.com/Omvpatil/RealEstate/internal/model"
	"github.com/Omvpatil/RealEstate/internal/repository"
)

// RecordService manages appointments, messages, change requests,
// notifications and settings.  None of these touch the booking or payment
// invariants.
type RecordService struct {
	store    repository.RecordStore
	users    *repository.UserRepo
	projects *repository.ProjectRepo
	units    *repository.UnitRepo
	bookings *repository.BookingRepo
	log      *logrus.Entry
}

func NewRecordService(db *sql.DB, store repository.RecordStore, log *logrus.Entry) *RecordService {
	return &RecordService{
		store:    store,
		users:    repository.NewUserRepo(db),
		projects: repository.NewProjectRepo(db),
		units:    repository.NewUnitRepo(db),
		bookings: repository.NewBookingRepo(db),
		log:      log.WithField("component", "records"),
	}
}

// AppointmentInput is a customer's request for a site visit or meeting.
type AppointmentInput struct {
	ProjectID       uint64    `validate:"required"`
	ScheduledAt     time.Time `validate:"required"`
	DurationMinutes int       `validate:"omitempty,gte=15,lte=480"`
	Location        string    `validate:"omitempty,oneof=site office virtual"`
	Agenda          string    `validate:"max=2000"`
	Attendees       json.RawMessage
}

// BookAppointment schedules an appointment for the acting customer.
func (s *RecordService) BookAppointment(ctx context.Context, actor access.Actor, in AppointmentInput) (model.Appointment, error) {
	if err := access.RequireCustomer(actor); err != nil {
		return model.Appointment{}, err
	}
	if err := validateStruct(in); err != nil {
		return model.Appointment{}, err
	}
	if !in.ScheduledAt.After(time.Now()) {
		return model.Appointment{}, invalid(errors.New("scheduled_at must be in the future"))
	}
	if _, err := s.projects.GetByID(ctx, in.ProjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Appointment{}, ErrProjectNotFound
		}
		return model.Appointment{}, err
	}
	if in.DurationMinutes == 0 {
		in.DurationMinutes = 60
	}
	if in.Location == "" {
		in.Location = "site"
	}
	a := model.Appointment{
		CustomerID:      actor.CustomerID,
		ProjectID:       in.ProjectID,
		ScheduledAt:     in.ScheduledAt.UTC(),
		DurationMinutes: in.DurationMinutes,
		Location:        in.Location,
		Status:          model.AppointmentScheduled,
		Agenda:          in.Agenda,
	}
	if len(in.Attendees) > 0 {
		if !json.Valid(in.Attendees) {
			return model.Appointment{}, invalid(errors.New("attendees must be valid JSON"))
		}
		a.Attendees = datatypes.JSON(in.Attendees)
	}
	if err := s.store.CreateAppointment(ctx, &a); err != nil {
		return model.Appointment{}, err
	}
	return a, nil
}

// ListAppointments returns the customer's own appointments or those on the
// builder's projects.
func (s *RecordService) ListAppointments(ctx context.Context, actor access.Actor, limit, offset int) ([]model.Appointment, error) {
	switch {
	case actor.IsCustomer():
		return s.store.ListAppointmentsForCustomer(ctx, actor.CustomerID, limit, offset)
	case actor.IsBuilder():
		return s.store.ListAppointmentsForBuilder(ctx, actor.BuilderID, limit, offset)
	}
	return nil, repository.ErrForbidden
}

// UpdateAppointmentStatus lets the owning builder move an appointment
// through its lifecycle.  The customer may only cancel their own.  A new
// time is required when rescheduling.
func (s *RecordService) UpdateAppointmentStatus(ctx context.Context, actor access.Actor, id uint64, status model.AppointmentStatus, at *time.Time) (model.Appointment, error) {
	a, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		if repository.KindOf(err) == repository.KindNotFound {
			return model.Appointment{}, ErrAppointmentNotFound
		}
		return model.Appointment{}, err
	}
	switch status {
	case model.AppointmentScheduled, model.AppointmentConfirmed, model.AppointmentCompleted,
		model.AppointmentCancelled, model.AppointmentRescheduled:
	default:
		return model.Appointment{}, invalid(errors.New("unknown appointment status"))
	}
	if status == model.AppointmentRescheduled && at == nil {
		return model.Appointment{}, invalid(errors.New("scheduled_at is required when rescheduling"))
	}

	if actor.IsCustomer() {
		if a.CustomerID != actor.CustomerID || status != model.AppointmentCancelled {
			return model.Appointment{}, repository.ErrForbidden
		}
	} else {
		p, err := s.projects.GetByID(ctx, a.ProjectID)
		if err != nil {
			return model.Appointment{}, err
		}
		if err := access.RequireBuilderOwnsProject(actor, p); err != nil {
			return model.Appointment{}, err
		}
	}
	if err := s.store.UpdateAppointmentStatus(ctx, id, status, at); err != nil {
		return model.Appointment{}, err
	}
	updated, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	return *updated, nil
}

// MessageInput is a direct message.
type MessageInput struct {
	RecipientID uint64 `validate:"required"`
	Subject     string `validate:"required,max=255"`
	Body        string `validate:"required,max=10000"`
	ProjectID   *uint64
	BookingID   *uint64
}

// SendMessage stores a message from the actor to another user.
func (s *RecordService) SendMessage(ctx context.Context, actor access.Actor, in MessageInput) (model.Message, error) {
	in.Subject = strings.TrimSpace(in.Subject)
	if err := validateStruct(in); err != nil {
		return model.Message{}, err
	}
	if in.RecipientID == actor.UserID {
		return model.Message{}, invalid(errors.New("cannot message yourself"))
	}
	if _, err := s.users.GetByID(ctx, in.RecipientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Message{}, ErrUserNotFound
		}
		return model.Message{}, err
	}
	m := model.Message{
		SenderID:    actor.UserID,
		RecipientID: in.RecipientID,
		ProjectID:   in.ProjectID,
		BookingID:   in.BookingID,
		Subject:     in.Subject,
		Body:        in.Body,
	}
	if err := s.store.CreateMessage(ctx, &m); err != nil {
		return model.Message{}, err
	}
	return m, nil
}

// ListMessages returns the actor's inbox, or outbox when sent is set.
func (s *RecordService) ListMessages(ctx context.Context, actor access.Actor, sent bool, limit, offset int) ([]model.Message, error) {
	if sent {
		return s.store.ListOutbox(ctx, actor.UserID, limit, offset)
	}
	return s.store.ListInbox(ctx, actor.UserID, limit, offset)
}

func (s *RecordService) MarkMessageRead(ctx context.Context, actor access.Actor, id uint64) error {
	return s.store.MarkMessageRead(ctx, id, actor.UserID)
}

// ChangeRequestInput asks the builder to modify a booked unit.
type ChangeRequestInput struct {
	Type        string `validate:"required,oneof=layout fixtures finishes other"`
	Description string `validate:"required,max=5000"`
}

// bookingParties loads a booking with its project.
func (s *RecordService) bookingParties(ctx context.Context, bookingID uint64) (model.Booking, model.Project, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, model.Project{}, ErrBookingNotFound
	}
	if err != nil {
		return model.Booking{}, model.Project{}, err
	}
	u, err := s.units.GetByID(ctx, b.UnitID)
	if err != nil {
		return model.Booking{}, model.Project{}, err
	}
	p, err := s.projects.GetByID(ctx, u.ProjectID)
	if err != nil {
		return model.Booking{}, model.Project{}, err
	}
	return b, p, nil
}

// SubmitChangeRequest files a change request on the customer's own,
// non-cancelled booking.
func (s *RecordService) SubmitChangeRequest(ctx context.Context, actor access.Actor, bookingID uint64, in ChangeRequestInput) (model.ChangeRequest, error) {
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	if err := validateStruct(in); err != nil {
		return model.ChangeRequest{}, err
	}
	b, _, err := s.bookingParties(ctx, bookingID)
	if err != nil {
		return model.ChangeRequest{}, err
	}
	if err := access.RequireCustomerOwnsBooking(actor, b); err != nil {
		return model.ChangeRequest{}, err
	}
	if b.Status == model.BookingCancelled {
		return model.ChangeRequest{}, ErrBookingCancelled
	}
	cr := model.ChangeRequest{
		BookingID:   b.ID,
		Type:        in.Type,
		Description: in.Description,
		Status:      model.ChangeSubmitted,
	}
	if err := s.store.CreateChangeRequest(ctx, &cr); err != nil {
		return model.ChangeRequest{}, err
	}
	return cr, nil
}

// ListChangeRequests returns a booking's change requests to either party.
func (s *RecordService) ListChangeRequests(ctx context.Context, actor access.Actor, bookingID uint64) ([]model.ChangeRequest, error) {
	b, p, err := s.bookingParties(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireBookingParty(actor, b, p); err != nil {
		return nil, err
	}
	return s.store.ListChangeRequests(ctx, bookingID)
}

// ReviewChangeRequest lets the owning builder move a change request to a
// new status with an optional note.
func (s *RecordService) ReviewChangeRequest(ctx context.Context, actor access.Actor, id uint64, status model.ChangeRequestStatus, note string) (model.ChangeRequest, error) {
	switch status {
	case model.ChangeUnderReview, model.ChangeApproved, model.ChangeRejected, model.ChangeCompleted:
	default:
		return model.ChangeRequest{}, invalid(errors.New("unknown change request status"))
	}
	cr, err := s.store.GetChangeRequest(ctx, id)
	if err != nil {
		if repository.KindOf(err) == repository.KindNotFound {
			return model.ChangeRequest{}, ErrChangeRequestNotFound
		}
		return model.ChangeRequest{}, err
	}
	_, p, err := s.bookingParties(ctx, cr.BookingID)
	if err != nil {
		return model.ChangeRequest{}, err
	}
	if err := access.RequireBuilderOwnsProject(actor, p); err != nil {
		return model.ChangeRequest{}, err
	}
	if err := s.store.UpdateChangeRequestStatus(ctx, id, status, strings.TrimSpace(note)); err != nil {
		return model.ChangeRequest{}, err
	}
	updated, err := s.store.GetChangeRequest(ctx, id)
	if err != nil {
		return model.ChangeRequest{}, err
	}
	s.notifyCustomer(ctx, updated.BookingID, model.Notification{
		Type:      model.NotifyChangeRequest,
		Title:     "Change request " + strings.ReplaceAll(string(status), "_", " "),
		Body:      updated.Description,
		BookingID: &updated.BookingID,
	})
	return *updated, nil
}

// notifyCustomer stores a notification for the customer of a booking.
// Errors are logged only.
func (s *RecordService) notifyCustomer(ctx context.Context, bookingID uint64, n model.Notification) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err == nil {
		n.UserID, err = s.users.CustomerUserID(ctx, b.CustomerID)
	}
	if err == nil {
		err = s.store.CreateNotification(ctx, &n)
	}
	if err != nil {
		s.log.WithError(err).WithField("booking_id", bookingID).Warn("could not store notification")
	}
}

func (s *RecordService) ListNotifications(ctx context.Context, actor access.Actor, unreadOnly bool, limit, offset int) ([]model.Notification, error) {
	return s.store.ListNotifications(ctx, actor.UserID, unreadOnly, limit, offset)
}

func (s *RecordService) MarkNotificationRead(ctx context.Context, actor access.Actor, id uint64) error {
	return s.store.MarkNotificationRead(ctx, id, actor.UserID)
}

func (s *RecordService) GetSetting(ctx context.Context, key string) (model.SystemSetting, error) {
	st, err := s.store.GetSetting(ctx, key)
	if err != nil {
		if repository.KindOf(err) == repository.KindNotFound {
			return model.SystemSetting{}, ErrSettingNotFound
		}
		return model.SystemSetting{}, err
	}
	return *st, nil
}

func (s *RecordService) ListSettings(ctx context.Context) ([]model.SystemSetting, error) {
	return s.store.ListSettings(ctx)
}

// PutSetting stores a JSON value under key.  Only builders may write.
func (s *RecordService) PutSetting(ctx context.Context, actor access.Actor, key string, value json.RawMessage) (model.SystemSetting, error) {
	if err := access.RequireBuilder(actor); err != nil {
		return model.SystemSetting{}, err
	}
	key = strings.TrimSpace(key)
	if key == "" || len(key) > 100 {
		return model.SystemSetting{}, invalid(errors.New("key must be 1-100 characters"))
	}
	if len(value) == 0 || !json.Valid(value) {
		return model.SystemSetting{}, invalid(errors.New("value must be valid JSON"))
	}
	st := model.SystemSetting{Key: key, Value: datatypes.JSON(value), UpdatedBy: actor.UserID, UpdatedAt: time.Now().UTC()}
	if err := s.store.PutSetting(ctx, &st); err != nil {
		return model.SystemSetting{}, err
	}
	return st, nil
}
