// Package service holds the booking, payment and project flows.  Every
// mutation checks access first, then runs as one transaction; events are
// published only after commit and their failure never reaches the caller.
package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Omvpatil/RealEstate/internal/access"
	"github.com/Omvpatil/RealEstate/internal/config"
	"github.com/Omvpatil/RealEstate/internal/metrics"
	"github.com/Omvpatil/RealEstate/internal/model"
	"github.com/Omvpatil/RealEstate/internal/queue"
	"github.com/Omvpatil/RealEstate/internal/repository"
)

// Notifier receives booking events after commit.  *queue.Publisher
// satisfies it.
type Notifier interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

const notifyTimeout = 3 * time.Second

// Options configures the booking service.
type Options struct {
	LockTimeout time.Duration
	Overpayment string // config.OverpaymentReject or config.OverpaymentClamp
}

type BookingService struct {
	txRunner
	users       *repository.UserRepo
	projects    *repository.ProjectRepo
	units       *repository.UnitRepo
	bookings    *repository.BookingRepo
	payments    *repository.PaymentRepo
	notifier    Notifier
	overpayment string
}

func NewBookingService(db *sql.DB, opts Options, notifier Notifier, m *metrics.Metrics, log *logrus.Entry) *BookingService {
	if opts.Overpayment == "" {
		opts.Overpayment = config.OverpaymentReject
	}
	return &BookingService{
		txRunner:    txRunner{db: db, timeout: opts.LockTimeout, metrics: m, log: log.WithField("component", "bookings")},
		users:       repository.NewUserRepo(db),
		projects:    repository.NewProjectRepo(db),
		units:       repository.NewUnitRepo(db),
		bookings:    repository.NewBookingRepo(db),
		payments:    repository.NewPaymentRepo(db),
		notifier:    notifier,
		overpayment: opts.Overpayment,
	}
}

// CreateBookingInput is the customer's request to reserve a unit.
type CreateBookingInput struct {
	UnitID      uint64
	TotalAmount decimal.Decimal
	PaymentPlan model.PaymentPlan
}

// CreateBooking reserves an available unit for the acting customer.  The
// booking row, the unit status and the project counter change together or
// not at all.  When two customers race for one unit exactly one succeeds;
// the other gets ErrUnitUnavailable, or ErrConflict if it timed out
// waiting.
func (s *BookingService) CreateBooking(ctx context.Context, actor access.Actor, in CreateBookingInput) (model.Booking, error) {
	if err := access.RequireCustomer(actor); err != nil {
		return model.Booking{}, err
	}
	if !isMoney(in.TotalAmount) {
		return model.Booking{}, ErrInvalidAmount
	}
	if in.PaymentPlan == "" {
		in.PaymentPlan = model.PlanFullPayment
	}
	if !in.PaymentPlan.Valid() {
		return model.Booking{}, invalid(errors.New("payment_plan must be one of full_payment, installments, loan"))
	}

	var (
		b    model.Booking
		unit model.Unit
	)
	err := s.withTx(ctx, "create_booking", func(ctx context.Context, tx *sql.Tx) error {
		var err error
		unit, err = s.units.GetByIDTx(ctx, tx, in.UnitID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUnitNotFound
		}
		if err != nil {
			return err
		}
		if unit.Status != model.UnitAvailable {
			return ErrUnitUnavailable
		}
		ok, err := s.units.ReserveTx(ctx, tx, unit.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnitUnavailable
		}
		ok, err = s.projects.DecrementAvailableTx(ctx, tx, unit.ProjectID)
		if err != nil {
			return err
		}
		if !ok {
			s.log.WithFields(logrus.Fields{"project_id": unit.ProjectID, "unit_id": unit.ID}).
				Warn("unit available but project counter is zero")
			return ErrUnitUnavailable
		}
		b = model.Booking{
			CustomerID:    actor.CustomerID,
			UnitID:        unit.ID,
			Status:        model.BookingInquiry,
			PaymentPlan:   in.PaymentPlan,
			TotalAmount:   in.TotalAmount,
			PaidAmount:    decimal.Zero,
			PendingAmount: in.TotalAmount,
		}
		return s.bookings.CreateTx(ctx, tx, &b)
	})
	if err != nil {
		return model.Booking{}, err
	}

	s.metrics.BookingTransition(string(b.Status))
	s.log.WithFields(logrus.Fields{"booking_id": b.ID, "unit_id": b.UnitID, "customer_id": b.CustomerID}).Info("booking created")
	s.notify(ctx, s.event(queue.EventBookingStatusChanged, b, unit.ProjectID, ""), actor.UserID, 0)
	return b, nil
}

// bookingScope loads the booking and the project it belongs to outside any
// transaction so access can be checked before mutating.
func (s *BookingService) bookingScope(ctx context.Context, bookingID uint64) (model.Booking, model.Project, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, model.Project{}, ErrBookingNotFound
	}
	if err != nil {
		return model.Booking{}, model.Project{}, err
	}
	u, err := s.units.GetByID(ctx, b.UnitID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, model.Project{}, ErrUnitNotFound
	}
	if err != nil {
		return model.Booking{}, model.Project{}, err
	}
	p, err := s.projects.GetByID(ctx, u.ProjectID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, model.Project{}, ErrProjectNotFound
	}
	if err != nil {
		return model.Booking{}, model.Project{}, err
	}
	return b, p, nil
}

// CancelBooking cancels a booking on behalf of its customer or the owning
// builder.  The unit is released and the project counter incremented
// exactly once; cancelling an already-cancelled booking returns it
// unchanged.  Completed bookings cannot be cancelled.
func (s *BookingService) CancelBooking(ctx context.Context, actor access.Actor, bookingID uint64) (model.Booking, error) {
	current, project, err := s.bookingScope(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if err := access.RequireBookingParty(actor, current, project); err != nil {
		return model.Booking{}, err
	}

	var (
		b        model.Booking
		previous model.BookingStatus
		noop     bool
	)
	err = s.withTx(ctx, "cancel_booking", func(ctx context.Context, tx *sql.Tx) error {
		var err error
		b, err = s.bookings.GetByIDTx(ctx, tx, bookingID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBookingNotFound
		}
		if err != nil {
			return err
		}
		previous = b.Status
		switch b.Status {
		case model.BookingCancelled:
			noop = true
			return nil
		case model.BookingCompleted:
			return ErrBookingTerminal
		}

		now := time.Now().UTC()
		b.Status = model.BookingCancelled
		b.CancelledAt = &now
		ok, err := s.bookings.UpdateTx(ctx, tx, &b)
		if err != nil {
			return err
		}
		if !ok {
			return repository.ErrConflict
		}
		return s.releaseTx(ctx, tx, b, project.ID)
	})
	if err != nil {
		return model.Booking{}, err
	}
	if noop {
		return b, nil
	}

	s.metrics.BookingTransition(string(b.Status))
	s.log.WithFields(logrus.Fields{"booking_id": b.ID, "previous": previous}).Info("booking cancelled")
	s.notify(ctx, s.event(queue.EventBookingStatusChanged, b, project.ID, previous), 0, project.BuilderID)
	return b, nil
}

// releaseTx frees the unit of a cancelled booking.  The unit stays booked
// if another live booking references it, in which case the counter is
// left alone too.
func (s *BookingService) releaseTx(ctx context.Context, tx *sql.Tx, b model.Booking, projectID uint64) error {
	others, err := s.bookings.CountActiveForUnitTx(ctx, tx, b.UnitID, b.ID)
	if err != nil {
		return err
	}
	l := s.log.WithFields(logrus.Fields{"booking_id": b.ID, "unit_id": b.UnitID, "project_id": projectID})
	if others > 0 {
		l.Warn("unit still referenced by another booking; not released")
		return nil
	}
	released, err := s.units.ReleaseTx(ctx, tx, b.UnitID)
	if err != nil {
		return err
	}
	if !released {
		l.Warn("unit was not booked; counter unchanged")
		return nil
	}
	ok, err := s.projects.IncrementAvailableTx(ctx, tx, projectID)
	if err != nil {
		return err
	}
	if !ok {
		l.Warn("available_units already at total_units")
	}
	return nil
}

// RecordPaymentInput describes one payment against a booking.
type RecordPaymentInput struct {
	BookingID uint64
	Amount    decimal.Decimal
	Method    model.PaymentMethod
	Type      model.PaymentType
	Notes     string
}

// PaymentResult is the stored payment, the booking after it was applied,
// and a warning when an overpayment was clamped.
type PaymentResult struct {
	Payment model.Payment
	Booking model.Booking
	Warning string
}

// RecordPayment appends a completed payment to the ledger and updates the
// booking aggregates and status in the same transaction.  A fully paid
// booking becomes completed and its unit sold.
func (s *BookingService) RecordPayment(ctx context.Context, actor access.Actor, in RecordPaymentInput) (PaymentResult, error) {
	if !isMoney(in.Amount) {
		return PaymentResult{}, ErrInvalidAmount
	}
	if in.Method == "" {
		in.Method = model.MethodOnline
	}
	if in.Type == "" {
		in.Type = model.PaymentInstallment
	}
	if !in.Method.Valid() {
		return PaymentResult{}, invalid(errors.New("unknown payment method"))
	}
	if !in.Type.Valid() {
		return PaymentResult{}, invalid(errors.New("unknown payment type"))
	}

	current, project, err := s.bookingScope(ctx, in.BookingID)
	if err != nil {
		return PaymentResult{}, err
	}
	if err := access.RequireBookingParty(actor, current, project); err != nil {
		return PaymentResult{}, err
	}

	var (
		out      PaymentResult
		previous model.BookingStatus
	)
	err = s.withTx(ctx, "record_payment", func(ctx context.Context, tx *sql.Tx) error {
		b, err := s.bookings.GetByIDTx(ctx, tx, in.BookingID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBookingNotFound
		}
		if err != nil {
			return err
		}
		previous = b.Status
		res, err := ApplyPayment(b, in.Amount, s.overpayment)
		if err != nil {
			return err
		}

		p := model.Payment{
			BookingID:     b.ID,
			Type:          in.Type,
			Method:        in.Method,
			Status:        model.PaymentCompleted,
			Amount:        in.Amount,
			TransactionID: uuid.NewString(),
			Notes:         in.Notes,
			PaidAt:        time.Now().UTC(),
		}
		if err := s.payments.CreateTx(ctx, tx, &p); err != nil {
			return err
		}

		b.PaidAmount, b.PendingAmount, b.Status = res.Paid, res.Pending, res.Status
		ok, err := s.bookings.UpdateTx(ctx, tx, &b)
		if err != nil {
			return err
		}
		if !ok {
			return repository.ErrConflict
		}
		if b.Status == model.BookingCompleted {
			sold, err := s.units.MarkSoldTx(ctx, tx, b.UnitID)
			if err != nil {
				return err
			}
			if !sold {
				s.log.WithField("unit_id", b.UnitID).Warn("completed booking on a unit that was not booked")
			}
		}
		out = PaymentResult{Payment: p, Booking: b, Warning: res.Warning()}
		return nil
	})
	if err != nil {
		return PaymentResult{}, err
	}

	b := out.Booking
	s.metrics.PaymentRecorded(out.Payment.Amount)
	l := s.log.WithFields(logrus.Fields{"booking_id": b.ID, "payment_id": out.Payment.ID, "amount": out.Payment.Amount.StringFixed(2)})
	if out.Warning != "" {
		l = l.WithField("warning", out.Warning)
	}
	l.Info("payment recorded")

	ev := s.event(queue.EventPaymentRecorded, b, project.ID, previous)
	ev.PaymentID = out.Payment.ID
	ev.Amount = out.Payment.Amount.StringFixed(2)
	s.notify(ctx, ev, 0, project.BuilderID)
	if b.Status != previous {
		s.metrics.BookingTransition(string(b.Status))
		s.notify(ctx, s.event(queue.EventBookingStatusChanged, b, project.ID, previous), 0, project.BuilderID)
	}
	return out, nil
}

// PaymentSummary is the ledger view of one booking.
type PaymentSummary struct {
	BookingID uint64              `json:"booking_id"`
	Status    model.BookingStatus `json:"status"`
	Total     decimal.Decimal     `json:"total_amount"`
	Paid      decimal.Decimal     `json:"paid_amount"`
	Pending   decimal.Decimal     `json:"pending_amount"`
	Progress  decimal.Decimal     `json:"payment_progress"` // percentage of total paid
	Payments  []model.Payment     `json:"payments"`
}

// GetBookingPaymentSummary returns the booking's aggregates and payments.
// Only the booking's customer or the owning builder may read it.
func (s *BookingService) GetBookingPaymentSummary(ctx context.Context, actor access.Actor, bookingID uint64) (PaymentSummary, error) {
	b, project, err := s.bookingScope(ctx, bookingID)
	if err != nil {
		return PaymentSummary{}, err
	}
	if err := access.RequireBookingParty(actor, b, project); err != nil {
		return PaymentSummary{}, err
	}
	payments, err := s.payments.ListByBooking(ctx, b.ID)
	if err != nil {
		return PaymentSummary{}, err
	}
	return PaymentSummary{
		BookingID: b.ID,
		Status:    b.Status,
		Total:     b.TotalAmount,
		Paid:      b.PaidAmount,
		Pending:   b.PendingAmount,
		Progress:  repository.PaymentProgress(b.TotalAmount, b.PaidAmount),
		Payments:  payments,
	}, nil
}

// GetBooking returns one booking visible to the actor.
func (s *BookingService) GetBooking(ctx context.Context, actor access.Actor, bookingID uint64) (model.Booking, error) {
	b, project, err := s.bookingScope(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if err := access.RequireBookingParty(actor, b, project); err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

// ListBookings returns the actor's bookings: their own as a customer, or
// those on their projects as a builder.  The filter's owner fields are
// overwritten from the actor.
func (s *BookingService) ListBookings(ctx context.Context, actor access.Actor, f repository.BookingFilter) ([]repository.BookingView, error) {
	f.CustomerID, f.BuilderID = 0, 0
	switch {
	case actor.IsCustomer():
		f.CustomerID = actor.CustomerID
	case actor.IsBuilder():
		f.BuilderID = actor.BuilderID
	default:
		return nil, repository.ErrForbidden
	}
	return s.bookings.List(ctx, f)
}

// BuilderStats aggregates bookings and revenue over the builder's projects.
func (s *BookingService) BuilderStats(ctx context.Context, actor access.Actor) (repository.BookingStats, error) {
	if err := access.RequireBuilder(actor); err != nil {
		return repository.BookingStats{}, err
	}
	return s.bookings.StatsForBuilder(ctx, actor.BuilderID)
}

func (s *BookingService) event(typ string, b model.Booking, projectID uint64, previous model.BookingStatus) queue.BookingEvent {
	return queue.BookingEvent{
		Type:           typ,
		BookingID:      b.ID,
		UnitID:         b.UnitID,
		ProjectID:      projectID,
		PreviousStatus: string(previous),
		Status:         string(b.Status),
		PaidAmount:     b.PaidAmount.StringFixed(2),
		PendingAmount:  b.PendingAmount.StringFixed(2),
		OccurredAt:     time.Now().UTC().Format(time.RFC3339),
	}
}

// notify fills in the recipients and publishes ev.  customerUserID may be
// passed when already known; builderID is a builder profile ID.  Any
// failure is logged and dropped.
func (s *BookingService) notify(ctx context.Context, ev queue.BookingEvent, customerUserID, builderID uint64) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	l := s.log.WithFields(logrus.Fields{"booking_id": ev.BookingID, "type": ev.Type})

	ev.CustomerUserID = customerUserID
	if ev.CustomerUserID == 0 {
		if b, err := s.bookings.GetByID(ctx, ev.BookingID); err == nil {
			ev.CustomerUserID, _ = s.users.CustomerUserID(ctx, b.CustomerID)
		}
	}
	if builderID == 0 {
		if p, err := s.projects.GetByID(ctx, ev.ProjectID); err == nil {
			builderID = p.BuilderID
		}
	}
	if builderID != 0 {
		ev.BuilderUserID, _ = s.users.BuilderUserID(ctx, builderID)
	}

	if err := s.notifier.Publish(ctx, ev); err != nil {
		s.metrics.NotifyError()
		l.WithError(err).Warn("notification dispatch failed")
	}
}
