package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Omvpatil/RealEstate/internal/access"
	"github.com/Omvpatil/RealEstate/internal/config"
	"github.com/Omvpatil/RealEstate/internal/logging"
	"github.com/Omvpatil/RealEstate/internal/metrics"
	"github.com/Omvpatil/RealEstate/internal/model"
	"github.com/Omvpatil/RealEstate/internal/queue"
	"github.com/Omvpatil/RealEstate/internal/repository"
	"github.com/Omvpatil/RealEstate/internal/testutil"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []queue.BookingEvent
	err    error
}

func (n *recordingNotifier) Publish(_ context.Context, ev queue.BookingEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	db       *sql.DB
	gdb      *gorm.DB
	svc      *BookingService
	notifier *recordingNotifier
	builder  access.Actor
	customer access.Actor
	project  model.Project
	units    []model.Unit
}

func newFixture(t *testing.T, totalUnits int, policy string) *fixture {
	t.Helper()
	db, gdb := testutil.OpenDB(t)
	n := &recordingNotifier{}
	m := metrics.New(prometheus.NewRegistry())
	svc := NewBookingService(db, Options{Overpayment: policy}, n, m, logging.Discard())

	builder := testutil.SeedBuilder(t, db)
	project := testutil.SeedProject(t, db, builder.BuilderID, totalUnits)
	return &fixture{
		db:       db,
		gdb:      gdb,
		svc:      svc,
		notifier: n,
		builder:  builder,
		customer: testutil.SeedCustomer(t, db),
		project:  project,
		units:    testutil.SeedUnits(t, db, project.ID, totalUnits),
	}
}

func (f *fixture) availableUnits(t *testing.T) int {
	t.Helper()
	p, err := repository.NewProjectRepo(f.db).GetByID(context.Background(), f.project.ID)
	require.NoError(t, err)
	return p.AvailableUnits
}

func (f *fixture) unitStatus(t *testing.T, id uint64) model.UnitStatus {
	t.Helper()
	u, err := repository.NewUnitRepo(f.db).GetByID(context.Background(), id)
	require.NoError(t, err)
	return u.Status
}

func (f *fixture) book(t *testing.T, unitID uint64, total string) model.Booking {
	t.Helper()
	b, err := f.svc.CreateBooking(context.Background(), f.customer, CreateBookingInput{
		UnitID:      unitID,
		TotalAmount: dec(total),
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) pay(t *testing.T, actor access.Actor, bookingID uint64, amount string) PaymentResult {
	t.Helper()
	res, err := f.svc.RecordPayment(context.Background(), actor, RecordPaymentInput{BookingID: bookingID, Amount: dec(amount)})
	require.NoError(t, err)
	return res
}

func TestBookingLifecycle(t *testing.T) {
	f := newFixture(t, 100, config.OverpaymentReject)
	ctx := context.Background()
	unit := f.units[0]

	b := f.book(t, unit.ID, "1000000")
	assert.Equal(t, model.BookingInquiry, b.Status)
	assert.Equal(t, model.PlanFullPayment, b.PaymentPlan)
	assert.True(t, b.PaidAmount.IsZero())
	assert.True(t, b.PendingAmount.Equal(dec("1000000")))
	assert.Equal(t, 99, f.availableUnits(t))
	assert.Equal(t, model.UnitBooked, f.unitStatus(t, unit.ID))

	res := f.pay(t, f.customer, b.ID, "250000")
	assert.Equal(t, model.BookingActive, res.Booking.Status)
	assert.True(t, res.Booking.PaidAmount.Equal(dec("250000")))
	assert.True(t, res.Booking.PendingAmount.Equal(dec("750000")))
	assert.Equal(t, model.PaymentCompleted, res.Payment.Status)
	assert.Equal(t, model.MethodOnline, res.Payment.Method)
	assert.Equal(t, model.PaymentInstallment, res.Payment.Type)
	assert.NotEmpty(t, res.Payment.TransactionID)
	assert.Empty(t, res.Warning)

	res = f.pay(t, f.builder, b.ID, "750000")
	assert.Equal(t, model.BookingCompleted, res.Booking.Status)
	assert.True(t, res.Booking.PendingAmount.IsZero())
	assert.Equal(t, model.UnitSold, f.unitStatus(t, unit.ID))
	assert.Equal(t, 99, f.availableUnits(t))

	sum, err := repository.NewPaymentRepo(f.db).SumCompleted(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, sum.Equal(res.Booking.PaidAmount))

	summary, err := f.svc.GetBookingPaymentSummary(ctx, f.customer, b.ID)
	require.NoError(t, err)
	assert.Len(t, summary.Payments, 2)
	assert.True(t, summary.Progress.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, model.BookingCompleted, summary.Status)

	_, err = f.svc.CancelBooking(ctx, f.customer, b.ID)
	require.ErrorIs(t, err, ErrBookingTerminal)
	assert.Equal(t, 99, f.availableUnits(t))

	_, err = f.svc.RecordPayment(ctx, f.customer, RecordPaymentInput{BookingID: b.ID, Amount: dec("1")})
	require.ErrorIs(t, err, ErrBookingTerminal)
}

func TestCreateBookingUnitUnavailable(t *testing.T) {
	f := newFixture(t, 2, "")
	ctx := context.Background()
	f.book(t, f.units[0].ID, "500")

	other := testutil.SeedCustomer(t, f.db)
	_, err := f.svc.CreateBooking(ctx, other, CreateBookingInput{UnitID: f.units[0].ID, TotalAmount: dec("500")})
	require.ErrorIs(t, err, ErrUnitUnavailable)
	assert.Equal(t, 1, f.availableUnits(t))
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t, 1, "")
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, f.customer, CreateBookingInput{UnitID: 999999, TotalAmount: dec("10")})
	require.ErrorIs(t, err, ErrUnitNotFound)

	_, err = f.svc.CreateBooking(ctx, f.customer, CreateBookingInput{UnitID: f.units[0].ID, TotalAmount: dec("0")})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.svc.CreateBooking(ctx, f.customer, CreateBookingInput{UnitID: f.units[0].ID, TotalAmount: dec("100.005")})
	require.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, 1, f.availableUnits(t))

	_, err = f.svc.CreateBooking(ctx, f.customer, CreateBookingInput{UnitID: f.units[0].ID, TotalAmount: dec("10"), PaymentPlan: "barter"})
	assert.Equal(t, repository.KindInvalidInput, repository.KindOf(err))

	_, err = f.svc.CreateBooking(ctx, f.builder, CreateBookingInput{UnitID: f.units[0].ID, TotalAmount: dec("10")})
	require.ErrorIs(t, err, repository.ErrForbidden)

	assert.Equal(t, 1, f.availableUnits(t))
	assert.Equal(t, model.UnitAvailable, f.unitStatus(t, f.units[0].ID))
}

func TestConcurrentBookingsOnOneUnit(t *testing.T) {
	f := newFixture(t, 3, "")
	unitID := f.units[0].ID
	customers := []access.Actor{f.customer, testutil.SeedCustomer(t, f.db), testutil.SeedCustomer(t, f.db)}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		errs    []error
	)
	for _, c := range customers {
		wg.Add(1)
		go func(c access.Actor) {
			defer wg.Done()
			_, err := f.svc.CreateBooking(context.Background(), c, CreateBookingInput{UnitID: unitID, TotalAmount: dec("100")})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				success++
				return
			}
			errs = append(errs, err)
		}(c)
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	for _, err := range errs {
		assert.True(t, errors.Is(err, ErrUnitUnavailable) || errors.Is(err, repository.ErrConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 2, f.availableUnits(t))
	assert.Equal(t, model.UnitBooked, f.unitStatus(t, unitID))
}

func TestCancelReleasesUnitOnce(t *testing.T) {
	f := newFixture(t, 5, "")
	ctx := context.Background()
	b := f.book(t, f.units[1].ID, "1000")
	f.pay(t, f.customer, b.ID, "100")
	assert.Equal(t, 4, f.availableUnits(t))

	cancelled, err := f.svc.CancelBooking(ctx, f.customer, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, 5, f.availableUnits(t))
	assert.Equal(t, model.UnitAvailable, f.unitStatus(t, f.units[1].ID))

	again, err := f.svc.CancelBooking(ctx, f.builder, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, again.Status)
	assert.Equal(t, 5, f.availableUnits(t))

	_, err = f.svc.RecordPayment(ctx, f.customer, RecordPaymentInput{BookingID: b.ID, Amount: dec("10")})
	require.ErrorIs(t, err, ErrBookingCancelled)

	// payments already made stay on the ledger
	sum, err := repository.NewPaymentRepo(f.db).SumCompleted(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, sum.Equal(dec("100")))

	rebooked := f.book(t, f.units[1].ID, "1000")
	assert.Equal(t, model.BookingInquiry, rebooked.Status)
	assert.Equal(t, 4, f.availableUnits(t))
}

func TestBookingAccessControl(t *testing.T) {
	f := newFixture(t, 2, "")
	ctx := context.Background()
	b := f.book(t, f.units[0].ID, "1000")

	stranger := testutil.SeedCustomer(t, f.db)
	otherBuilder := testutil.SeedBuilder(t, f.db)
	for _, a := range []access.Actor{stranger, otherBuilder} {
		_, err := f.svc.CancelBooking(ctx, a, b.ID)
		require.ErrorIs(t, err, repository.ErrForbidden)
		_, err = f.svc.RecordPayment(ctx, a, RecordPaymentInput{BookingID: b.ID, Amount: dec("1")})
		require.ErrorIs(t, err, repository.ErrForbidden)
		_, err = f.svc.GetBookingPaymentSummary(ctx, a, b.ID)
		require.ErrorIs(t, err, repository.ErrForbidden)
	}

	_, err := f.svc.CancelBooking(ctx, f.customer, 424242)
	require.ErrorIs(t, err, ErrBookingNotFound)
	_, err = f.svc.GetBookingPaymentSummary(ctx, f.builder, 424242)
	require.ErrorIs(t, err, ErrBookingNotFound)

	got, err := f.svc.GetBooking(ctx, f.builder, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingInquiry, got.Status)
	assert.Equal(t, 1, f.availableUnits(t))
}

func TestOverpaymentRejected(t *testing.T) {
	f := newFixture(t, 1, config.OverpaymentReject)
	ctx := context.Background()
	b := f.book(t, f.units[0].ID, "1000")
	f.pay(t, f.customer, b.ID, "900")

	_, err := f.svc.RecordPayment(ctx, f.customer, RecordPaymentInput{BookingID: b.ID, Amount: dec("200")})
	require.ErrorIs(t, err, ErrOverpaymentRejected)

	got, err := f.svc.GetBooking(ctx, f.customer, b.ID)
	require.NoError(t, err)
	assert.True(t, got.PaidAmount.Equal(dec("900")))
	assert.True(t, got.PendingAmount.Equal(dec("100")))

	sum, err := repository.NewPaymentRepo(f.db).SumCompleted(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, sum.Equal(dec("900")))
}

func TestOverpaymentClamped(t *testing.T) {
	f := newFixture(t, 1, config.OverpaymentClamp)
	b := f.book(t, f.units[0].ID, "1000")
	f.pay(t, f.customer, b.ID, "900")

	res := f.pay(t, f.customer, b.ID, "200")
	assert.NotEmpty(t, res.Warning)
	assert.Equal(t, model.BookingCompleted, res.Booking.Status)
	assert.True(t, res.Booking.PendingAmount.IsZero())
	assert.True(t, res.Booking.PaidAmount.Equal(dec("1100")))
	assert.Equal(t, model.UnitSold, f.unitStatus(t, f.units[0].ID))
}

func TestInvalidPaymentInput(t *testing.T) {
	f := newFixture(t, 1, "")
	ctx := context.Background()
	b := f.book(t, f.units[0].ID, "1000")

	_, err := f.svc.RecordPayment(ctx, f.customer, RecordPaymentInput{BookingID: b.ID, Amount: dec("-1")})
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.svc.RecordPayment(ctx, f.customer, RecordPaymentInput{BookingID: b.ID, Amount: dec("999.995")})
	require.ErrorIs(t, err, ErrInvalidAmount)

	got, err := repository.NewBookingRepo(f.db).GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.PaidAmount.IsZero())
	assert.Equal(t, model.BookingInquiry, got.Status)
	_, err = f.svc.RecordPayment(ctx, f.customer, RecordPaymentInput{BookingID: b.ID, Amount: dec("1"), Method: "barter"})
	assert.Equal(t, repository.KindInvalidInput, repository.KindOf(err))
	_, err = f.svc.RecordPayment(ctx, f.customer, RecordPaymentInput{BookingID: 777777, Amount: dec("1")})
	require.ErrorIs(t, err, ErrBookingNotFound)
}

func TestNotificationFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t, 1, "")
	f.notifier.err = errors.New("broker down")

	b := f.book(t, f.units[0].ID, "1000")
	res := f.pay(t, f.customer, b.ID, "400")
	assert.Equal(t, model.BookingActive, res.Booking.Status)
	assert.Equal(t, 0, f.availableUnits(t))

	assert.Equal(t, []string{
		queue.EventBookingStatusChanged,
		queue.EventPaymentRecorded,
		queue.EventBookingStatusChanged,
	}, f.notifier.types())

	ev := f.notifier.events[1]
	assert.Equal(t, b.ID, ev.BookingID)
	assert.Equal(t, f.customer.UserID, ev.CustomerUserID)
	assert.Equal(t, f.builder.UserID, ev.BuilderUserID)
	assert.Equal(t, "400.00", ev.Amount)
}

func TestListBookingsAndStats(t *testing.T) {
	f := newFixture(t, 3, "")
	ctx := context.Background()
	b1 := f.book(t, f.units[0].ID, "1000")
	b2 := f.book(t, f.units[1].ID, "2000")
	f.pay(t, f.customer, b1.ID, "1000")
	_, err := f.svc.CancelBooking(ctx, f.customer, b2.ID)
	require.NoError(t, err)
	b3 := f.book(t, f.units[2].ID, "3000")
	f.pay(t, f.customer, b3.ID, "500")

	mine, err := f.svc.ListBookings(ctx, f.customer, repository.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	partial, err := f.svc.ListBookings(ctx, f.builder, repository.BookingFilter{PaymentStatus: repository.PaidPartial})
	require.NoError(t, err)
	require.Len(t, partial, 1)
	assert.Equal(t, b3.ID, partial[0].ID)
	assert.Equal(t, f.project.ID, partial[0].ProjectID)

	others, err := f.svc.ListBookings(ctx, testutil.SeedCustomer(t, f.db), repository.BookingFilter{})
	require.NoError(t, err)
	assert.Empty(t, others)

	st, err := f.svc.BuilderStats(ctx, f.builder)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 1, st.Active)
	assert.Equal(t, 1, st.Completed)
	assert.Equal(t, 1, st.Cancelled)
	assert.True(t, st.Revenue.Equal(dec("1500")), "revenue = %s", st.Revenue)
	assert.True(t, st.PendingRevenue.Equal(dec("2500")), "pending = %s", st.PendingRevenue)

	_, err = f.svc.BuilderStats(ctx, f.customer)
	require.ErrorIs(t, err, repository.ErrForbidden)
}
