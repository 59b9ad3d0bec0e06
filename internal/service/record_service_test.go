package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Omvpatil/RealEstate/internal/logging"
	"github.com/Omvpatil/RealEstate/internal/model"
	"github.com/Omvpatil/RealEstate/internal/repository"
	"github.com/Omvpatil/RealEstate/internal/testutil"
)

func newRecordService(t *testing.T, f *fixture) *RecordService {
	t.Helper()
	return NewRecordService(f.db, repository.NewGormRecordRepository(f.gdb), logging.Discard())
}

func TestAppointments(t *testing.T) {
	f := newFixture(t, 1, "")
	svc := newRecordService(t, f)
	ctx := context.Background()
	when := time.Now().Add(48 * time.Hour).Truncate(time.Second)

	_, err := svc.BookAppointment(ctx, f.customer, AppointmentInput{ProjectID: f.project.ID, ScheduledAt: time.Now().Add(-time.Hour)})
	assert.Equal(t, repository.KindInvalidInput, repository.KindOf(err))
	_, err = svc.BookAppointment(ctx, f.customer, AppointmentInput{ProjectID: 31337, ScheduledAt: when})
	require.ErrorIs(t, err, ErrProjectNotFound)
	_, err = svc.BookAppointment(ctx, f.builder, AppointmentInput{ProjectID: f.project.ID, ScheduledAt: when})
	require.ErrorIs(t, err, repository.ErrForbidden)

	a, err := svc.BookAppointment(ctx, f.customer, AppointmentInput{
		ProjectID:   f.project.ID,
		ScheduledAt: when,
		Agenda:      "walk through tower B",
		Attendees:   json.RawMessage(`["spouse"]`),
	})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentScheduled, a.Status)
	assert.Equal(t, 60, a.DurationMinutes)
	assert.Equal(t, "site", a.Location)

	list, err := svc.ListAppointments(ctx, f.builder, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)

	_, err = svc.UpdateAppointmentStatus(ctx, f.customer, a.ID, model.AppointmentConfirmed, nil)
	require.ErrorIs(t, err, repository.ErrForbidden)
	_, err = svc.UpdateAppointmentStatus(ctx, f.builder, a.ID, model.AppointmentRescheduled, nil)
	assert.Equal(t, repository.KindInvalidInput, repository.KindOf(err))

	later := when.Add(24 * time.Hour)
	moved, err := svc.UpdateAppointmentStatus(ctx, f.builder, a.ID, model.AppointmentRescheduled, &later)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentRescheduled, moved.Status)
	assert.True(t, moved.ScheduledAt.Equal(later.UTC()), "scheduled_at = %s", moved.ScheduledAt)

	cancelled, err := svc.UpdateAppointmentStatus(ctx, f.customer, a.ID, model.AppointmentCancelled, nil)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentCancelled, cancelled.Status)

	_, err = svc.UpdateAppointmentStatus(ctx, f.builder, 9999, model.AppointmentConfirmed, nil)
	require.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestMessages(t *testing.T) {
	f := newFixture(t, 1, "")
	svc := newRecordService(t, f)
	ctx := context.Background()

	_, err := svc.SendMessage(ctx, f.customer, MessageInput{RecipientID: f.customer.UserID, Subject: "hi", Body: "me"})
	assert.Equal(t, repository.KindInvalidInput, repository.KindOf(err))
	_, err = svc.SendMessage(ctx, f.customer, MessageInput{RecipientID: 8888, Subject: "hi", Body: "x"})
	require.ErrorIs(t, err, ErrUserNotFound)

	m, err := svc.SendMessage(ctx, f.customer, MessageInput{RecipientID: f.builder.UserID, Subject: " Parking ", Body: "Is covered parking included?", ProjectID: &f.project.ID})
	require.NoError(t, err)
	assert.Equal(t, "Parking", m.Subject)

	inbox, err := svc.ListMessages(ctx, f.builder, false, 10, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Nil(t, inbox[0].ReadAt)

	outbox, err := svc.ListMessages(ctx, f.customer, true, 10, 0)
	require.NoError(t, err)
	assert.Len(t, outbox, 1)

	require.ErrorIs(t, svc.MarkMessageRead(ctx, f.customer, m.ID), repository.ErrForbidden)
	require.NoError(t, svc.MarkMessageRead(ctx, f.builder, m.ID))

	inbox, err = svc.ListMessages(ctx, f.builder, false, 10, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.NotNil(t, inbox[0].ReadAt)
}

func TestChangeRequestReviewNotifiesCustomer(t *testing.T) {
	f := newFixture(t, 2, "")
	svc := newRecordService(t, f)
	ctx := context.Background()
	b := f.book(t, f.units[0].ID, "1000")

	_, err := svc.SubmitChangeRequest(ctx, f.customer, b.ID, ChangeRequestInput{Type: "paint", Description: "x"})
	assert.Equal(t, repository.KindInvalidInput, repository.KindOf(err))
	_, err = svc.SubmitChangeRequest(ctx, testutil.SeedCustomer(t, f.db), b.ID, ChangeRequestInput{Type: "layout", Description: "x"})
	require.ErrorIs(t, err, repository.ErrForbidden)

	cr, err := svc.SubmitChangeRequest(ctx, f.customer, b.ID, ChangeRequestInput{Type: "Fixtures", Description: "Swap the kitchen tiles"})
	require.NoError(t, err)
	assert.Equal(t, model.ChangeSubmitted, cr.Status)
	assert.Equal(t, "fixtures", cr.Type)

	_, err = svc.ReviewChangeRequest(ctx, f.customer, cr.ID, model.ChangeApproved, "")
	require.ErrorIs(t, err, repository.ErrForbidden)
	_, err = svc.ReviewChangeRequest(ctx, f.builder, cr.ID, model.ChangeSubmitted, "")
	assert.Equal(t, repository.KindInvalidInput, repository.KindOf(err))

	reviewed, err := svc.ReviewChangeRequest(ctx, f.builder, cr.ID, model.ChangeApproved, " ok ")
	require.NoError(t, err)
	assert.Equal(t, model.ChangeApproved, reviewed.Status)
	assert.Equal(t, "ok", reviewed.BuilderNote)

	list, err := svc.ListChangeRequests(ctx, f.builder, b.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	notes, err := svc.ListNotifications(ctx, f.customer, true, 10, 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotifyChangeRequest, notes[0].Type)
	require.NoError(t, svc.MarkNotificationRead(ctx, f.customer, notes[0].ID))

	notes, err = svc.ListNotifications(ctx, f.customer, true, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, notes)

	_, err = f.svc.CancelBooking(ctx, f.customer, b.ID)
	require.NoError(t, err)
	_, err = svc.SubmitChangeRequest(ctx, f.customer, b.ID, ChangeRequestInput{Type: "layout", Description: "x"})
	require.ErrorIs(t, err, ErrBookingCancelled)
}

func TestSettings(t *testing.T) {
	f := newFixture(t, 1, "")
	svc := newRecordService(t, f)
	ctx := context.Background()

	_, err := svc.PutSetting(ctx, f.customer, "booking.token_percent", json.RawMessage(`10`))
	require.ErrorIs(t, err, repository.ErrForbidden)
	_, err = svc.PutSetting(ctx, f.builder, "booking.token_percent", json.RawMessage(`{bad`))
	assert.Equal(t, repository.KindInvalidInput, repository.KindOf(err))

	_, err = svc.PutSetting(ctx, f.builder, "booking.token_percent", json.RawMessage(`10`))
	require.NoError(t, err)
	_, err = svc.PutSetting(ctx, f.builder, "booking.token_percent", json.RawMessage(`{"default":12}`))
	require.NoError(t, err)

	st, err := svc.GetSetting(ctx, "booking.token_percent")
	require.NoError(t, err)
	assert.JSONEq(t, `{"default":12}`, string(st.Value))

	all, err := svc.ListSettings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = svc.GetSetting(ctx, "missing")
	require.ErrorIs(t, err, ErrSettingNotFound)
}
