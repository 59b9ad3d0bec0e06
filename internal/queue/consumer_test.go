package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Omvpatil/RealEstate/internal/logging"
	"github.com/Omvpatil/RealEstate/internal/model"
)

type memStore struct {
	rows []model.Notification
	err  error
}

func (m *memStore) CreateNotification(_ context.Context, n *model.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, *n)
	return nil
}

func encode(t *testing.T, ev BookingEvent) []byte {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return b
}

func TestHandleMessageNotifiesBothParties(t *testing.T) {
	store := &memStore{}
	c := NewConsumer("amqp://unused", store, logging.Discard())

	err := c.handleMessage(context.Background(), encode(t, BookingEvent{
		Type:           EventPaymentRecorded,
		BookingID:      9,
		CustomerUserID: 3,
		BuilderUserID:  4,
		Status:         "active",
		Amount:         "250.00",
		PaidAmount:     "250.00",
		PendingAmount:  "750.00",
	}))
	require.NoError(t, err)
	require.Len(t, store.rows, 2)
	assert.Equal(t, uint64(3), store.rows[0].UserID)
	assert.Equal(t, uint64(4), store.rows[1].UserID)
	for _, n := range store.rows {
		assert.Equal(t, model.NotifyPayment, n.Type)
		assert.Equal(t, "Payment of 250.00 recorded for booking #9", n.Title)
		require.NotNil(t, n.BookingID)
		assert.Equal(t, uint64(9), *n.BookingID)
	}
}

func TestHandleMessageSkipsUnknownRecipients(t *testing.T) {
	store := &memStore{}
	c := NewConsumer("amqp://unused", store, logging.Discard())

	err := c.handleMessage(context.Background(), encode(t, BookingEvent{
		Type:           EventBookingStatusChanged,
		BookingID:      1,
		CustomerUserID: 7,
		PreviousStatus: "inquiry",
		Status:         "booking_confirmed",
	}))
	require.NoError(t, err)
	require.Len(t, store.rows, 1)
	assert.Equal(t, model.NotifyBookingUpdate, store.rows[0].Type)
	assert.Equal(t, "Booking #1 is now booking confirmed", store.rows[0].Title)
}

func TestHandleMessageErrors(t *testing.T) {
	c := NewConsumer("amqp://unused", &memStore{}, logging.Discard())
	assert.Error(t, c.handleMessage(context.Background(), []byte("{not json")))
	assert.Error(t, c.handleMessage(context.Background(), encode(t, BookingEvent{Type: EventPaymentRecorded})))

	failing := NewConsumer("amqp://unused", &memStore{err: errors.New("db down")}, logging.Discard())
	assert.Error(t, failing.handleMessage(context.Background(), encode(t, BookingEvent{BookingID: 1, CustomerUserID: 2})))
}

func TestEventTitles(t *testing.T) {
	assert.Equal(t, "Booking #5 created", BookingEvent{Type: EventBookingStatusChanged, BookingID: 5, Status: "inquiry"}.Title())
	assert.Equal(t, "Booking #5 updated", BookingEvent{Type: "other", BookingID: 5}.Title())
	assert.Equal(t, "status=active | paid=1.00 | pending=2.00",
		BookingEvent{Status: "active", PaidAmount: "1.00", PendingAmount: "2.00"}.Body())
}
