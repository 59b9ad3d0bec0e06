// Package queue defines message payloads exchanged over the message broker
// together with the publisher and consumer that move them.
package queue

import (
	"fmt"
	"strings"
)

// Event types carried in BookingEvent.Type.
const (
	EventBookingStatusChanged = "booking.status_changed"
	EventPaymentRecorded      = "payment.recorded"
)

// BookingEvent is published after a booking or payment transaction
// commits.  It carries enough for the consumer to notify both parties
// without querying the primary database.
type BookingEvent struct {
	Type           string `json:"type"`
	BookingID      uint64 `json:"booking_id"`
	UnitID         uint64 `json:"unit_id"`
	ProjectID      uint64 `json:"project_id"`
	CustomerUserID uint64 `json:"customer_user_id"`
	BuilderUserID  uint64 `json:"builder_user_id"`
	PreviousStatus string `json:"previous_status,omitempty"`
	Status         string `json:"status"`
	PaymentID      uint64 `json:"payment_id,omitempty"`
	Amount         string `json:"amount,omitempty"`
	PaidAmount     string `json:"paid_amount"`
	PendingAmount  string `json:"pending_amount"`
	OccurredAt     string `json:"occurred_at"`
}

// Title is the one-line summary shown in the notification list.
func (e BookingEvent) Title() string {
	switch e.Type {
	case EventPaymentRecorded:
		return fmt.Sprintf("Payment of %s recorded for booking #%d", e.Amount, e.BookingID)
	case EventBookingStatusChanged:
		if e.PreviousStatus == "" {
			return fmt.Sprintf("Booking #%d created", e.BookingID)
		}
		return fmt.Sprintf("Booking #%d is now %s", e.BookingID, humanize(e.Status))
	}
	return fmt.Sprintf("Booking #%d updated", e.BookingID)
}

// Body is the notification detail line.
func (e BookingEvent) Body() string {
	return fmt.Sprintf("status=%s | paid=%s | pending=%s", e.Status, e.PaidAmount, e.PendingAmount)
}

func humanize(s string) string { return strings.ReplaceAll(s, "_", " ") }
