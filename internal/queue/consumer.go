package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/Omvpatil/RealEstate/internal/model"
)

// NotificationWriter persists in-app notifications.
// *repository.GormRecordRepository satisfies it.
type NotificationWriter interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
}

// Consumer turns booking events into notification rows for the customer
// and the builder involved.
type Consumer struct {
	url   string
	store NotificationWriter
	log   *logrus.Entry
}

func NewConsumer(url string, store NotificationWriter, log *logrus.Entry) *Consumer {
	return &Consumer{url: url, store: store, log: log.WithField("component", "consumer")}
}

// Run connects to RabbitMQ and consumes the booking events queue until ctx
// is cancelled.  Broker failures are retried with exponential backoff
// capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return nil
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		c.log.WithError(err).Warn("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.WithError(err).Warn("set QoS failed")
	}
	if err := declare(ch); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, BookingEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := c.handleMessage(ctx, d.Body); err != nil {
			c.log.WithError(err).Error("handle message failed")
			_ = d.Nack(false, false) // do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// handleMessage stores one notification per party named in the event.
func (c *Consumer) handleMessage(ctx context.Context, body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.BookingID == 0 {
		return errors.New("event without booking_id")
	}
	typ := model.NotifyBookingUpdate
	if ev.Type == EventPaymentRecorded {
		typ = model.NotifyPayment
	}
	bookingID := ev.BookingID
	for _, uid := range []uint64{ev.CustomerUserID, ev.BuilderUserID} {
		if uid == 0 {
			continue
		}
		n := &model.Notification{
			UserID:    uid,
			Type:      typ,
			Title:     ev.Title(),
			Body:      ev.Body(),
			BookingID: &bookingID,
		}
		if err := c.store.CreateNotification(ctx, n); err != nil {
			return fmt.Errorf("store notification: %w", err)
		}
	}
	c.log.WithFields(logrus.Fields{"type": ev.Type, "booking_id": ev.BookingID}).Debug("event handled")
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
