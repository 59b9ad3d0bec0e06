package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// BookingEventsQueue is the durable queue booking events are routed to.
const BookingEventsQueue = "booking.events"

// Publisher sends BookingEvents to RabbitMQ.  Each publish opens its own
// connection so a broker outage never leaves a broken channel behind.
type Publisher struct {
	url string
	log *logrus.Entry
}

func NewPublisher(url string, log *logrus.Entry) *Publisher {
	return &Publisher{url: url, log: log.WithField("component", "publisher")}
}

// Publish sends ev to the booking events queue.  Errors are logged and
// returned so the caller can choose to ignore them.  Messages are
// persistent.
func (p *Publisher) Publish(ctx context.Context, ev BookingEvent) error {
	l := p.log.WithFields(logrus.Fields{"type": ev.Type, "booking_id": ev.BookingID})

	conn, err := amqp.Dial(p.url)
	if err != nil {
		l.WithError(err).Warn("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		l.WithError(err).Warn("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := declare(ch); err != nil {
		l.WithError(err).Warn("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", BookingEventsQueue, false, false, pub); err != nil {
		l.WithError(err).Warn("rabbitmq: publish failed")
		return err
	}
	return nil
}

// declare makes sure the durable queue exists.  It is idempotent.
func declare(ch *amqp.Channel) error {
	_, err := ch.QueueDeclare(
		BookingEventsQueue, // name
		true,               // durable
		false,              // autoDelete
		false,              // exclusive
		false,              // noWait
		nil,                // args
	)
	return err
}
