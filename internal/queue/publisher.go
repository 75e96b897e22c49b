package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/habit-coach/internal/logger"
)

// Publisher writes OutboundMessage payloads to the durable SMS queue.  It
// dials per publish; SMS volume is a handful of messages per user per day
// so connection reuse is not worth the reconnect bookkeeping.
type Publisher struct {
	URL   string
	Queue string
	Log   *logger.Logger
}

func NewPublisher(url, queue string, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{URL: url, Queue: queue, Log: log.With("component", "sms-publisher")}
}

// Send enqueues a plain SMS.  Errors are logged and returned so the caller
// can choose to ignore them.
func (p *Publisher) Send(ctx context.Context, to, body, kind string) error {
	return p.Publish(ctx, NewOutboundMessage(to, body, kind))
}

// Publish marshals msg and publishes it as a persistent message on the
// default exchange with the queue name as routing key.
func (p *Publisher) Publish(ctx context.Context, msg OutboundMessage) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		p.Log.Warn("dial failed", "error", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Log.Warn("channel open failed", "error", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := declare(ch, p.Queue); err != nil {
		p.Log.Warn("queue declare failed", "queue", p.Queue, "error", err)
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
		p.Log.Warn("publish failed", "id", msg.ID, "error", err)
		return err
	}
	p.Log.Debug("sms queued", "id", msg.ID, "kind", msg.Kind)
	return nil
}

// declare makes sure the durable queue exists.  It is idempotent.
func declare(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,  // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	return err
}
