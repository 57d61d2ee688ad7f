package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"barorder/entity"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Audience is who a user-facing notice is addressed to.
type Audience string

const (
	AudienceCustomer Audience = "customer"
	AudienceVendor   Audience = "vendor"
)

// Notifier forwards user-facing notices (push/SMS/in-app) after a
// committed transition. It is an external collaborator: best-effort,
// never part of the transition's correctness contract.
type Notifier interface {
	Notify(ctx context.Context, orderID uint, status entity.FulfillmentStatus, aud Audience) error
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, uint, entity.FulfillmentStatus, Audience) error {
	return nil
}

// LogNotifier records notices on the structured log. Used when no broker
// is configured and in tests.
type LogNotifier struct {
	Lg *slog.Logger
}

func (n LogNotifier) Notify(_ context.Context, orderID uint, status entity.FulfillmentStatus, aud Audience) error {
	lg := n.Lg
	if lg == nil {
		lg = slog.Default()
	}
	lg.Info("notify", "order", orderID, "status", status, "audience", aud)
	return nil
}

const notifyExchange = "order.notifications"

// AMQPNotifier fans notices out on a RabbitMQ fanout exchange; delivery
// workers (push, SMS) consume it downstream.
type AMQPNotifier struct {
	ch *amqp.Channel
}

func NewAMQPNotifier(conn *amqp.Connection) (*AMQPNotifier, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(notifyExchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPNotifier{ch: ch}, nil
}

func (n *AMQPNotifier) Close() {
	if n != nil && n.ch != nil {
		_ = n.ch.Close()
	}
}

func (n *AMQPNotifier) Notify(ctx context.Context, orderID uint, status entity.FulfillmentStatus, aud Audience) error {
	body, err := json.Marshal(map[string]any{
		"orderId":  orderID,
		"status":   status,
		"audience": aud,
	})
	if err != nil {
		return err
	}
	return n.ch.PublishWithContext(ctx, notifyExchange, "", false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}
