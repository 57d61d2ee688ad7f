package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const relayExchange = "orders.lifecycle"

// Relay republishes lifecycle events to a RabbitMQ topic exchange so
// out-of-process consumers (reporting, fleet dashboards) can listen
// without a connection to this process. Routing key:
// order.<vendorID>.<newStatus>.
type Relay struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	lg   *slog.Logger
}

func NewRelay(url string, lg *slog.Logger) (*Relay, error) {
	if lg == nil {
		lg = slog.Default()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(relayExchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Relay{conn: conn, ch: ch, lg: lg}, nil
}

func (r *Relay) Close() {
	if r == nil {
		return
	}
	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn != nil {
		_ = r.conn.Close()
	}
}

// Forward publishes one event. Failures are logged, never propagated:
// the relay is best-effort relative to the committed transition.
func (r *Relay) Forward(ctx context.Context, evt Event) {
	body, err := json.Marshal(evt)
	if err != nil {
		r.lg.Error("relay marshal failed", "event", evt.ID, "err", err)
		return
	}
	key := fmt.Sprintf("order.%d.%s", evt.VendorID, evt.NewStatus)
	pub := amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		Timestamp:     time.Now().UTC(),
		MessageId:     evt.ID,
		CorrelationId: fmt.Sprintf("%d", evt.OrderID),
		Body:          body,
	}
	if err := r.ch.PublishWithContext(ctx, relayExchange, key, false, false, pub); err != nil {
		r.lg.Error("relay publish failed", "event", evt.ID, "key", key, "err", err)
	}
}
