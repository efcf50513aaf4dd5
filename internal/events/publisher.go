package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/shop"
)

const OrderPlacedQueue = "storefront.order.placed"

const publishTimeout = 3 * time.Second

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	ch  channel
	now func() time.Time
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return newPublisher(ch)
}

func newPublisher(ch channel) (*Publisher, error) {
	if _, err := ch.QueueDeclare(OrderPlacedQueue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare %s: %w", OrderPlacedQueue, err)
	}
	return &Publisher{ch: ch, now: time.Now}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

// NotifyOrderPlaced publishes an OrderPlaced event for a successful checkout.
func (p *Publisher) NotifyOrderPlaced(ctx context.Context, orderID string, req shop.OrderRequest) error {
	ev := newOrderPlaced(orderID, req, middleware.GetCorrelationID(ctx), p.now())

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal OrderPlaced: %w", err)
	}
	return p.publishJSON(ctx, OrderPlacedQueue, body)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		"",
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			CorrelationId: middleware.GetCorrelationID(ctx),
			Timestamp:     p.now().UTC(),
			Body:          body,
		},
	)
}
