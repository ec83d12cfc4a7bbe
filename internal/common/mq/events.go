package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/logger"
)

// OrderEvent is pushed to vendors when an order is created or changes status.
type OrderEvent struct {
	Type        string    `json:"type"` // order.created, order.status_changed
	OrderID     int64     `json:"order_id"`
	VendorID    int64     `json:"vendor_id"`
	CustomerID  int64     `json:"customer_id"`
	Status      string    `json:"status"`
	TotalAmount float64   `json:"total_amount"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// PaymentEvent is pushed to vendors when a payment reaches a terminal state.
type PaymentEvent struct {
	Type       string    `json:"type"` // payment.completed, payment.failed
	PaymentID  int64     `json:"payment_id"`
	OrderID    int64     `json:"order_id"`
	VendorID   int64     `json:"vendor_id"`
	Amount     float64   `json:"amount"`
	Status     string    `json:"status"`
	Receipt    string    `json:"receipt,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (r *RabbitMQ) publish(ctx context.Context, routingKey string, body []byte) error {
	return r.Chan.PublishWithContext(
		ctx,
		r.Exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func (r *RabbitMQ) PublishOrderEvent(ctx context.Context, ev OrderEvent) error {
	orderID := fmt.Sprint(ev.OrderID)
	body, err := json.Marshal(ev)
	if err != nil {
		logger.Error("publish_order_event", "Failed to marshal order event", "", orderID, err.Error())
		return err
	}

	routingKey := fmt.Sprintf("%s.%d", ev.Type, ev.VendorID)
	if err := r.publish(ctx, routingKey, body); err != nil {
		logger.Error("publish_order_event", "Failed to publish order event", "", orderID, err.Error())
		return err
	}

	logger.Info("publish_order_event", fmt.Sprintf("Order event %s published", ev.Type), "", orderID)
	return nil
}

func (r *RabbitMQ) PublishPaymentEvent(ctx context.Context, ev PaymentEvent) error {
	orderID := fmt.Sprint(ev.OrderID)
	body, err := json.Marshal(ev)
	if err != nil {
		logger.Error("publish_payment_event", "Failed to marshal payment event", "", orderID, err.Error())
		return err
	}

	routingKey := fmt.Sprintf("%s.%d", ev.Type, ev.VendorID)
	if err := r.publish(ctx, routingKey, body); err != nil {
		logger.Error("publish_payment_event", "Failed to publish payment event", "", orderID, err.Error())
		return err
	}

	logger.Info("publish_payment_event", fmt.Sprintf("Payment event %s published", ev.Type), "", orderID)
	return nil
}

// ConsumeVendorEvents delivers every order/payment event to the handler
// together with the vendor id parsed from the routing key.
func (r *RabbitMQ) ConsumeVendorEvents(queueName string, handler func(vendorID string, body []byte)) error {
	q, err := r.Chan.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	for _, pattern := range []string{"order.#", "payment.#"} {
		if err := r.Chan.QueueBind(q.Name, pattern, r.Exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s to %s: %w", q.Name, pattern, err)
		}
	}

	msgs, err := r.Chan.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume from %s: %w", q.Name, err)
	}

	go func() {
		for msg := range msgs {
			vendorID := vendorIDFromRoutingKey(msg.RoutingKey)
			if vendorID == "" {
				logger.Warn("consume_vendor_events", "Event without vendor routing suffix", "", "", msg.RoutingKey)
				continue
			}
			handler(vendorID, msg.Body)
		}
	}()

	return nil
}

func vendorIDFromRoutingKey(key string) string {
	// Routing keys look like "order.created.42"; the vendor id is the last segment.
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '.' {
			return key[i+1:]
		}
	}
	return ""
}
