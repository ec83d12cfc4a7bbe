package mq

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/logger"
)

type RabbitMQ struct {
	Conn     *amqp.Connection
	Chan     *amqp.Channel
	URL      string
	Exchange string
}

func NewRabbitMQ(host string, port int, user, password, exchange string) (*RabbitMQ, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d/", user, password, host, port)
	rmq := &RabbitMQ{URL: url, Exchange: exchange}

	if err := rmq.connect(); err != nil {
		return nil, err
	}
	return rmq, nil
}

func (r *RabbitMQ) connect() error {
	var conn *amqp.Connection
	var err error

	for i := 1; i <= 5; i++ {
		conn, err = amqp.Dial(r.URL)
		if err == nil {
			r.Conn = conn
			r.Chan, err = conn.Channel()
			if err != nil {
				return fmt.Errorf("failed to open channel: %w", err)
			}
			if err := r.Chan.ExchangeDeclare(
				r.Exchange,
				"topic",
				true,  // durable
				false, // auto-delete
				false, // internal
				false, // no-wait
				nil,
			); err != nil {
				return fmt.Errorf("failed to declare exchange: %w", err)
			}
			logger.Info("mq_connected", "Connected to RabbitMQ", "", "")
			return nil
		}
		logger.Warn("mq_reconnect", fmt.Sprintf("RabbitMQ reconnect attempt %d failed", i), "", "", err.Error())
		time.Sleep(time.Duration(i) * 2 * time.Second)
	}
	return fmt.Errorf("failed to connect to RabbitMQ after retries: %w", err)
}

func (r *RabbitMQ) Close() {
	if r.Chan != nil {
		_ = r.Chan.Close()
	}
	if r.Conn != nil {
		_ = r.Conn.Close()
	}
	logger.Info("mq_connection_closed", "RabbitMQ connection closed", "", "")
}
