package clients

import (
	"errors"
	"fmt"
	"net/url"
	"presence-svc/src/internal/config"

	"github.com/streadway/amqp"
)

// RabbitMQ owns the broker connection and the single channel presence events go out on
type RabbitMQ struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
}

func NewRabbitMQ(cfg *config.MessagingConfig) (*RabbitMQ, error) {
	log.WithField("url", redactURL(cfg.Url)).Info("Connecting to RabbitMQ...")

	conn, err := amqp.Dial(cfg.Url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	log.WithField("exchange", cfg.Exchange).Info("Connected to RabbitMQ")

	return &RabbitMQ{Conn: conn, Channel: channel}, nil
}

// Connected reports whether the broker connection is still open
func (r *RabbitMQ) Connected() bool {
	return r.Conn != nil && !r.Conn.IsClosed()
}

func (r *RabbitMQ) Close() error {
	if r.Channel != nil {
		if err := r.Channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			log.WithError(err).Error("Failed to close RabbitMQ channel")
			return err
		}
	}

	if r.Conn != nil {
		if err := r.Conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			log.WithError(err).Error("Failed to close RabbitMQ connection")
			return err
		}
	}

	log.Info("RabbitMQ connection closed")
	return nil
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid"
	}
	return u.Redacted()
}
