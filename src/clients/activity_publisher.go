package clients

import (
	"encoding/json"
	"fmt"
	"presence-svc/src/internal/config"
	"presence-svc/src/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// EventPublisher delivers presence transitions to downstream consumers
type EventPublisher interface {
	PublishPresence(event models.PresenceEvent) error
}

type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type ActivityPublisher struct {
	channel    amqpChannel
	exchange   string
	routingKey string
}

// NewActivityPublisher declares the configured exchange and returns a publisher bound to it
func NewActivityPublisher(cfg *config.MessagingConfig, channel *amqp.Channel) (*ActivityPublisher, error) {
	return newActivityPublisher(cfg, channel)
}

func newActivityPublisher(cfg *config.MessagingConfig, channel amqpChannel) (*ActivityPublisher, error) {
	kind := cfg.ExchangeType
	if kind == "" {
		kind = amqp.ExchangeTopic
	}

	err := channel.ExchangeDeclare(cfg.Exchange, kind, cfg.Durable, cfg.AutoDelete, cfg.Internal, cfg.NoWait, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange %q: %w", cfg.Exchange, err)
	}

	logrus.WithFields(logrus.Fields{
		"exchange":    cfg.Exchange,
		"type":        kind,
		"routing_key": cfg.RoutingKey,
	}).Info("Presence event exchange ready")

	return &ActivityPublisher{
		channel:    channel,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
	}, nil
}

func (p *ActivityPublisher) PublishPresence(event models.PresenceEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal presence event: %w", err)
	}

	err = p.channel.Publish(
		p.exchange,
		p.routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": event.UserID,
			"action":  event.Action,
		}).Error("Failed to publish presence event")
		return fmt.Errorf("failed to publish presence event: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id": event.UserID,
		"action":  event.Action,
	}).Debug("Presence event published")

	return nil
}

// NopPublisher is used when messaging is disabled
type NopPublisher struct{}

func (NopPublisher) PublishPresence(event models.PresenceEvent) error {
	logrus.WithFields(logrus.Fields{
		"user_id": event.UserID,
		"action":  event.Action,
	}).Debug("Messaging disabled, presence event dropped")
	return nil
}
