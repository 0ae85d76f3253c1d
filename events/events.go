// Package events announces content changes to downstream consumers (site
// rebuilds, caches) over a durable AMQP queue.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	PageSaved         = "page.saved"
	VersionSaved      = "version.saved"
	VersionRolledBack = "version.rolledback"
)

type Event struct {
	Type         string    `json:"type"`
	Owner        string    `json:"owner,omitempty"`
	Repo         string    `json:"repo,omitempty"`
	Branch       string    `json:"branch,omitempty"`
	Commit       string    `json:"commit,omitempty"`
	Slug         string    `json:"slug,omitempty"`
	Version      int64     `json:"version,omitempty"`
	RestoredFrom int64     `json:"restoredFrom,omitempty"`
	Backend      string    `json:"backend,omitempty"`
	At           time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error {
	return nil
}

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitPublisher struct {
	channel channel
	queue   string
}

func NewRabbitPublisher(ch *amqp.Channel, queue string) *RabbitPublisher {
	return &RabbitPublisher{channel: ch, queue: queue}
}

func (p *RabbitPublisher) Publish(ctx context.Context, event Event) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("[RABBIT] encoding %s event: %w", event.Type, err)
	}

	err = p.channel.PublishWithContext(ctx,
		"",      // default exchange routes by queue name
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         event.Type,
			Timestamp:    event.At,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("[RABBIT] publishing %s event: %w", event.Type, err)
	}

	return nil
}
