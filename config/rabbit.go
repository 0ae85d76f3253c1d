package config

import (
	"fmt"
	"net/url"

	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitConnection struct {
	Connection *amqp.Connection
	Channel    *amqp.Channel
	Queue      amqp.Queue
}

func (c *RabbitConnection) Close() error {
	if c.Channel != nil {
		c.Channel.Close()
	}

	return c.Connection.Close()
}

// InitRabbitConnection dials the broker and declares the durable events queue.
func InitRabbitConnection(settings RabbitSettings) (*RabbitConnection, error) {
	if !settings.Configured() {
		return nil, fmt.Errorf("[RABBIT] MQ_HOST, MQ_PORT, MQ_USER and MQ_PASS are required")
	}

	conn, err := amqp.Dial(getRabbitMQConnectionString(settings))
	if err != nil {
		return nil, fmt.Errorf("[RABBIT] failed to connect: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("[RABBIT] failed to open a channel: %w", err)
	}

	queue, err := channel.QueueDeclare(
		settings.Queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("[RABBIT] failed to declare queue %s: %w", settings.Queue, err)
	}

	return &RabbitConnection{Connection: conn, Channel: channel, Queue: queue}, nil
}

func getRabbitMQConnectionString(settings RabbitSettings) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s", url.PathEscape(settings.User), url.PathEscape(settings.Pass), settings.Host, settings.Port)
}
