package events

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Dial connects to the broker. An empty url means events are disabled and is reported as an error.
func Dial(url string) (*amqp.Connection, error) {
	if url == "" {
		return nil, fmt.Errorf("amqp url is empty")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	return conn, nil
}
