package gtag

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/matst80/slask-tracking/pkg/messaging"
)

// RabbitTagger publishes every gtag call as a JSON Call on the
// <country>_tracking topic.
type RabbitTagger struct {
	country    string
	connection messaging.Publisher
	closer     func() error
	now        func() time.Time
}

func NewRabbitTagger(url, country string) (*RabbitTagger, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Properties: amqp.NewConnectionProperties(),
	})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()
	if err := messaging.DefineTopic(ch, country, messaging.TrackingTopic); err != nil {
		conn.Close()
		return nil, err
	}
	return &RabbitTagger{
		country:    country,
		connection: conn,
		closer:     conn.Close,
		now:        time.Now,
	}, nil
}

func (t *RabbitTagger) Tag(command Command, target string, params Params) error {
	return messaging.SendChange(t.connection, t.country, messaging.TrackingTopic, Call{
		Command: command,
		Target:  target,
		Params:  params,
		Time:    t.now(),
	})
}

func (t *RabbitTagger) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer()
}
