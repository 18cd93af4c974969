package messaging

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func DeclareBindAndConsume(ch *amqp.Channel, prefix string, topic ChangeTopic) (<-chan amqp.Delivery, error) {
	name := TopicName(prefix, topic)
	q, err := ch.QueueDeclare(
		"",    // name
		false, // durable
		false, // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("declare consumer queue: %w", err)
	}
	err = ch.QueueBind(q.Name, name, name, false, nil)
	if err != nil {
		return nil, fmt.Errorf("bind consumer queue: %w", err)
	}
	return ch.Consume(
		q.Name,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
}

// ListenToTopic consumes the topic in a goroutine until the channel closes
// or the handler returns an error.
func ListenToTopic(ch *amqp.Channel, prefix string, topic ChangeTopic, log *zap.Logger, handler func(amqp.Delivery) error) error {
	msgs, err := DeclareBindAndConsume(ch, prefix, topic)
	if err != nil {
		return err
	}

	go func() {
		defer ch.Close()
		for d := range msgs {
			if err := handler(d); err != nil {
				log.Error("processing message", zap.String("topic", string(topic)), zap.Error(err))
				return
			}
			d.Ack(false)
		}
	}()
	return nil
}
