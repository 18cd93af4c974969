package messaging

import (
	"fmt"

	"github.com/bytedance/sonic"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the part of an AMQP connection needed to publish.
type Publisher interface {
	Channel() (*amqp.Channel, error)
}

func DefineTopic(ch *amqp.Channel, prefix string, topic ChangeTopic) error {
	name := TopicName(prefix, topic)
	if err := ch.ExchangeDeclare(
		name,    // name
		"topic", // type
		true,    // durable
		false,   // auto-delete
		false,   // internal
		false,   // noWait
		nil,     // arguments
	); err != nil {
		return fmt.Errorf("declare exchange %s: %w", name, err)
	}
	if _, err := ch.QueueDeclare(
		name,  // name of the queue
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // noWait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	if err := ch.QueueBind(name, name, name, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", name, err)
	}
	return nil
}

// TopicName is the exchange, queue and routing key used for a topic.
func TopicName(prefix string, topic ChangeTopic) string {
	return fmt.Sprintf("%s_%s", prefix, topic)
}

// Encode is the wire encoding for every published message.
func Encode(data any) ([]byte, error) {
	return sonic.Marshal(data)
}

// Decode reads a message body written by Encode.
func Decode[V any](body []byte) (V, error) {
	var ret V
	err := sonic.Unmarshal(body, &ret)
	return ret, err
}

func SendChange[V any](c Publisher, prefix string, topic ChangeTopic, data V) error {
	bytes, err := Encode(data)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", topic, err)
	}
	ch, err := c.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	name := TopicName(prefix, topic)
	return ch.Publish(
		name,
		name,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        bytes,
		},
	)
}
