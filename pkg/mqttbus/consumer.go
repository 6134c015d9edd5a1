package mqttbus

import (
	"context"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Handler processes one received message. It runs on the paho client's
// receive goroutine and must not block.
type Handler func(topic string, payload []byte) error

// IConsumer subscribes to one topic and dispatches messages to a handler.
type IConsumer interface {
	Consume(ctx context.Context) error
	SetHandler(h Handler)
}

// Consumer is the broker-backed IConsumer.
type Consumer struct {
	client  mqtt.Client
	topic   string
	qos     byte
	handler Handler
}

func NewConsumer(client mqtt.Client, topic string, qos byte, h Handler) *Consumer {
	return &Consumer{client: client, topic: topic, qos: qos, handler: h}
}

func (c *Consumer) SetHandler(h Handler) {
	c.handler = h
}

// Consume subscribes and blocks until ctx is cancelled, then unsubscribes.
func (c *Consumer) Consume(ctx context.Context) error {
	token := c.client.Subscribe(c.topic, c.qos, func(_ mqtt.Client, msg mqtt.Message) {
		if c.handler == nil {
			log.Printf("mqttbus: no handler for topic %s", c.topic)
			return
		}
		if err := c.handler(msg.Topic(), msg.Payload()); err != nil {
			log.Printf("mqttbus: handler error on %s: %v", msg.Topic(), err)
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", c.topic, token.Error())
	}
	log.Printf("mqttbus: subscribed to %s", c.topic)

	<-ctx.Done()

	unsub := c.client.Unsubscribe(c.topic)
	unsub.Wait()
	return nil
}

// Subscribe registers the subscription without blocking; it is the
// fire-and-forget variant of Consume for callers that manage shutdown by
// disconnecting the shared client.
func (c *Consumer) Subscribe() error {
	token := c.client.Subscribe(c.topic, c.qos, func(_ mqtt.Client, msg mqtt.Message) {
		if c.handler == nil {
			log.Printf("mqttbus: no handler for topic %s", c.topic)
			return
		}
		if err := c.handler(msg.Topic(), msg.Payload()); err != nil {
			log.Printf("mqttbus: handler error on %s: %v", msg.Topic(), err)
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", c.topic, token.Error())
	}
	log.Printf("mqttbus: subscribed to %s", c.topic)
	return nil
}
