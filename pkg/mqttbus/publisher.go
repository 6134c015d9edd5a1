package mqttbus

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IPublisher publishes a payload on an arbitrary topic.
type IPublisher interface {
	Publish(topic string, qos byte, payload string) error
}

// Publisher is the broker-backed IPublisher.
type Publisher struct {
	client mqtt.Client
}

func NewPublisher(client mqtt.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish sends payload and waits for the token so a transport error
// surfaces to the caller instead of being dropped on the floor.
func (p *Publisher) Publish(topic string, qos byte, payload string) error {
	token := p.client.Publish(topic, qos, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}
