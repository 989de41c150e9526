package app

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Publisher sends a value as JSON to a topic.
type Publisher interface {
	Publish(topic string, retained bool, v any) error
}

// MQTTPublisher publishes JSON payloads at QoS 0.
type MQTTPublisher struct {
	client mqtt.Client
}

func NewMQTTPublisher(client mqtt.Client) *MQTTPublisher {
	return &MQTTPublisher{client: client}
}

func (p *MQTTPublisher) Publish(topic string, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	token := p.client.Publish(topic, 0, retained, payload)
	token.Wait()
	return token.Error()
}

func connectMQTT(broker, clientID string, logger *zap.SugaredLogger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect %s: %w", broker, token.Error())
	}
	logger.Infof("connected to MQTT broker at %s", broker)
	return client, nil
}

// subscribeJSON subscribes to topic and hands every decodable payload to fn.
// Payloads that do not decode are logged and dropped.
func subscribeJSON[T any](client mqtt.Client, topic string, logger *zap.SugaredLogger, fn func(T)) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var v T
		if err := json.Unmarshal(msg.Payload(), &v); err != nil {
			logger.Warnf("%s payload unmarshal error: %v", topic, err)
			return
		}
		fn(v)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	logger.Infof("subscribed to MQTT topic %s", topic)
	return nil
}
