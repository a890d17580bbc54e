package discovery

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const mqttConnectTimeout = 10 * time.Second

// MQTTSink forwards discovery broadcasts to an MQTT broker, one topic
// per channel under a configurable prefix.
type MQTTSink struct {
	client      mqtt.Client
	topicPrefix string
	logger      *zap.Logger
}

// NewMQTTSink connects to the broker and returns a sink publishing
// under topicPrefix.
func NewMQTTSink(brokerURL, clientID, topicPrefix string, logger *zap.Logger) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetKeepAlive(60 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", brokerURL, err)
	}

	return &MQTTSink{
		client:      client,
		topicPrefix: topicPrefix,
		logger:      logger.Named("mqtt"),
	}, nil
}

// Publish sends one discovery event as retained JSON so late joiners
// see the last broadcast per channel.
func (s *MQTTSink) Publish(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Failed to encode discovery event", zap.Error(err))
		return
	}

	topic := s.topicPrefix + "/" + event.Channel
	token := s.client.Publish(topic, 0, true, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			s.logger.Error("Failed to publish discovery event",
				zap.String("topic", topic),
				zap.Error(err))
		}
	}()
}

// Close disconnects from the broker.
func (s *MQTTSink) Close() {
	s.client.Disconnect(250)
}
