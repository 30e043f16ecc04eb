package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sebasr/vitals-service/internal/config"
	"github.com/sebasr/vitals-service/internal/models"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	disconnectWait = 250 // ms
)

// MQTTPublisher publishes each stored reading as JSON to <prefix>/<patientId>/readings
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
	qos    byte
	logger *zap.Logger
}

// NewMQTTPublisher connects to the configured broker
func NewMQTTPublisher(cfg config.MQTTConfig, logger *zap.Logger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", zap.Error(err))
	})

	client := mqtt.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", cfg.Broker, err)
	}

	return newMQTTPublisher(client, cfg.TopicPrefix, cfg.QoS, logger), nil
}

func newMQTTPublisher(client mqtt.Client, prefix string, qos byte, logger *zap.Logger) *MQTTPublisher {
	return &MQTTPublisher{
		client: client,
		prefix: prefix,
		qos:    qos,
		logger: logger,
	}
}

// Topic returns the topic readings for patientID are published on
func Topic(prefix string, patientID uuid.UUID) string {
	return fmt.Sprintf("%s/%s/readings", prefix, patientID)
}

// PublishReading implements Publisher
func (p *MQTTPublisher) PublishReading(ctx context.Context, reading *models.VitalReading) error {
	payload, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to encode reading: %w", err)
	}

	topic := Topic(p.prefix, reading.PatientID)
	token := p.client.Publish(topic, p.qos, false, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", topic, ctx.Err())
	case <-time.After(publishTimeout):
		return fmt.Errorf("publish to %s: timed out", topic)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}

	p.logger.Debug("reading published", zap.String("topic", topic), zap.String("reading_id", reading.ID.String()))
	return nil
}

// Close disconnects from the broker
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(disconnectWait)
}
