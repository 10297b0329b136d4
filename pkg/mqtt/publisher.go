// Package mqtt mirrors decoded status events to an MQTT broker so other
// tooling (Home Assistant, node-red, logging pipelines) can consume them.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/trunkstat/trunkstat/pkg/logger"
	"github.com/trunkstat/trunkstat/pkg/protocol"
)

// Config holds MQTT publisher configuration
type Config struct {
	Enabled     bool
	Broker      string
	TopicPrefix string
	ClientID    string
	Username    string
	Password    string
	QoS         byte
	Retained    bool
}

// StatusMessage is the JSON payload published for each status event
type StatusMessage struct {
	Kind        string    `json:"kind"`
	SystemID    uint16    `json:"system_id"`
	WACN        uint32    `json:"wacn"`
	NAC         uint16    `json:"nac"`
	TalkgroupID uint16    `json:"talkgroup_id"`
	RadioID     uint32    `json:"radio_id"`
	Timestamp   time.Time `json:"timestamp"`
	Source      string    `json:"source,omitempty"`
}

// Publisher handles MQTT event publishing
type Publisher struct {
	config Config
	log    *logger.Logger
	client pahomqtt.Client
}

// New creates a new MQTT publisher
func New(config Config, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.New(logger.Config{Level: "info", Format: "text"})
	}

	return &Publisher{
		config: config,
		log:    log.WithComponent("mqtt"),
	}
}

// Start connects to the configured broker
func (p *Publisher) Start() error {
	if !p.config.Enabled {
		p.log.Info("MQTT publisher disabled")
		return nil
	}

	p.log.Info("Starting MQTT publisher",
		logger.String("broker", p.config.Broker),
		logger.String("client_id", p.config.ClientID))

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(p.config.Broker)
	opts.SetClientID(p.config.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetCleanSession(true)

	if p.config.Username != "" {
		opts.SetUsername(p.config.Username)
		opts.SetPassword(p.config.Password)
	}

	opts.SetOnConnectHandler(func(client pahomqtt.Client) {
		p.log.Info("MQTT connected", logger.String("broker", p.config.Broker))
	})
	opts.SetConnectionLostHandler(func(client pahomqtt.Client, err error) {
		p.log.Warn("MQTT connection lost", logger.Error(err))
	})

	p.client = pahomqtt.NewClient(opts)

	token := p.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect failed: %w", token.Error())
	}

	return nil
}

// Stop disconnects from the broker
func (p *Publisher) Stop() {
	if !p.config.Enabled || p.client == nil {
		return
	}

	p.log.Info("Stopping MQTT publisher")
	p.client.Disconnect(5000)
}

// PublishStatus publishes one decoded status event to <prefix>/status/<kind>
func (p *Publisher) PublishStatus(pkt *protocol.StatusPacket, source string) error {
	if !p.config.Enabled {
		return nil
	}

	msg := StatusMessage{
		Kind:        pkt.Kind.String(),
		SystemID:    protocol.UnpackSystemID(pkt.P25ID),
		WACN:        protocol.UnpackWACN(pkt.P25ID),
		NAC:         pkt.NAC,
		TalkgroupID: pkt.TalkgroupID,
		RadioID:     pkt.RadioID,
		Timestamp:   time.Unix(int64(pkt.Timestamp), 0).UTC(),
		Source:      source,
	}

	topic := p.formatTopic("status/" + msg.Kind)
	return p.publish(topic, msg)
}

// publish serializes and sends an event to a topic
func (p *Publisher) publish(topic string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Error("Failed to serialize event",
			logger.String("topic", topic),
			logger.Error(err))
		return err
	}

	if p.client == nil || !p.client.IsConnected() {
		p.log.Debug("MQTT not connected, dropping event",
			logger.String("topic", topic))
		return nil
	}

	token := p.client.Publish(topic, p.config.QoS, p.config.Retained, payload)
	go func() {
		token.Wait()
		if token.Error() != nil {
			p.log.Warn("MQTT publish failed",
				logger.String("topic", topic),
				logger.Error(token.Error()))
		}
	}()

	return nil
}

// formatTopic formats a topic with the configured prefix
func (p *Publisher) formatTopic(suffix string) string {
	prefix := strings.TrimSuffix(p.config.TopicPrefix, "/")
	if prefix == "" {
		return suffix
	}
	return fmt.Sprintf("%s/%s", prefix, suffix)
}
