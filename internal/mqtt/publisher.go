package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"shootcast/internal/logging"
	"shootcast/internal/report"
)

// Publisher pushes each location report to an MQTT broker as retained
// messages, plus Home Assistant discovery for the headline values.
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	enabled     bool
	logger      *zap.SugaredLogger
}

type PublisherConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Enabled     bool
	Logger      *zap.SugaredLogger
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	logger := logging.OrNop(cfg.Logger)
	if !cfg.Enabled {
		return &Publisher{enabled: false, logger: logger}, nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.Warnw("MQTT connection lost", "error", err)
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Debugw("MQTT connected", "broker", cfg.Broker)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return NewPublisherWithClient(client, cfg.TopicPrefix, logger), nil
}

// NewPublisherWithClient wraps an already connected client.
func NewPublisherWithClient(client mqtt.Client, topicPrefix string, logger *zap.SugaredLogger) *Publisher {
	return &Publisher{
		client:      client,
		topicPrefix: topicPrefix,
		enabled:     true,
		logger:      logging.OrNop(logger),
	}
}

func (p *Publisher) Name() string {
	return "mqtt"
}

// Publish sends <prefix>/<slug>/report (full JSON) and <prefix>/<slug>/summary
// for every location in the artifact.
func (p *Publisher) Publish(ctx context.Context, a report.Artifact) error {
	if !p.enabled {
		return nil
	}
	if !p.IsConnected() {
		return fmt.Errorf("MQTT client is not connected")
	}

	for _, e := range a.Entries {
		payload, err := json.Marshal(e.Report)
		if err != nil {
			return fmt.Errorf("failed to marshal report %s: %w", e.Slug, err)
		}
		if err := p.publish(ctx, p.topic(e.Slug, "report"), payload); err != nil {
			return err
		}
		if err := p.publish(ctx, p.topic(e.Slug, "summary"), e.Report.SummaryText); err != nil {
			return err
		}
		p.publishDiscovery(ctx, e)
	}
	return nil
}

func (p *Publisher) topic(slug, name string) string {
	return fmt.Sprintf("%s/%s/%s", p.topicPrefix, slug, name)
}

func (p *Publisher) publish(ctx context.Context, topic string, payload interface{}) error {
	token := p.client.Publish(topic, 0, true, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// publishDiscovery announces sensors reading from the retained report topic.
// Failures are logged only.
func (p *Publisher) publishDiscovery(ctx context.Context, e report.Entry) {
	sensors := []struct {
		Name     string
		ID       string
		Template string
	}{
		{"Sunrise Score", "sunrise_score", "{{ value_json.sunrise_score }}"},
		{"Sunset Score", "sunset_score", "{{ value_json.sunset_score }}"},
		{"Moon Phase", "moon_phase", "{{ value_json.moon_phase.label }}"},
		{"Best Shoot Time", "recommended_shoot_time", "{{ value_json.recommended_shoot_time.time if value_json.recommended_shoot_time else 'none' }}"},
	}

	name := e.Report.Location
	if name == "" {
		name = e.Slug
	}

	for _, sensor := range sensors {
		discoveryTopic := fmt.Sprintf("homeassistant/sensor/shootcast_%s/%s/config", e.Slug, sensor.ID)

		config := map[string]interface{}{
			"name":           fmt.Sprintf("%s %s", name, sensor.Name),
			"unique_id":      fmt.Sprintf("shootcast_%s_%s", e.Slug, sensor.ID),
			"state_topic":    p.topic(e.Slug, "report"),
			"value_template": sensor.Template,
			"device": map[string]interface{}{
				"identifiers":  []string{"shootcast_" + e.Slug},
				"name":         "Shootcast " + name,
				"manufacturer": "shootcast",
			},
		}

		payload, _ := json.Marshal(config)
		if err := p.publish(ctx, discoveryTopic, payload); err != nil {
			p.logger.Warnw("MQTT discovery publish failed", "topic", discoveryTopic, "error", err)
		}
	}
}

func (p *Publisher) IsConnected() bool {
	if !p.enabled {
		return false
	}
	return p.client.IsConnected()
}

func (p *Publisher) Close() {
	if p.enabled && p.client != nil {
		p.client.Disconnect(1000)
	}
}
