// Package mqtt publishes decimated step samples to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/sailsitl/sailsim/internal/config"
	"github.com/sailsitl/sailsim/pkg/core"
	"github.com/sailsitl/sailsim/pkg/streaming"
)

const connectTimeout = 10 * time.Second

// Client is the subset of paho.Client the publisher uses.
type Client interface {
	Connect() paho.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// Publisher sends every n-th sample of a run to <prefix>/<run>/state, and
// the run summary to <prefix>/<run>/summary.
type Publisher struct {
	client Client
	cfg    config.MQTTConfig
	logger zerolog.Logger
	seen   atomic.Uint64
}

// New creates a publisher backed by a paho client.
func New(cfg config.MQTTConfig, log zerolog.Logger) *Publisher {
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost (will auto-reconnect)")
	})
	opts.SetOnConnectHandler(func(paho.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("MQTT connected")
	})
	return NewWithClient(paho.NewClient(opts), cfg, log)
}

// NewWithClient creates a publisher over an existing client.
func NewWithClient(client Client, cfg config.MQTTConfig, log zerolog.Logger) *Publisher {
	if cfg.Decimate < 1 {
		cfg.Decimate = 1
	}
	return &Publisher{client: client, cfg: cfg, logger: log}
}

// Connect connects to the broker.
func (p *Publisher) Connect() error {
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("MQTT connect timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT connect failed: %w", err)
	}
	return nil
}

// Topic returns the topic for a run and leaf.
func (p *Publisher) Topic(runID, leaf string) string {
	return fmt.Sprintf("%s/%s/%s", p.cfg.TopicPrefix, runID, leaf)
}

// Sink returns a dispatcher sink publishing every Decimate-th sample of run.
// Publishing does not wait for the broker.
func (p *Publisher) Sink(run *core.Run) func(core.StepSample) error {
	topic := p.Topic(run.UUID, "state")
	return func(s core.StepSample) error {
		n := p.seen.Add(1) - 1
		if n%uint64(p.cfg.Decimate) != 0 {
			return nil
		}
		payload, err := json.Marshal(streaming.NewStepPayload(&s))
		if err != nil {
			return err
		}
		p.client.Publish(topic, p.cfg.QoS, false, payload)
		return nil
	}
}

// PublishSummary sends the run summary as a retained message and waits for it.
func (p *Publisher) PublishSummary(summary *core.RunSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	token := p.client.Publish(p.Topic(summary.RunID, "summary"), p.cfg.QoS, true, payload)
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("MQTT publish timeout")
	}
	return token.Error()
}

// Close disconnects, giving in-flight messages 250ms.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
