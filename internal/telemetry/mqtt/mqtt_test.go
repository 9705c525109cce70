package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/sailsitl/sailsim/internal/config"
	"github.com/sailsitl/sailsim/pkg/core"
	"github.com/sailsitl/sailsim/pkg/streaming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// doneToken is a completed paho token.
type doneToken struct {
	err error
}

func (t doneToken) Wait() bool { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu           sync.Mutex
	connectErr   error
	published    []message
	disconnected bool
}

func (c *fakeClient) Connect() paho.Token {
	return doneToken{err: c.connectErr}
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, message{topic, qos, retained, payload.([]byte)})
	return doneToken{}
}

func (c *fakeClient) Disconnect(uint) {
	c.disconnected = true
}

func testConfig(decimate int) config.MQTTConfig {
	return config.MQTTConfig{
		Enabled:     true,
		Broker:      "tcp://localhost:1883",
		ClientID:    "test",
		TopicPrefix: "sailsim",
		QoS:         1,
		Decimate:    decimate,
	}
}

func TestConnect(t *testing.T) {
	p := NewWithClient(&fakeClient{}, testConfig(1), zerolog.Nop())
	assert.NoError(t, p.Connect())

	p = NewWithClient(&fakeClient{connectErr: errors.New("refused")}, testConfig(1), zerolog.Nop())
	assert.ErrorContains(t, p.Connect(), "refused")
}

func TestSink_Decimates(t *testing.T) {
	fc := &fakeClient{}
	p := NewWithClient(fc, testConfig(4), zerolog.Nop())
	sink := p.Sink(&core.Run{UUID: "r1"})

	for i := uint64(0); i < 10; i++ {
		require.NoError(t, sink(core.StepSample{Step: i, WindSpeed: 3}))
	}

	require.Len(t, fc.published, 3)
	var steps []uint64
	for _, m := range fc.published {
		assert.Equal(t, "sailsim/r1/state", m.topic)
		assert.Equal(t, byte(1), m.qos)
		assert.False(t, m.retained)

		var payload streaming.StepPayload
		require.NoError(t, json.Unmarshal(m.payload, &payload))
		steps = append(steps, payload.Step)
	}
	assert.Equal(t, []uint64{0, 4, 8}, steps)
}

func TestSink_DecimateDefaultsToEverySample(t *testing.T) {
	fc := &fakeClient{}
	p := NewWithClient(fc, testConfig(0), zerolog.Nop())
	sink := p.Sink(&core.Run{UUID: "r1"})

	for i := uint64(0); i < 3; i++ {
		require.NoError(t, sink(core.StepSample{Step: i}))
	}
	assert.Len(t, fc.published, 3)
}

func TestPublishSummary(t *testing.T) {
	fc := &fakeClient{}
	p := NewWithClient(fc, testConfig(1), zerolog.Nop())

	require.NoError(t, p.PublishSummary(&core.RunSummary{RunID: "r2", Steps: 7}))
	require.Len(t, fc.published, 1)
	assert.Equal(t, "sailsim/r2/summary", fc.published[0].topic)
	assert.True(t, fc.published[0].retained)
	assert.JSONEq(t, `{"runId":"r2","steps":7,"simTime":0,"distance":0,"trackLength":0,"maxSpeed":0,"final":{"lat":0,"lon":0,"alt":0},"cancelled":false}`,
		string(fc.published[0].payload))

	p.Close()
	assert.True(t, fc.disconnected)
}
