package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/sailsitl/sailsim/pkg/core"
	"github.com/sailsitl/sailsim/pkg/streaming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testServer creates an httptest server that upgrades to WebSocket,
// records received messages, and acks start_run/end_run unless ack is false.
func testServer(t *testing.T, ack bool) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setSecret(r.URL.Query().Get("secret"))

		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if ack && (env.Type == streaming.TypeStartRun || env.Type == streaming.TypeEndRun) {
				data, _ := json.Marshal(streaming.AckMessage{Type: "ack", For: env.Type})
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	messages []streaming.Envelope
	secret   string
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) setSecret(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = s
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStartAndEndRun(t *testing.T) {
	srv, ml := testServer(t, true)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "test"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	run := &core.Run{Name: "harbour"}
	require.NoError(t, b.StartRun(run))
	assert.NotEmpty(t, run.UUID)

	require.NoError(t, b.EndRun(&core.RunSummary{RunID: run.UUID, Steps: 3}))

	msgs := ml.all()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, streaming.TypeStartRun, msgs[0].Type)
	assert.Equal(t, streaming.TypeEndRun, msgs[len(msgs)-1].Type)

	var start streaming.StartRunPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &start))
	assert.Equal(t, "harbour", start.Run.Name)

	var end streaming.EndRunPayload
	require.NoError(t, json.Unmarshal(msgs[len(msgs)-1].Payload, &end))
	assert.Equal(t, uint64(3), end.Summary.Steps)

	ml.mu.Lock()
	assert.Equal(t, "test", ml.secret)
	ml.mu.Unlock()

	b.conn.mu.Lock()
	assert.Nil(t, b.conn.startMsg)
	b.conn.mu.Unlock()
}

func TestRecordStep(t *testing.T) {
	srv, ml := testServer(t, true)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "s"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartRun(&core.Run{Name: "steps"}))
	for i := uint64(0); i < 3; i++ {
		require.NoError(t, b.RecordStep(&core.StepSample{
			Step:      i,
			SimTime:   float64(i) * 0.0025,
			State:     core.VehicleState{Velocity: core.Vector3{X: 3, Y: 4}},
			WindSpeed: 5,
		}))
	}
	require.NoError(t, b.EndRun(nil))

	msgs := ml.all()
	var steps []streaming.StepPayload
	for _, m := range msgs {
		if m.Type != streaming.TypeStep {
			continue
		}
		var p streaming.StepPayload
		require.NoError(t, json.Unmarshal(m.Payload, &p))
		steps = append(steps, p)
	}

	require.Len(t, steps, 3)
	assert.Equal(t, uint64(2), steps[2].Step)
	assert.InDelta(t, 5.0, steps[0].Speed, 1e-9)
	assert.Equal(t, 5.0, steps[0].WindSpeed)
}

func TestStartRun_AckTimeout(t *testing.T) {
	srv, _ := testServer(t, false)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	data, err := marshalEnvelope(streaming.TypeStartRun, streaming.StartRunPayload{Run: &core.Run{}})
	require.NoError(t, err)
	err = b.conn.sendAndWait(data, streaming.TypeStartRun, 50*time.Millisecond)
	assert.ErrorContains(t, err, "timeout waiting for ack")
}

func TestInit_DialFailure(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1/stream"}, nil)
	assert.Error(t, b.Init())

	b = New(Config{URL: "://bad"}, nil)
	assert.ErrorContains(t, b.Init(), "invalid websocket URL")
}

func TestClose_Idempotent(t *testing.T) {
	srv, _ := testServer(t, true)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)}, nil)
	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
	assert.NoError(t, b.Close())
}

func TestReconnect_ReplaysStartRun(t *testing.T) {
	srv, ml := testServer(t, true)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)}, nil)
	b.conn.retry = retryPolicy{attempts: 5, initial: 10 * time.Millisecond, max: 50 * time.Millisecond}
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartRun(&core.Run{Name: "replay"}))

	// drop the client side; the read loop notices and reconnects
	b.conn.mu.Lock()
	_ = b.conn.conn.Close()
	b.conn.mu.Unlock()

	assert.Eventually(t, func() bool {
		n := 0
		for _, m := range ml.all() {
			if m.Type == streaming.TypeStartRun {
				n++
			}
		}
		return n == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEnvelopeSerialization(t *testing.T) {
	data, err := marshalEnvelope(streaming.TypeEndRun, streaming.EndRunPayload{Summary: &core.RunSummary{Distance: 42}})
	require.NoError(t, err)

	var decoded streaming.Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, streaming.TypeEndRun, decoded.Type)

	var p streaming.EndRunPayload
	require.NoError(t, json.Unmarshal(decoded.Payload, &p))
	assert.Equal(t, 42.0, p.Summary.Distance)
}
