// Package websocket streams runs to a live viewer. Run boundaries wait for
// an ack from the server, steps are fire-and-forget.
package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sailsitl/sailsim/pkg/core"
	"github.com/sailsitl/sailsim/pkg/streaming"
)

const ackTimeout = 10 * time.Second

// ErrSendBufferFull is returned by RecordStep when the write loop lags.
var ErrSendBufferFull = errors.New("websocket send buffer full")

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams runs over WebSocket.
// It implements storage.Backend but not storage.Exporter.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger, defaultRetry),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// StartRun announces the run and waits for the server ack.
func (b *Backend) StartRun(run *core.Run) error {
	if run.UUID == "" {
		run.UUID = uuid.NewString()
	}

	data, err := marshalEnvelope(streaming.TypeStartRun, streaming.StartRunPayload{Run: run})
	if err != nil {
		return err
	}

	b.conn.setStart(data)
	return b.conn.sendAndWait(data, streaming.TypeStartRun, ackTimeout)
}

// RecordStep sends the compact step view.
func (b *Backend) RecordStep(s *core.StepSample) error {
	data, err := marshalEnvelope(streaming.TypeStep, streaming.NewStepPayload(s))
	if err != nil {
		return err
	}
	if !b.conn.send(data) {
		return ErrSendBufferFull
	}
	return nil
}

// EndRun sends end_run and waits for the server ack.
func (b *Backend) EndRun(summary *core.RunSummary) error {
	data, err := marshalEnvelope(streaming.TypeEndRun, streaming.EndRunPayload{Summary: summary})
	if err != nil {
		return err
	}

	err = b.conn.sendAndWait(data, streaming.TypeEndRun, ackTimeout)
	b.conn.setStart(nil)
	return err
}
