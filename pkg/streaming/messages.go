// Package streaming defines the messages a live viewer receives over
// WebSocket while a run is in progress.
package streaming

import (
	"encoding/json"

	"github.com/sailsitl/sailsim/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartRun = "start_run"
	TypeStep     = "step"
	TypeEndRun   = "end_run"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartRunPayload announces a run.
type StartRunPayload struct {
	Run *core.Run `json:"run"`
}

// StepPayload is the compact per-step view sent to viewers.
type StepPayload struct {
	Step      uint64        `json:"step"`
	SimTime   float64       `json:"t"`
	Location  core.Geodetic `json:"loc"`
	Attitude  core.Attitude `json:"att"`
	Speed     float64       `json:"spd"`
	WindSpeed float64       `json:"aws"`
	WindAngle float64       `json:"awa"`
	SailAngle float64       `json:"sail"`
}

// NewStepPayload extracts the viewer fields from s.
func NewStepPayload(s *core.StepSample) StepPayload {
	return StepPayload{
		Step:      s.Step,
		SimTime:   s.SimTime,
		Location:  s.State.Location,
		Attitude:  s.State.Attitude,
		Speed:     s.State.Velocity.HorizontalLength(),
		WindSpeed: s.WindSpeed,
		WindAngle: s.WindAngle,
		SailAngle: s.SailAngle,
	}
}

// EndRunPayload closes a run.
type EndRunPayload struct {
	Summary *core.RunSummary `json:"summary"`
}
