package runner

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/sailsitl/sailsim/pkg/core"
)

// ErrInvalidSchedule is returned for schedules that cannot be replayed.
var ErrInvalidSchedule = errors.New("invalid schedule")

// Keyframe sets servo channels from time T onward. Channels are keyed by
// their index ("0" is steering); channels not named keep their value.
type Keyframe struct {
	T      float64           `json:"t"` // seconds since the run started
	Servos map[string]uint16 `json:"servos,omitempty"`
	Armed  *bool             `json:"armed,omitempty"`
}

// Setpoint is the resolved input in effect from T onward.
type Setpoint struct {
	T     float64
	Input core.ControlInput
	Armed *bool
}

// Schedule replays control inputs with hold semantics: the input at time t
// is the one of the last keyframe at or before t. Before the first keyframe
// the input is core.NeutralInput.
type Schedule struct {
	points []Setpoint
}

// LoadSchedule reads a JSON array of keyframes.
func LoadSchedule(path string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule: %w", err)
	}
	return ParseSchedule(data)
}

// ParseSchedule builds a schedule from a JSON array of keyframes. Times must
// be non-negative and strictly increasing, and every PWM value must lie in
// the servo range.
func ParseSchedule(data []byte) (*Schedule, error) {
	var frames []Keyframe
	if err := json.Unmarshal(data, &frames); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	return NewSchedule(frames)
}

// NewSchedule resolves keyframes into setpoints.
func NewSchedule(frames []Keyframe) (*Schedule, error) {
	s := &Schedule{points: make([]Setpoint, 0, len(frames))}
	in := core.NeutralInput()

	for i, f := range frames {
		if f.T < 0 {
			return nil, fmt.Errorf("%w: keyframe %d at negative time %v", ErrInvalidSchedule, i, f.T)
		}
		if i > 0 && f.T <= frames[i-1].T {
			return nil, fmt.Errorf("%w: keyframe %d at %v is not after %v", ErrInvalidSchedule, i, f.T, frames[i-1].T)
		}
		for key, pwm := range f.Servos {
			ch, err := strconv.Atoi(key)
			if err != nil || ch < 0 || ch >= core.MaxServoChannels {
				return nil, fmt.Errorf("%w: keyframe %d has unknown channel %q", ErrInvalidSchedule, i, key)
			}
			if pwm < core.PWMMin || pwm > core.PWMMax {
				return nil, fmt.Errorf("%w: keyframe %d channel %d pwm %d out of range", ErrInvalidSchedule, i, ch, pwm)
			}
			in.Servos[ch] = pwm
		}
		s.points = append(s.points, Setpoint{T: f.T, Input: in, Armed: f.Armed})
	}
	return s, nil
}

// Len returns the number of keyframes.
func (s *Schedule) Len() int {
	if s == nil {
		return 0
	}
	return len(s.points)
}

// At returns the setpoint in effect at t. ok is false before the first
// keyframe, in which case the neutral input is returned.
func (s *Schedule) At(t float64) (sp Setpoint, ok bool) {
	if s == nil {
		return Setpoint{Input: core.NeutralInput()}, false
	}
	i := sort.Search(len(s.points), func(i int) bool { return s.points[i].T > t })
	if i == 0 {
		return Setpoint{Input: core.NeutralInput()}, false
	}
	return s.points[i-1], true
}
