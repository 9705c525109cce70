// pkg/core/input.go
package core

// MaxServoChannels is the number of servo outputs carried by a ControlInput.
const MaxServoChannels = 16

// Servo channel assignments used by the sailboat frames.
const (
	SteeringChannel   = 0 // rudder
	ThrottleChannel   = 2 // motor, only on motor-sailer frames
	MainsailChannel   = 3 // mainsheet winch
	DirectWingChannel = 4 // wing sail actuator
)

// PWM range of a servo output, in microseconds.
const (
	PWMMin     = 1000
	PWMTrim    = 1500
	PWMMax     = 2000
	PWMUnknown = 0
)

// ControlInput is one snapshot of the autopilot's servo outputs.
// Values are raw pulse widths; they are validated by the transport layer
// before they reach the simulation.
type ControlInput struct {
	Servos [MaxServoChannels]uint16 `json:"servos"`
}

// NeutralInput returns an input with every channel at trim except the
// mainsheet, which is fully eased.
func NeutralInput() ControlInput {
	var in ControlInput
	for i := range in.Servos {
		in.Servos[i] = PWMTrim
	}
	in.Servos[MainsailChannel] = PWMMax
	return in
}
