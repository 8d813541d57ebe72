// Package hal defines the hardware interfaces the line-following pipeline
// calls into, plus the backends that implement them.
//
// The interfaces are deliberately small. A loop depends only on the one it
// uses: the sampling loop needs an AnalogReader, the steering loop needs a
// Steerer, and only the pipeline itself needs a Driver.
package hal

// Default grayscale channel assignment (A0, A1, A2 on the robot hat).
const (
	ChannelLeft  = 0
	ChannelMid   = 1
	ChannelRight = 2
)

// AnalogReader reads one analog channel and returns its raw magnitude in
// hardware units. Reads are synchronous and may fail.
type AnalogReader interface {
	ReadAnalog(channel int) (float64, error)
}

// Steerer sets the steering servo angle in degrees.
type Steerer interface {
	SetSteeringAngle(deg float64) error
}

// Driver controls the drive motors. Power is a percentage in [0, 100].
type Driver interface {
	Forward(power int) error
	Backward(power int) error
	Stop() error
}

// Actuator is the composite of steering and drive control.
type Actuator interface {
	Steerer
	Driver
}

var (
	_ AnalogReader = (*SerialBoard)(nil)
	_ Actuator     = (*SerialBoard)(nil)
	_ Actuator     = (*HTTPActuator)(nil)
	_ AnalogReader = (*SimTrack)(nil)
	_ Actuator     = (*SimTrack)(nil)
	_ AnalogReader = (*MockSensor)(nil)
	_ Actuator     = (*MockActuator)(nil)
)
