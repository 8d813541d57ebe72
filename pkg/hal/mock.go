package hal

import (
	"sync"
	"time"
)

// MockSensor implements AnalogReader for testing.
// ReadFunc is consulted first; otherwise Values is returned.
type MockSensor struct {
	// ReadFunc, if set, produces the value for a channel.
	ReadFunc func(channel int) (float64, error)

	mu     sync.Mutex
	values [3]float64
	err    error
	reads  int
}

// NewMockSensor creates a mock returning the given left/mid/right values.
func NewMockSensor(left, mid, right float64) *MockSensor {
	return &MockSensor{values: [3]float64{left, mid, right}}
}

// ReadAnalog implements AnalogReader.
func (m *MockSensor) ReadAnalog(channel int) (float64, error) {
	m.mu.Lock()
	m.reads++
	fn, v, err := m.ReadFunc, m.values, m.err
	m.mu.Unlock()

	if fn != nil {
		return fn(channel)
	}
	if err != nil {
		return 0, err
	}
	if channel < 0 || channel >= len(v) {
		return 0, ErrBadReply
	}
	return v[channel], nil
}

// Set replaces the values returned for the three channels.
func (m *MockSensor) Set(left, mid, right float64) {
	m.mu.Lock()
	m.values = [3]float64{left, mid, right}
	m.mu.Unlock()
}

// Fail makes every subsequent read return err (nil clears it).
func (m *MockSensor) Fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Reads returns the number of channel reads so far.
func (m *MockSensor) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// MockCall records an actuator invocation for verification.
type MockCall struct {
	Method string
	Angle  float64
	Power  int
	Time   time.Time
}

// MockActuator implements Actuator for testing.
type MockActuator struct {
	// SteerErr, if set, is returned by SetSteeringAngle.
	SteerErr error

	mu    sync.Mutex
	calls []MockCall
}

// NewMockActuator creates a new mock actuator.
func NewMockActuator() *MockActuator {
	return &MockActuator{}
}

func (m *MockActuator) record(c MockCall) {
	m.mu.Lock()
	c.Time = time.Now()
	m.calls = append(m.calls, c)
	m.mu.Unlock()
}

// SetSteeringAngle implements Steerer.
func (m *MockActuator) SetSteeringAngle(deg float64) error {
	m.record(MockCall{Method: "SetSteeringAngle", Angle: deg})
	return m.SteerErr
}

// Forward implements Driver.
func (m *MockActuator) Forward(power int) error {
	m.record(MockCall{Method: "Forward", Power: power})
	return checkPower(power)
}

// Backward implements Driver.
func (m *MockActuator) Backward(power int) error {
	m.record(MockCall{Method: "Backward", Power: power})
	return checkPower(power)
}

// Stop implements Driver.
func (m *MockActuator) Stop() error {
	m.record(MockCall{Method: "Stop"})
	return nil
}

// Calls returns a copy of all recorded calls.
func (m *MockActuator) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Angles returns the steering angles issued so far, in order.
func (m *MockActuator) Angles() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []float64
	for _, c := range m.calls {
		if c.Method == "SetSteeringAngle" {
			out = append(out, c.Angle)
		}
	}
	return out
}

// CallCount returns how many times method was called.
func (m *MockActuator) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}
