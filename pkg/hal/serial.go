package hal

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Default serial settings for the robot-hat bridge firmware.
const (
	DefaultBaudRate       = 115200
	DefaultRequestTimeout = 500 * time.Millisecond

	// pollInterval is the port read timeout. A read that times out returns
	// no data and no error, and the request deadline is checked again.
	pollInterval = 50 * time.Millisecond
)

// SerialBoard talks to a microcontroller bridge over a newline-delimited
// ASCII protocol. Every request carries a sequence tag that the bridge
// echoes on its reply:
//
//	<seq> A <ch>      -> <seq> <value>
//	<seq> S <deg>     -> <seq> OK | <seq> ERR <msg>
//	<seq> F <power>   -> <seq> OK | <seq> ERR <msg>
//	<seq> B <power>   -> <seq> OK | <seq> ERR <msg>
//	<seq> X           -> <seq> OK | <seq> ERR <msg>
//
// A reply that arrives after its request timed out carries an old tag and is
// dropped, so it can never be taken as the answer to a later request.
//
// Only one request is in flight at a time; the sampling and steering loops
// share the board through the mutex.
type SerialBoard struct {
	mu      sync.Mutex
	port    io.ReadWriteCloser
	timeout time.Duration
	seq     uint32
	buf     []byte
	chunk   [64]byte
	stale   uint64
	closed  bool
}

// inputResetter is implemented by serial.Port.
type inputResetter interface {
	ResetInputBuffer() error
}

// OpenSerial opens portName (e.g. /dev/ttyACM0) at baud, 8N1.
func OpenSerial(portName string, baud int) (*SerialBoard, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("hal: open %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(pollInterval); err != nil {
		port.Close()
		return nil, fmt.Errorf("hal: set read timeout on %s: %w", portName, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("hal: reset input buffer on %s: %w", portName, err)
	}

	return NewSerialBoard(port), nil
}

// NewSerialBoard wraps an already-open stream. Reads on port should return
// (0, nil) or block briefly when no data is available.
func NewSerialBoard(port io.ReadWriteCloser) *SerialBoard {
	return &SerialBoard{
		port:    port,
		timeout: DefaultRequestTimeout,
	}
}

// SetRequestTimeout changes how long each request waits for its reply.
func (b *SerialBoard) SetRequestTimeout(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d > 0 {
		b.timeout = d
	}
}

// Stale returns how many out-of-date reply lines have been dropped.
func (b *SerialBoard) Stale() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stale
}

// roundTrip sends one tagged request line and returns the matching reply
// with the tag removed.
func (b *SerialBoard) roundTrip(req string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return "", ErrClosed
	}

	b.seq++
	tag := strconv.FormatUint(uint64(b.seq), 10)
	if _, err := io.WriteString(b.port, tag+" "+req+"\n"); err != nil {
		return "", fmt.Errorf("hal: write %q: %w", req, err)
	}

	deadline := time.Now().Add(b.timeout)
	for {
		line, err := b.readLine(deadline)
		if err != nil {
			b.discardInput()
			return "", fmt.Errorf("hal: read reply to %q: %w", req, err)
		}
		got, reply, _ := strings.Cut(line, " ")
		if got != tag {
			b.stale++
			continue
		}
		return strings.TrimSpace(reply), nil
	}
}

// readLine returns the next complete line, reading from the port until
// deadline.
func (b *SerialBoard) readLine(deadline time.Time) (string, error) {
	for {
		if i := bytes.IndexByte(b.buf, '\n'); i >= 0 {
			line := strings.TrimSpace(string(b.buf[:i]))
			b.buf = b.buf[i+1:]
			return line, nil
		}
		if !time.Now().Before(deadline) {
			return "", ErrTimeout
		}
		n, err := b.port.Read(b.chunk[:])
		b.buf = append(b.buf, b.chunk[:n]...)
		if err != nil {
			return "", err
		}
	}
}

// discardInput drops partial lines and whatever the driver has buffered.
func (b *SerialBoard) discardInput() {
	b.buf = b.buf[:0]
	if r, ok := b.port.(inputResetter); ok {
		_ = r.ResetInputBuffer()
	}
}

func (b *SerialBoard) command(op, req string) error {
	reply, err := b.roundTrip(req)
	if err != nil {
		return err
	}
	switch {
	case reply == "OK":
		return nil
	case strings.HasPrefix(reply, "ERR"):
		return &DeviceError{Backend: "serial", Op: op, Message: strings.TrimSpace(strings.TrimPrefix(reply, "ERR"))}
	default:
		return fmt.Errorf("%w: %s: %q", ErrBadReply, op, reply)
	}
}

// ReadAnalog implements AnalogReader.
func (b *SerialBoard) ReadAnalog(channel int) (float64, error) {
	reply, err := b.roundTrip("A " + strconv.Itoa(channel))
	if err != nil {
		return 0, &ReadError{Channel: channel, Err: err}
	}
	if strings.HasPrefix(reply, "ERR") {
		return 0, &ReadError{Channel: channel, Err: &DeviceError{Backend: "serial", Op: "read", Message: strings.TrimSpace(strings.TrimPrefix(reply, "ERR"))}}
	}
	v, err := strconv.ParseFloat(reply, 64)
	if err != nil {
		return 0, &ReadError{Channel: channel, Err: fmt.Errorf("%w: %q", ErrBadReply, reply)}
	}
	return v, nil
}

// SetSteeringAngle implements Steerer.
func (b *SerialBoard) SetSteeringAngle(deg float64) error {
	return b.command("steer", "S "+strconv.FormatFloat(deg, 'f', 2, 64))
}

// Forward implements Driver.
func (b *SerialBoard) Forward(power int) error {
	if err := checkPower(power); err != nil {
		return err
	}
	return b.command("forward", "F "+strconv.Itoa(power))
}

// Backward implements Driver.
func (b *SerialBoard) Backward(power int) error {
	if err := checkPower(power); err != nil {
		return err
	}
	return b.command("backward", "B "+strconv.Itoa(power))
}

// Stop implements Driver.
func (b *SerialBoard) Stop() error {
	return b.command("stop", "X")
}

// Close closes the underlying port. Further calls return ErrClosed.
func (b *SerialBoard) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.port.Close()
}
