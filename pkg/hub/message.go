// Package hub fans telemetry out to websocket clients using a single
// goroutine that owns the client set.
package hub

// Message is one pre-encoded JSON frame.
type Message struct {
	Data []byte
}
