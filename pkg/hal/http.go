package hal

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/teslashibe/go-picarx/internal/httpc"
)

// HTTPActuator implements Actuator using the robot daemon's HTTP API.
// Sensor reads are not available over HTTP; pair it with another
// AnalogReader.
type HTTPActuator struct {
	BaseURL string

	client *http.Client
}

// NewHTTPActuator creates an actuator for the daemon at baseURL
// (e.g. http://192.168.1.20:8000). A nil client uses httpc.Client.
func NewHTTPActuator(baseURL string, client *http.Client) *HTTPActuator {
	if client == nil {
		client = httpc.Client
	}
	return &HTTPActuator{BaseURL: baseURL, client: client}
}

type steeringRequest struct {
	Angle float64 `json:"angle"`
}

type driveRequest struct {
	Direction string `json:"direction"` // forward, backward, stop
	Power     int    `json:"power"`
}

// SetSteeringAngle implements Steerer.
func (a *HTTPActuator) SetSteeringAngle(deg float64) error {
	return a.post("steer", "/api/steering", steeringRequest{Angle: deg})
}

// Forward implements Driver.
func (a *HTTPActuator) Forward(power int) error {
	if err := checkPower(power); err != nil {
		return err
	}
	return a.post("forward", "/api/drive", driveRequest{Direction: "forward", Power: power})
}

// Backward implements Driver.
func (a *HTTPActuator) Backward(power int) error {
	if err := checkPower(power); err != nil {
		return err
	}
	return a.post("backward", "/api/drive", driveRequest{Direction: "backward", Power: power})
}

// Stop implements Driver.
func (a *HTTPActuator) Stop() error {
	return a.post("stop", "/api/drive", driveRequest{Direction: "stop"})
}

func (a *HTTPActuator) post(op, path string, payload any) error {
	err := httpc.PostJSON(context.Background(), a.client, a.BaseURL+path, payload)
	var statusErr *httpc.StatusError
	if errors.As(err, &statusErr) {
		return &DeviceError{Backend: "http", Op: op, Message: fmt.Sprintf("status %d: %s", statusErr.StatusCode, statusErr.Body)}
	}
	return err
}
