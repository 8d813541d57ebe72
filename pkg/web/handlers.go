package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-picarx/pkg/hub"
)

// ConfigView is the JSON form of the running pipeline configuration.
type ConfigView struct {
	SensorHz     float64    `json:"sensor_hz"`
	EstimatorHz  float64    `json:"estimator_hz"`
	SteeringHz   float64    `json:"steering_hz"`
	Channels     [3]int     `json:"channels"`
	Reference    [3]float64 `json:"reference"`
	Polarity     string     `json:"polarity"`
	Sensitivity  *float64   `json:"sensitivity,omitempty"`
	Scale        float64    `json:"scale"`
	MaxTurnAngle float64    `json:"max_turn_angle"`
	DrivePower   int        `json:"drive_power"`
}

// handleHealth reports whether the pipeline is still running.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	snap := s.src.Snapshot()
	if !snap.Running {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "stopped",
			"error":  snap.Error,
		})
	}
	return c.JSON(fiber.Map{"status": "running", "run_id": snap.RunID})
}

// handleStatus returns the current pipeline snapshot.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.src.Snapshot())
}

// handleConfig returns the pipeline configuration.
func (s *Server) handleConfig(c *fiber.Ctx) error {
	cfg := s.src.Config()
	return c.JSON(ConfigView{
		SensorHz:     cfg.SensorHz,
		EstimatorHz:  cfg.EstimatorHz,
		SteeringHz:   cfg.SteeringHz,
		Channels:     cfg.Channels,
		Reference:    cfg.Reference,
		Polarity:     cfg.Polarity.String(),
		Sensitivity:  cfg.Sensitivity,
		Scale:        cfg.Scale,
		MaxTurnAngle: cfg.MaxTurnAngle,
		DrivePower:   cfg.DrivePower,
	})
}

// handleStatusWS sends the current snapshot, then streams pushes from the
// status hub until the client goes away.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	if err := c.WriteJSON(s.src.Snapshot()); err != nil {
		return
	}
	hub.Attach(s.statusHub, c).Run()
}
