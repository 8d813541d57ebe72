// picarx runs the line-following pipeline on a PiCar-X, or on a simulated
// track with -backend sim.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-picarx/internal/config"
	"github.com/teslashibe/go-picarx/internal/log"
	"github.com/teslashibe/go-picarx/pkg/hal"
	"github.com/teslashibe/go-picarx/pkg/pipeline"
	"github.com/teslashibe/go-picarx/pkg/web"
)

func main() {
	cfg, simOffset, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(2)
	}

	log.Init(cfg.LogLevel)
	logger := log.L()

	if err := run(cfg, simOffset, logger); err != nil {
		logger.Error("picarx exited", "error", err)
		os.Exit(1)
	}
}

// parseFlags loads the config file and applies flag overrides on top.
func parseFlags() (config.Config, float64, error) {
	path := flag.String("config", "", "YAML config file")
	backend := flag.String("backend", "", "Hardware backend: sim, serial, http")
	port := flag.String("port", "", "Serial port of the robot-hat bridge")
	robotIP := flag.String("robot-ip", "", "Robot IP for the http backend (overrides ROBOT_IP)")
	webPort := flag.String("web", "", "Dashboard port; empty disables the dashboard")
	level := flag.String("log-level", "", "Log level: debug, info, warn, error")
	power := flag.Int("power", -1, "Forward drive power 0-100")
	simOffset := flag.Float64("sim-offset", 0.5, "Initial line offset for the sim backend")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		return config.Config{}, 0, err
	}

	if *backend != "" {
		cfg.Backend = *backend
	}
	if *port != "" {
		cfg.SerialPort = *port
	}
	if *robotIP != "" {
		cfg.DaemonURL = config.DaemonURL(*robotIP)
	}
	if *webPort != "" {
		cfg.WebPort = *webPort
	}
	if *level != "" {
		cfg.LogLevel = *level
	}
	if *power >= 0 {
		cfg.Pipeline.DrivePower = *power
	}
	return cfg, *simOffset, cfg.Validate()
}

// openBackend returns the sensor and actuator for cfg.Backend, plus a closer
// for anything that holds a device open.
func openBackend(cfg config.Config, simOffset float64, logger *slog.Logger) (hal.AnalogReader, hal.Actuator, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendSim:
		track := hal.NewSimTrack(hal.DefaultSimConfig())
		track.SetOffset(simOffset)
		logger.Info("using simulated track", "offset", simOffset)
		return track, track, io.NopCloser(nil), nil

	case config.BackendSerial:
		board, err := hal.OpenSerial(cfg.SerialPort, cfg.BaudRate)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("using serial bridge", "port", cfg.SerialPort, "baud", cfg.BaudRate)
		return board, board, board, nil

	case config.BackendHTTP:
		board, err := hal.OpenSerial(cfg.SerialPort, cfg.BaudRate)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("using robot daemon", "url", cfg.DaemonURL, "sensor_port", cfg.SerialPort)
		return board, hal.NewHTTPActuator(cfg.DaemonURL, nil), board, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func run(cfg config.Config, simOffset float64, logger *slog.Logger) error {
	pcfg, err := cfg.PipelineConfig()
	if err != nil {
		return err
	}

	sensor, actuator, closer, err := openBackend(cfg, simOffset, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	p, err := pipeline.New(pcfg, sensor, actuator, pipeline.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := p.Start(ctx); err != nil {
		return err
	}

	webErr := make(chan error, 1)
	if cfg.WebPort != "" {
		srv := web.NewServer(p, web.WithLogger(logger))
		go func() { webErr <- srv.ListenAndServe(ctx, ":"+cfg.WebPort) }()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case <-p.Done():
	case err := <-webErr:
		if err != nil {
			logger.Error("dashboard failed", "error", err)
		}
	}

	runErr := p.Stop()
	cancel()

	// The loops never stop the motor; do it once they are all gone.
	if err := actuator.Stop(); err != nil {
		logger.Warn("stop motor", "error", err)
	}

	if runErr != nil {
		var werr *pipeline.WorkerError
		if errors.As(runErr, &werr) {
			return fmt.Errorf("%s loop failed: %w", werr.Worker, werr.Err)
		}
		return runErr
	}
	logger.Info("stopped cleanly", "run_id", p.ID())
	return nil
}
