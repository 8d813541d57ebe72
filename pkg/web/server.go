// Package web serves read-only telemetry for a running pipeline: a JSON
// status API and a websocket that pushes snapshots at a fixed interval.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-picarx/internal/log"
	"github.com/teslashibe/go-picarx/pkg/hub"
	"github.com/teslashibe/go-picarx/pkg/pipeline"
)

// DefaultPushInterval is how often snapshots are pushed to websocket clients.
const DefaultPushInterval = 200 * time.Millisecond

// Source is what the dashboard observes. *pipeline.Pipeline implements it.
type Source interface {
	Snapshot() pipeline.Snapshot
	Config() pipeline.Config
}

// Server is the telemetry dashboard server.
type Server struct {
	app      *fiber.App
	src      Source
	log      *slog.Logger
	interval time.Duration

	statusHub *hub.Hub
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithPushInterval sets the websocket push interval.
func WithPushInterval(d time.Duration) Option {
	return func(s *Server) { s.interval = d }
}

// NewServer creates a dashboard for src.
func NewServer(src Source, opts ...Option) *Server {
	s := &Server{
		src:      src,
		interval: DefaultPushInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = log.Or(s.log).With("component", "web")
	s.statusHub = hub.New("status", s.log)

	app := fiber.New(fiber.Config{
		AppName:               "PiCar-X Line Follower",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/status", s.handleStatus)
	api.Get("/config", s.handleConfig)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Hub returns the status hub.
func (s *Server) Hub() *hub.Hub {
	return s.statusHub
}

// ListenAndServe listens on addr (":8080") until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve runs the dashboard on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.statusHub.Run(ctx)
	go s.push(ctx)
	go func() {
		<-ctx.Done()
		if err := s.app.ShutdownWithTimeout(2 * time.Second); err != nil {
			s.log.Warn("dashboard shutdown", "error", err)
		}
	}()

	s.log.Info("dashboard listening", "addr", ln.Addr().String())
	err := s.app.Listener(ln)
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// push broadcasts a snapshot every interval while anyone is listening.
func (s *Server) push(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.statusHub.ClientCount() == 0 {
				continue
			}
			if err := s.statusHub.BroadcastJSON(s.src.Snapshot()); err != nil {
				s.log.Error("encode snapshot", "error", err)
			}
		}
	}
}
