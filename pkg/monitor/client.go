// Package monitor is a client for the dashboard's status websocket.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-picarx/internal/log"
	"github.com/teslashibe/go-picarx/pkg/pipeline"
)

const (
	// StatusPath is where the dashboard serves snapshots.
	StatusPath = "/ws/status"

	handshakeTimeout = 10 * time.Second
	readTimeout      = 30 * time.Second
)

// Client streams pipeline snapshots from a running dashboard.
type Client struct {
	url string
	log *slog.Logger

	ws   *websocket.Conn
	mu   sync.Mutex
	last pipeline.Snapshot
	seen bool
}

// StatusURL turns "host:port" or "http://host:port" into the ws:// status URL.
func StatusURL(addr string) (string, error) {
	if !strings.Contains(addr, "://") {
		addr = "ws://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("parse monitor address: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = StatusPath
	}
	return u.String(), nil
}

// Dial connects to the status websocket at addr.
func Dial(ctx context.Context, addr string, logger *slog.Logger) (*Client, error) {
	u, err := StatusURL(addr)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	ws, _, err := dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", u, err)
	}

	return &Client{
		url: u,
		log: log.Or(logger).With("component", "monitor"),
		ws:  ws,
	}, nil
}

// Run reads snapshots and hands each to fn until ctx is cancelled or the
// connection drops. Undecodable frames are logged and skipped.
func (c *Client) Run(ctx context.Context, fn func(pipeline.Snapshot)) error {
	stop := context.AfterFunc(ctx, func() { c.ws.Close() })
	defer stop()

	for {
		c.ws.SetReadDeadline(time.Now().Add(readTimeout))
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read status: %w", err)
		}

		var snap pipeline.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			c.log.Warn("bad status frame", "error", err)
			continue
		}

		c.mu.Lock()
		c.last, c.seen = snap, true
		c.mu.Unlock()

		if fn != nil {
			fn(snap)
		}
	}
}

// Last returns the most recent snapshot, if one has arrived.
func (c *Client) Last() (pipeline.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.seen
}

// URL returns the websocket URL the client is connected to.
func (c *Client) URL() string {
	return c.url
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.ws.Close()
}
