// picarx-monitor follows a running picarx dashboard and prints one line per
// snapshot.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-picarx/internal/config"
	"github.com/teslashibe/go-picarx/internal/log"
	"github.com/teslashibe/go-picarx/pkg/monitor"
	"github.com/teslashibe/go-picarx/pkg/pipeline"
)

func main() {
	addr := flag.String("addr", net.JoinHostPort(config.RobotIP("localhost"), config.DefaultWebPort), "Dashboard address")
	level := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	log.Init(*level)
	logger := log.L()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c, err := monitor.Dial(ctx, *addr, logger)
	if err != nil {
		logger.Error("connect", "error", err)
		os.Exit(1)
	}
	defer c.Close()
	logger.Info("connected", "url", c.URL())

	var runID string
	err = c.Run(ctx, func(s pipeline.Snapshot) {
		if s.RunID != runID {
			runID = s.RunID
			logger.Info("following run", "run_id", runID, "started_at", s.StartedAt)
		}
		fmt.Println(monitor.Format(s))
	})
	if err != nil {
		logger.Error("monitor stopped", "error", err)
		os.Exit(1)
	}
}
