package config

import (
	"fmt"
	"os"
)

// Default robot connection settings.
const (
	DefaultDaemonPort = "8000"
	DefaultSerialPort = "/dev/ttyACM0"
	DefaultWebPort    = "8080"
)

// RobotIP returns the robot IP from ROBOT_IP env var.
// Falls back to the provided default if not set.
func RobotIP(defaultIP string) string {
	if ip := os.Getenv("ROBOT_IP"); ip != "" {
		return ip
	}
	return defaultIP
}

// DaemonURL returns the robot daemon HTTP API URL.
func DaemonURL(robotIP string) string {
	return fmt.Sprintf("http://%s:%s", robotIP, DefaultDaemonPort)
}
