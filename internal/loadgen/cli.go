package loadgen

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/skillboard/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging logs to stdout and, when logFile is set, to that file too.
// The returned func closes the file.
func SetupLogging(logFile string, verbose bool) (func() error, error) {
	level := "info"
	if verbose {
		level = "debug"
	}
	if logFile == "" {
		return func() error { return nil }, logger.Init(logger.WithLevel(level))
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.Init(logger.WithWriter(io.MultiWriter(os.Stdout, f)), logger.WithLevel(level)); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f.Close, nil
}

// DefaultOutputFile returns a timestamped file name for generated matches.
func DefaultOutputFile(now time.Time) string {
	return "generated_matches_" + now.Format("20060102_150405") + ".json"
}

// ShowHelp prints usage information for the load tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `skillboard load tool
====================

Submits random matches to a running skillboard and verifies the leaderboard.

Usage:
  go run ./cmd/loadgen [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9080")
  -players int       Player pool size (default 200)
  -matches int       Matches to submit (default 5000)
  -teams int         Teams per match (default 2)
  -team-size int     Players per team (default 1)
  -workers int       Concurrent submitters (default CPU cores * 2)
  -timeout duration  HTTP request timeout (default 10s)
  -settle duration   Wait after the queue drains (default 1s)
  -top int           Leaderboard entries to verify (default 50)
  -window string     Window to verify: overall, monthly, yearly (default "overall")
  -seed uint         Generator seed, 0 for random
  -output string     File for generated matches, "auto" for a timestamped name
  -log string        Also write logs to this file
  -verbose           Log submission progress
  -help              Show this help message

Examples:
  go run ./cmd/loadgen -matches 20000 -workers 16
  go run ./cmd/loadgen -teams 4 -team-size 2 -window monthly
`)
}
