package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/skillboard/internal/loadgen"
	"github.com/okian/skillboard/pkg/logger"
)

const (
	defaultPlayers   = 200
	defaultMatches   = 5000
	defaultTopN      = 50
	defaultWorkers   = 2 // multiplier for runtime.NumCPU()
	defaultTimeout   = 10 * time.Second
	defaultSettle    = time.Second
	defaultRunBudget = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		players  = flag.Int("players", defaultPlayers, "Player pool size")
		matches  = flag.Int("matches", defaultMatches, "Number of matches to submit")
		teams    = flag.Int("teams", 2, "Teams per match")
		teamSize = flag.Int("team-size", 1, "Players per team")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle   = flag.Duration("settle", defaultSettle, "Wait after the queue drains")
		topN     = flag.Int("top", defaultTopN, "Leaderboard entries to verify")
		window   = flag.String("window", "overall", "Window to verify")
		seed     = flag.Uint64("seed", 0, "Generator seed, 0 for random")
		output   = flag.String("output", "", `File for generated matches, "auto" for a timestamped name`)
		logFile  = flag.String("log", "", "Also write logs to this file")
		verbose  = flag.Bool("verbose", false, "Log submission progress")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadgen.ShowHelp(os.Stdout)
		return
	}

	closeLog, err := loadgen.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closeLog() }()

	if *output == "auto" {
		*output = loadgen.DefaultOutputFile(time.Now())
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunBudget)
	defer cancel()

	_, err = loadgen.Run(ctx, &loadgen.Config{
		BaseURL:    *baseURL,
		Players:    *players,
		Matches:    *matches,
		Teams:      *teams,
		TeamSize:   *teamSize,
		Workers:    *workers,
		Timeout:    *timeout,
		Settle:     *settle,
		TopN:       *topN,
		Window:     *window,
		Seed:       *seed,
		OutputFile: *output,
		Verbose:    *verbose,
	})
	if err != nil {
		logger.Get().Error(ctx, "load run failed", logger.Error(err))
		cancel()
		_ = closeLog()
		os.Exit(1)
	}
}
