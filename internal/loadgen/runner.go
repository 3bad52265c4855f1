package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/skillboard/pkg/logger"
)

const (
	directoryPermission = 0o750
	drainPoll           = 100 * time.Millisecond
)

// Run executes a complete load run and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	cfg = cfg.withDefaults()
	log := logger.Get().Named("loadgen")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting skillboard load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("matches", cfg.Matches),
		logger.Int("teams", cfg.Teams),
		logger.Int("teamSize", cfg.TeamSize),
		logger.Int("workers", cfg.Workers),
		logger.String("window", cfg.Window))

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := c.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	gen := NewGenerator(cfg.Players, cfg.Seed)
	matches := make([]Match, cfg.Matches)
	start := time.Now().Add(-time.Duration(cfg.Matches) * time.Second)
	for i := range matches {
		matches[i] = gen.Match(cfg.Teams, cfg.TeamSize, start.Add(time.Duration(i)*time.Second))
	}
	stats.MatchesGenerated = len(matches)

	submitMatches(ctx, cfg, c, matches, stats)
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	if err := waitForDrain(ctx, c, cfg.Settle); err != nil {
		return stats, fmt.Errorf("waiting for the queue to drain: %w", err)
	}

	entries, err := c.leaderboard(ctx, cfg.Window, cfg.TopN)
	if err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	stats.LeaderboardEntries = len(entries)

	if err := verifyLeaderboard(entries); err != nil {
		return stats, err
	}
	checked, err := verifyPlayers(ctx, c, cfg.Window, entries)
	stats.RanksChecked = checked
	if err != nil {
		return stats, err
	}
	stats.TopHits = topHits(entries, gen.Strongest(cfg.TopN))

	if cfg.OutputFile != "" {
		if err := saveMatches(cfg.OutputFile, matches); err != nil {
			log.Warn(ctx, "failed to save matches", logger.Error(err))
		} else {
			log.Info(ctx, "matches saved", logger.String("file", cfg.OutputFile))
		}
	}

	stats.Duration = time.Since(stats.StartTime)
	logStats(ctx, log, stats)
	return stats, nil
}

// waitForDrain polls /stats until the match queue is empty, then waits
// settle for in-flight matches.
func waitForDrain(ctx context.Context, c *client, settle time.Duration) error {
	ticker := time.NewTicker(drainPoll)
	defer ticker.Stop()
	for {
		n, err := c.queueLength(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(settle):
		return nil
	}
}

func saveMatches(path string, matches []Match) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(matches); err != nil {
		_ = f.Close()
		return fmt.Errorf("write matches: %w", err)
	}
	return f.Close()
}

func logStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.MatchesSubmitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("matchesGenerated", stats.MatchesGenerated),
		logger.Int("matchesSubmitted", stats.MatchesSubmitted),
		logger.Int("matchesAccepted", stats.MatchesAccepted),
		logger.Int("matchesDuplicate", stats.MatchesDuplicate),
		logger.Int("matchesFailed", stats.MatchesFailed),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.Int("ranksChecked", stats.RanksChecked),
		logger.Int("topHits", stats.TopHits),
		logger.Duration("duration", stats.Duration),
		logger.Float64("matchesPerSecond", perSecond))
}
