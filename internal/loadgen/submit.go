package loadgen

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/skillboard/pkg/logger"
)

const progressInterval = time.Second

// submitMatches posts matches with cfg.Workers concurrent submitters.
func submitMatches(ctx context.Context, cfg *Config, c *client, matches []Match, stats *Stats) {
	log := logger.Get().Named("loadgen")
	log.Info(ctx, "submitting matches", logger.Int("matches", len(matches)), logger.Int("workers", cfg.Workers))

	var submitted, accepted, duplicate, failed atomic.Int64
	var lastReport atomic.Int64

	ch := make(chan Match, cfg.Workers*2)
	var wg sync.WaitGroup
	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range ch {
				a, err := c.submit(ctx, m)
				submitted.Add(1)
				switch {
				case err != nil:
					failed.Add(1)
					if cfg.Verbose {
						log.Warn(ctx, "submit failed", logger.String("match_id", m.MatchID), logger.Error(err))
					}
				case a.Duplicate:
					duplicate.Add(1)
				default:
					accepted.Add(1)
				}

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if cfg.Verbose && now-last >= int64(progressInterval) && lastReport.CompareAndSwap(last, now) {
					log.Info(ctx, "progress",
						logger.Int("submitted", int(submitted.Load())),
						logger.Int("total", len(matches)),
						logger.Int("failed", int(failed.Load())))
				}
			}
		}()
	}

feed:
	for _, m := range matches {
		select {
		case <-ctx.Done():
			break feed
		case ch <- m:
		}
	}
	close(ch)
	wg.Wait()

	stats.MatchesSubmitted = int(submitted.Load())
	stats.MatchesAccepted = int(accepted.Load())
	stats.MatchesDuplicate = int(duplicate.Load())
	stats.MatchesFailed = int(failed.Load())

	log.Info(ctx, "submission completed",
		logger.Int("accepted", stats.MatchesAccepted),
		logger.Int("duplicate", stats.MatchesDuplicate),
		logger.Int("failed", stats.MatchesFailed))
}
