package loadgen

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrInconsistent reports a leaderboard that disagrees with itself or with
// per-player lookups.
var ErrInconsistent = errors.New("inconsistent ranking")

// tieEpsilon absorbs the store's fixed-point rounding of ordinals.
const tieEpsilon = 1e-6

// verifyLeaderboard checks ordering and competition ranks.
func verifyLeaderboard(entries []Entry) error {
	for i, e := range entries {
		if i == 0 {
			if e.Rank != 1 {
				return fmt.Errorf("%w: first entry has rank %d", ErrInconsistent, e.Rank)
			}
			continue
		}
		prev := entries[i-1]
		if e.Ordinal > prev.Ordinal+tieEpsilon {
			return fmt.Errorf("%w: entry %d (%s) outranks entry %d", ErrInconsistent, i, e.PlayerID, i-1)
		}
		tied := math.Abs(e.Ordinal-prev.Ordinal) <= tieEpsilon
		if e.Rank != i+1 && !(tied && e.Rank == prev.Rank) {
			return fmt.Errorf("%w: entry %d (%s) has rank %d", ErrInconsistent, i, e.PlayerID, e.Rank)
		}
		if math.Abs(e.Ordinal-(e.Mu-3*e.Sigma)) > tieEpsilon {
			return fmt.Errorf("%w: %s ordinal %.6f is not mu-3*sigma", ErrInconsistent, e.PlayerID, e.Ordinal)
		}
	}
	return nil
}

// verifyPlayers checks that each leaderboard row matches the player lookup.
func verifyPlayers(ctx context.Context, c *client, window string, entries []Entry) (int, error) {
	for i, e := range entries {
		got, err := c.player(ctx, e.PlayerID, window)
		if err != nil {
			return i, err
		}
		if got.Rank != e.Rank || math.Abs(got.Ordinal-e.Ordinal) > tieEpsilon {
			return i, fmt.Errorf("%w: %s is rank %d on the leaderboard but %d by lookup",
				ErrInconsistent, e.PlayerID, e.Rank, got.Rank)
		}
	}
	return len(entries), nil
}

// topHits counts entries whose player is in strongest.
func topHits(entries []Entry, strongest []string) int {
	set := make(map[string]struct{}, len(strongest))
	for _, id := range strongest {
		set[id] = struct{}{}
	}
	n := 0
	for _, e := range entries {
		if _, ok := set[e.PlayerID]; ok {
			n++
		}
	}
	return n
}
