// Package loadgen drives a running skillboard over HTTP: it submits random
// matches between players of known latent strength, then checks that the
// leaderboard and per-player ranks agree.
package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Players    int           // Size of the player pool
	Matches    int           // Number of matches to submit
	TeamSize   int           // Players per team
	Teams      int           // Teams per match
	Workers    int           // Concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	Settle     time.Duration // Grace period after the queue drains
	TopN       int           // Leaderboard entries to fetch and verify
	Window     string        // Rating window to verify
	Seed       uint64        // Generator seed, 0 means random
	OutputFile string        // Where generated matches are written, empty skips
	Verbose    bool          // Log progress while submitting
}

// Match is the POST /matches body.
type Match struct {
	MatchID  string `json:"match_id"`
	Teams    []Team `json:"teams"`
	PlayedAt string `json:"played_at"`
}

// Team is one side of a Match.
type Team struct {
	Players []string `json:"players"`
	Rank    *int     `json:"rank,omitempty"`
	Score   *float64 `json:"score,omitempty"`
}

// Entry is a leaderboard row or a player lookup.
type Entry struct {
	Rank     int     `json:"rank"`
	PlayerID string  `json:"player_id"`
	Mu       float64 `json:"mu"`
	Sigma    float64 `json:"sigma"`
	Ordinal  float64 `json:"ordinal"`
	Matches  int     `json:"matches"`
}

type leaderboard struct {
	Window  string  `json:"window"`
	Entries []Entry `json:"entries"`
}

type ack struct {
	Status    string `json:"status"`
	MatchID   string `json:"match_id"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics.
type Stats struct {
	MatchesGenerated   int
	MatchesSubmitted   int
	MatchesAccepted    int
	MatchesDuplicate   int
	MatchesFailed      int
	LeaderboardEntries int
	RanksChecked       int
	// TopHits counts leaderboard entries that are also among the TopN
	// strongest players by latent strength.
	TopHits   int
	StartTime time.Time
	Duration  time.Duration
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.Players < 2 {
		out.Players = 2
	}
	if out.TeamSize < 1 {
		out.TeamSize = 1
	}
	if out.Teams < 2 {
		out.Teams = 2
	}
	if out.Players < out.Teams*out.TeamSize {
		out.Players = out.Teams * out.TeamSize
	}
	if out.Workers < 1 {
		out.Workers = 1
	}
	if out.Timeout <= 0 {
		out.Timeout = 10 * time.Second
	}
	if out.TopN < 1 {
		out.TopN = 10
	}
	if out.Window == "" {
		out.Window = "overall"
	}
	return &out
}
