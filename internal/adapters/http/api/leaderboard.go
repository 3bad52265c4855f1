package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/skillboard/internal/adapters/repository"
)

const defaultLeaderboardLimit = 10

type leaderboardResponse struct {
	Window  string             `json:"window"`
	Entries []repository.Entry `json:"entries"`
}

// handleGetLeaderboard handles GET /leaderboard?window=&limit=N.
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"

	win, err := window(r, op)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}

	n := defaultLeaderboardLimit
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err = strconv.Atoi(limit)
		if err != nil || n < 1 {
			s.fail(r.Context(), w, WrapKind(op, ErrBadRequest, fmt.Errorf("limit must be a positive integer, got %q", limit)))
			return
		}
	}
	if n > s.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded",
			WrapKind(op, ErrBadRequest, fmt.Errorf("limit %d exceeds %d", n, s.maxLimit)))
		return
	}

	entries, err := s.deps.Leaderboard(r.Context(), win, n)
	if err != nil {
		s.fail(r.Context(), w, Wrap(op, err))
		return
	}
	if entries == nil {
		entries = []repository.Entry{}
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Window: win.String(), Entries: entries})
}
