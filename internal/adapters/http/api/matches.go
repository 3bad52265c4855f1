package api

import (
	"net/http"
	"time"

	"github.com/okian/skillboard/internal/domain/model"
)

// matchRequest mirrors the OpenAPI schema for POST /matches.
type matchRequest struct {
	MatchID  string        `json:"match_id"`
	Teams    []teamRequest `json:"teams"`
	PlayedAt string        `json:"played_at"`
}

type teamRequest struct {
	Players []string  `json:"players"`
	Score   *float64  `json:"score"`
	Rank    *int      `json:"rank"`
	Weights []float64 `json:"weights"`
}

func (req matchRequest) toMatch(op string) (model.Match, error) {
	m := model.Match{ID: req.MatchID, Teams: make([]model.Team, len(req.Teams))}
	for i, t := range req.Teams {
		m.Teams[i] = model.Team{Players: t.Players, Score: t.Score, Rank: t.Rank, Weights: t.Weights}
	}
	if req.PlayedAt != "" {
		ts, err := time.Parse(time.RFC3339, req.PlayedAt)
		if err != nil {
			return model.Match{}, WrapKind(op, ErrBadRequest, err)
		}
		m.PlayedAt = ts
	}
	return m, nil
}

type ackResponse struct {
	Status    string `json:"status"`
	MatchID   string `json:"match_id"`
	Duplicate bool   `json:"duplicate"`
}

// handleSubmitMatch handles POST /matches.
func (s *Server) handleSubmitMatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_match"

	var req matchRequest
	if err := decode(w, r, op, &req); err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	m, err := req.toMatch(op)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}

	id, duplicate, err := s.deps.Submit(r.Context(), m)
	if err != nil {
		s.fail(r.Context(), w, Wrap(op, err))
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", MatchID: id, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", MatchID: id})
}
