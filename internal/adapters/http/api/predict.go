package api

import (
	"fmt"
	"net/http"

	pl "github.com/okian/skillboard/internal/domain/plackettluce"
)

type predictRequest struct {
	Teams [][]string `json:"teams"`
}

type winResponse struct {
	Window        string    `json:"window"`
	Probabilities []float64 `json:"probabilities"`
}

type drawResponse struct {
	Window      string  `json:"window"`
	Probability float64 `json:"probability"`
}

type rankResponse struct {
	Window string              `json:"window"`
	Ranks  []pl.RankPrediction `json:"ranks"`
}

// handlePredict handles POST /predict/{win|draw|rank}?window=.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"

	kind := r.PathValue("kind")
	win, err := window(r, op)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	var req predictRequest
	if err := decode(w, r, op, &req); err != nil {
		s.fail(r.Context(), w, err)
		return
	}

	ctx := r.Context()
	switch kind {
	case "win":
		p, err := s.deps.PredictWin(ctx, req.Teams, win)
		if err != nil {
			s.fail(ctx, w, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, winResponse{Window: win.String(), Probabilities: p})
	case "draw":
		p, err := s.deps.PredictDraw(ctx, req.Teams, win)
		if err != nil {
			s.fail(ctx, w, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, drawResponse{Window: win.String(), Probability: p})
	case "rank":
		ranks, err := s.deps.PredictRank(ctx, req.Teams, win)
		if err != nil {
			s.fail(ctx, w, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, rankResponse{Window: win.String(), Ranks: ranks})
	default:
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("unknown prediction %q", kind))
	}
}
