package api

import (
	"net/http"
	"strings"

	"github.com/okian/skillboard/internal/adapters/repository"
)

type playerResponse struct {
	Window string `json:"window"`
	repository.Entry
}

// handleGetPlayer handles GET /players/{id}?window=.
func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_player"

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		s.fail(r.Context(), w, NewKind(op, ErrBadRequest))
		return
	}
	win, err := window(r, op)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}

	entry, err := s.deps.Player(r.Context(), id, win)
	if err != nil {
		s.fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, playerResponse{Window: win.String(), Entry: entry})
}
