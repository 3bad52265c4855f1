package api

import (
	"net/http"

	"github.com/okian/skillboard/internal/domain/rating"
)

type resetResponse struct {
	Window  string `json:"window"`
	Players int    `json:"players"`
}

// handleResetWindow handles POST /windows/{window}/reset.
func (s *Server) handleResetWindow(w http.ResponseWriter, r *http.Request) {
	const op = "api.reset_window"

	win, err := rating.ParseWindow(r.PathValue("window"))
	if err != nil {
		s.fail(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	n, err := s.deps.ResetWindow(r.Context(), win)
	if err != nil {
		s.fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, resetResponse{Window: win.String(), Players: n})
}
