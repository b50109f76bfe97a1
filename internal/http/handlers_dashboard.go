package http

import (
	"errors"
	"net/http"

	"cashbook/internal/core"
	"cashbook/internal/log"
)

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.deps.Dashboard.Totals(r.Context())).Write(w, r)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w, r)
		return
	}
	series, err := s.deps.Dashboard.Daily(r.Context(), params.Year, params.Month)
	if err != nil {
		if errors.Is(err, core.ErrInvalidMonth) {
			BadRequestError(err.Error()).Write(w, r)
			return
		}
		s.logger.ErrorContext(r.Context(), "Failed to build daily series",
			log.FieldYear, params.Year,
			log.FieldMonth, int(params.Month),
			log.FieldError, err)
		InternalServerError("failed to load daily series").Write(w, r)
		return
	}
	NewJSONResponse().Body(series).Write(w, r)
}

type breakdownResponse struct {
	core.ExpenseBreakdown
	PersonTotals map[string]string `json:"personTotals"`
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	b := s.deps.Dashboard.Breakdown(r.Context())
	resp := breakdownResponse{ExpenseBreakdown: b, PersonTotals: make(map[string]string, len(b.ByPerson))}
	for name, c := range b.ByPerson {
		resp.PersonTotals[name] = c.Sum().String()
	}
	NewJSONResponse().Body(resp).Write(w, r)
}

// handleBoard returns one consistent snapshot of all three views for a month.
func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w, r)
		return
	}
	snap, err := s.deps.Board.Refresh(r.Context(), params.Year, params.Month)
	if err != nil {
		if errors.Is(err, core.ErrInvalidMonth) {
			BadRequestError(err.Error()).Write(w, r)
			return
		}
		s.logger.ErrorContext(r.Context(), "Failed to refresh dashboard", log.FieldError, err)
		InternalServerError("failed to load dashboard").Write(w, r)
		return
	}
	NewJSONResponse().Body(snap).Write(w, r)
}
