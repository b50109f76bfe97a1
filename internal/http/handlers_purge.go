package http

import (
	"errors"
	"net/http"

	"cashbook/internal/core"
	"cashbook/internal/purge"
)

type purgeResponse struct {
	Message   string `json:"message"`
	Scope     string `json:"scope"`
	Transfers int    `json:"transfers"`
	Expenses  int    `json:"expenses"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	var sel purge.Selection
	if err := decodeJSON(w, r, &sel); err != nil {
		BadRequestError(err.Error()).Write(w, r)
		return
	}
	scope, iv, err := sel.Resolve(s.deps.Now(), s.deps.Purge.Location())
	if err != nil {
		BadRequestError(err.Error()).Write(w, r)
		return
	}

	out, err := s.deps.Purge.Perform(r.Context(), s.caller(r), scope, iv)
	resp := purgeResponse{
		Message:   out.Message(),
		Scope:     string(scope),
		Transfers: out.Transfers,
		Expenses:  out.Expenses,
	}
	switch {
	case err == nil:
		NewJSONResponse().Body(resp).Write(w, r)
	case errors.Is(err, purge.ErrForbidden):
		ForbiddenError(err.Error()).Write(w, r)
	case errors.Is(err, purge.ErrInvalidScope),
		errors.Is(err, purge.ErrInvalidInterval),
		errors.Is(err, core.ErrInvalidDay):
		BadRequestError(err.Error()).Write(w, r)
	default:
		// Committed batches stay deleted; report how far it got.
		resp.Error = "Failed to remove data."
		NewJSONResponse().Status(http.StatusInternalServerError).Body(resp).Write(w, r)
	}
}
