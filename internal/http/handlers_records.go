package http

import (
	"errors"
	"net/http"

	"cashbook/internal/core"
	"cashbook/internal/log"
	"cashbook/internal/services"

	"github.com/go-chi/chi/v5"
)

type createdResponse struct {
	ID     string `json:"id"`
	Record any    `json:"record"`
}

// validationError reports whether err is a rejected input rather than a
// backend failure.
func validationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidAmount,
		core.ErrEmptyReceiver,
		core.ErrEmptyTitle,
		core.ErrTitleTooLong,
		core.ErrInvalidType,
		core.ErrInvalidDay,
		core.ErrRemarksTooLong,
		services.ErrUnknownReceiver,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *Server) writeCreateError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrForbidden):
		ForbiddenError(err.Error()).Write(w, r)
	case validationError(err):
		UnprocessableEntityError(err.Error()).Write(w, r)
	default:
		InternalServerError("failed to save record").Write(w, r)
	}
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	var in services.TransferInput
	if err := decodeJSON(w, r, &in); err != nil {
		BadRequestError(err.Error()).Write(w, r)
		return
	}
	rec, err := s.deps.Records.CreateTransfer(r.Context(), s.caller(r), in)
	if err != nil {
		s.writeCreateError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Body(createdResponse{ID: rec.ID, Record: rec}).
		Write(w, r)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var in services.ExpenseInput
	if err := decodeJSON(w, r, &in); err != nil {
		BadRequestError(err.Error()).Write(w, r)
		return
	}
	rec, err := s.deps.Records.CreateExpense(r.Context(), s.caller(r), in)
	if err != nil {
		s.writeCreateError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Body(createdResponse{ID: rec.ID, Record: rec}).
		Write(w, r)
}

func (s *Server) handleTransferHistory(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	items, err := s.deps.Records.TransferHistory(r.Context(), user)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list transfers",
			log.FieldOperation, log.OpList,
			log.FieldUser, user,
			log.FieldError, err)
		InternalServerError("failed to load transfer history").Write(w, r)
		return
	}
	page := services.Paginate(items, ParsePage(r.URL.Query()), services.PageSize)
	NewJSONResponse().Body(page).Write(w, r)
}

func (s *Server) handleExpenseHistory(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	items, err := s.deps.Records.ExpenseHistory(r.Context(), user)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list expenses",
			log.FieldOperation, log.OpList,
			log.FieldUser, user,
			log.FieldError, err)
		InternalServerError("failed to load expense history").Write(w, r)
		return
	}
	page := services.Paginate(items, ParsePage(r.URL.Query()), services.PageSize)
	NewJSONResponse().Body(page).Write(w, r)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Exports.ExportNow(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Export failed",
			log.FieldOperation, log.OpExport,
			log.FieldError, err)
		InternalServerError("export failed").Write(w, r)
		return
	}
	NewJSONResponse().Body(res).Write(w, r)
}
