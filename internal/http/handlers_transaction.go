package http

import (
	"net/http"

	"finance/internal/core"
	applog "finance/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, ok := transactionFilterOrError(w, r)
	if !ok {
		return
	}

	page, err := s.transactions.FindAll(r.Context(), f)
	if err != nil {
		writeError(r.Context(), w, applog.OpList, err)
		return
	}

	if f.Page == nil {
		NewJSONResponse().Body(newTransactionDTOs(page.Results)).Write(w)
		return
	}
	NewJSONResponse().Body(newTransactionPageDTO(page)).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, applog.OpCreate, err)
		return
	}

	created, err := s.transactions.Create(r.Context(), req.transaction())
	if err != nil {
		writeError(r.Context(), w, applog.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(newTransactionDTO(created)).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		ErrorResponse(http.StatusNotFound, "transaction not found").Write(w)
		return
	}

	t, err := s.transactions.FindByID(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, applog.OpRead, err)
		return
	}
	if t == nil {
		ErrorResponse(http.StatusNotFound, "transaction not found").Write(w)
		return
	}
	NewJSONResponse().Body(newTransactionDTO(*t)).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		ErrorResponse(http.StatusNotFound, "transaction not found").Write(w)
		return
	}

	var req updateTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, applog.OpUpdate, err)
		return
	}

	updated, err := s.transactions.Update(r.Context(), id, req.patch())
	if err != nil {
		writeError(r.Context(), w, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(newTransactionDTO(updated)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		ErrorResponse(http.StatusNotFound, "transaction not found").Write(w)
		return
	}

	if err := s.transactions.Remove(r.Context(), id); err != nil {
		writeError(r.Context(), w, applog.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// transactionFilterOrError parses the query string, writing a 400 on failure.
func transactionFilterOrError(w http.ResponseWriter, r *http.Request) (core.TransactionFilter, bool) {
	f, err := parseTransactionFilter(r.URL.Query())
	if err != nil {
		writeError(r.Context(), w, applog.OpList, err)
		return f, false
	}
	return f, true
}
