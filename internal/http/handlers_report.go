package http

import (
	"net/http"

	applog "finance/internal/log"
)

func (s *Server) handleMonthlyTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := s.categories.MonthlyTotals(r.Context())
	if err != nil {
		writeError(r.Context(), w, applog.OpReport, err)
		return
	}
	NewJSONResponse().Body(newMonthlyTotalsDTO(totals)).Write(w)
}

func (s *Server) handleExportMonthlyTotals(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		ErrorResponse(http.StatusServiceUnavailable, "sheets export is not configured").Write(w)
		return
	}

	totals, err := s.categories.MonthlyTotals(r.Context())
	if err != nil {
		writeError(r.Context(), w, applog.OpExport, err)
		return
	}

	ref, err := s.exporter.ExportMonthlyTotals(r.Context(), totals)
	if err != nil {
		writeError(r.Context(), w, applog.OpExport, err)
		return
	}
	NewJSONResponse().Body(exportDTO{Range: ref}).Write(w)
}

func (s *Server) handleAmountByCategory(w http.ResponseWriter, r *http.Request) {
	f, ok := transactionFilterOrError(w, r)
	if !ok {
		return
	}

	amounts, err := s.transactions.AmountByCategory(r.Context(), f)
	if err != nil {
		writeError(r.Context(), w, applog.OpReport, err)
		return
	}
	NewJSONResponse().Body(newAmountByCategoryDTO(amounts)).Write(w)
}
