package http

import (
	"bytes"
	"io"
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/ledger"
	"expensetracker/internal/log"
	"expensetracker/internal/report"
)

// expenseJSON is the API shape of an expense. Amount stays a decimal string.
type expenseJSON struct {
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		Date:        e.Date.String(),
		Amount:      e.Amount.String(),
		Category:    string(e.Category),
		Description: e.Description,
	}
}

type createdBody struct {
	Message string      `json:"message"`
	Expense expenseJSON `json:"expense"`
}

// download renders the full report with write and sends it as an attachment.
func (s *Server) download(w http.ResponseWriter, r *http.Request, filename, contentType string, write func(io.Writer, core.Report) error) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	logger := log.FromContext(ctx)

	rep, err := s.reader.Report(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to build report", log.FieldOperation, log.OpExport, log.FieldError, err)
		InternalServerError("Failed to build report.").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := write(&buf, rep); err != nil {
		logger.ErrorContext(ctx, "Failed to export report", log.FieldOperation, log.OpExport, "file", filename, log.FieldError, err)
		InternalServerError("Failed to export report.").Write(w)
		return
	}
	logger.InfoContext(ctx, "Report exported", log.FieldOperation, log.OpExport, "file", filename, "expenses", len(rep.Expenses))
	NewResponse().Attachment(filename, contentType).Body(buf.Bytes()).Write(w)
}

func (s *Server) handleDownloadCSV(w http.ResponseWriter, r *http.Request) {
	s.download(w, r, report.CSVFilename, report.CSVContentType, report.WriteCSV)
}

func (s *Server) handleDownloadXLSX(w http.ResponseWriter, r *http.Request) {
	s.download(w, r, report.XLSXFilename, report.XLSXContentType, report.WriteXLSX)
}

// handleCategorySummary returns {"category": total, ...}.
func (s *Server) handleCategorySummary(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	rep, err := s.reader.Report(r.Context())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to build report", log.FieldError, err)
		MessageResponse(http.StatusInternalServerError, "Failed to build report.").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := report.WriteSummaryJSON(&buf, rep); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode summary", log.FieldError, err)
		MessageResponse(http.StatusInternalServerError, "Failed to build report.").Write(w)
		return
	}
	NewResponse().Header("Content-Type", "application/json").Body(buf.Bytes()).Write(w)
}

func (s *Server) handleAPIExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.listExpenses(w, r)
	case http.MethodPost:
		s.createExpense(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	f, err := ParseExpenseFilter(r.URL.Query())
	if err != nil {
		MessageResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}
	items, err := s.reader.ListExpenses(r.Context(), f)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to list expenses", log.FieldOperation, log.OpList, log.FieldError, err)
		MessageResponse(http.StatusInternalServerError, "Failed to list expenses.").Write(w)
		return
	}
	out := make([]expenseJSON, len(items))
	for i, e := range items {
		out[i] = toExpenseJSON(e)
	}
	NewResponse().JSON(out).Write(w)
}

func (s *Server) createExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		MessageResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}

	e, err := s.recorder.Record(ctx, p.Get("amount"), p.Get("category"), p.Get("description"))
	switch {
	case err == nil:
		s.invalidateMonths()
		NewResponse().Status(http.StatusCreated).
			JSON(createdBody{Message: ledger.MsgAdded, Expense: toExpenseJSON(e)}).
			Write(w)
	case core.UserMessage(err) != "":
		MessageResponse(http.StatusUnprocessableEntity, core.UserMessage(err)).Write(w)
	default:
		log.FromContext(ctx).ErrorContext(ctx, "Failed to add expense", log.FieldOperation, log.OpCreate, log.FieldError, err)
		MessageResponse(http.StatusInternalServerError, ledger.MsgSaveFailed).Write(w)
	}
}
