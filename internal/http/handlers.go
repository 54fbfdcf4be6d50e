package http

import (
	"context"
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/ledger"
	"expensetracker/internal/log"
)

type expenseForm struct {
	Amount      string
	Category    string
	Description string
}

type indexPage struct {
	Categories []string
	Expenses   []core.Expense
	Total      string
	Message    string
	Error      string
	Form       expenseForm
	Month      MonthParams
}

type reportPage struct {
	Report core.Report
}

type monthPage struct {
	Overview core.MonthOverview
	Prev     MonthParams
	Next     MonthParams
}

func (s *Server) loadIndex(ctx context.Context) (indexPage, error) {
	rep, err := s.reader.Report(ctx)
	if err != nil {
		return indexPage{}, err
	}
	now := s.now()
	return indexPage{
		Categories: core.CategoryNames(),
		Expenses:   rep.Expenses,
		Total:      core.FormatAmount(rep.Total),
		Month:      MonthParams{Year: now.Year(), Month: int(now.Month())},
	}, nil
}

// handleIndex lists the ledger with the add form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("Page not found.").Write(w)
		return
	}
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	page, err := s.loadIndex(r.Context())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to load expenses", log.FieldError, err)
		InternalServerError("Failed to load expenses.").Write(w)
		return
	}
	if r.URL.Query().Get("added") == "1" {
		page.Message = ledger.MsgAdded
	}
	s.render(w, r, http.StatusOK, "index.html", page)
}

// handleAdd records the submitted form. Success redirects to the index;
// failures re-render it with the message and the submitted values.
func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	ctx := r.Context()
	logger := log.FromContext(ctx)
	form := expenseForm{
		Amount:      sanitizeInput(r.PostForm.Get("amount")),
		Category:    sanitizeInput(r.PostForm.Get("category")),
		Description: sanitizeInput(r.PostForm.Get("description")),
	}

	_, err := s.recorder.Record(ctx, form.Amount, form.Category, form.Description)
	if err == nil {
		s.invalidateMonths()
		http.Redirect(w, r, "/?added=1", http.StatusSeeOther)
		return
	}

	status := http.StatusUnprocessableEntity
	if core.UserMessage(err) == "" {
		status = http.StatusInternalServerError
		logger.ErrorContext(ctx, "Failed to add expense", log.FieldOperation, log.OpCreate, log.FieldError, err)
	} else {
		logger.InfoContext(ctx, "Rejected expense input", log.FieldOperation, log.OpValidate, log.FieldError, err)
	}

	page, loadErr := s.loadIndex(ctx)
	if loadErr != nil {
		logger.ErrorContext(ctx, "Failed to load expenses", log.FieldError, loadErr)
		InternalServerError(ledger.ResultMessage(err)).Write(w)
		return
	}
	page.Error = ledger.ResultMessage(err)
	page.Form = form
	s.render(w, r, status, "index.html", page)
}

// handleReport shows the total, the category summary and every expense.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	rep, err := s.reader.Report(r.Context())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to build report", log.FieldError, err)
		InternalServerError("Failed to build report.").Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "report.html", reportPage{Report: rep})
}

// handleMonth renders one month; the overview is served from the cache.
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	p := ParseMonthParams(r.URL.Query(), s.now())

	ov, err := s.getOverview(r.Context(), p.Year, p.Month)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Month overview error",
			log.FieldYear, p.Year, log.FieldMonth, p.Month, log.FieldError, err)
		InternalServerError("Failed to load month.").Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "month.html", monthPage{
		Overview: ov,
		Prev:     shiftMonth(p, -1),
		Next:     shiftMonth(p, 1),
	})
}

func shiftMonth(p MonthParams, delta int) MonthParams {
	m := p.Month - 1 + delta
	y := p.Year + m/12
	m %= 12
	if m < 0 {
		m += 12
		y--
	}
	return MonthParams{Year: y, Month: m + 1}
}
