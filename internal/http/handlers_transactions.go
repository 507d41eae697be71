package http

import (
	"errors"
	"fmt"
	"net/http"

	"tracker/internal/core"
	"tracker/internal/csvfile"
	"tracker/internal/ledger"
	applog "tracker/internal/log"
)

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	exp, err := ParseExpenseInput(p.Get)
	if err == nil {
		exp, err = s.svc.AddExpense(r.Context(), exp)
	}
	if err != nil {
		reqLog(r).InfoContext(r.Context(), "Expense rejected",
			applog.FieldOperation, applog.OpValidate,
			applog.FieldError, err)
		UnprocessableEntityError(userMessage(err)).Write(w)
		return
	}
	s.metrics.added.Add(1)

	NewHTMXResponse().
		TriggerLedgerChanged(core.KindExpense).
		TriggerFormReset().
		TriggerSuccessNotification("Expense added!").
		Message("success", "Expense added!").
		Write(w)
}

func (s *Server) handleAddIncome(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	in, err := ParseIncomeInput(p.Get)
	if err == nil {
		in, err = s.svc.AddIncome(r.Context(), in)
	}
	if err != nil {
		reqLog(r).InfoContext(r.Context(), "Income rejected",
			applog.FieldOperation, applog.OpValidate,
			applog.FieldError, err)
		UnprocessableEntityError(userMessage(err)).Write(w)
		return
	}
	s.metrics.added.Add(1)

	NewHTMXResponse().
		TriggerLedgerChanged(core.KindIncome).
		TriggerFormReset().
		TriggerSuccessNotification("Income added!").
		Message("success", "Income added!").
		Write(w)
}

// handleDelete removes one record by id or by position. Positions shift
// after every delete, so the UI sends ids.
func (s *Server) handleDelete(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resp := RequireMethod(r, http.MethodPost, http.MethodDelete); resp != nil {
			resp.Write(w)
			return
		}
		p := NewRequestBodyParser(r)
		if err := p.Parse(); err != nil {
			BadRequestError("Invalid request format").Write(w)
			return
		}
		target, err := ParseDeleteTarget(p.Get)
		if err != nil {
			BadRequestError(userMessage(err)).Write(w)
			return
		}

		var msg string
		if target.ID != "" {
			_, err = s.svc.DeleteByID(r.Context(), kind, target.ID)
			msg = fmt.Sprintf("%s deleted!", kind)
		} else {
			_, err = s.svc.DeleteAt(r.Context(), kind, target.Index)
			msg = fmt.Sprintf("%s %d deleted!", kind, target.Index)
		}
		switch {
		case errors.Is(err, ledger.ErrInvalidIndex):
			UnprocessableEntityError("Invalid index!").Write(w)
			return
		case errors.Is(err, ledger.ErrNotFound):
			NotFoundError(fmt.Sprintf("%s not found", kind)).Write(w)
			return
		case err != nil:
			reqLog(r).ErrorContext(r.Context(), "Delete failed",
				applog.FieldOperation, applog.OpDelete,
				applog.FieldType, kind,
				applog.FieldError, err)
			InternalServerError("Error deleting record").Write(w)
			return
		}
		s.metrics.deleted.Add(1)

		NewHTMXResponse().
			TriggerLedgerChanged(kind).
			TriggerSuccessNotification(msg).
			Message("success", msg).
			Write(w)
	}
}

// handleImport replaces every expense with the rows of an uploaded CSV.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(http.StatusRequestEntityTooLarge, "File is too large").Write(w)
			return
		}
		BadRequestError("Please upload a CSV file to load expenses.").Write(w)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		BadRequestError("Please upload a CSV file to load expenses.").Write(w)
		return
	}
	defer file.Close()

	rows, err := csvfile.ReadExpenses(file)
	if err != nil {
		reqLog(r).WarnContext(r.Context(), "Import rejected",
			applog.FieldOperation, applog.OpLoad,
			applog.FieldFile, header.Filename,
			applog.FieldError, err)
		msg := "Could not read the uploaded file"
		if errors.Is(err, csvfile.ErrMalformedImport) {
			msg = "The file is not a valid expenses CSV"
		}
		UnprocessableEntityError(msg).Write(w)
		return
	}

	loaded := s.svc.ImportExpenses(r.Context(), rows)
	s.metrics.imports.Add(1)
	reqLog(r).InfoContext(r.Context(), "Expenses imported",
		applog.FieldOperation, applog.OpLoad,
		applog.FieldFile, header.Filename,
		applog.FieldCount, len(loaded))

	NewHTMXResponse().
		TriggerLedgerChanged(core.KindExpense).
		TriggerSuccessNotification("Expenses loaded successfully!").
		Message("success", "Expenses loaded successfully!").
		Write(w)
}

// handleSave writes the combined CSV to the configured file.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if _, err := s.svc.SaveFile(r.Context(), s.opts.TransactionsFile); err != nil {
		reqLog(r).ErrorContext(r.Context(), "Save failed",
			applog.FieldOperation, applog.OpSave,
			applog.FieldFile, s.opts.TransactionsFile,
			applog.FieldError, err)
		InternalServerError("Error saving transactions").Write(w)
		return
	}
	s.metrics.saves.Add(1)

	NewHTMXResponse().
		TriggerSuccessNotification("Transactions saved successfully!").
		Message("success", "Transactions saved successfully!").
		Write(w)
}
