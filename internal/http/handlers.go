package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"dues/internal/core"
	"dues/internal/service"
	"dues/internal/storage"
)

const maxBodyBytes = 1 << 20 // 1MB

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// The store is the only dependency; a settings read proves it answers.
	if _, err := s.svc.Settings(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.svc.Settings(r.Context())
	if err != nil {
		s.serveError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MonthlyFee        *core.Money `json:"monthlyFee"`
		PreviousCarryOver *core.Money `json:"previousCarryOver"`
		Year              *int        `json:"year"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.MonthlyFee != nil {
		if err := body.MonthlyFee.Validate(); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "Invalid monthly fee")
			return
		}
	}

	settings, err := s.svc.UpdateSettings(r.Context(), service.SettingsPatch{
		MonthlyFee:        body.MonthlyFee,
		PreviousCarryOver: body.PreviousCarryOver,
		Year:              body.Year,
	})
	if err != nil {
		s.serveError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.svc.Members(r.Context())
	if err != nil {
		s.serveError(w, r, err)
		return
	}
	if members == nil {
		members = []core.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	member, err := s.svc.CreateMember(r.Context(), body.Name)
	if err != nil {
		s.serveError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	member, err := s.svc.DeleteMember(r.Context(), r.PathValue("id"))
	if err != nil {
		s.serveError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (s *Server) handleTogglePayment(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.svc.TogglePayment(r.Context(), r.PathValue("id"), core.YearMonth(r.PathValue("yearMonth")))
	if err != nil {
		s.serveError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.svc.Expenses(r.Context())
	if err != nil {
		s.serveError(w, r, err)
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Date        core.Date  `json:"date"`
		Type        string     `json:"type"`
		Description string     `json:"description"`
		Amount      core.Money `json:"amount"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	expense, err := s.svc.CreateExpense(r.Context(), core.Expense{
		Date:        body.Date,
		Type:        body.Type,
		Description: body.Description,
		Amount:      body.Amount,
	})
	if err != nil {
		s.serveError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	expense, err := s.svc.DeleteExpense(r.Context(), r.PathValue("id"))
	if err != nil {
		s.serveError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Summary(r.Context())
	if err != nil {
		s.serveError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// serveError maps domain and storage errors to their HTTP shape.
func (s *Server) serveError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case core.IsValidation(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "url", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
