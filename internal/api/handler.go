package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rgehrsitz/paytax/internal/calculation"
	"github.com/rgehrsitz/paytax/internal/domain"
	"github.com/rgehrsitz/paytax/internal/output"
	"github.com/rgehrsitz/paytax/internal/payroll"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	svc     *payroll.Service
	repo    domain.Repository
	cache   domain.Cache
	version string
}

// NewHandler creates a new API handler.
func NewHandler(svc *payroll.Service, repo domain.Repository, cache domain.Cache, version string) *Handler {
	return &Handler{
		svc:     svc,
		repo:    repo,
		cache:   cache,
		version: version,
	}
}

// ErrorResponse is the body of every non-2xx response. Field and Constraint
// are set for validation failures.
type ErrorResponse struct {
	Error      string `json:"error"`
	Field      string `json:"field,omitempty"`
	Constraint string `json:"constraint,omitempty"`
}

// Amount is a monetary JSON field that accepts either a number or a
// currency-formatted string such as "₹1,50,000".
type Amount string

// UnmarshalJSON keeps the raw text of numbers and the contents of strings
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	*a = Amount(data)
	return nil
}

// DeductionsRequest carries the claimed itemized deductions
type DeductionsRequest struct {
	Investment            Amount `json:"investment"`
	InsurancePremium      Amount `json:"insurance_premium"`
	HomeLoanInterest      Amount `json:"home_loan_interest"`
	EducationLoanInterest Amount `json:"education_loan_interest"`
}

// CalculationRequest is the request body for POST /employees/{id}/calculations.
type CalculationRequest struct {
	MonthlyIncome Amount            `json:"monthly_income"`
	AnnualBonus   Amount            `json:"annual_bonus"`
	Deductions    DeductionsRequest `json:"deductions"`
	Regime        string            `json:"regime"`
}

// ScheduleCalculationRequest is the request body for POST /employees/{id}/schedule-calculations.
type ScheduleCalculationRequest struct {
	GrossIncome Amount `json:"gross_income"`
	Deductions  Amount `json:"deductions"`
}

// BracketRequest is the request body for creating or updating a bracket.
// An empty max_income makes the bracket unbounded.
type BracketRequest struct {
	MinIncome   Amount `json:"min_income"`
	MaxIncome   Amount `json:"max_income"`
	RatePercent Amount `json:"rate_percent"`
	Label       string `json:"label"`
}

func (req CalculationRequest) toInput() (domain.CalculationInput, error) {
	return calculation.ParseInput(calculation.RawInput{
		MonthlyIncome:         string(req.MonthlyIncome),
		AnnualBonus:           string(req.AnnualBonus),
		Investment:            string(req.Deductions.Investment),
		InsurancePremium:      string(req.Deductions.InsurancePremium),
		HomeLoanInterest:      string(req.Deductions.HomeLoanInterest),
		EducationLoanInterest: string(req.Deductions.EducationLoanInterest),
		Regime:                req.Regime,
	})
}

func (req ScheduleCalculationRequest) toInput() (domain.ScheduleCalculationInput, error) {
	var in domain.ScheduleCalculationInput
	var err error
	if in.GrossIncome, err = calculation.ParseAmount("gross_income", string(req.GrossIncome)); err != nil {
		return in, err
	}
	if in.Deductions, err = calculation.ParseAmount("deductions", string(req.Deductions)); err != nil {
		return in, err
	}
	return in, in.Validate()
}

func (req BracketRequest) toBracket() (domain.Bracket, error) {
	var b domain.Bracket
	var err error
	if b.MinIncome, err = calculation.ParseAmount("min_income", string(req.MinIncome)); err != nil {
		return b, err
	}
	if strings.TrimSpace(string(req.MaxIncome)) != "" {
		maxIncome, err := calculation.ParseAmount("max_income", string(req.MaxIncome))
		if err != nil {
			return b, err
		}
		b.MaxIncome = &maxIncome
	}
	if b.RatePercent, err = calculation.ParseAmount("rate_percent", string(req.RatePercent)); err != nil {
		return b, err
	}
	b.Label = req.Label
	return b, nil
}

// Health returns service liveness and dependency status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Calculate handles POST /employees/{employeeID}/calculations.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	input, err := req.toInput()
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := h.svc.Calculate(r.Context(), GetTenantID(r.Context()), chi.URLParam(r, "employeeID"), input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

// CalculateWithSchedule handles POST /employees/{employeeID}/schedule-calculations.
func (h *Handler) CalculateWithSchedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleCalculationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	input, err := req.toInput()
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := h.svc.CalculateWithSchedule(r.Context(), GetTenantID(r.Context()), chi.URLParam(r, "employeeID"), input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

// History handles GET /employees/{employeeID}/calculations.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	filter, err := historyFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter.EmployeeID = chi.URLParam(r, "employeeID")

	records, err := h.svc.History(r.Context(), GetTenantID(r.Context()), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if records == nil {
		records = []*domain.CalculationRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"calculations": records,
		"count":        len(records),
	})
}

// ExportEmployeeHistory handles GET /employees/{employeeID}/calculations/export.
func (h *Handler) ExportEmployeeHistory(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	records, err := h.svc.History(r.Context(), GetTenantID(r.Context()), domain.CalculationFilter{EmployeeID: employeeID})
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, err := output.HistoryCSV(records)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeAttachment(w, "text/csv", "tax_history_"+employeeID+".csv", data)
}

// ExportTenantHistory handles GET /admin/calculations/export?format=csv|json.
func (h *Handler) ExportTenantHistory(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "json" {
		writeError(w, r, &domain.ValidationError{Field: "format", Constraint: "must be one of csv, json", Value: format})
		return
	}

	filter, err := historyFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	records, err := h.svc.History(r.Context(), GetTenantID(r.Context()), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var data []byte
	if format == "json" {
		data, err = output.JSONFormatter{}.FormatHistory(records)
	} else {
		data, err = output.HistoryCSV(records)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	contentType := "text/csv"
	if format == "json" {
		contentType = "application/json"
	}
	writeAttachment(w, contentType, "tax_calculations."+format, data)
}

// GetCalculation handles GET /calculations/{id}.
func (h *Handler) GetCalculation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), GetTenantID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListBrackets handles GET /admin/brackets. Pass ?all=true to include
// deactivated rules.
func (h *Handler) ListBrackets(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") != "true"

	rules, err := h.svc.ListBrackets(r.Context(), GetTenantID(r.Context()), activeOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rules == nil {
		rules = []*domain.TaxRule{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"brackets": rules,
		"count":    len(rules),
	})
}

// CreateBracket handles POST /admin/brackets.
func (h *Handler) CreateBracket(w http.ResponseWriter, r *http.Request) {
	var req BracketRequest
	if !decodeBody(w, r, &req) {
		return
	}

	bracket, err := req.toBracket()
	if err != nil {
		writeError(w, r, err)
		return
	}

	rule, err := h.svc.AddBracket(r.Context(), GetTenantID(r.Context()), actorID(r), bracket)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

// SeedBrackets handles POST /admin/brackets/seed.
func (h *Handler) SeedBrackets(w http.ResponseWriter, r *http.Request) {
	rules, err := h.svc.SeedDefaultBrackets(r.Context(), GetTenantID(r.Context()), actorID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rules == nil {
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "tenant already has tax rules"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"brackets": rules,
		"count":    len(rules),
	})
}

// UpdateBracket handles PUT /admin/brackets/{id}.
func (h *Handler) UpdateBracket(w http.ResponseWriter, r *http.Request) {
	var req BracketRequest
	if !decodeBody(w, r, &req) {
		return
	}

	bracket, err := req.toBracket()
	if err != nil {
		writeError(w, r, err)
		return
	}

	rule, err := h.svc.UpdateBracket(r.Context(), GetTenantID(r.Context()), actorID(r), chi.URLParam(r, "id"), bracket)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// DeactivateBracket handles DELETE /admin/brackets/{id}.
func (h *Handler) DeactivateBracket(w http.ResponseWriter, r *http.Request) {
	rule, err := h.svc.DeactivateBracket(r.Context(), GetTenantID(r.Context()), actorID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// ActivateBracket handles POST /admin/brackets/{id}/activate.
func (h *Handler) ActivateBracket(w http.ResponseWriter, r *http.Request) {
	rule, err := h.svc.ActivateBracket(r.Context(), GetTenantID(r.Context()), actorID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// ActiveSchedule handles GET /admin/schedule.
func (h *Handler) ActiveSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.svc.ActiveSchedule(r.Context(), GetTenantID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

// AuditLog handles GET /admin/audit?limit=N.
func (h *Handler) AuditLog(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 100)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entries, err := h.svc.AuditLog(r.Context(), GetTenantID(r.Context()), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

// Report handles GET /admin/reports?days=N.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", 30)
	if err != nil {
		writeError(w, r, err)
		return
	}

	report, err := h.svc.ReportLastDays(r.Context(), GetTenantID(r.Context()), days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func historyFilter(r *http.Request) (domain.CalculationFilter, error) {
	q := r.URL.Query()
	var filter domain.CalculationFilter

	limit, err := intParam(r, "limit", 0)
	if err != nil {
		return filter, err
	}
	filter.Limit = limit

	if v := q.Get("regime"); v != "" {
		regime, err := domain.ParseRegime(v)
		if err != nil {
			return filter, err
		}
		filter.Regime = regime
	}

	switch kind := domain.CalculationKind(q.Get("kind")); kind {
	case "", domain.KindRegime, domain.KindSchedule:
		filter.Kind = kind
	default:
		return filter, &domain.ValidationError{Field: "kind", Constraint: "must be one of regime, schedule", Value: string(kind)}
	}

	return filter, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &domain.ValidationError{Field: name, Constraint: "must be a non-negative integer", Value: raw}
	}
	return n, nil
}

func actorID(r *http.Request) string {
	if id := r.Header.Get(ActorIDHeader); id != "" {
		return id
	}
	return "unknown"
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON request body"})
		return false
	}
	return true
}

// writeError maps domain errors to HTTP status codes
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *domain.ValidationError
	var sErr *domain.ScheduleError

	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:      vErr.Error(),
			Field:      vErr.Field,
			Constraint: vErr.Constraint,
		})
	case errors.As(err, &sErr):
		slog.Warn("schedule error", "tenant_id", GetTenantID(r.Context()), "reason", sErr.Reason)
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: sErr.Error()})
	case errors.Is(err, payroll.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not found"})
	default:
		slog.Error("request failed",
			"error", err,
			"path", r.URL.Path,
			"trace_id", GetTraceID(r.Context()),
		)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
