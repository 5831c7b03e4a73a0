package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rgehrsitz/paytax/internal/cache"
	"github.com/rgehrsitz/paytax/internal/calculation"
	"github.com/rgehrsitz/paytax/internal/domain"
	"github.com/rgehrsitz/paytax/internal/payroll"
	"github.com/rgehrsitz/paytax/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestServer wires a server over a temporary sqlite database and an
// in-memory schedule cache.
func createTestServer(t *testing.T) *Server {
	t.Helper()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "api-test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	c := cache.NewLRUCache(100)
	svc := payroll.NewService(repo, c, calculation.DefaultPolicy(), time.Minute)

	cfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}
	return NewServer(cfg, svc, repo, c, "test-v1")
}

func doRequest(t *testing.T, server *Server, method, path, tenantID, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body == "" {
		reader = &bytes.Buffer{}
	} else {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if tenantID != "" {
		req.Header.Set(TenantIDHeader, tenantID)
	}
	req.Header.Set(ActorIDHeader, "admin-1")

	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestHealthEndpoint(t *testing.T) {
	server := createTestServer(t)

	rr := doRequest(t, server, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decode(t, rr)
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "test-v1", resp["version"])
	assert.NotEmpty(t, rr.Header().Get(TraceIDHeader))
}

func TestCalculateEndpoint(t *testing.T) {
	server := createTestServer(t)

	t.Run("OldRegime", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/employees/emp-1/calculations", "tenant-001",
			`{"annual_bonus": "₹14,50,000", "regime": "old"}`)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		resp := decode(t, rr)
		assert.Equal(t, "emp-1", resp["employee_id"])
		assert.Equal(t, "regime", resp["kind"])
		assert.Equal(t, true, resp["saved"])

		result := resp["result"].(map[string]any)
		assert.Equal(t, "1400000", result["taxable_income"])
		assert.Equal(t, "241800", result["total_tax"])
	})

	t.Run("NumericAmounts", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/employees/emp-1/calculations", "tenant-001",
			`{"monthly_income": 50000, "deductions": {"investment": 200000}, "regime": "new"}`)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		result := decode(t, rr)["result"].(map[string]any)
		assert.Equal(t, "new", result["regime"])
		assert.Equal(t, "0", result["total_deductions"])
	})

	t.Run("ValidationError", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/employees/emp-1/calculations", "tenant-001",
			`{"monthly_income": "-10"}`)
		require.Equal(t, http.StatusBadRequest, rr.Code)

		resp := decode(t, rr)
		assert.Equal(t, "monthly_income", resp["field"])
		assert.Equal(t, "must be non-negative", resp["constraint"])
	})

	t.Run("ExponentAmountRejected", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/employees/emp-1/calculations", "tenant-001",
			`{"monthly_income": 1e30000000, "regime": "old"}`)
		require.Equal(t, http.StatusBadRequest, rr.Code)

		resp := decode(t, rr)
		assert.Equal(t, "monthly_income", resp["field"])
		assert.Equal(t, "out of range", resp["constraint"])

		rr = doRequest(t, server, http.MethodPost, "/employees/emp-1/schedule-calculations", "tenant-001",
			`{"gross_income": "1e3000000"}`)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "gross_income", decode(t, rr)["field"])
	})

	t.Run("UnknownRegime", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/employees/emp-1/calculations", "tenant-001",
			`{"monthly_income": 1000, "regime": "flat"}`)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "regime", decode(t, rr)["field"])
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/employees/emp-1/calculations", "tenant-001", "not-json")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("MissingTenantID", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/employees/emp-1/calculations", "", `{}`)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "X-Tenant-ID header is required", decode(t, rr)["error"])
	})
}

func TestHistoryAndGet(t *testing.T) {
	server := createTestServer(t)

	created := doRequest(t, server, http.MethodPost, "/employees/emp-9/calculations", "tenant-001",
		`{"monthly_income": "100000", "regime": "old"}`)
	require.Equal(t, http.StatusCreated, created.Code)
	id := decode(t, created)["id"].(string)

	doRequest(t, server, http.MethodPost, "/employees/emp-9/calculations", "tenant-001",
		`{"monthly_income": "100000", "regime": "new"}`)

	t.Run("History", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/employees/emp-9/calculations", "tenant-001", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.EqualValues(t, 2, decode(t, rr)["count"])
	})

	t.Run("HistoryFilteredByRegime", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/employees/emp-9/calculations?regime=old", "tenant-001", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.EqualValues(t, 1, decode(t, rr)["count"])
	})

	t.Run("HistoryBadLimit", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/employees/emp-9/calculations?limit=abc", "tenant-001", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("OtherTenantSeesNothing", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/employees/emp-9/calculations", "tenant-002", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.EqualValues(t, 0, decode(t, rr)["count"])
	})

	t.Run("Get", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/calculations/"+id, "tenant-001", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, id, decode(t, rr)["id"])
	})

	t.Run("GetNotFound", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/calculations/"+id, "tenant-002", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("ExportCSV", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/employees/emp-9/calculations/export", "tenant-001", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
		assert.Contains(t, rr.Header().Get("Content-Disposition"), "tax_history_emp-9.csv")

		lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
		assert.Len(t, lines, 3)
	})
}

func TestScheduleAdministration(t *testing.T) {
	server := createTestServer(t)
	const tenant = "tenant-001"

	t.Run("DefaultScheduleBeforeSeeding", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/employees/emp-1/schedule-calculations", tenant,
			`{"gross_income": 800000, "deductions": 50000}`)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		result := decode(t, rr)["schedule_result"].(map[string]any)
		assert.Equal(t, "750000", result["taxable_income"])
		assert.Equal(t, "62500", result["tax_amount"])
	})

	var ids []string
	t.Run("Seed", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/admin/brackets/seed", tenant, "")
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		resp := decode(t, rr)
		assert.EqualValues(t, 4, resp["count"])
		for _, b := range resp["brackets"].([]any) {
			ids = append(ids, b.(map[string]any)["id"].(string))
		}

		again := doRequest(t, server, http.MethodPost, "/admin/brackets/seed", tenant, "")
		assert.Equal(t, http.StatusConflict, again.Code)
	})
	require.Len(t, ids, 4)

	t.Run("UpdateRate", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPut, "/admin/brackets/"+ids[2], tenant,
			`{"min_income": 500000, "max_income": 1000000, "rate_percent": 10, "label": "10% band"}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, "10", decode(t, rr)["rate_percent"])

		calc := doRequest(t, server, http.MethodPost, "/employees/emp-1/schedule-calculations", tenant,
			`{"gross_income": 800000, "deductions": 50000}`)
		require.Equal(t, http.StatusCreated, calc.Code)
		result := decode(t, calc)["schedule_result"].(map[string]any)
		assert.Equal(t, "37500", result["tax_amount"])
	})

	t.Run("InvalidBracket", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/admin/brackets", tenant,
			`{"min_income": 100, "max_income": 50, "rate_percent": 5}`)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "max_income", decode(t, rr)["field"])
	})

	t.Run("GapIsScheduleError", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodDelete, "/admin/brackets/"+ids[1], tenant, "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, false, decode(t, rr)["active"])

		calc := doRequest(t, server, http.MethodPost, "/employees/emp-1/schedule-calculations", tenant,
			`{"gross_income": 800000}`)
		assert.Equal(t, http.StatusUnprocessableEntity, calc.Code)
	})

	t.Run("ListBrackets", func(t *testing.T) {
		active := doRequest(t, server, http.MethodGet, "/admin/brackets", tenant, "")
		require.Equal(t, http.StatusOK, active.Code)
		assert.EqualValues(t, 3, decode(t, active)["count"])

		all := doRequest(t, server, http.MethodGet, "/admin/brackets?all=true", tenant, "")
		assert.EqualValues(t, 4, decode(t, all)["count"])
	})

	t.Run("AuditLog", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/admin/audit?limit=2", tenant, "")
		require.Equal(t, http.StatusOK, rr.Code)

		entries := decode(t, rr)["entries"].([]any)
		require.Len(t, entries, 2)
		latest := entries[0].(map[string]any)
		assert.Equal(t, payroll.ActionBracketDeactivate, latest["action"])
		assert.Equal(t, "admin-1", latest["actor_id"])
	})

	t.Run("Reactivate", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/admin/brackets/"+ids[1]+"/activate", tenant, "")
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, true, decode(t, rr)["active"])

		calc := doRequest(t, server, http.MethodPost, "/employees/emp-1/schedule-calculations", tenant,
			`{"gross_income": 800000, "deductions": 50000}`)
		require.Equal(t, http.StatusCreated, calc.Code, calc.Body.String())
		assert.Equal(t, "37500", decode(t, calc)["schedule_result"].(map[string]any)["tax_amount"])

		audit := doRequest(t, server, http.MethodGet, "/admin/audit?limit=1", tenant, "")
		latest := decode(t, audit)["entries"].([]any)[0].(map[string]any)
		assert.Equal(t, payroll.ActionBracketActivate, latest["action"])
	})

	t.Run("UnknownBracket", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodDelete, "/admin/brackets/missing", tenant, "")
		assert.Equal(t, http.StatusNotFound, rr.Code)

		rr = doRequest(t, server, http.MethodPost, "/admin/brackets/missing/activate", tenant, "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestReportAndTenantExport(t *testing.T) {
	server := createTestServer(t)
	const tenant = "tenant-001"

	for _, body := range []string{
		`{"monthly_income": 100000, "regime": "old"}`,
		`{"monthly_income": 100000, "regime": "new"}`,
	} {
		rr := doRequest(t, server, http.MethodPost, "/employees/emp-1/calculations", tenant, body)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	t.Run("Report", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/admin/reports?days=7", tenant, "")
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		resp := decode(t, rr)
		dist := resp["regime_distribution"].(map[string]any)
		assert.EqualValues(t, 1, dist["old"])
		assert.EqualValues(t, 1, dist["new"])
		assert.Len(t, resp["daily"].([]any), 1)
	})

	t.Run("ReportBadDays", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/admin/reports?days=-1", tenant, "")
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "days", decode(t, rr)["field"])
	})

	t.Run("ExportJSON", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/admin/calculations/export?format=json", tenant, "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

		var records []map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &records))
		assert.Len(t, records, 2)
	})

	t.Run("ExportUnknownFormat", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/admin/calculations/export?format=xml", tenant, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
