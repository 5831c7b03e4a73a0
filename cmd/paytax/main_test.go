package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := newRootCmd()
	assert.Equal(t, "paytax", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"calculate", "schedule-calc", "validate", "serve", "history", "report", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCommand_Help(t *testing.T) {
	out, err := runCLI(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "calculate")
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "paytax dev")
}

func TestCalculateCommand_Flags(t *testing.T) {
	out, err := runCLI(t, "calculate", "--monthly-income", "₹1,00,000", "--regime", "old", "--format", "json")
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rec), out)
	result := rec["result"].(map[string]any)
	assert.Equal(t, "1150000", result["taxable_income"])
	assert.Equal(t, "163800", result["total_tax"])
	assert.Equal(t, false, rec["saved"])
}

func TestCalculateCommand_Console(t *testing.T) {
	out, err := runCLI(t, "calculate", "--monthly-income", "100000")
	require.NoError(t, err)
	assert.Contains(t, out, "Old Regime")
	assert.Contains(t, out, "₹1,63,800")
}

func TestCalculateCommand_InputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.yaml")
	require.NoError(t, os.WriteFile(path, []byte("annual_bonus: 1450000\nregime: old\n"), 0o600))

	out, err := runCLI(t, "calculate", path, "-f", "json")
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "241800", rec["result"].(map[string]any)["total_tax"])
}

func TestCalculateCommand_Errors(t *testing.T) {
	_, err := runCLI(t, "calculate", "--monthly-income", "plenty")
	assert.ErrorContains(t, err, "monthly_income must be numeric")

	_, err = runCLI(t, "calculate", "--monthly-income", "1", "--format", "html")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestScheduleCalcCommand(t *testing.T) {
	out, err := runCLI(t, "schedule-calc", "--gross", "800000", "--deductions", "50000", "-f", "json")
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "62500", rec["schedule_result"].(map[string]any)["tax_amount"])
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`brackets:
  - {min_income: 0, max_income: 250000, rate_percent: 0}
  - {min_income: 250000, rate_percent: 10}
`), 0o600))
	gap := filepath.Join(dir, "gap.yaml")
	require.NoError(t, os.WriteFile(gap, []byte(`brackets:
  - {min_income: 0, max_income: 250000, rate_percent: 0}
  - {min_income: 300000, rate_percent: 10}
`), 0o600))

	out, err := runCLI(t, "validate", "schedule", good)
	require.NoError(t, err)
	assert.Contains(t, out, "is a valid schedule file")

	_, err = runCLI(t, "validate", "schedule", gap)
	assert.ErrorContains(t, err, "invalid bracket schedule")

	_, err = runCLI(t, "validate", "budget", good)
	assert.ErrorContains(t, err, "unknown file kind")
}

func TestPersistAndHistory(t *testing.T) {
	t.Setenv("PAYTAX_CACHE_TYPE", "memory")
	t.Setenv("PAYTAX_LOG_LEVEL", "error")
	db := filepath.Join(t.TempDir(), "cli.db")

	_, err := runCLI(t, "calculate", "--monthly-income", "100000", "--db", db, "--tenant", "acme", "--employee", "emp-1")
	require.NoError(t, err)
	_, err = runCLI(t, "calculate", "--monthly-income", "100000", "--regime", "new", "--db", db, "--tenant", "acme", "--employee", "emp-1")
	require.NoError(t, err)

	out, err := runCLI(t, "history", "--db", db, "--tenant", "acme", "-f", "json")
	require.NoError(t, err)
	var records []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &records), out)
	require.Len(t, records, 2)
	assert.Equal(t, true, records[0]["saved"])

	out, err = runCLI(t, "history", "--db", db, "--tenant", "acme", "--regime", "new")
	require.NoError(t, err)
	assert.Contains(t, out, "emp-1")

	out, err = runCLI(t, "report", "--db", db, "--tenant", "acme", "--days", "1", "-f", "json")
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	assert.EqualValues(t, 1, report["regime_distribution"].(map[string]any)["old"])

	_, err = runCLI(t, "history", "--db", db)
	assert.ErrorContains(t, err, "--tenant is required")
}
