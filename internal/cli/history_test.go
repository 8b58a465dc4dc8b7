package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quarlos/integrationMTS/internal/store"
	"github.com/Quarlos/integrationMTS/internal/testutil"
)

// recordRuns runs integrate once per ID against the same database.
func recordRuns(t *testing.T, dbPath, stdin string, args []string, ids ...string) {
	t.Helper()
	clock := testutil.NewDeterministicClock()
	opts := &RootOptions{IDs: store.NewFixedGenerator(ids...), Now: clock.Now}

	for range ids {
		_, _, err := executeRoot(t, opts, stdin, append([]string{"--db", dbPath}, args...)...)
		require.NoError(t, err)
	}
}

func executeHistory(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	if args == nil {
		args = []string{}
	}
	buf := &bytes.Buffer{}
	cmd := NewHistoryCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestHistoryMissingDatabase(t *testing.T) {
	_, err := executeHistory(t, "text")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no database")
}

func TestHistoryDatabaseFromConfig(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "runs.db")
	recordRuns(t, dbPath, "0 1 1e-3", []string{"--integrand", "identity"}, "run-config")

	cfgPath := filepath.Join(dir, "integrate.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("db: "+dbPath+"\n"), 0644))

	out, _, err := executeRoot(t, nil, "", "history", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "run-config")
}

func TestHistoryDatabaseFromEnv(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordRuns(t, dbPath, "0 1 1e-3", []string{"--integrand", "identity"}, "run-env")

	t.Setenv("INTEGRATE_DB", dbPath)
	out, _, err := executeRoot(t, nil, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "run-env")

	// An explicit flag still wins over the environment.
	_, _, err = executeRoot(t, nil, "", "history", "--db", filepath.Join(t.TempDir(), "other.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not found")
}

func TestHistoryNonExistentDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "missing.db")

	_, err := executeHistory(t, "text", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
	assert.NoFileExists(t, dbPath, "history never creates a database")
}

func TestHistoryEmpty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := executeHistory(t, "text", "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded.\n", out)

	out, err = executeHistory(t, "json", "--db", dbPath)
	require.NoError(t, err)
	var resp struct {
		Status string      `json:"status"`
		Data   []store.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.Data)
}

func TestHistoryList(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordRuns(t, dbPath, "0 1 1e-3", []string{"--integrand", "identity"}, "run-1", "run-2", "run-3")

	out, err := executeHistory(t, "text", "--db", dbPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.True(t, strings.HasPrefix(lines[1], "run-3"), "newest first")
	assert.Contains(t, lines[1], "identity")
	assert.Contains(t, lines[1], "0.001")
	assert.True(t, strings.HasPrefix(lines[3], "run-1"))

	out, err = executeHistory(t, "text", "--db", dbPath, "--limit", "1")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimRight(out, "\n"), "\n"), 2)
}

func TestHistoryInvalidLimit(t *testing.T) {
	_, err := executeHistory(t, "text", "--db", "unused.db", "--limit", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeInvalidFlag)
}

func TestHistoryRunDetail(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordRuns(t, dbPath, "0 1 1e-3", []string{"--integrand", "identity"}, "run-1", "run-2")
	recordRuns(t, dbPath, "0 2 1e-3", []string{"--integrand", "identity"}, "run-other")

	out, err := executeHistory(t, "text", "--db", dbPath, "--run", "run-2")
	require.NoError(t, err)

	assert.Contains(t, out, "Run: run-2\n")
	assert.Contains(t, out, "Integrand: identity\n")
	assert.Contains(t, out, "Limits: [0, 1]\n")
	assert.Contains(t, out, "Tolerance: 0.001\n")
	assert.Contains(t, out, "Max doublings: 30\n")
	assert.Contains(t, out, "=== midpoint (converged, n=8) ===\n")
	assert.Contains(t, out, "* I_midpoint(4) = 0.5\n")
	assert.Contains(t, out, "* I_simpson(8) = 0.5\n")
	assert.Contains(t, out, "Same input:\n  run-1\n")
	assert.NotContains(t, out, "run-other")
}

func TestHistoryRunDetailJSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordRuns(t, dbPath, "0 1 1e-6", []string{"--integrand", "square", "--rules", "simpson"}, "run-1")

	out, err := executeHistory(t, "json", "--db", dbPath, "--run", "run-1")
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.Data.ID)
	assert.Equal(t, "square", resp.Data.Integrand)
	assert.NotNil(t, resp.Data.SameInput)
	assert.Empty(t, resp.Data.SameInput)

	require.Len(t, resp.Data.Rules, 1)
	rr := resp.Data.Rules[0]
	assert.Equal(t, "simpson", rr.Rule)
	assert.Equal(t, 8, rr.FinalN)
	require.Len(t, rr.Estimates, 2)
	assert.InDelta(t, 1.0/3.0, rr.Estimates[1].Value, 1e-12)
}

func TestHistoryRunNotFound(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, err = executeHistory(t, "text", "--db", dbPath, "--run", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)

	out, err := executeHistory(t, "json", "--db", dbPath, "--run", "nope")
	require.Error(t, err)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestHistoryFailedRuleDetail(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	opts := &RootOptions{IDs: store.NewFixedGenerator("run-fail")}
	_, _, err := executeRoot(t, opts, "0 1 1e-6",
		"--db", dbPath, "--integrand", "square", "--rules", "midpoint", "--max-doublings", "3")
	require.Error(t, err)

	out, err := executeHistory(t, "text", "--db", dbPath, "--run", "run-fail")
	require.NoError(t, err)
	assert.Contains(t, out, "=== midpoint (failed, NON_CONVERGENT) ===\n")
	assert.Contains(t, out, "  I_midpoint(16) = 0.33300781\n")
	assert.Contains(t, out, "  I_midpoint(32) = 0.33325195\n")
	assert.Contains(t, out, "  I_midpoint(64) = 0.33331299\n")
	assert.NotContains(t, out, "* I_midpoint")
	assert.Contains(t, out, "  error: NON_CONVERGENT: doubling limit reached")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "run-1", truncateID("run-1"))
	assert.Equal(t, "0190b6c2-7a3e...", truncateID("0190b6c2-7a3e-7c4f-9b2a-5d1e8f3c6a7b"))
}

func TestFormatDoublings(t *testing.T) {
	assert.Equal(t, "unbounded", formatDoublings(0))
	assert.Equal(t, "30", formatDoublings(30))
}
