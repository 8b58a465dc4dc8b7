package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Quarlos/integrationMTS/internal/testutil"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run with one converged and one failed rule.
func createTestRun(id string, createdAt time.Time) Run {
	return Run{
		ID:           id,
		InputHash:    "hash-" + id,
		Integrand:    "square",
		A:            0,
		B:            1,
		Tolerance:    1e-6,
		MaxDoublings: 30,
		CreatedAt:    createdAt,
		Rules: []RuleResult{
			{
				Rule:   "midpoint",
				Status: "converged",
				FinalN: 8,
				Estimates: []Estimate{
					{N: 4, Value: 0.328125},
					{N: 8, Value: 0.33203125, Final: true},
					{N: 16, Value: 0.3330078125, Final: true},
				},
			},
			{
				Rule:      "trap",
				Status:    "failed",
				ErrorCode: "NON_FINITE",
				Error:     "non-finite estimate",
				Estimates: []Estimate{},
			},
		},
	}
}

var clock = testutil.NewDeterministicClock()
