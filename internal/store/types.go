package store

import (
	"errors"
	"time"
)

// ErrRunNotFound is returned by ReadRun for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded integrate session.
type Run struct {
	ID           string       `json:"id"`
	InputHash    string       `json:"input_hash"`
	Integrand    string       `json:"integrand"`
	A            float64      `json:"a"`
	B            float64      `json:"b"`
	Tolerance    float64      `json:"tolerance"`
	MaxDoublings int          `json:"max_doublings"`
	CreatedAt    time.Time    `json:"created_at"`
	Rules        []RuleResult `json:"rules"`
}

// RuleResult is the outcome of one rule within a run.
// FinalN is 0 when the rule failed.
type RuleResult struct {
	Rule      string     `json:"rule"`
	Status    string     `json:"status"`
	FinalN    int        `json:"final_n,omitempty"`
	ErrorCode string     `json:"error_code,omitempty"`
	Error     string     `json:"error,omitempty"`
	Estimates []Estimate `json:"estimates"`
}

// Estimate is one stored kernel evaluation. Final marks the converged pair.
type Estimate struct {
	N     int     `json:"n"`
	Value float64 `json:"value"`
	Final bool    `json:"final,omitempty"`
}
