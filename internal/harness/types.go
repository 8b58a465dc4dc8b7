package harness

import (
	"math"

	"github.com/Quarlos/integrationMTS/internal/convergence"
	"github.com/Quarlos/integrationMTS/internal/session"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expectation and assertion held.
	Pass bool `json:"pass"`

	// Output is everything the session wrote, prompts included.
	Output string `json:"output"`

	// Reports holds one entry per rule, in rule order.
	Reports []session.Report `json:"reports"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Reports: []session.Report{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Report returns the report for rule, if it ran.
func (r *Result) Report(rule string) (session.Report, bool) {
	for _, rep := range r.Reports {
		if rep.Rule == rule {
			return rep, true
		}
	}
	return session.Report{}, false
}

// estimates returns every estimate a report produced, in order.
func estimates(rep session.Report) []convergence.Estimate {
	all := make([]convergence.Estimate, 0, len(rep.Steps)+len(rep.Final))
	all = append(all, rep.Steps...)
	return append(all, rep.Final...)
}

// finalN is the larger count of the converged pair, or 0 if the rule
// did not converge.
func finalN(rep session.Report) int {
	if len(rep.Final) == 0 {
		return 0
	}
	return rep.Final[len(rep.Final)-1].N
}

// finalValue is the value at finalN.
func finalValue(rep session.Report) float64 {
	if len(rep.Final) == 0 {
		return math.NaN()
	}
	return rep.Final[len(rep.Final)-1].Value
}
