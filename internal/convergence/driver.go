// Package convergence drives a quadrature rule to self-convergence by
// repeatedly doubling the subdivision count.
//
// The driver is a single routine parameterized by the rule, so all three
// rules share one loop. Starting from n = InitialN it compares estimates
// at n and 2n; while they differ by more than the tolerance, the estimate
// at n is recorded as a progress step and n doubles. The final pair is
// the accuracy certificate: agreement between successive estimates, not
// distance from a closed-form value.
//
// Unlike a bare while-loop, the driver stops with a DriverError when the
// doubling budget is exhausted, when an estimate is NaN or infinite, or
// when its context is canceled.
package convergence

import (
	"context"
	"log/slog"
	"math"

	"github.com/Quarlos/integrationMTS/internal/integrand"
	"github.com/Quarlos/integrationMTS/internal/quadrature"
)

const (
	// DefaultInitialN is the subdivision count every run starts from.
	DefaultInitialN = 4

	// DefaultMaxDoublings bounds the loop at n = 4·2^30 (~4 billion).
	DefaultMaxDoublings = 30
)

// Estimate is one kernel evaluation at subdivision count N.
type Estimate struct {
	N     int     `json:"n"`
	Value float64 `json:"value"`
}

// Result is the outcome of one rule's convergence run.
type Result struct {
	Rule string `json:"rule"`

	// Steps are the intermediate, non-converged estimates in the order
	// they were produced.
	Steps []Estimate `json:"steps"`

	// Old and New are the last estimate pair, at n and 2n.
	Old Estimate `json:"old"`
	New Estimate `json:"new"`

	// Doublings counts how many times n was doubled.
	Doublings int `json:"doublings"`
}

// Diff returns |New - Old|.
func (r *Result) Diff() float64 {
	return math.Abs(r.New.Value - r.Old.Value)
}

// Observer receives each intermediate estimate as it is produced.
type Observer func(Estimate)

// Driver runs the adaptive doubling loop.
//
// The zero value is usable: InitialN falls back to DefaultInitialN and a
// zero MaxDoublings leaves the loop unbounded (only int overflow stops it).
// Use New for the bounded defaults.
type Driver struct {
	InitialN     int
	MaxDoublings int
	Logger       *slog.Logger
}

// New creates a driver with the default starting count and doubling limit.
func New() *Driver {
	return &Driver{
		InitialN:     DefaultInitialN,
		MaxDoublings: DefaultMaxDoublings,
	}
}

// Run drives rule over [a, b] until successive estimates agree within tol.
//
// observe, if non-nil, is called synchronously for every intermediate
// estimate before n doubles. On success the returned Result satisfies
// |New.Value - Old.Value| <= tol. On failure the error is a *DriverError
// whose Result field holds the partial run.
func (d *Driver) Run(ctx context.Context, rule quadrature.Rule, f integrand.Func, a, b, tol float64, observe Observer) (*Result, error) {
	if math.IsNaN(tol) || math.IsInf(tol, 0) || tol <= 0 {
		return nil, &DriverError{
			Code:    ErrCodeInvalidTolerance,
			Message: "tolerance must be a positive finite number",
			Rule:    rule.Name,
		}
	}

	logger := d.logger()
	res := &Result{Rule: rule.Name, Steps: []Estimate{}}

	eval := func(n int) (Estimate, error) {
		if err := ctx.Err(); err != nil {
			return Estimate{}, &DriverError{
				Code:    ErrCodeCanceled,
				Message: "run canceled",
				Rule:    rule.Name,
				Result:  res,
				Err:     err,
			}
		}
		est := Estimate{N: n, Value: rule.Kernel(f, a, b, n)}
		if math.IsNaN(est.Value) || math.IsInf(est.Value, 0) {
			return est, newNonFiniteError(rule.Name, res, est)
		}
		return est, nil
	}

	n := d.initialN()
	old, err := eval(n)
	if err != nil {
		return nil, err
	}
	res.Old = old

	cur, err := eval(2 * n)
	if err != nil {
		return nil, err
	}
	res.New = cur

	for {
		diff := math.Abs(cur.Value - old.Value)
		logger.Debug("estimate pair",
			"rule", rule.Name, "n", n, "old", old.Value, "new", cur.Value, "diff", diff)

		if diff <= tol {
			break
		}
		if d.MaxDoublings > 0 && res.Doublings >= d.MaxDoublings {
			return nil, newNonConvergentError(rule.Name, res, diff, "doubling limit reached")
		}
		// The next iteration evaluates at 4n.
		if n > math.MaxInt/4 {
			return nil, newNonConvergentError(rule.Name, res, diff, "subdivision count would overflow")
		}

		res.Steps = append(res.Steps, old)
		if observe != nil {
			observe(old)
		}

		old = cur
		n *= 2
		res.Doublings++
		res.Old = old

		cur, err = eval(2 * n)
		if err != nil {
			return nil, err
		}
		res.New = cur
	}

	logger.Debug("converged",
		"rule", rule.Name, "n", res.Old.N, "value", res.New.Value, "doublings", res.Doublings)
	return res, nil
}

func (d *Driver) initialN() int {
	if d.InitialN < 1 {
		return DefaultInitialN
	}
	return d.InitialN
}

func (d *Driver) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
