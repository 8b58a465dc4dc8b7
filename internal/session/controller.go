package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/Quarlos/integrationMTS/internal/convergence"
	"github.com/Quarlos/integrationMTS/internal/integrand"
	"github.com/Quarlos/integrationMTS/internal/quadrature"
)

// Report statuses.
const (
	StatusConverged = "converged"
	StatusFailed    = "failed"
)

// Report is the outcome of one rule within a session.
// Final is the accepted pair of a converged rule. Last is the pair that
// was still too far apart when a rule hit its doubling limit.
type Report struct {
	Rule   string                 `json:"rule"`
	Status string                 `json:"status"`
	Steps  []convergence.Estimate `json:"steps"`
	Final  []convergence.Estimate `json:"final,omitempty"`
	Last   []convergence.Estimate `json:"last,omitempty"`
	Code   string                 `json:"code,omitempty"`
	Error  string                 `json:"error,omitempty"`
	Err    error                  `json:"-"`
}

// SessionError reports rules that failed to converge. The other rules in
// the session still ran; their reports are returned alongside.
type SessionError struct {
	Failed int
	Total  int
	Errs   []error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%d of %d rules failed: %v", e.Failed, e.Total, errors.Join(e.Errs...))
}

func (e *SessionError) Unwrap() []error {
	return e.Errs
}

// Controller runs the convergence driver once per rule and formats output.
type Controller struct {
	Driver    *convergence.Driver
	Integrand integrand.Func
	Rules     []quadrature.Rule

	// Parallel runs rules concurrently. Output is buffered per rule and
	// written in rule order, so it is byte-identical to a sequential run.
	Parallel bool
}

// Run integrates over in.A..in.B with every configured rule, writing each
// rule's block to out in rule order. A failing rule does not stop the
// others; if any failed, the error is a *SessionError.
func (c *Controller) Run(ctx context.Context, in Inputs, out io.Writer) ([]Report, error) {
	rules := c.Rules
	if len(rules) == 0 {
		rules = quadrature.Rules()
	}

	reports := make([]Report, len(rules))
	if c.Parallel {
		bufs := make([]bytes.Buffer, len(rules))
		var wg sync.WaitGroup
		for i, r := range rules {
			wg.Add(1)
			go func(i int, r quadrature.Rule) {
				defer wg.Done()
				reports[i] = c.runRule(ctx, r, in, &bufs[i])
			}(i, r)
		}
		wg.Wait()

		for i := range bufs {
			if _, err := out.Write(bufs[i].Bytes()); err != nil {
				return reports, fmt.Errorf("write output: %w", err)
			}
		}
	} else {
		for i, r := range rules {
			reports[i] = c.runRule(ctx, r, in, out)
		}
	}

	var errs []error
	for _, rep := range reports {
		if rep.Err != nil {
			errs = append(errs, rep.Err)
		}
	}
	if len(errs) > 0 {
		return reports, &SessionError{Failed: len(errs), Total: len(reports), Errs: errs}
	}
	return reports, nil
}

func (c *Controller) runRule(ctx context.Context, r quadrature.Rule, in Inputs, out io.Writer) Report {
	rep := Report{Rule: r.Name, Steps: []convergence.Estimate{}}

	res, err := c.driver().Run(ctx, r, c.integrand(), in.A, in.B, in.Tol, func(e convergence.Estimate) {
		io.WriteString(out, FormatLine(r.Name, e))
	})
	if err != nil {
		rep.Status = StatusFailed
		rep.Err = err
		rep.Error = err.Error()

		var de *convergence.DriverError
		if errors.As(err, &de) {
			rep.Code = string(de.Code)
			if de.Result != nil {
				rep.Steps = de.Result.Steps
				if de.Code == convergence.ErrCodeNonConvergent {
					rep.Last = []convergence.Estimate{de.Result.Old, de.Result.New}
				}
			}
		}
		return rep
	}

	rep.Status = StatusConverged
	rep.Steps = res.Steps
	rep.Final = []convergence.Estimate{res.Old, res.New}
	io.WriteString(out, FormatLine(r.Name, res.Old))
	io.WriteString(out, FormatLine(r.Name, res.New))
	return rep
}

func (c *Controller) driver() *convergence.Driver {
	if c.Driver == nil {
		return convergence.New()
	}
	return c.Driver
}

func (c *Controller) integrand() integrand.Func {
	if c.Integrand == nil {
		return integrand.Default()
	}
	return c.Integrand
}

// FormatLine renders one estimate as "I_<rule>(<n>) = <value>\n".
func FormatLine(rule string, e convergence.Estimate) string {
	return fmt.Sprintf("I_%s(%d) = %s\n", rule, e.N, FormatValue(e.Value))
}

// FormatValue prints v with 8 significant digits, trailing zeros dropped.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', 8, 64)
}
