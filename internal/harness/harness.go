package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Quarlos/integrationMTS/internal/convergence"
	"github.com/Quarlos/integrationMTS/internal/integrand"
	"github.com/Quarlos/integrationMTS/internal/quadrature"
	"github.com/Quarlos/integrationMTS/internal/session"
)

// Run executes a scenario and returns the result.
//
// The session reads Input with prompts on, exactly as an interactive run,
// so Output is byte-identical to what the CLI prints. Rule failures are
// not execution errors: they are recorded in the reports and checked
// against the expectations. Run returns an error only when the scenario
// cannot be executed at all, e.g. unreadable input.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return RunWithLogger(ctx, scenario, nil)
}

// RunWithLogger is Run with a custom logger for driver debug output.
// A nil logger discards it.
func RunWithLogger(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	name := scenario.Integrand
	if name == "" {
		name = integrand.DefaultName
	}
	entry, err := integrand.Lookup(name)
	if err != nil {
		return nil, err
	}

	rules, err := quadrature.Select(scenario.Rules)
	if err != nil {
		return nil, err
	}

	driver := convergence.New()
	driver.Logger = logger
	if scenario.MaxDoublings != nil {
		driver.MaxDoublings = *scenario.MaxDoublings
	}

	var out bytes.Buffer
	in, err := session.ReadInputs(strings.NewReader(scenario.Input), &out, true)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	ctrl := &session.Controller{
		Driver:    driver,
		Integrand: entry.Func,
		Rules:     rules,
		Parallel:  scenario.Parallel,
	}

	logger.Debug("running scenario", "name", scenario.Name, "integrand", entry.Name, "rules", len(rules))
	reports, err := ctrl.Run(ctx, in, &out)
	var sessErr *session.SessionError
	if err != nil && !errors.As(err, &sessErr) {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result := NewResult()
	result.Output = out.String()
	result.Reports = reports

	for i, exp := range scenario.Expect {
		checkExpectation(result, i, exp)
	}
	for i, a := range scenario.Assertions {
		if err := evaluateAssertion(result, a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d] (%s): %v", i, a.Type, err))
		}
	}

	return result, nil
}
