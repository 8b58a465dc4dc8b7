package harness

import (
	"fmt"
	"math"
	"strings"

	"github.com/Quarlos/integrationMTS/internal/session"
)

// checkExpectation compares one rule's report against exp and records
// every mismatch.
func checkExpectation(result *Result, index int, exp Expectation) {
	prefix := fmt.Sprintf("expect[%d] (%s)", index, exp.Rule)

	rep, ok := result.Report(exp.Rule)
	if !ok {
		result.AddError(fmt.Sprintf("%s: rule did not run", prefix))
		return
	}

	if rep.Status != exp.Status {
		result.AddError(fmt.Sprintf("%s: status %q, want %q (%s)", prefix, rep.Status, exp.Status, rep.Error))
		return
	}

	if exp.Code != "" && rep.Code != exp.Code {
		result.AddError(fmt.Sprintf("%s: code %q, want %q", prefix, rep.Code, exp.Code))
	}

	if exp.FinalN != 0 {
		if got := finalN(rep); got != exp.FinalN {
			result.AddError(fmt.Sprintf("%s: final n %d, want %d", prefix, got, exp.FinalN))
		}
	}

	if exp.Value != nil {
		got := finalValue(rep)
		if math.IsNaN(got) || math.Abs(got-*exp.Value) > exp.Within {
			result.AddError(fmt.Sprintf("%s: value %s, want %s ± %g",
				prefix, session.FormatValue(got), session.FormatValue(*exp.Value), exp.Within))
		}
	}
}

// evaluateAssertion dispatches to the appropriate assertion evaluator.
func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertOutputContains:
		return assertOutputContains(result, a.Line)
	case AssertFinalNOrder:
		return assertFinalNOrder(result, a.Rules)
	case AssertDifferencesShrink:
		return assertDifferencesShrink(result, a.Rule, a.Skip)
	case AssertValuesAgree:
		return assertValuesAgree(result, a.Within)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// assertOutputContains checks for a whole output line.
func assertOutputContains(result *Result, line string) error {
	for _, l := range strings.Split(result.Output, "\n") {
		// The first estimate line follows the prompts on the same line.
		if l == line || strings.HasSuffix(l, ": "+line) {
			return nil
		}
	}
	return fmt.Errorf("output has no line %q", line)
}

// assertFinalNOrder checks that the listed rules converged with
// non-decreasing final counts.
func assertFinalNOrder(result *Result, rules []string) error {
	prev := 0
	for i, rule := range rules {
		rep, ok := result.Report(rule)
		if !ok {
			return fmt.Errorf("rule %s did not run", rule)
		}
		n := finalN(rep)
		if n == 0 {
			return fmt.Errorf("rule %s did not converge", rule)
		}
		if i > 0 && n < prev {
			return fmt.Errorf("rule %s final n %d is less than %s final n %d", rule, n, rules[i-1], prev)
		}
		prev = n
	}
	return nil
}

// assertDifferencesShrink checks |I(n) - I(2n)| is non-increasing over the
// rule's estimates, ignoring the first skip comparisons.
func assertDifferencesShrink(result *Result, rule string, skip int) error {
	rep, ok := result.Report(rule)
	if !ok {
		return fmt.Errorf("rule %s did not run", rule)
	}

	est := estimates(rep)
	diffs := make([]float64, 0, len(est))
	for i := 1; i < len(est); i++ {
		diffs = append(diffs, math.Abs(est[i].Value-est[i-1].Value))
	}

	for i := skip + 1; i < len(diffs); i++ {
		if diffs[i] > diffs[i-1] {
			return fmt.Errorf("difference grew at n=%d: %g > %g", est[i].N, diffs[i], diffs[i-1])
		}
	}
	return nil
}

// assertValuesAgree checks every pair of converged final values.
func assertValuesAgree(result *Result, within float64) error {
	var converged []session.Report
	for _, rep := range result.Reports {
		if rep.Status == session.StatusConverged {
			converged = append(converged, rep)
		}
	}
	if len(converged) < 2 {
		return fmt.Errorf("need at least two converged rules, have %d", len(converged))
	}

	for i := 0; i < len(converged); i++ {
		for j := i + 1; j < len(converged); j++ {
			a, b := finalValue(converged[i]), finalValue(converged[j])
			if math.Abs(a-b) > within {
				return fmt.Errorf("%s = %s and %s = %s differ by more than %g",
					converged[i].Rule, session.FormatValue(a), converged[j].Rule, session.FormatValue(b), within)
			}
		}
	}
	return nil
}
