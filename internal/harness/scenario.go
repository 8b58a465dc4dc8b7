package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Quarlos/integrationMTS/internal/integrand"
	"github.com/Quarlos/integrationMTS/internal/quadrature"
	"github.com/Quarlos/integrationMTS/internal/session"
)

// Scenario defines one integration session and what it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Integrand names a registered integrand. Defaults to the default
	// integrand.
	Integrand string `yaml:"integrand,omitempty"`

	// Input is the raw standard input: left limit, right limit, tolerance.
	Input string `yaml:"input"`

	// Rules selects the rules to run. Empty means all, in canonical order.
	Rules []string `yaml:"rules,omitempty"`

	// MaxDoublings bounds each rule. Nil means the driver default; 0 is
	// unbounded.
	MaxDoublings *int `yaml:"max_doublings,omitempty"`

	// Parallel runs the rules concurrently.
	Parallel bool `yaml:"parallel,omitempty"`

	// Expect lists per-rule outcomes.
	Expect []Expectation `yaml:"expect,omitempty"`

	// Assertions validate properties across the session.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expectation specifies one rule's outcome.
type Expectation struct {
	// Rule is the rule name (midpoint, trap, simpson).
	Rule string `yaml:"rule"`

	// Status is "converged" or "failed".
	Status string `yaml:"status"`

	// FinalN is the expected larger count of the converged pair.
	// Zero skips the check.
	FinalN int `yaml:"final_n,omitempty"`

	// Code is the expected driver error code of a failed rule.
	Code string `yaml:"code,omitempty"`

	// Value is the expected final estimate, checked to within Within.
	Value  *float64 `yaml:"value,omitempty"`
	Within float64  `yaml:"within,omitempty"`
}

// Assertion validates a property of the whole session.
type Assertion struct {
	// Type specifies the assertion type:
	// - "output_contains": Line appears in the output
	// - "final_n_order": final counts non-decreasing along Rules
	// - "differences_shrink": successive differences never grow for Rule
	// - "values_agree": converged final values agree to within Within
	Type string `yaml:"type"`

	// Line is the expected output line, without its newline (used by output_contains).
	Line string `yaml:"line,omitempty"`

	// Rules is the rule order (used by final_n_order).
	Rules []string `yaml:"rules,omitempty"`

	// Rule is the rule to inspect (used by differences_shrink).
	Rule string `yaml:"rule,omitempty"`

	// Skip is the number of leading difference pairs allowed to be
	// irregular (used by differences_shrink).
	Skip int `yaml:"skip,omitempty"`

	// Within is the allowed distance (used by values_agree).
	Within float64 `yaml:"within,omitempty"`
}

// Assertion type constants.
const (
	AssertOutputContains    = "output_contains"
	AssertFinalNOrder       = "final_n_order"
	AssertDifferencesShrink = "differences_shrink"
	AssertValuesAgree       = "values_agree"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Input == "" {
		return fmt.Errorf("input is required")
	}

	if s.Integrand != "" {
		if _, err := integrand.Lookup(s.Integrand); err != nil {
			return err
		}
	}

	if _, err := quadrature.Select(s.Rules); err != nil {
		return fmt.Errorf("rules: %w", err)
	}

	if s.MaxDoublings != nil && *s.MaxDoublings < 0 {
		return fmt.Errorf("max_doublings must be non-negative")
	}

	if len(s.Expect) == 0 && len(s.Assertions) == 0 {
		return fmt.Errorf("at least one expect or assertions entry is required")
	}

	for i, e := range s.Expect {
		if e.Rule == "" {
			return fmt.Errorf("expect[%d]: rule is required", i)
		}
		if e.Status != session.StatusConverged && e.Status != session.StatusFailed {
			return fmt.Errorf("expect[%d]: status must be %q or %q", i, session.StatusConverged, session.StatusFailed)
		}
		if e.Within < 0 {
			return fmt.Errorf("expect[%d]: within must be non-negative", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOutputContains:
		if a.Line == "" {
			return fmt.Errorf("assertions[%d]: line is required for output_contains", index)
		}
	case AssertFinalNOrder:
		if len(a.Rules) < 2 {
			return fmt.Errorf("assertions[%d]: at least two rules are required for final_n_order", index)
		}
	case AssertDifferencesShrink:
		if a.Rule == "" {
			return fmt.Errorf("assertions[%d]: rule is required for differences_shrink", index)
		}
		if a.Skip < 0 {
			return fmt.Errorf("assertions[%d]: skip must be non-negative for differences_shrink", index)
		}
	case AssertValuesAgree:
		if a.Within <= 0 {
			return fmt.Errorf("assertions[%d]: within must be positive for values_agree", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
