// Package harness runs integration scenarios described in YAML.
//
// A scenario fixes the integrand, the raw standard input of a session and
// optionally the rule set and doubling limit. The harness runs the session
// exactly as the CLI would, then checks per-rule expectations and
// assertions against the reports and the captured output.
//
// # Scenario Format
//
//	name: square_unit_interval
//	description: "x^2 on [0,1]"
//	integrand: square
//	input: "0 1 1e-6"
//	rules: [midpoint, trap, simpson]
//	max_doublings: 30
//	expect:
//	  - rule: simpson
//	    status: converged
//	    final_n: 8
//	    value: 0.33333333
//	    within: 1e-8
//	assertions:
//	  - type: output_contains
//	    line: "I_simpson(8) = 0.33333333"
//	  - type: final_n_order
//	    rules: [simpson, midpoint, trap]
//
// # Assertion Types
//
//   - output_contains: the session output has the given line
//   - final_n_order: final subdivision counts are non-decreasing in the
//     listed rule order
//   - differences_shrink: |I(n) - I(2n)| never grows for a rule, after
//     the first skip pairs
//   - values_agree: every converged rule's final value is within the
//     given distance of every other
//
// # Golden Files
//
// The captured output (prompts included) is byte-exact and deterministic,
// so it can be compared against golden/<name>.golden next to the
// scenario file (see GoldenPath).
package harness
