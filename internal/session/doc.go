// Package session reads the integration limits and tolerance from the user
// and runs the convergence driver once per quadrature rule.
//
// Output is line-oriented and fixed: for each rule, in the order midpoint,
// trap, simpson, every intermediate estimate is printed as
//
//	I_<rule>(<n>) = <value>
//
// followed by the two converged estimates at n and 2n. Values carry 8
// significant digits. Prompts are written without a trailing newline, so a
// piped transcript matches the interactive one byte for byte.
package session
