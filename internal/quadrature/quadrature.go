// Package quadrature implements the composite midpoint, trapezoidal and
// Simpson rules over n equal-width subintervals.
//
// Kernels never return errors: degenerate inputs (n = 0, out-of-domain
// integrand evaluations) surface as Inf or NaN through ordinary float64
// arithmetic. Each call is O(n) integrand evaluations with no caching
// between calls.
package quadrature

import (
	"errors"
	"fmt"

	"github.com/Quarlos/integrationMTS/internal/integrand"
)

// Kernel estimates the integral of f over [a, b] using n subintervals.
type Kernel func(f integrand.Func, a, b float64, n int) float64

// Rule pairs a kernel with the label used in output ("I_<name>(n)").
type Rule struct {
	Name   string
	Kernel Kernel
}

// Rule labels.
const (
	NameMidpoint = "midpoint"
	NameTrap     = "trap"
	NameSimpson  = "simpson"
)

// ErrUnknownRule is returned by Select for names that are not rule labels.
var ErrUnknownRule = errors.New("unknown quadrature rule")

// Midpoint evaluates f only at the subinterval midpoints.
func Midpoint(f integrand.Func, a, b float64, n int) float64 {
	h := (b - a) / float64(n)
	sum := 0.0
	for i := 1; i < n+1; i++ {
		sum += f(a + h*(float64(i)-0.5))
	}
	return h * sum
}

// Trapezoidal evaluates f at the n+1 nodes with halved endpoint weights.
func Trapezoidal(f integrand.Func, a, b float64, n int) float64 {
	h := (b - a) / float64(n)
	sum := f(a)/2 + f(b)/2
	for i := 1; i < n; i++ {
		sum += f(a + float64(i)*h)
	}
	return h * sum
}

// Simpson blends node evaluations (weight 1/3, endpoints 1/6) with
// midpoint evaluations (weight 2/3). Terms are accumulated in that order:
// endpoints, interior nodes, midpoints.
func Simpson(f integrand.Func, a, b float64, n int) float64 {
	h := (b - a) / float64(n)
	sum := f(a)/6 + f(b)/6
	for i := 1; i < n; i++ {
		sum += f(a+float64(i)*h) / 3
	}
	for i := 1; i < n+1; i++ {
		sum += 2 * f(a+h*(float64(i)-0.5)) / 3
	}
	return h * sum
}

// Rules returns the three rules in canonical order: midpoint, trap, simpson.
func Rules() []Rule {
	return []Rule{
		{Name: NameMidpoint, Kernel: Midpoint},
		{Name: NameTrap, Kernel: Trapezoidal},
		{Name: NameSimpson, Kernel: Simpson},
	}
}

// Names returns the rule labels in canonical order.
func Names() []string {
	return []string{NameMidpoint, NameTrap, NameSimpson}
}

// Select returns the named rules in canonical order, regardless of the
// order of names. Duplicates are collapsed. An empty list selects all rules.
func Select(names []string) ([]Rule, error) {
	if len(names) == 0 {
		return Rules(), nil
	}

	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		if !isRuleName(name) {
			return nil, fmt.Errorf("%w %q: must be one of %v", ErrUnknownRule, name, Names())
		}
		wanted[name] = true
	}

	var selected []Rule
	for _, r := range Rules() {
		if wanted[r.Name] {
			selected = append(selected, r)
		}
	}
	return selected, nil
}

func isRuleName(name string) bool {
	for _, n := range Names() {
		if n == name {
			return true
		}
	}
	return false
}
