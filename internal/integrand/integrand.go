package integrand

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Func is a single-variable integrand. Implementations must be pure:
// no side effects, no memoized state.
type Func func(x float64) float64

// DefaultName is the integrand used when none is selected.
const DefaultName = "stefanica"

// ErrUnknownIntegrand is returned by Lookup for names not in the registry.
var ErrUnknownIntegrand = errors.New("unknown integrand")

// Entry is a registered integrand with its human-readable formula.
type Entry struct {
	Name    string `json:"name"`
	Formula string `json:"formula"`
	Func    Func   `json:"-"`
}

// registry holds the compiled-in integrands.
// Adding an integrand means adding an entry here.
var registry = map[string]Entry{
	"stefanica": {
		Name:    "stefanica",
		Formula: "sqrt(x^5) / (1 + x^2)",
		Func:    Stefanica,
	},
	"identity": {
		Name:    "identity",
		Formula: "x",
		Func:    func(x float64) float64 { return x },
	},
	"square": {
		Name:    "square",
		Formula: "x^2",
		Func:    func(x float64) float64 { return x * x },
	},
	"cubic": {
		Name:    "cubic",
		Formula: "x^3",
		Func:    func(x float64) float64 { return x * x * x },
	},
	"exp": {
		Name:    "exp",
		Formula: "e^x",
		Func:    math.Exp,
	},
	"sin": {
		Name:    "sin",
		Formula: "sin(x)",
		Func:    math.Sin,
	},
	"gaussian": {
		Name:    "gaussian",
		Formula: "e^(-x^2)",
		Func:    func(x float64) float64 { return math.Exp(-x * x) },
	},
	"inverse-sqrt": {
		Name:    "inverse-sqrt",
		Formula: "1 / sqrt(x)",
		Func:    func(x float64) float64 { return 1 / math.Sqrt(x) },
	},
}

// Stefanica computes sqrt(x^5) / (1 + x^2).
// Negative x yields NaN, which propagates into any quadrature sum.
func Stefanica(x float64) float64 {
	return math.Sqrt(x*x*x*x*x) / (1 + x*x)
}

// Default returns the default integrand.
func Default() Func {
	return registry[DefaultName].Func
}

// Lookup returns the registered integrand with the given name.
// Names are matched after trimming, NFC normalization and case folding,
// so "Stefanica" and " STEFANICA " both resolve.
func Lookup(name string) (Entry, error) {
	key := canonicalName(name)
	entry, ok := registry[key]
	if !ok {
		return Entry{}, fmt.Errorf("%w %q: must be one of %v", ErrUnknownIntegrand, name, Names())
	}
	return entry, nil
}

// Names returns all registered integrand names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entries returns all registered integrands sorted by name.
func Entries() []Entry {
	names := Names()
	entries := make([]Entry, len(names))
	for i, name := range names {
		entries[i] = registry[name]
	}
	return entries
}

func canonicalName(name string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(name)))
}
