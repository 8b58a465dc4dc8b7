// Package integrand defines the functions under integration.
//
// An integrand is a plain Func value injected into the quadrature kernels
// and the convergence driver. The set of available integrands is fixed at
// build time: changing the function under integration means editing the
// registry in integrand.go and rebuilding. The CLI only selects among the
// compiled-in entries by name; it never parses formulas.
//
// Integrands are not guarded against their own domain. Evaluating
// Stefanica at a negative point returns NaN rather than failing; detecting
// non-finite estimates is the convergence driver's job.
package integrand
