package convergence

import "fmt"

// DriverError represents a convergence run that ended without an accepted
// estimate pair.
//
// Driver errors include:
//   - Non-convergence: MaxDoublings reached (or n would overflow)
//   - Non-finite: an estimate was NaN or ±Inf (integrand domain error)
//   - Invalid tolerance: tol not finite and positive
//   - Canceled: the context was done before convergence
//
// Result holds whatever the run produced before stopping (may be nil for
// invalid tolerance).
type DriverError struct {
	// Code identifies the error category.
	Code DriverErrorCode

	// Message is a human-readable description.
	Message string

	// Rule is the label of the quadrature rule being driven.
	Rule string

	// Result is the partial result at the point of failure.
	Result *Result

	// Err is the underlying cause, if any.
	Err error
}

// DriverErrorCode categorizes driver errors.
type DriverErrorCode string

const (
	// ErrCodeNonConvergent indicates successive estimates never agreed
	// within tolerance before the doubling limit.
	ErrCodeNonConvergent DriverErrorCode = "NON_CONVERGENT"

	// ErrCodeNonFinite indicates a NaN or infinite estimate, usually from
	// evaluating the integrand outside its real domain.
	ErrCodeNonFinite DriverErrorCode = "NON_FINITE"

	// ErrCodeInvalidTolerance indicates a tolerance that is not a positive
	// finite number.
	ErrCodeInvalidTolerance DriverErrorCode = "INVALID_TOLERANCE"

	// ErrCodeCanceled indicates the run's context was canceled.
	ErrCodeCanceled DriverErrorCode = "CANCELED"
)

// Error implements the error interface.
func (e *DriverError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("%s: %s (rule=%s)", e.Code, e.Message, e.Rule)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DriverError) Unwrap() error {
	return e.Err
}

// IsNonConvergent returns true if the error is a non-convergence error.
// Wrapped and joined errors are searched.
func IsNonConvergent(err error) bool {
	return hasCode(err, ErrCodeNonConvergent)
}

// IsNonFinite returns true if the error reports a NaN or infinite estimate.
func IsNonFinite(err error) bool {
	return hasCode(err, ErrCodeNonFinite)
}

// IsInvalidTolerance returns true if the error rejects the tolerance.
func IsInvalidTolerance(err error) bool {
	return hasCode(err, ErrCodeInvalidTolerance)
}

// IsCanceled returns true if the run stopped because its context was done.
func IsCanceled(err error) bool {
	return hasCode(err, ErrCodeCanceled)
}

// hasCode walks the whole error tree, joined errors included, so a code
// carried by any failed rule is found.
func hasCode(err error, code DriverErrorCode) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *DriverError:
		if e.Code == code {
			return true
		}
		return hasCode(e.Err, code)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if hasCode(inner, code) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return hasCode(e.Unwrap(), code)
	default:
		return false
	}
}

// newNonConvergentError creates a DriverError for an exhausted doubling budget.
func newNonConvergentError(rule string, res *Result, diff float64, reason string) *DriverError {
	return &DriverError{
		Code:    ErrCodeNonConvergent,
		Message: fmt.Sprintf("%s at n=%d (|I(%d) - I(%d)| = %.8g)", reason, res.Old.N, res.New.N, res.Old.N, diff),
		Rule:    rule,
		Result:  res,
	}
}

// newNonFiniteError creates a DriverError for a NaN or infinite estimate.
func newNonFiniteError(rule string, res *Result, est Estimate) *DriverError {
	return &DriverError{
		Code:    ErrCodeNonFinite,
		Message: fmt.Sprintf("non-finite estimate I(%d) = %v; integrand may be evaluated outside its domain", est.N, est.Value),
		Rule:    rule,
		Result:  res,
	}
}
