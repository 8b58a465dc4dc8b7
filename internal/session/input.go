package session

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Prompt text written before each read. Prompts carry no trailing newline.
const (
	HeaderPrompt    = "Limits of integration\n"
	LeftPrompt      = "Left limit a: "
	RightPrompt     = "Right limit b: "
	TolerancePrompt = "Tolerance: "
)

// Field names used in InputError.
const (
	FieldLeft      = "left limit a"
	FieldRight     = "right limit b"
	FieldTolerance = "tolerance"
)

// ErrMissingValue is wrapped by InputError when input ends before a value.
var ErrMissingValue = errors.New("missing value")

// Inputs are the three values read from the user.
// A > B is allowed and integrates with reversed orientation.
type Inputs struct {
	A   float64 `json:"a"`
	B   float64 `json:"b"`
	Tol float64 `json:"tolerance"`
}

// InputError reports a value that could not be read or is out of range.
type InputError struct {
	Field string
	Token string
	Err   error
}

func (e *InputError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("invalid input for %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid input for %s: %q: %v", e.Field, e.Token, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// ReadInputs reads a, b and the tolerance, in that order, as
// whitespace-delimited tokens from r. When prompt is true the header and a
// prompt before each value are written to w.
//
// Reading fails fast: the first bad token is returned as an *InputError.
// Bounds must be finite; the tolerance must be finite and positive.
func ReadInputs(r io.Reader, w io.Writer, prompt bool) (Inputs, error) {
	var in Inputs
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)

	say := func(s string) {
		if prompt {
			fmt.Fprint(w, s)
		}
	}

	say(HeaderPrompt)

	say(LeftPrompt)
	a, err := readFloat(sc, FieldLeft)
	if err != nil {
		return in, err
	}

	say(RightPrompt)
	b, err := readFloat(sc, FieldRight)
	if err != nil {
		return in, err
	}

	say(TolerancePrompt)
	tol, err := readFloat(sc, FieldTolerance)
	if err != nil {
		return in, err
	}
	if tol <= 0 {
		return in, &InputError{Field: FieldTolerance, Token: sc.Text(), Err: errors.New("must be positive")}
	}

	in = Inputs{A: a, B: b, Tol: tol}
	return in, nil
}

func readFloat(sc *bufio.Scanner, field string) (float64, error) {
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return 0, &InputError{Field: field, Err: err}
		}
		return 0, &InputError{Field: field, Err: ErrMissingValue}
	}

	tok := sc.Text()
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, &InputError{Field: field, Token: tok, Err: errors.New("not a number")}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &InputError{Field: field, Token: tok, Err: errors.New("must be finite")}
	}
	return v, nil
}
