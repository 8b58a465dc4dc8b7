package session

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quarlos/integrationMTS/internal/convergence"
	"github.com/Quarlos/integrationMTS/internal/integrand"
	"github.com/Quarlos/integrationMTS/internal/quadrature"
)

func identity(x float64) float64 { return x }
func square(x float64) float64   { return x * x }

// assertGolden compares output with testdata/golden/<name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/session -update
func assertGolden(t *testing.T, name string, got []byte) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, got)
}

// transcript runs a full interactive session: prompts, reads, rule blocks.
func transcript(t *testing.T, c *Controller, stdin string) ([]byte, []Report, error) {
	t.Helper()
	var out bytes.Buffer
	in, err := ReadInputs(strings.NewReader(stdin), &out, true)
	require.NoError(t, err)
	reports, err := c.Run(context.Background(), in, &out)
	return out.Bytes(), reports, err
}

func TestSession_IdentityUnitInterval(t *testing.T) {
	c := &Controller{Integrand: identity}
	out, reports, err := transcript(t, c, "0\n1\n1e-6\n")
	require.NoError(t, err)

	assertGolden(t, "identity_unit_interval", out)

	require.Len(t, reports, 3)
	for _, rep := range reports {
		assert.Equal(t, StatusConverged, rep.Status)
		require.Len(t, rep.Final, 2)
		assert.InDelta(t, 0.5, rep.Final[1].Value, 1e-6)
	}
}

func TestSession_ZeroWidthInterval(t *testing.T) {
	c := &Controller{Integrand: integrand.Stefanica}
	out, reports, err := transcript(t, c, "0 0 1e-6")
	require.NoError(t, err)

	assertGolden(t, "zero_width", out)

	for _, rep := range reports {
		assert.Empty(t, rep.Steps)
		assert.Equal(t, []convergence.Estimate{{N: 4, Value: 0}, {N: 8, Value: 0}}, rep.Final)
	}
}

func TestSession_DoublingLimitReported(t *testing.T) {
	rules, err := quadrature.Select([]string{quadrature.NameMidpoint})
	require.NoError(t, err)

	c := &Controller{
		Driver:    &convergence.Driver{InitialN: 4, MaxDoublings: 3},
		Integrand: square,
		Rules:     rules,
	}
	var out bytes.Buffer
	reports, err := c.Run(context.Background(), Inputs{A: 0, B: 1, Tol: 1e-6}, &out)
	require.Error(t, err)

	assertGolden(t, "midpoint_doubling_limit", out.Bytes())

	var se *SessionError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 1, se.Failed)
	assert.Equal(t, 1, se.Total)
	assert.True(t, convergence.IsNonConvergent(err))

	require.Len(t, reports, 1)
	assert.Equal(t, StatusFailed, reports[0].Status)
	assert.Equal(t, string(convergence.ErrCodeNonConvergent), reports[0].Code)
	assert.Len(t, reports[0].Steps, 3)
	assert.Empty(t, reports[0].Final)

	// The pair that failed the last comparison is kept, not printed.
	require.Len(t, reports[0].Last, 2)
	assert.Equal(t, 32, reports[0].Last[0].N)
	assert.Equal(t, 64, reports[0].Last[1].N)
	assert.InDelta(t, 1.0/3-1.0/(12*64*64), reports[0].Last[1].Value, 1e-12)
	assert.NotContains(t, out.String(), "I_midpoint(32)")
}

func TestSession_FailureDoesNotStopOtherRules(t *testing.T) {
	// 1/sqrt(x) is +Inf at 0: trap and simpson hit it, midpoint never does.
	inv, err := integrand.Lookup("inverse-sqrt")
	require.NoError(t, err)

	c := &Controller{
		Driver:    &convergence.Driver{InitialN: 4, MaxDoublings: 4},
		Integrand: inv.Func,
	}
	var out bytes.Buffer
	reports, err := c.Run(context.Background(), Inputs{A: 0, B: 1, Tol: 1e-6}, &out)
	require.Error(t, err)

	require.Len(t, reports, 3)
	assert.Equal(t, quadrature.NameMidpoint, reports[0].Rule)
	assert.Equal(t, string(convergence.ErrCodeNonConvergent), reports[0].Code)
	assert.Equal(t, string(convergence.ErrCodeNonFinite), reports[1].Code)
	assert.Equal(t, string(convergence.ErrCodeNonFinite), reports[2].Code)

	var se *SessionError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 3, se.Failed)
	assert.True(t, convergence.IsNonFinite(err))
	assert.Contains(t, out.String(), "I_midpoint(4) = ")
	assert.NotContains(t, out.String(), "I_trap")
}

func TestSession_ParallelMatchesSequential(t *testing.T) {
	in := Inputs{A: 0, B: 2, Tol: 1e-6}

	var seq, par bytes.Buffer
	seqReports, err := (&Controller{}).Run(context.Background(), in, &seq)
	require.NoError(t, err)
	parReports, err := (&Controller{Parallel: true}).Run(context.Background(), in, &par)
	require.NoError(t, err)

	assert.Equal(t, seq.String(), par.String())
	assert.Equal(t, seqReports, parReports)

	lines := strings.Split(strings.TrimSpace(seq.String()), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "I_midpoint(4) = "))
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "I_simpson("))
}

func TestSession_OutputOrderAndShape(t *testing.T) {
	var out bytes.Buffer
	reports, err := (&Controller{Integrand: square}).Run(context.Background(), Inputs{A: 0, B: 1, Tol: 1e-6}, &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	want := 0
	for _, rep := range reports {
		want += len(rep.Steps) + 2
	}
	assert.Len(t, lines, want)

	// midpoint: 6 steps + 2 finals, then trap, then simpson.
	assert.Equal(t, "I_midpoint(256) = 0.33333206", lines[6])
	assert.True(t, strings.HasPrefix(lines[8], "I_trap(4) = "))
	assert.True(t, strings.HasPrefix(lines[len(lines)-2], "I_simpson(4) = "))
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "I_simpson(8) = "))
}

func TestSession_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports, err := (&Controller{}).Run(ctx, Inputs{A: 0, B: 1, Tol: 1e-6}, &bytes.Buffer{})
	require.Error(t, err)
	for _, rep := range reports {
		assert.Equal(t, string(convergence.ErrCodeCanceled), rep.Code)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{0.5, "0.5"},
		{1.0 / 3, "0.33333333"},
		{2, "2"},
		{-0.25, "-0.25"},
		{123456789, "1.2345679e+08"},
		{1e-7, "1e-07"},
		{0.00012345678912, "0.00012345679"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in), "%v", tt.in)
	}
}

func TestFormatLine(t *testing.T) {
	got := FormatLine("trap", convergence.Estimate{N: 16, Value: 0.125})
	assert.Equal(t, "I_trap(16) = 0.125\n", got)
}
