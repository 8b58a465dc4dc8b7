package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Quarlos/integrationMTS/internal/config"
	"github.com/Quarlos/integrationMTS/internal/convergence"
	"github.com/Quarlos/integrationMTS/internal/integrand"
	"github.com/Quarlos/integrationMTS/internal/quadrature"
	"github.com/Quarlos/integrationMTS/internal/session"
	"github.com/Quarlos/integrationMTS/internal/store"
)

// IntegrateOptions holds flags for the root integrate command.
type IntegrateOptions struct {
	*RootOptions
	Integrand    string
	MaxDoublings int
	Rules        []string
	Parallel     bool
	Database     string
}

// IntegrateResult is the JSON payload of a session.
type IntegrateResult struct {
	Integrand    string           `json:"integrand"`
	Formula      string           `json:"formula"`
	Inputs       session.Inputs   `json:"inputs"`
	MaxDoublings int              `json:"max_doublings"`
	Rules        []session.Report `json:"rules"`
}

func addIntegrateFlags(cmd *cobra.Command, opts *IntegrateOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.Integrand, "integrand", integrand.DefaultName, "function to integrate (see 'integrate integrands')")
	f.IntVar(&opts.MaxDoublings, "max-doublings", convergence.DefaultMaxDoublings, "doubling limit per rule (0 = unbounded)")
	f.StringSliceVar(&opts.Rules, "rules", quadrature.Names(), "rules to run (midpoint,trap,simpson)")
	f.BoolVar(&opts.Parallel, "parallel", false, "run rules concurrently")
	f.StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
}

func runIntegrate(opts *IntegrateOptions, cmd *cobra.Command) error {
	v := opts.Viper
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := opts.logger()

	// Resolve settings: flag > env > config file > default
	entry, err := integrand.Lookup(flagOrViperString(cmd, "integrand", v, config.KeyIntegrand))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidFlag, "invalid --integrand", err)
	}
	rules, err := quadrature.Select(flagOrViperList(cmd, "rules", v, config.KeyRules))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidFlag, "invalid --rules", err)
	}
	maxDoublings := flagOrViperInt(cmd, "max-doublings", v, config.KeyMaxDoublings)
	if maxDoublings < 0 {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidFlag,
			fmt.Sprintf("invalid --max-doublings %d: must be >= 0", maxDoublings), nil)
	}
	parallel := flagOrViperBool(cmd, "parallel", v, config.KeyParallel)
	dbPath := flagOrViperString(cmd, "db", v, config.KeyDB)

	// Open the history store before reading input so a bad path fails fast
	var st *store.Store
	if dbPath != "" {
		logger.Debug("opening database", "path", dbPath)
		st, err = store.Open(dbPath)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
	}

	// JSON mode writes no prompts and no estimate lines, only the envelope
	text := opts.Format != "json"
	out := cmd.OutOrStdout()
	if !text {
		out = io.Discard
	}

	in, err := session.ReadInputs(cmd.InOrStdin(), out, text)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidInput, "failed to read input", err)
	}

	// Setup signal handling for cancellation.
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, canceling", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	ctrl := &session.Controller{
		Driver: &convergence.Driver{
			InitialN:     convergence.DefaultInitialN,
			MaxDoublings: maxDoublings,
			Logger:       logger,
		},
		Integrand: entry.Func,
		Rules:     rules,
		Parallel:  parallel,
	}

	logger.Debug("session starting",
		"integrand", entry.Name, "a", in.A, "b", in.B, "tolerance", in.Tol,
		"rules", ruleNames(rules), "max_doublings", maxDoublings, "parallel", parallel)

	reports, runErr := ctrl.Run(ctx, in, out)
	var sessErr *session.SessionError
	if runErr != nil && !errors.As(runErr, &sessErr) {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "session failed", runErr)
	}

	var runID string
	if st != nil {
		// Record even after a signal: the partial run is still history
		runID, err = recordRun(context.WithoutCancel(ctx), st, opts.RootOptions, entry.Name, in, maxDoublings, reports)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to record run", err)
		}
		logger.Debug("run recorded", "id", runID, "db", dbPath)
		formatter.VerboseLog("Recorded run %s", runID)
	}

	if !text {
		result := IntegrateResult{
			Integrand:    entry.Name,
			Formula:      entry.Formula,
			Inputs:       in,
			MaxDoublings: maxDoublings,
			Rules:        reports,
		}
		if err := outputIntegrateJSON(cmd, result, runID, sessErr); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
	} else {
		for _, rep := range reports {
			if rep.Err != nil {
				_ = formatter.Error(ErrCodeRuleFailed, rep.Error, nil)
			}
		}
	}

	if sessErr != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("%s: %d of %d rules failed", ErrCodeRuleFailed, sessErr.Failed, sessErr.Total), nil)
	}
	return nil
}

// outputIntegrateJSON writes the session as a single CLIResponse.
func outputIntegrateJSON(cmd *cobra.Command, result IntegrateResult, runID string, sessErr *session.SessionError) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
		RunID:  runID,
	}
	if sessErr != nil {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeRuleFailed,
			Message: fmt.Sprintf("%d of %d rules failed", sessErr.Failed, sessErr.Total),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// recordRun stores the session in the history database and returns the
// new run ID.
func recordRun(ctx context.Context, st *store.Store, opts *RootOptions, name string, in session.Inputs, maxDoublings int, reports []session.Report) (string, error) {
	names := make([]string, len(reports))
	for i, rep := range reports {
		names[i] = rep.Rule
	}

	hash, err := store.InputHash(store.InputKey{
		Integrand:    name,
		A:            in.A,
		B:            in.B,
		Tolerance:    in.Tol,
		MaxDoublings: maxDoublings,
		Rules:        names,
	})
	if err != nil {
		return "", err
	}

	run := store.Run{
		ID:           opts.idGenerator().Generate(),
		InputHash:    hash,
		Integrand:    name,
		A:            in.A,
		B:            in.B,
		Tolerance:    in.Tol,
		MaxDoublings: maxDoublings,
		CreatedAt:    opts.now(),
		Rules:        make([]store.RuleResult, 0, len(reports)),
	}
	for _, rep := range reports {
		run.Rules = append(run.Rules, ruleResultFromReport(rep))
	}

	if err := st.RecordRun(ctx, run); err != nil {
		return "", err
	}
	return run.ID, nil
}

func ruleResultFromReport(rep session.Report) store.RuleResult {
	rr := store.RuleResult{
		Rule:      rep.Rule,
		Status:    rep.Status,
		ErrorCode: rep.Code,
		Error:     rep.Error,
		Estimates: make([]store.Estimate, 0, len(rep.Steps)+len(rep.Final)+len(rep.Last)),
	}
	for _, e := range rep.Steps {
		rr.Estimates = append(rr.Estimates, store.Estimate{N: e.N, Value: e.Value})
	}
	for _, e := range rep.Last {
		rr.Estimates = append(rr.Estimates, store.Estimate{N: e.N, Value: e.Value})
	}
	for _, e := range rep.Final {
		rr.Estimates = append(rr.Estimates, store.Estimate{N: e.N, Value: e.Value, Final: true})
	}
	if len(rep.Final) > 0 {
		rr.FinalN = rep.Final[len(rep.Final)-1].N
	}
	return rr
}

func ruleNames(rules []quadrature.Rule) []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	return names
}

func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o *RootOptions) idGenerator() store.IDGenerator {
	if o.IDs == nil {
		return store.UUIDv7Generator{}
	}
	return o.IDs
}

func (o *RootOptions) now() time.Time {
	if o.Now == nil {
		return time.Now().UTC()
	}
	return o.Now().UTC()
}
