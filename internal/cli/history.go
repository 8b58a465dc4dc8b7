package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Quarlos/integrationMTS/internal/config"
	"github.com/Quarlos/integrationMTS/internal/convergence"
	"github.com/Quarlos/integrationMTS/internal/session"
	"github.com/Quarlos/integrationMTS/internal/store"
)

// DefaultHistoryLimit caps the run listing when --limit is not given.
const DefaultHistoryLimit = 20

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
	RunID    string // optional - show a single run in full
}

// RunDetail is the JSON payload of history --run.
type RunDetail struct {
	store.Run
	SameInput []string `json:"same_input"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded integration runs",
		Long: `Show runs recorded with 'integrate --db'. The database comes from --db,
the db config setting or INTEGRATE_DB.

Without --run, lists the most recent runs, newest first. With --run,
shows one run with every estimate each rule produced, and the other runs
that integrated the same input.

Examples:
  integrate history --db ./runs.db
  integrate history --db ./runs.db --limit 5
  integrate history --db ./runs.db --run 0190b6c2-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (or db in config / INTEGRATE_DB)")
	cmd.Flags().IntVar(&opts.Limit, "limit", DefaultHistoryLimit, "maximum runs to list (0 = all)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show a single run by ID")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	opts.Database = flagOrViperString(cmd, "db", opts.Viper, config.KeyDB)
	if opts.Database == "" {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidFlag,
			"no database: set --db, db in the config file, or INTEGRATE_DB", nil)
	}

	if opts.Limit < 0 {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidFlag,
			fmt.Sprintf("invalid --limit %d: must be >= 0", opts.Limit), nil)
	}

	// Opening would create an empty database; history only reads existing ones
	if _, err := os.Stat(opts.Database); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "database not found", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunID != "" {
		run, err := st.ReadRun(ctx, opts.RunID)
		if errors.Is(err, store.ErrRunNotFound) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run %q not found", opts.RunID), nil)
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
		}

		ids, err := st.RunsByInputHash(ctx, run.InputHash)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to find matching runs", err)
		}
		detail := RunDetail{Run: *run, SameInput: sameInput(ids, run.ID)}

		if opts.Format == "json" {
			return outputHistoryJSON(cmd, detail)
		}
		outputRunText(cmd.OutOrStdout(), detail)
		return nil
	}

	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to list runs", err)
	}
	formatter.VerboseLog("Found %d run(s) in %s", len(runs), opts.Database)

	if opts.Format == "json" {
		return outputHistoryJSON(cmd, runs)
	}
	return outputRunListText(cmd.OutOrStdout(), runs)
}

// sameInput returns ids without self, never nil.
func sameInput(ids []string, self string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != self {
			out = append(out, id)
		}
	}
	return out
}

// outputHistoryJSON outputs a history result as JSON.
func outputHistoryJSON(cmd *cobra.Command, data interface{}) error {
	response := CLIResponse{
		Status: "ok",
		Data:   data,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputRunListText prints one line per run.
func outputRunListText(w io.Writer, runs []store.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tINTEGRAND\tA\tB\tTOLERANCE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.Integrand,
			session.FormatValue(r.A),
			session.FormatValue(r.B),
			session.FormatValue(r.Tolerance))
	}
	return tw.Flush()
}

// outputRunText prints a run with every stored estimate.
// Final estimates are marked with '*'.
func outputRunText(w io.Writer, d RunDetail) {
	fmt.Fprintf(w, "Run: %s\n", d.ID)
	fmt.Fprintf(w, "Created: %s\n", d.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "Integrand: %s\n", d.Integrand)
	fmt.Fprintf(w, "Limits: [%s, %s]\n", session.FormatValue(d.A), session.FormatValue(d.B))
	fmt.Fprintf(w, "Tolerance: %s\n", session.FormatValue(d.Tolerance))
	fmt.Fprintf(w, "Max doublings: %s\n", formatDoublings(d.MaxDoublings))
	fmt.Fprintln(w)

	for _, rr := range d.Rules {
		fmt.Fprintf(w, "=== %s (%s) ===\n", rr.Rule, ruleStatus(rr))
		for _, e := range rr.Estimates {
			marker := " "
			if e.Final {
				marker = "*"
			}
			fmt.Fprintf(w, "%s %s", marker, session.FormatLine(rr.Rule, convergence.Estimate{N: e.N, Value: e.Value}))
		}
		if rr.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", rr.Error)
		}
		fmt.Fprintln(w)
	}

	if len(d.SameInput) == 0 {
		fmt.Fprintln(w, "Same input: (none)")
		return
	}
	fmt.Fprintln(w, "Same input:")
	for _, id := range d.SameInput {
		fmt.Fprintf(w, "  %s\n", id)
	}
}

func ruleStatus(rr store.RuleResult) string {
	if rr.ErrorCode != "" {
		return fmt.Sprintf("%s, %s", rr.Status, rr.ErrorCode)
	}
	if rr.FinalN > 0 {
		return fmt.Sprintf("%s, n=%d", rr.Status, rr.FinalN)
	}
	return rr.Status
}

func formatDoublings(n int) string {
	if n == 0 {
		return "unbounded"
	}
	return fmt.Sprintf("%d", n)
}

// truncateID shortens an ID for display.
// UUIDs keep their first two groups, which carry the timestamp.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:13] + "..."
}
