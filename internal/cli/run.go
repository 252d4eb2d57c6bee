package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/querybind/internal/harness"
	"github.com/roach88/querybind/internal/store"
	"github.com/roach88/querybind/internal/testutil"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string // optional journal database
	Session  string // optional session id override
	Trace    bool   // print the trace
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Scenario string               `json:"scenario"`
	Session  string               `json:"session"`
	Pass     bool                 `json:"pass"`
	Events   int                  `json:"events"`
	Errors   []string             `json:"errors,omitempty"`
	Trace    []harness.TraceEvent `json:"trace,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario",
		Long: `Run one scenario against a fresh store.

With --db, every store dispatch is also journaled to a SQLite database
under the run's session id, for later inspection with "trace" and
verification with "replay".

Exit codes:
  0 - Scenario passed
  1 - Scenario failed
  2 - Command error (invalid scenario, database error, etc.)

Examples:
  querybind run ./scenarios/search_and_price.yaml
  querybind run ./scenarios/search_and_price.yaml --db ./journal.db
  querybind run ./scenarios/search_and_price.yaml --trace --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal dispatches to this SQLite database")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id (default: scenario session or a fixed test session)")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "print the trace")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	session := resolveSession(opts.Session, scenario)
	runOpts := []harness.Option{
		harness.WithLogger(slog.Default()),
		harness.WithSession(session),
	}

	if opts.Database != "" {
		journal, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := journal.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()

		if err := journal.BeginSession(ctx, session, scenario.Name); err != nil {
			return WrapExitError(ExitCommandError, "failed to begin session", err)
		}
		runOpts = append(runOpts, harness.WithRecorder(store.NewJournalRecorder(ctx, journal)))
		formatter.VerboseLog("Journaling to %s", opts.Database)
	}

	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	out := RunResult{
		Scenario: scenario.Name,
		Session:  result.Session,
		Pass:     result.Pass,
		Events:   len(result.Trace),
		Errors:   result.Errors,
	}
	if opts.Trace {
		out.Trace = result.Trace
	}

	if formatter.JSON() {
		var failure *CLIError
		if !result.Pass {
			failure = &CLIError{Code: ErrCodeTestFailed, Message: fmt.Sprintf("scenario %s failed", scenario.Name)}
		}
		if err := formatter.Result(out, failure); err != nil {
			return err
		}
	} else {
		outputRunText(formatter, out)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

// resolveSession picks the session a run is recorded under: the flag, then
// the scenario's own session, then the fixed test session.
func resolveSession(flag string, scenario *harness.Scenario) string {
	switch {
	case flag != "":
		return flag
	case scenario.Session != "":
		return scenario.Session
	default:
		return testutil.DefaultSession
	}
}

func outputRunText(formatter *OutputFormatter, out RunResult) {
	w := formatter.Writer

	if out.Trace != nil {
		_, _ = w.Write(harness.FormatTrace(out.Trace))
		fmt.Fprintln(w)
	}

	status := "✓"
	if !out.Pass {
		status = "✗"
	}
	fmt.Fprintf(w, "%s %s (session %s, %d events)\n", status, out.Scenario, out.Session, out.Events)
	for _, e := range out.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}
