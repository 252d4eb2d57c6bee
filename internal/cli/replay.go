package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/querybind/internal/harness"
	"github.com/roach88/querybind/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - defaults as in run
}

// ReplayMismatch describes the first point where a replay diverges.
type ReplayMismatch struct {
	Index    int    `json:"index"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// ReplayResult holds the outcome of replaying one session.
type ReplayResult struct {
	Scenario      string          `json:"scenario"`
	Session       string          `json:"session"`
	Journaled     int             `json:"journaled"`
	Replayed      int             `json:"replayed"`
	Deterministic bool            `json:"deterministic"`
	Mismatch      *ReplayMismatch `json:"mismatch,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Re-run a scenario and verify it against its journal",
		Long: `Re-run a scenario and compare its dispatches with the ones journaled
by an earlier "run --db" under the same session.

Dispatch ids are content addressed over session, seq, action, component
and payload, so a deterministic replay reproduces the journal exactly.

Exit codes:
  0 - Replay matches the journal
  1 - Replay differs from the journal
  2 - Command error (database not found, no journaled dispatches, etc.)

Examples:
  querybind replay ./scenarios/search_and_price.yaml --db ./journal.db
  querybind replay ./scenarios/search_and_price.yaml --db ./journal.db --session s-1
  querybind replay ./scenarios/search_and_price.yaml --db ./journal.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "journaled session (default: scenario session or the fixed test session)")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
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

	journal, err := openExistingJournal(opts.Database)
	if err != nil {
		return err
	}
	defer journal.Close()

	journaled, err := journal.ReadSession(ctx, session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}
	if len(journaled) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("no dispatches journaled for session %s", session))
	}

	recorder := store.NewMemoryRecorder()
	if _, err := harness.Run(scenario, harness.WithSession(session), harness.WithRecorder(recorder)); err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}
	replayed := recorder.Dispatches()
	formatter.VerboseLog("Replayed %d dispatch(es), journal has %d", len(replayed), len(journaled))

	result := ReplayResult{
		Scenario:  scenario.Name,
		Session:   session,
		Journaled: len(journaled),
		Replayed:  len(replayed),
		Mismatch:  compareDispatches(journaled, replayed),
	}
	result.Deterministic = result.Mismatch == nil

	if formatter.JSON() {
		var failure *CLIError
		if !result.Deterministic {
			failure = &CLIError{
				Code:    ErrCodeReplayFailed,
				Message: fmt.Sprintf("replay of session %s differs from the journal", session),
				Details: result.Mismatch,
			}
		}
		if err := formatter.Result(result, failure); err != nil {
			return err
		}
	} else {
		outputReplayText(formatter, result)
	}

	if !result.Deterministic {
		return NewExitError(ExitFailure, fmt.Sprintf("replay of session %s differs from the journal", session))
	}
	return nil
}

// compareDispatches returns the first divergence between the journal and a
// replay, or nil when they hold the same dispatches in the same order.
func compareDispatches(journaled, replayed []store.Dispatch) *ReplayMismatch {
	for i := 0; i < max(len(journaled), len(replayed)); i++ {
		var expected, actual string
		if i < len(journaled) {
			expected = describeDispatch(journaled[i])
		}
		if i < len(replayed) {
			actual = describeDispatch(replayed[i])
		}
		if expected != actual {
			if expected == "" {
				expected = "end of journal"
			}
			if actual == "" {
				actual = "end of replay"
			}
			return &ReplayMismatch{Index: i, Expected: expected, Actual: actual}
		}
	}
	return nil
}

func describeDispatch(d store.Dispatch) string {
	return fmt.Sprintf("[%d] %s:%s %s", d.Seq, d.Action, d.ComponentID, d.ID)
}

func outputReplayText(formatter *OutputFormatter, result ReplayResult) {
	w := formatter.Writer

	fmt.Fprintf(w, "Scenario: %s\n", result.Scenario)
	fmt.Fprintf(w, "Session:  %s\n", result.Session)
	fmt.Fprintf(w, "  Journaled: %d\n", result.Journaled)
	fmt.Fprintf(w, "  Replayed:  %d\n", result.Replayed)

	if result.Deterministic {
		fmt.Fprintln(w, "✓ Replay matches journal")
		return
	}
	fmt.Fprintf(w, "✗ Replay differs at dispatch %d\n", result.Mismatch.Index)
	fmt.Fprintf(w, "  Expected: %s\n", result.Mismatch.Expected)
	fmt.Fprintf(w, "  Actual:   %s\n", result.Mismatch.Actual)
}
