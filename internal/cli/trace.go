package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/querybind/internal/store"
	"github.com/roach88/querybind/internal/value"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database  string
	Session   string // optional - list sessions when empty
	Component string // optional - filter to one component
}

// TraceEvent is one journaled dispatch as shown by trace.
type TraceEvent struct {
	Seq       int64        `json:"seq"`
	ID        string       `json:"id"`
	Action    string       `json:"action"`
	Component string       `json:"component"`
	Payload   value.Object `json:"payload"`
}

// TraceResult holds the dispatches of one session.
type TraceResult struct {
	Session  string       `json:"session"`
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for a session.
type TraceStats struct {
	TotalEvents int            `json:"total_events"`
	Components  []string       `json:"components"`
	Actions     map[string]int `json:"actions"`
}

// SessionList is the trace output when no session is given.
type SessionList struct {
	Sessions []store.SessionInfo `json:"sessions"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show journaled dispatches",
		Long: `Show the dispatches journaled by "run --db".

Without --session, lists the journaled sessions. With --session, shows
that session's dispatches in seq order, optionally filtered to one
component.

Examples:
  querybind trace --db ./journal.db
  querybind trace --db ./journal.db --session test-session-default
  querybind trace --db ./journal.db --session test-session-default --component price
  querybind trace --db ./journal.db --session test-session-default --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session to show (default: list sessions)")
	cmd.Flags().StringVar(&opts.Component, "component", "", "filter to one component id")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	journal, err := openExistingJournal(opts.Database)
	if err != nil {
		return err
	}
	defer journal.Close()

	if opts.Session == "" {
		sessions, err := journal.Sessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		if formatter.JSON() {
			return formatter.Success(SessionList{Sessions: sessions})
		}
		outputSessionsText(formatter, sessions)
		return nil
	}

	dispatches, err := journal.ReadSession(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	result := buildTraceResult(opts.Session, dispatches, opts.Component)
	if formatter.JSON() {
		return formatter.Success(result)
	}
	outputTraceText(formatter, result)
	return nil
}

// openExistingJournal opens a journal database that must already exist.
// store.Open alone would create an empty one.
func openExistingJournal(path string) (*store.Journal, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	journal, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return journal, nil
}

func buildTraceResult(session string, dispatches []store.Dispatch, component string) TraceResult {
	result := TraceResult{
		Session:  session,
		Timeline: []TraceEvent{},
		Stats: TraceStats{
			Components: []string{},
			Actions:    map[string]int{},
		},
	}

	for _, d := range dispatches {
		if component != "" && d.ComponentID != component {
			continue
		}
		result.Timeline = append(result.Timeline, TraceEvent{
			Seq:       d.Seq,
			ID:        d.ID,
			Action:    string(d.Action),
			Component: d.ComponentID,
			Payload:   d.Payload,
		})
		result.Stats.Actions[string(d.Action)]++
		if !slices.Contains(result.Stats.Components, d.ComponentID) {
			result.Stats.Components = append(result.Stats.Components, d.ComponentID)
		}
	}

	slices.Sort(result.Stats.Components)
	result.Stats.TotalEvents = len(result.Timeline)
	return result
}

func outputSessionsText(formatter *OutputFormatter, sessions []store.SessionInfo) {
	w := formatter.Writer
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions found in database.")
		return
	}

	fmt.Fprintf(w, "=== Sessions (%d) ===\n", len(sessions))
	for _, s := range sessions {
		label := s.Label
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(w, "  %s  %s  %d dispatch(es)\n", s.ID, label, s.Dispatches)
	}
}

func outputTraceText(formatter *OutputFormatter, result TraceResult) {
	w := formatter.Writer
	if len(result.Timeline) == 0 {
		fmt.Fprintf(w, "No dispatches found for session: %s\n", result.Session)
		return
	}

	fmt.Fprintf(w, "Session: %s\n\n", result.Session)
	fmt.Fprintln(w, "=== Timeline ===")
	for _, e := range result.Timeline {
		fmt.Fprintf(w, "  [%d] %s %s %s\n", e.Seq, e.Action, e.Component, value.Text(e.Payload))
		formatter.VerboseLog("  [%d] id=%s", e.Seq, e.ID)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Components:   %d\n", len(result.Stats.Components))
	actions := make([]string, 0, len(result.Stats.Actions))
	for a := range result.Stats.Actions {
		actions = append(actions, a)
	}
	slices.Sort(actions)
	for _, a := range actions {
		fmt.Fprintf(w, "  %-20s %d\n", a+":", result.Stats.Actions[a])
	}
}
