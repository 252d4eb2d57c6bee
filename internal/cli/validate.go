package cli

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/querybind/internal/compiler"
)

// ValidationIssue is one problem found in a widgets directory.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                    `json:"valid"`
	Widgets  []string                `json:"widgets,omitempty"`
	Errors   []ValidationIssue       `json:"errors,omitempty"`
	Warnings []compiler.ReactWarning `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <widgets-dir>",
		Short: "Validate widget definitions",
		Long: `Validate the CUE widget definitions of a directory.

Every widget is compiled and all errors are reported with their code and
source line. Dependency problems between widgets (references to widgets
that are not defined, widgets reacting to themselves) are reported as
warnings and do not fail validation.

Examples:
  querybind validate ./widgets
  querybind validate ./widgets --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, widgetsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loadResult, loadErrors := compiler.LoadDir(widgetsDir, compiler.LoadModeCollectAll)

	// Directory-level failures (not found, no files, CUE build errors)
	if loadResult == nil {
		issue := toIssue(loadErrors[0])
		_ = formatter.Error(issue.Code, issue.Message, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", issue.Code, issue.Message))
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, widgetsDir)

	result := ValidationResult{Valid: len(loadErrors) == 0}
	for _, def := range loadResult.Widgets {
		formatter.VerboseLog("Validated widget: %s", def.ID)
		result.Widgets = append(result.Widgets, def.ID)
	}
	for _, err := range loadErrors {
		result.Errors = append(result.Errors, toIssue(err))
	}
	result.Warnings = compiler.AnalyzeReact(loadResult.Widgets)

	if formatter.JSON() {
		var failure *CLIError
		if !result.Valid {
			failure = &CLIError{Code: result.Errors[0].Code, Message: result.Errors[0].Message}
		}
		if err := formatter.Result(result, failure); err != nil {
			return err
		}
	} else {
		outputValidateText(formatter, result)
	}

	if !result.Valid {
		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}
	return nil
}

func outputValidateText(formatter *OutputFormatter, result ValidationResult) {
	w := formatter.Writer

	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "%s: %s\n", warning.Level, warning.Message)
	}

	if result.Valid {
		fmt.Fprintf(w, "✓ All widgets valid (%d)\n", len(result.Widgets))
		return
	}

	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, issue := range result.Errors {
		if issue.Line > 0 {
			fmt.Fprintf(w, "%s:%d\n", issue.File, issue.Line)
		}
		fmt.Fprintf(w, "  %s: %s\n\n", issue.Code, issue.Message)
	}
}

// toIssue converts a loader error into a coded issue with its position.
func toIssue(err error) ValidationIssue {
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		issue := ValidationIssue{Code: loadErr.Code, Message: loadErr.Message}
		issue.File, issue.Line = position(loadErr.Pos)
		return issue
	}
	return ValidationIssue{Code: compiler.ErrCodeGeneric, Message: err.Error()}
}

// position extracts the file and line of a CUE position.
func position(pos token.Pos) (string, int) {
	if pos.IsValid() {
		return pos.Filename(), pos.Line()
	}
	return "", 0
}
