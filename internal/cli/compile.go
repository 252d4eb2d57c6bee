package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/querybind/internal/compiler"
	"github.com/roach88/querybind/internal/react"
	"github.com/roach88/querybind/internal/value"
	"github.com/roach88/querybind/internal/widget"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <widgets-dir>",
		Short: "Compile widget definitions to canonical JSON",
		Long: `Compile CUE widget definitions to canonical JSON.

Each compiled widget shows what a host would register for it: the widget
id, its companion id (when it has a default query),
and the effective dependency clause watched in the store.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, widgetsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := compiler.LoadDir(widgetsDir, compiler.LoadModeCollectAll)
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, widgetsDir)

	compiled := make(value.Array, 0, len(loadResult.Widgets))
	for _, def := range loadResult.Widgets {
		formatter.VerboseLog("Compiling widget: %s", def.ID)
		compiled = append(compiled, CompiledWidget(def))
	}

	if opts.Output != "" {
		if err := writeCanonical(compiled, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
	}

	if formatter.JSON() {
		return formatter.Success(compiled)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d widget(s)\n\n", len(compiled))
	for _, def := range loadResult.Widgets {
		companion, ok := widget.CompanionID(def.ID, def.DefaultQuery != nil)
		label := companion
		if !ok {
			label = "-"
		}
		fmt.Fprintf(w, "  %s: companion %s, react %s\n", def.ID, label,
			react.String(react.BuildClause(def.React, companion)))
	}
	if opts.Output != "" {
		fmt.Fprintf(w, "\nWrote canonical JSON to %s\n", opts.Output)
	}
	return nil
}

// CompiledWidget renders a definition as the object written by compile.
// Absent optional fields are omitted; companion and clause are always set.
func CompiledWidget(def *compiler.Definition) value.Object {
	companion, _ := widget.CompanionID(def.ID, def.DefaultQuery != nil)

	obj := value.Object{
		"id":         value.String(def.ID),
		"react":      react.ToValue(def.React),
		"clause":     react.ToValue(react.BuildClause(def.React, companion)),
		"companion":  value.Null{},
		"URLParams":  value.Bool(def.URLParams),
		"showFilter": value.Bool(def.ShowFilter == nil || *def.ShowFilter),
	}
	if companion != "" {
		obj["companion"] = value.String(companion)
	}
	if def.DefaultQuery != nil {
		obj["defaultQuery"] = def.DefaultQuery
	}
	if def.CustomQuery != nil {
		obj["customQuery"] = def.CustomQuery
	}
	if def.DefaultValue != nil {
		obj["defaultValue"] = def.DefaultValue
	}
	if def.Value != nil {
		obj["value"] = def.Value
	}
	if def.FilterLabel != "" {
		obj["filterLabel"] = value.String(def.FilterLabel)
	}
	return obj
}

// writeCanonical writes v to filename as canonical JSON.
func writeCanonical(v value.Value, filename string) error {
	data, err := value.MarshalCanonical(v)
	if err != nil {
		return fmt.Errorf("marshaling widgets: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

// outputCompileErrors outputs loader errors. Compilation errors are
// command-level errors (exit code 2).
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	issues := make([]ValidationIssue, len(errs))
	for i, err := range errs {
		issues[i] = toIssue(err)
	}

	if formatter.JSON() {
		if err := formatter.Result(issues, &CLIError{Code: issues[0].Code, Message: issues[0].Message}); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)
	for _, issue := range issues {
		if issue.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", issue.File, issue.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}
