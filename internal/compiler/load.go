package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the widget definitions loaded from a directory.
type LoadResult struct {
	Widgets   []*Definition // Sorted by widget id
	CUEValue  cue.Value
	FileCount int
}

// Widget returns the definition with the given id.
func (r *LoadResult) Widget(id string) (*Definition, bool) {
	for _, def := range r.Widgets {
		if def.ID == id {
			return def, true
		}
	}
	return nil, false
}

// LoadDir loads every .cue file of dir as one CUE instance and compiles the
// structs under "widget". Directory-level failures return a nil result.
func LoadDir(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("widgets directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing widgets directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{CUEValue: v, FileCount: len(cueFiles)}
	errs := compileWidgets(v, mode, result)

	if len(result.Widgets) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoWidgets, Message: "no widget definitions found"})
	}
	return result, errs
}

// CompileString compiles CUE source text holding widget definitions. Used by
// tests and tools that keep definitions inline.
func CompileString(src string) (*LoadResult, []error) {
	v := cuecontext.New().CompileString(src)
	if err := v.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}
	result := &LoadResult{CUEValue: v}
	return result, compileWidgets(v, LoadModeCollectAll, result)
}

func compileWidgets(v cue.Value, mode LoadMode, result *LoadResult) []error {
	var errs []error

	widgetsVal := v.LookupPath(cue.ParsePath("widget"))
	if !widgetsVal.Exists() {
		return nil
	}

	iter, err := widgetsVal.Fields()
	if err != nil {
		return []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating widgets: %v", err)}}
	}
	for iter.Next() {
		def, err := CompileWidget(iter.Value())
		if err != nil {
			errs = append(errs, convertCompileError(err, "widget."+iter.Selector().Unquoted()))
			if mode == LoadModeFailFast {
				return errs
			}
			continue
		}
		result.Widgets = append(result.Widgets, def)
	}

	sort.Slice(result.Widgets, func(i, j int) bool {
		return result.Widgets[i].ID < result.Widgets[j].ID
	})
	return errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compile error to a LoadError with position
// info and a code.
func convertCompileError(err error, context string) *LoadError {
	var ce *CompileError
	if errors.As(err, &ce) {
		return &LoadError{
			Code:    ce.Code(),
			Message: fmt.Sprintf("%s: %s", context, ce.Message),
			Pos:     ce.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}
