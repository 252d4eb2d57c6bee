package compiler

import (
	"fmt"
	"slices"

	"cuelang.org/go/cue"

	"github.com/roach88/querybind/internal/react"
	"github.com/roach88/querybind/internal/value"
	"github.com/roach88/querybind/internal/widget"
)

// ValuePlaceholder is the string leaf a customQuery template uses for the
// widget's initial value.
const ValuePlaceholder = "$value"

// fields lists the recognized widget definition fields in the order they are
// compiled.
var fields = []string{
	"react",
	"defaultQuery",
	"customQuery",
	"defaultValue",
	"value",
	"filterLabel",
	"showFilter",
	"URLParams",
}

// Definition is a compiled widget definition.
//
// DefaultQuery and CustomQuery are nil when absent and otherwise hold an
// Object or Null. Value and DefaultValue are nil when absent.
type Definition struct {
	ID           string
	React        react.Expr
	DefaultQuery value.Value
	CustomQuery  value.Value
	DefaultValue value.Value
	Value        value.Value
	FilterLabel  string
	ShowFilter   *bool
	URLParams    bool
}

// CompileWidget parses a CUE value into a Definition.
//
// The CUE value should be the widget struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`widget: price: { defaultQuery: {...} }`)
//	def, err := CompileWidget(v.LookupPath(cue.ParsePath("widget.price")))
func CompileWidget(v cue.Value) (*Definition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &Definition{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		def.ID = labels[len(labels)-1].Unquoted()
	}
	if def.ID == "" {
		return nil, &CompileError{Field: "id", Message: "widget id is required", Pos: v.Pos()}
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		if !slices.Contains(fields, iter.Label()) {
			return nil, &CompileError{
				Field:   "field",
				Message: fmt.Sprintf("unknown widget field %q", iter.Label()),
				Pos:     iter.Value().Pos(),
			}
		}
	}

	for _, name := range fields {
		fv := v.LookupPath(cue.MakePath(cue.Str(name)))
		if !fv.Exists() {
			continue
		}
		if err := compileField(def, name, fv); err != nil {
			return nil, err
		}
	}

	return def, nil
}

func compileField(def *Definition, name string, v cue.Value) error {
	switch name {
	case "react":
		raw, err := toValue(name, v)
		if err != nil {
			return err
		}
		expr, err := react.Parse(raw)
		if err != nil {
			return &CompileError{Field: name, Message: err.Error(), Pos: v.Pos()}
		}
		def.React = expr

	case "defaultQuery", "customQuery":
		raw, err := toValue(name, v)
		if err != nil {
			return err
		}
		switch raw.(type) {
		case value.Object, value.Null:
		default:
			return &CompileError{
				Field:   name,
				Message: "query definition must be an object or null",
				Pos:     v.Pos(),
			}
		}
		if name == "defaultQuery" {
			def.DefaultQuery = raw
		} else {
			def.CustomQuery = raw
		}

	case "defaultValue", "value":
		raw, err := toValue(name, v)
		if err != nil {
			return err
		}
		if name == "value" {
			def.Value = raw
		} else {
			def.DefaultValue = raw
		}

	case "filterLabel":
		s, err := v.String()
		if err != nil {
			return &CompileError{Field: name, Message: "must be a string", Pos: v.Pos()}
		}
		def.FilterLabel = s

	case "showFilter", "URLParams":
		b, err := v.Bool()
		if err != nil {
			return &CompileError{Field: name, Message: "must be a bool", Pos: v.Pos()}
		}
		if name == "showFilter" {
			def.ShowFilter = &b
		} else {
			def.URLParams = b
		}
	}
	return nil
}

// toValue converts a concrete CUE value into a value.Value.
func toValue(field string, v cue.Value) (value.Value, error) {
	switch v.Kind() {
	case cue.NullKind:
		return value.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return value.Bool(b), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return value.String(s), nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
		}
		return value.Int(i), nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
		}
		return value.Float(f), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := value.Array{}
		for iter.Next() {
			elem, err := toValue(field, iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := value.Object{}
		for iter.Next() {
			elem, err := toValue(field, iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Selector().Unquoted()] = elem
		}
		return obj, nil
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("must be concrete, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// Props builds widget props from the definition. A static defaultQuery
// becomes a source returning a copy of it; a customQuery becomes a template
// whose "$value" string leaves are replaced with the initial value (store
// selection, then value, then defaultValue).
func (d *Definition) Props() widget.Props {
	p := widget.Props{
		ID:           d.ID,
		React:        d.React,
		Value:        d.Value,
		DefaultValue: d.DefaultValue,
		FilterLabel:  d.FilterLabel,
		ShowFilter:   d.ShowFilter,
		URLParams:    d.URLParams,
	}

	if d.DefaultQuery != nil {
		p.DefaultQuery = StaticQuery(d.DefaultQuery)
	}
	if d.CustomQuery != nil {
		tmpl := d.CustomQuery
		p.CustomQuery = func(in widget.Input) (value.Object, error) {
			initial := value.FirstNonNull(in.Snapshot.SelectedValue, in.Props.Value, in.Props.DefaultValue)
			out, _ := substitute(tmpl, initial).(value.Object)
			return out, nil
		}
	}
	return p
}

// StaticQuery returns a default query source that always yields def. A Null
// def yields no definition.
func StaticQuery(def value.Value) widget.DefaultQueryFunc {
	return func() (value.Object, error) {
		out, _ := substitute(def, nil).(value.Object)
		return out, nil
	}
}

// substitute deep-copies v, replacing "$value" string leaves with initial.
// A nil initial leaves placeholders in place.
func substitute(v value.Value, initial value.Value) value.Value {
	switch val := v.(type) {
	case value.String:
		if initial != nil && string(val) == ValuePlaceholder {
			return initial
		}
		return val
	case value.Array:
		out := make(value.Array, len(val))
		for i, elem := range val {
			out[i] = substitute(elem, initial)
		}
		return out
	case value.Object:
		out := make(value.Object, len(val))
		for k, elem := range val {
			out[k] = substitute(elem, initial)
		}
		return out
	default:
		return v
	}
}
