package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario drives widgets compiled from a CUE directory through a list of
// host steps and asserts on the resulting trace and view models.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Widgets is the directory of CUE widget definitions. Relative paths are
	// resolved against the scenario file's directory.
	Widgets string `yaml:"widgets"`

	// Session is an optional fixed store session id. Empty uses
	// testutil.DefaultSession so traces stay deterministic.
	Session string `yaml:"session,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the last step.
	// Supported types: trace_contains, trace_order, trace_count, view
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one host action. Exactly one field is set.
type Step struct {
	Mount    string        `yaml:"mount,omitempty"`
	Update   *UpdateStep   `yaml:"update,omitempty"`
	Refresh  string        `yaml:"refresh,omitempty"`
	Unmount  string        `yaml:"unmount,omitempty"`
	Results  *ResultsStep  `yaml:"results,omitempty"`
	Select   *SelectStep   `yaml:"select,omitempty"`
	Loading  *LoadingStep  `yaml:"loading,omitempty"`
	Error    *ErrorStep    `yaml:"error,omitempty"`
	SetQuery *SetQueryStep `yaml:"set_query,omitempty"`

	// ExpectError, when set, requires the step to fail with an error whose
	// message contains it.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Step kinds.
const (
	StepMount    = "mount"
	StepUpdate   = "update"
	StepRefresh  = "refresh"
	StepUnmount  = "unmount"
	StepResults  = "results"
	StepSelect   = "select"
	StepLoading  = "loading"
	StepError    = "error"
	StepSetQuery = "set_query"
)

// Kinds returns the kinds set on the step, in declaration order.
func (s Step) Kinds() []string {
	var kinds []string
	if s.Mount != "" {
		kinds = append(kinds, StepMount)
	}
	if s.Update != nil {
		kinds = append(kinds, StepUpdate)
	}
	if s.Refresh != "" {
		kinds = append(kinds, StepRefresh)
	}
	if s.Unmount != "" {
		kinds = append(kinds, StepUnmount)
	}
	if s.Results != nil {
		kinds = append(kinds, StepResults)
	}
	if s.Select != nil {
		kinds = append(kinds, StepSelect)
	}
	if s.Loading != nil {
		kinds = append(kinds, StepLoading)
	}
	if s.Error != nil {
		kinds = append(kinds, StepError)
	}
	if s.SetQuery != nil {
		kinds = append(kinds, StepSetQuery)
	}
	return kinds
}

// Kind returns the step's single kind, or "" when it does not have exactly one.
func (s Step) Kind() string {
	kinds := s.Kinds()
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// UpdateStep patches a mounted widget's props. Absent fields keep their
// current value; an explicit null clears react, value or defaultQuery.
type UpdateStep struct {
	Widget       string    `yaml:"widget"`
	React        yaml.Node `yaml:"react,omitempty"`
	Value        yaml.Node `yaml:"value,omitempty"`
	DefaultQuery yaml.Node `yaml:"defaultQuery,omitempty"`
	FilterLabel  *string   `yaml:"filterLabel,omitempty"`
}

// ResultsStep stores search results for a component, as a fetch would.
type ResultsStep struct {
	Widget       string         `yaml:"widget"`
	Hits         []any          `yaml:"hits"`
	Aggregations map[string]any `yaml:"aggregations,omitempty"`
}

// SelectStep sets a component's selected value in the store.
type SelectStep struct {
	Widget string `yaml:"widget"`
	Value  any    `yaml:"value"`
}

// LoadingStep sets a component's loading flag.
type LoadingStep struct {
	Widget  string `yaml:"widget"`
	Loading bool   `yaml:"loading"`
}

// ErrorStep reports a store error for a component. An empty message clears it.
type ErrorStep struct {
	Widget  string `yaml:"widget"`
	Message string `yaml:"message"`
}

// SetQueryStep calls the view model's SetQuery of a mounted widget.
type SetQueryStep struct {
	Widget string `yaml:"widget"`
	Query  any    `yaml:"query"`
	Value  any    `yaml:"value,omitempty"`
}

// Assertion validates the trace or a view model.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count, view.
	Type string `yaml:"type"`

	// Action is the dispatch or callback action (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Component restricts the match to one component id. Empty matches any.
	Component string `yaml:"component,omitempty"`

	// Payload is a subset the event payload must contain (trace_contains).
	Payload map[string]any `yaml:"payload,omitempty"`

	// Count is the expected number of matching events (trace_count).
	Count int `yaml:"count,omitempty"`

	// Events is the expected order of "action:component" keys (trace_order).
	Events []string `yaml:"events,omitempty"`

	// Widget names the component whose view model is checked (view).
	Widget string `yaml:"widget,omitempty"`

	// Expect is a subset of the view model (view). Keys: data, raw_data,
	// aggregations, error, loading, value.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertView          = "view"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative widgets path is resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Widgets != "" && !filepath.IsAbs(scenario.Widgets) {
		scenario.Widgets = filepath.Join(filepath.Dir(path), scenario.Widgets)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes scenario YAML without validating paths.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Widgets == "" {
		return fmt.Errorf("widgets directory is required")
	}
	if _, err := os.Stat(s.Widgets); os.IsNotExist(err) {
		return fmt.Errorf("widgets directory not found: %s", s.Widgets)
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, s Step) error {
	kinds := s.Kinds()
	switch len(kinds) {
	case 0:
		return fmt.Errorf("steps[%d]: no action set", index)
	case 1:
	default:
		return fmt.Errorf("steps[%d]: exactly one action allowed, got %v", index, kinds)
	}

	var target string
	switch kinds[0] {
	case StepUpdate:
		target = s.Update.Widget
	case StepResults:
		target = s.Results.Widget
	case StepSelect:
		target = s.Select.Widget
	case StepLoading:
		target = s.Loading.Widget
	case StepError:
		target = s.Error.Widget
	case StepSetQuery:
		target = s.SetQuery.Widget
	default:
		return nil
	}
	if target == "" {
		return fmt.Errorf("steps[%d]: %s requires widget", index, kinds[0])
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertView:
		if a.Widget == "" {
			return fmt.Errorf("assertions[%d]: widget is required for view", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for view", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
