package harness

import "github.com/roach88/lucq/internal/lucene/validation"

// StepOutput is what one step compiled to.
type StepOutput struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Input string `json:"input"`

	Valid  bool               `json:"valid"`
	Issues []validation.Issue `json:"issues,omitempty"`

	// Format is the compact rendering of a query or filter.
	Format string `json:"format,omitempty"`
	// Elastic is the search request body.
	Elastic map[string]any `json:"elastic,omitempty"`
	// SQL and Args are set when the scenario has a fixture table.
	SQL  string `json:"sql,omitempty"`
	Args []any  `json:"args,omitempty"`

	ReferencedFields []string `json:"referenced_fields,omitempty"`
	UnresolvedFields []string `json:"unresolved_fields,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion matched.
	Pass bool `json:"pass"`

	Steps []StepOutput `json:"steps"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepOutput{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Step returns the output of the named step.
func (r *Result) Step(name string) (StepOutput, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepOutput{}, false
}
