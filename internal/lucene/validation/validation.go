// Package validation holds the policy and the result of validating a parsed
// query: which fields, includes and aggregation operations it references,
// how deeply it nests, and which rules it breaks.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Options is the validation policy. The zero value allows everything except
// unresolved includes.
type Options struct {
	// AllowedFields, when non-empty, is the only set of fields a query may
	// reference. Matching ignores case.
	AllowedFields Set `json:"allowed_fields,omitempty" yaml:"allowed_fields,omitempty"`

	// RestrictedFields may never be referenced.
	RestrictedFields Set `json:"restricted_fields,omitempty" yaml:"restricted_fields,omitempty"`

	// AllowedOperations, when non-empty, is the only set of aggregation
	// operations an aggregation expression may use.
	AllowedOperations Set `json:"allowed_operations,omitempty" yaml:"allowed_operations,omitempty"`

	// RestrictedOperations may never be used.
	RestrictedOperations Set `json:"restricted_operations,omitempty" yaml:"restricted_operations,omitempty"`

	// DenyLeadingWildcards rejects terms starting with * or ?.
	DenyLeadingWildcards bool `json:"deny_leading_wildcards,omitempty" yaml:"deny_leading_wildcards,omitempty"`

	// DenyUnresolvedFields rejects fields no schema source knows.
	DenyUnresolvedFields bool `json:"deny_unresolved_fields,omitempty" yaml:"deny_unresolved_fields,omitempty"`

	// AllowUnresolvedIncludes tolerates @include references that the include
	// resolver cannot find.
	AllowUnresolvedIncludes bool `json:"allow_unresolved_includes,omitempty" yaml:"allow_unresolved_includes,omitempty"`

	// AllowedMaxNodeDepth limits the number of nested parenthesized groups.
	// Zero means unlimited.
	AllowedMaxNodeDepth int `json:"allowed_max_node_depth,omitempty" yaml:"allowed_max_node_depth,omitempty"`

	// ShouldThrow makes the first violation abort the compilation instead of
	// being collected.
	ShouldThrow bool `json:"should_throw,omitempty" yaml:"should_throw,omitempty"`
}

// FieldAllowed reports whether the policy permits referencing field.
func (o *Options) FieldAllowed(field string) bool {
	if o == nil || field == "" {
		return true
	}
	if len(o.AllowedFields) > 0 && !o.AllowedFields.HasFold(field) {
		return false
	}
	return !o.RestrictedFields.HasFold(field)
}

// OperationAllowed reports whether the policy permits the aggregation
// operation op.
func (o *Options) OperationAllowed(op string) bool {
	if o == nil || op == "" {
		return true
	}
	if len(o.AllowedOperations) > 0 && !o.AllowedOperations.HasFold(op) {
		return false
	}
	return !o.RestrictedOperations.HasFold(op)
}

// Issue is one validation problem. Index is the byte offset in the query
// text the problem refers to, or -1 when it has no position.
type Issue struct {
	Message string `json:"message"`
	Index   int    `json:"index"`
}

// Error implements error.
func (i Issue) Error() string {
	if i.Index < 0 {
		return i.Message
	}
	return fmt.Sprintf("%s (at %d)", i.Message, i.Index)
}

// Result is the outcome of validating one query.
type Result struct {
	QueryType          string         `json:"query_type,omitempty"`
	Issues             []Issue        `json:"errors"`
	ReferencedFields   Set            `json:"referenced_fields"`
	ReferencedIncludes Set            `json:"referenced_includes"`
	UnresolvedFields   Set            `json:"unresolved_fields"`
	UnresolvedIncludes Set            `json:"unresolved_includes"`
	Operations         map[string]Set `json:"operations"`
	MaxNodeDepth       int            `json:"max_node_depth"`
}

// NewResult returns an empty, valid result.
func NewResult() *Result {
	return &Result{
		Issues:             []Issue{},
		ReferencedFields:   NewSet(),
		ReferencedIncludes: NewSet(),
		UnresolvedFields:   NewSet(),
		UnresolvedIncludes: NewSet(),
		Operations:         make(map[string]Set),
	}
}

// IsValid reports whether no issue was recorded.
func (r *Result) IsValid() bool {
	return len(r.Issues) == 0
}

// AddError records an issue at index.
func (r *Result) AddError(message string, index int) {
	r.Issues = append(r.Issues, Issue{Message: message, Index: index})
}

// AddOperation records that operation was applied to field.
func (r *Result) AddOperation(operation, field string) {
	op := strings.ToLower(operation)
	set, ok := r.Operations[op]
	if !ok {
		set = NewSet()
		r.Operations[op] = set
	}
	set.Add(field)
}

// Message joins all issue messages, or returns "" for a valid result.
func (r *Result) Message() string {
	msgs := make([]string, 0, len(r.Issues))
	for _, i := range r.Issues {
		msgs = append(msgs, i.Message)
	}
	return strings.Join(msgs, ", ")
}

// Err returns the collected issues as a *multierror.Error, or nil when the
// result is valid.
func (r *Result) Err() error {
	var err *multierror.Error
	for _, i := range r.Issues {
		err = multierror.Append(err, i)
	}
	return err.ErrorOrNil()
}

// MarshalJSON adds the derived is_valid flag.
func (r *Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		IsValid bool `json:"is_valid"`
		*plain
	}{IsValid: r.IsValid(), plain: (*plain)(r)})
}

// Error is returned when validation aborts on the first issue.
type Error struct {
	Issue  Issue
	Result *Result
}

// Error implements error.
func (e *Error) Error() string {
	return "invalid query: " + e.Issue.Error()
}
