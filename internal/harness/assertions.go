package harness

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Step     string
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Output   *StepOutput
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s (step %s)\n", e.Type, e.Step)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Output != nil {
		fmt.Fprintf(&buf, "\nStep output:\n")
		fmt.Fprintf(&buf, "  input: %s\n", e.Output.Input)
		if e.Output.Format != "" {
			fmt.Fprintf(&buf, "  query: %s\n", e.Output.Format)
		}
		if e.Output.SQL != "" {
			fmt.Fprintf(&buf, "  sql: %s %v\n", e.Output.SQL, e.Output.Args)
		}
		for _, issue := range e.Output.Issues {
			fmt.Fprintf(&buf, "  issue at %d: %s\n", issue.Index, issue.Message)
		}
	}

	return buf.String()
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Ctx context.Context

	// DB is the fixture database, nil when the scenario has none.
	DB *sql.DB
	// OrderKey is the column rows assertions compare.
	OrderKey string
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		out, ok := result.Step(assertion.Step)
		if !ok {
			errors = append(errors, fmt.Sprintf("assertion[%d]: unknown step %q", i, assertion.Step))
			continue
		}

		var err error
		switch assertion.Type {
		case AssertRows:
			if actx == nil || actx.DB == nil {
				err = fmt.Errorf("assertion[%d]: rows requires a fixture database", i)
			} else {
				err = assertRows(actx, out, assertion)
			}
		case AssertIssueContains:
			err = assertIssueContains(out, assertion)
		case AssertReferencedFields:
			err = assertFields(AssertReferencedFields, out, out.ReferencedFields, assertion)
		case AssertUnresolvedFields:
			err = assertFields(AssertUnresolvedFields, out, out.UnresolvedFields, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertRows runs the step's SQL against the fixture and compares the
// order key of every returned row with the expected IDs, in order.
func assertRows(actx *AssertionContext, out StepOutput, assertion Assertion) error {
	if out.SQL == "" {
		return &AssertionError{
			Type:     AssertRows,
			Step:     out.Name,
			Expected: fmt.Sprintf("rows %v", assertion.IDs),
			Actual:   "step produced no SQL",
			Output:   &out,
		}
	}

	ctx := actx.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	rows, err := actx.DB.QueryContext(ctx, out.SQL, out.Args...)
	if err != nil {
		return &AssertionError{
			Type:     AssertRows,
			Step:     out.Name,
			Expected: fmt.Sprintf("rows %v", assertion.IDs),
			Actual:   fmt.Sprintf("query error: %v", err),
			Output:   &out,
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}
	key := slices.Index(columns, actx.OrderKey)
	if key < 0 {
		return fmt.Errorf("order key %q not present in result columns: %v", actx.OrderKey, columns)
	}

	var actual []string
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		actual = append(actual, idString(values[key]))
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read rows: %w", err)
	}

	expected := make([]string, len(assertion.IDs))
	for i, id := range assertion.IDs {
		expected[i] = idString(id)
	}

	if !slices.Equal(expected, actual) {
		return &AssertionError{
			Type:     AssertRows,
			Step:     out.Name,
			Expected: fmt.Sprintf("rows [%s]", strings.Join(expected, " ")),
			Actual:   fmt.Sprintf("rows [%s]", strings.Join(actual, " ")),
			Output:   &out,
		}
	}
	return nil
}

// idString normalizes driver and YAML values for comparison.
func idString(v any) string {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case nil:
		return "NULL"
	default:
		return fmt.Sprint(val)
	}
}

func assertIssueContains(out StepOutput, assertion Assertion) error {
	for _, issue := range out.Issues {
		if strings.Contains(issue.Message, assertion.Message) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertIssueContains,
		Step:     out.Name,
		Expected: fmt.Sprintf("an issue containing %q", assertion.Message),
		Actual:   fmt.Sprintf("%d issue(s)", len(out.Issues)),
		Output:   &out,
	}
}

func assertFields(kind string, out StepOutput, actual []string, assertion Assertion) error {
	expected := slices.Clone(assertion.Fields)
	slices.Sort(expected)
	if slices.Equal(expected, actual) || (len(expected) == 0 && len(actual) == 0) {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Step:     out.Name,
		Expected: fmt.Sprintf("fields %v", expected),
		Actual:   fmt.Sprintf("fields %v", actual),
		Output:   &out,
	}
}
