package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/lucq/internal/lucene/ast"
	"github.com/roach88/lucq/internal/schema"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is an optional configuration file. Empty means defaults.
	// Resolved relative to the scenario file by LoadScenario.
	Config string `yaml:"config,omitempty"`

	// SavedQueries are written to a fresh include store before the steps
	// run.
	SavedQueries map[string]string `yaml:"saved_queries,omitempty"`

	// Fixture is an optional table the SQL of each step runs against. Its
	// columns also serve as the schema.
	Fixture *Fixture `yaml:"fixture,omitempty"`

	// Steps are compiled in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the step outputs.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Fixture describes a SQLite table created for the run.
type Fixture struct {
	Table   string            `yaml:"table"`
	Columns map[string]string `yaml:"columns"`
	Rows    []map[string]any  `yaml:"rows"`
}

// Step compiles one input.
type Step struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Input string `yaml:"input"`

	// Expect is optional; nil means the step only has to compile.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect lists the expected outputs of a step. Unset fields are not
// checked.
type Expect struct {
	Valid  *bool    `yaml:"valid,omitempty"`
	Format string   `yaml:"format,omitempty"`
	SQL    string   `yaml:"sql,omitempty"`
	Issues []string `yaml:"issues,omitempty"`
}

// Assertion validates a step output.
type Assertion struct {
	// Type specifies the assertion type:
	// - "rows": Run the step's SQL and compare the order keys returned
	// - "issue_contains": Check a validation issue contains Message
	// - "referenced_fields": Check the referenced fields equal Fields
	// - "unresolved_fields": Check the unresolved fields equal Fields
	Type string `yaml:"type"`

	// Step names the step the assertion applies to.
	Step string `yaml:"step"`

	// IDs are the expected order keys, in order (used by rows).
	IDs []any `yaml:"ids,omitempty"`

	// Message is the expected issue substring (used by issue_contains).
	Message string `yaml:"message,omitempty"`

	// Fields is the expected field set (used by *_fields).
	Fields []string `yaml:"fields,omitempty"`
}

// Assertion type constants
const (
	AssertRows             = "rows"
	AssertIssueContains    = "issue_contains"
	AssertReferencedFields = "referenced_fields"
	AssertUnresolvedFields = "unresolved_fields"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Config != "" && !filepath.IsAbs(scenario.Config) {
		scenario.Config = filepath.Join(filepath.Dir(path), scenario.Config)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
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

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if s.Config != "" {
		if _, err := os.Stat(s.Config); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", s.Config)
		}
	}

	if f := s.Fixture; f != nil {
		if !schema.ValidIdentifier(f.Table) {
			return fmt.Errorf("fixture: invalid table name %q", f.Table)
		}
		if len(f.Columns) == 0 {
			return fmt.Errorf("fixture: columns are required")
		}
	}

	names := make(map[string]bool, len(s.Steps))
	for i, step := range s.Steps {
		if step.Name == "" {
			return fmt.Errorf("steps[%d]: name is required", i)
		}
		if names[step.Name] {
			return fmt.Errorf("steps[%d]: duplicate name %q", i, step.Name)
		}
		names[step.Name] = true
		if _, err := queryType(step.Type); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, names, s.Fixture != nil); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps map[string]bool, hasFixture bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if !steps[a.Step] {
		return fmt.Errorf("assertions[%d]: unknown step %q", index, a.Step)
	}

	switch a.Type {
	case AssertRows:
		if !hasFixture {
			return fmt.Errorf("assertions[%d]: rows requires a fixture", index)
		}
	case AssertIssueContains:
		if a.Message == "" {
			return fmt.Errorf("assertions[%d]: message is required for issue_contains", index)
		}
	case AssertReferencedFields, AssertUnresolvedFields:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// queryType maps a step type onto a query type. Empty means query.
func queryType(s string) (ast.QueryType, error) {
	switch ast.QueryType(s) {
	case "", ast.TypeQuery:
		return ast.TypeQuery, nil
	case ast.TypeFilter, ast.TypeAggregation, ast.TypeSort:
		return ast.QueryType(s), nil
	}
	return "", fmt.Errorf("unknown step type %q (want query, filter, aggregation, sort)", s)
}

// FindScenarios returns the scenario files (.yaml, .yml) under root in
// lexical order. A root that is itself a file is returned as is.
func FindScenarios(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}
