// Package harness provides conformance testing for compiler configurations.
//
// A scenario pairs a configuration with query steps, per-step expectations
// and assertions that run the compiled SQL against a fixture table.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	config: lucq.yaml          # optional, relative to the scenario file
//	saved_queries:
//	  adults: "age:>=18"
//	fixture:
//	  table: people
//	  columns: { id: INTEGER, name: TEXT, age: INTEGER }
//	  rows:
//	    - { id: 1, name: ann, age: 34 }
//	steps:
//	  - name: grown_ups
//	    type: filter
//	    input: "@include:adults"
//	    expect:
//	      valid: true
//	      format: "range(age,>=18)"
//	assertions:
//	  - type: rows
//	    step: grown_ups
//	    ids: [1]
//
// # Assertion Types
//
//   - rows: Runs the step's SQL against the fixture and compares the
//     order key of the returned rows
//   - issue_contains: Verifies a validation issue contains a message
//   - referenced_fields: Verifies the exact set of referenced fields
//   - unresolved_fields: Verifies the exact set of unresolved fields
//
// # Deterministic Testing
//
// Every run uses a fresh temporary directory for the fixture database and
// the saved query store. Outputs are serialized as canonical JSON, so
// golden snapshots are byte-stable.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/people.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
