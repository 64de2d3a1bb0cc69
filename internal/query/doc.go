// Package query provides the backend-neutral boolean query algebra that the
// Lucene compiler folds parsed expressions into.
//
// ARCHITECTURE:
//
// The algebra sits between the visitor pipeline and the backend emitters:
//
//	[lucene text] → [AST] → [visitors] → [query.Query] → [elastic emitter]
//	                                                   → [SQL emitter]
//
// Leaf predicates (Term, Match, Range, Exists, ...) are produced per AST node
// by the combination pass. Groups are folded with And, Or and Not, which
// treat a nil operand as the identity element: folding into an empty
// accumulator yields the other operand unchanged.
//
// SEALED INTERFACE:
//
// Query is a sealed interface using the marker method pattern. Only types in
// this package implement it, so emitters can switch exhaustively:
//
//	switch q := q.(type) {
//	case *Bool:
//	    // compound
//	case *Term:
//	    // leaf
//	default:
//	    // unsupported
//	}
//
// COMPOSITION:
//
// And and Or flatten compatible operands the way search engine clients do:
// two conjunctions merge into one Bool with their must, must_not and filter
// clauses concatenated; two disjunctions merge their should clauses. A Bool
// mixing must and should clauses is never merged because its should clauses
// are optional.
//
// PORTABILITY:
//
// Not every construct maps to SQL. Validate reports the constructs the SQL
// emitter cannot express faithfully; queries using them still compile for the
// search engine target.
package query
