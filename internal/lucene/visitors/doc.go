// Package visitors holds the passes the compiler chains into its query,
// aggregation and sort pipelines.
//
// Resolution passes run top down and rewrite fields in place:
//
//	IncludeVisitor              @include:name -> parsed saved query
//	AssignOperationTypeVisitor  min:price -> Operation=min Field=price
//	TermToFieldVisitor          sort words -> field references
//	AliasVisitor                hierarchical alias map
//	FieldResolverVisitor        schema and runtime fields
//	NestedVisitor               query.Nested wrappers for nested objects
//
// ValidationVisitor records what the tree references and reports policy
// violations. The combine passes run last and bottom up, folding every
// node's result into its parent until the root's Data slot holds the
// compiled query, aggregation tree or sort list.
//
// Visitors hold configuration only. Per-execution state lives on the
// ast.Context or in node Data, so one visitor value serves any number of
// concurrent executions.
package visitors
