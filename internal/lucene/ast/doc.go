// Package ast defines the Lucene query syntax tree shared by every pipeline.
//
// A parsed query is a binary tree: GroupNode joins up to two operands, and the
// leaves are TermNode, TermRangeNode, ExistsNode and MissingNode. The root is
// always a group. Parsing "a b c" yields
//
//	Group(a, Group(b, c))
//
// and parenthesized sub-expressions become groups with HasParens set.
//
// PASSES:
//
// Behavior lives in visitors, not in the nodes. A Visitor receives one call
// per node kind and mutates the tree in place; results meant for later
// passes go into the node's Data side-table (resolved field, composed query,
// composed aggregation, sort fields, scoped alias resolver). Data slots follow
// a get-or-compute contract so a pass can consume an earlier pass's output or
// supply a fallback when no earlier pass produced one.
//
// CONTEXT:
//
// Each execution gets its own Context carrying the caller's context.Context,
// resolvers, the default operator and the validation result. Trees, side
// tables and contexts are never shared between executions; visitors are.
package ast
