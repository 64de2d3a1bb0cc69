package ast

import (
	"github.com/roach88/lucq/internal/aggs"
	"github.com/roach88/lucq/internal/lucene/alias"
	"github.com/roach88/lucq/internal/query"
)

// Data is a node's side-table: results one pass computes for later passes.
//
// The slots are written in place during a single pipeline run and are never
// shared between trees.
type Data struct {
	// OriginalField is the field as written, recorded the first time alias
	// or schema resolution renames it.
	OriginalField string

	// FieldResolved marks a node the field resolver already handled.
	FieldResolved bool

	// FieldUnresolved records that the field resolver found no source for
	// the node's field.
	FieldUnresolved bool

	// FieldAbsolute marks a field already rewritten to its full dotted path,
	// so enclosing groups no longer prefix it.
	FieldAbsolute bool

	// Operation is the aggregation keyword assigned to the node.
	Operation string

	// Query and Filter hold the composed boolean fragment for the query and
	// filter pipelines.
	Query  query.Query
	Filter query.Query

	// Aggregation holds the composed aggregation fragment.
	Aggregation aggs.Aggregation

	// Sort holds the composed sort fields.
	Sort []query.SortField

	// AliasResolver scopes alias resolution for the node's descendants.
	AliasResolver alias.Resolver
}

// SetOriginalField records field as the written field unless one is already
// recorded or it equals current.
func (d *Data) SetOriginalField(field, current string) {
	if d.OriginalField == "" && field != current {
		d.OriginalField = field
	}
}

// QueryOr returns the Query slot, computing it when empty. A non-nil computed
// value is stored when cache is set.
func (d *Data) QueryOr(compute func() (query.Query, error), cache bool) (query.Query, error) {
	return getOrCompute(&d.Query, compute, cache)
}

// FilterOr is QueryOr for the Filter slot.
func (d *Data) FilterOr(compute func() (query.Query, error), cache bool) (query.Query, error) {
	return getOrCompute(&d.Filter, compute, cache)
}

// AggregationOr is QueryOr for the Aggregation slot.
func (d *Data) AggregationOr(compute func() (aggs.Aggregation, error), cache bool) (aggs.Aggregation, error) {
	return getOrCompute(&d.Aggregation, compute, cache)
}

// ResultFor returns the boolean slot used by queryType.
func (d *Data) ResultFor(queryType QueryType) query.Query {
	if queryType == TypeFilter {
		return d.Filter
	}
	return d.Query
}

// SetResultFor stores q in the boolean slot used by queryType.
func (d *Data) SetResultFor(queryType QueryType, q query.Query) {
	if queryType == TypeFilter {
		d.Filter = q
		return
	}
	d.Query = q
}

func getOrCompute[T comparable](slot *T, compute func() (T, error), cache bool) (T, error) {
	var zero T
	if *slot != zero {
		return *slot, nil
	}
	if compute == nil {
		return zero, nil
	}
	v, err := compute()
	if err != nil {
		return zero, err
	}
	if cache && v != zero {
		*slot = v
	}
	return v, nil
}
