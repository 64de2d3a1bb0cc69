package query

// Operator selects how two fragments are combined.
type Operator int

const (
	// OpAnd requires both operands.
	OpAnd Operator = iota
	// OpOr requires at least one operand.
	OpOr
)

// String returns "AND" or "OR".
func (o Operator) String() string {
	if o == OpOr {
		return "OR"
	}
	return "AND"
}

// Combine folds right into left with the given operator.
func Combine(left, right Query, op Operator) Query {
	if op == OpOr {
		return Or(left, right)
	}
	return And(left, right)
}

// And returns the conjunction of the given fragments.
//
// Nil operands are skipped; a single remaining operand is returned unchanged.
// Operands that are themselves pure conjunctions are flattened into the
// result. Operands are never mutated.
func And(queries ...Query) Query {
	operands := nonNil(queries)
	switch len(operands) {
	case 0:
		return nil
	case 1:
		return operands[0]
	}

	out := &Bool{}
	for _, q := range operands {
		if b, ok := q.(*Bool); ok && b.IsConjunction() {
			out.Must = append(out.Must, b.Must...)
			out.MustNot = append(out.MustNot, b.MustNot...)
			out.Filter = append(out.Filter, b.Filter...)
			continue
		}
		out.Must = append(out.Must, q)
	}
	return out
}

// Or returns the disjunction of the given fragments.
//
// Nil operands are skipped; a single remaining operand is returned unchanged.
// Operands that are themselves pure disjunctions are flattened.
func Or(queries ...Query) Query {
	operands := nonNil(queries)
	switch len(operands) {
	case 0:
		return nil
	case 1:
		return operands[0]
	}

	out := &Bool{}
	for _, q := range operands {
		if b, ok := q.(*Bool); ok && b.IsDisjunction() {
			out.Should = append(out.Should, b.Should...)
			continue
		}
		out.Should = append(out.Should, q)
	}
	return out
}

// Not negates a fragment. Not(nil) is nil and a double negation unwraps.
func Not(q Query) Query {
	if q == nil {
		return nil
	}
	if b, ok := q.(*Bool); ok && len(b.MustNot) == 1 && len(b.Must) == 0 &&
		len(b.Should) == 0 && len(b.Filter) == 0 && b.Boost == 0 {
		return b.MustNot[0]
	}
	return &Bool{MustNot: []Query{q}}
}

// Filter wraps q so that it contributes to matching without scoring.
func Filter(q Query) Query {
	if q == nil {
		return nil
	}
	return &Bool{Filter: []Query{q}}
}

func nonNil(queries []Query) []Query {
	out := make([]Query, 0, len(queries))
	for _, q := range queries {
		if q != nil {
			out = append(out, q)
		}
	}
	return out
}
