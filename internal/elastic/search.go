package elastic

import (
	"github.com/roach88/lucq/internal/aggs"
	"github.com/roach88/lucq/internal/query"
	"github.com/roach88/lucq/internal/schema"
)

// Request collects compiled parts into one search request body.
type Request struct {
	Query         query.Query
	Filter        query.Query
	Aggregations  aggs.Set
	Sort          []query.SortField
	RuntimeFields []schema.RuntimeField

	// Size is omitted from the body when nil.
	Size *int
}

// Body renders the request. A filter is attached as a bool filter clause
// next to the query; with neither set the body matches all documents.
func (r Request) Body() (map[string]any, error) {
	q := r.Query
	if r.Filter != nil {
		b := &query.Bool{Filter: []query.Query{r.Filter}}
		if q != nil {
			b.Must = []query.Query{q}
		}
		q = b
	}

	rendered, err := Query(q)
	if err != nil {
		return nil, err
	}
	body := map[string]any{"query": rendered}

	if len(r.Aggregations) > 0 {
		a, err := Aggregations(r.Aggregations)
		if err != nil {
			return nil, err
		}
		body["aggs"] = a
	}
	if len(r.Sort) > 0 {
		body["sort"] = Sort(r.Sort)
	}
	if len(r.RuntimeFields) > 0 {
		body["runtime_mappings"] = RuntimeMappings(r.RuntimeFields)
	}
	if r.Size != nil {
		body["size"] = *r.Size
	}
	return body, nil
}

// RuntimeMappings renders runtime fields as the runtime_mappings object.
// Fields without a type are declared as keyword.
func RuntimeMappings(fields []schema.RuntimeField) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		typ := f.Type
		if typ == schema.TypeUnknown {
			typ = schema.TypeKeyword
		}
		m := map[string]any{"type": string(typ)}
		if f.Script != "" {
			m["script"] = map[string]any{"source": f.Script}
		}
		out[f.Name] = m
	}
	return out
}
