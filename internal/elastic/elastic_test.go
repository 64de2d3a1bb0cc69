package elastic

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lucq/internal/aggs"
	"github.com/roach88/lucq/internal/canonical"
	"github.com/roach88/lucq/internal/query"
	"github.com/roach88/lucq/internal/schema"
)

func render(t *testing.T, v any) string {
	t.Helper()
	data, err := canonical.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestQuery(t *testing.T) {
	tests := []struct {
		name     string
		input    query.Query
		expected string
	}{
		{"nil", nil, `{"match_all":{}}`},
		{"match all", &query.MatchAll{}, `{"match_all":{}}`},
		{"term", &query.Term{Field: "status", Value: "active"}, `{"term":{"status":{"value":"active"}}}`},
		{"term boost", &query.Term{Field: "status", Value: "active", Boost: 2}, `{"term":{"status":{"boost":2,"value":"active"}}}`},
		{"match", &query.Match{Field: "bio", Query: "go"}, `{"match":{"bio":{"query":"go"}}}`},
		{"match phrase slop", &query.MatchPhrase{Field: "bio", Query: "quick fox", Slop: 2}, `{"match_phrase":{"bio":{"query":"quick fox","slop":2}}}`},
		{"prefix", &query.Prefix{Field: "name", Value: "jo"}, `{"prefix":{"name":{"value":"jo"}}}`},
		{"wildcard", &query.Wildcard{Field: "name", Value: "j?n*"}, `{"wildcard":{"name":{"value":"j?n*"}}}`},
		{"regexp", &query.Regexp{Field: "name", Value: "jo.*", Boost: 1.5}, `{"regexp":{"name":{"boost":1.5,"value":"jo.*"}}}`},
		{"range", &query.Range{Field: "age", GTE: "18", LT: "65"}, `{"range":{"age":{"gte":"18","lt":"65"}}}`},
		{"exists", &query.Exists{Field: "email"}, `{"exists":{"field":"email"}}`},
		{
			"query string",
			&query.QueryString{Query: "hello", Fields: []string{"title", "body"}, DefaultOperator: "AND"},
			`{"query_string":{"default_operator":"AND","fields":["title","body"],"query":"hello"}}`,
		},
		{
			"nested",
			&query.Nested{Path: "items", Query: &query.Term{Field: "items.sku", Value: "a1"}},
			`{"nested":{"path":"items","query":{"term":{"items.sku":{"value":"a1"}}}}}`,
		},
		{
			"nested without query",
			&query.Nested{Path: "items"},
			`{"nested":{"path":"items","query":{"match_all":{}}}}`,
		},
		{
			"bool",
			&query.Bool{
				Should:  []query.Query{&query.Term{Field: "a", Value: "1"}, &query.Term{Field: "b", Value: "2"}},
				MustNot: []query.Query{&query.Exists{Field: "c"}},
				Boost:   3,
			},
			`{"bool":{"boost":3,"must_not":[{"exists":{"field":"c"}}],"should":[{"term":{"a":{"value":"1"}}},{"term":{"b":{"value":"2"}}}]}}`,
		},
		{"empty bool", &query.Bool{}, `{"bool":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Query(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, render(t, result))
		})
	}
}

func TestSort(t *testing.T) {
	result := Sort([]query.SortField{
		{Field: "created", Descending: true, UnmappedType: "date"},
		{Field: "name"},
	})
	assert.Equal(t, `[{"created":{"order":"desc","unmapped_type":"date"}},{"name":{"order":"asc"}}]`, render(t, result))

	assert.Equal(t, `[]`, render(t, Sort(nil)))
}

func TestAggregation_Intervals(t *testing.T) {
	tests := []struct {
		interval string
		key      string
	}{
		{"1d", "calendar_interval"},
		{"1M", "calendar_interval"},
		{"month", "calendar_interval"},
		{"1m", "calendar_interval"},
		{"2d", "fixed_interval"},
		{"30s", "fixed_interval"},
		{"90m", "fixed_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.interval, func(t *testing.T) {
			assert.Equal(t, tt.key, intervalKey(tt.interval))
		})
	}
}

func TestAggregations_Golden(t *testing.T) {
	zero := 0

	created := &aggs.DateHistogram{Field: "created", Interval: "1d", TimeZone: "UTC"}
	created.SetMeta("field_type", "date")

	set := aggs.Set{
		"date_histogram_created": created,
		"date_histogram_updated": &aggs.DateHistogram{Field: "updated", Interval: "90m", Offset: "+6h", Missing: "1970-01-01"},
		"histogram_price":        &aggs.Histogram{Field: "price", Interval: 50},
		"missing_tag":            &aggs.Missing{Field: "tag"},
		"geohash_location":       &aggs.GeoGrid{Field: "location", Precision: 5},
		"percentiles_latency":    &aggs.Percentiles{Field: "latency", Percents: []float64{50, 99.5}},
		"tophits":                &aggs.TopHits{Size: 3, Includes: []string{"id", "name"}},
		"terms_tags": &aggs.Terms{
			Field:       "tags",
			MinDocCount: &zero,
			Include:     &aggs.Filter{Pattern: "a.*"},
			Exclude:     &aggs.Filter{Values: []string{"x", "y"}},
			Missing:     "(none)",
			Order:       []aggs.Order{{Key: "_count", Descending: true}},
		},
	}

	result, err := Aggregations(set)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "aggregations", []byte(render(t, result)))
}

func TestRequest_Golden(t *testing.T) {
	category := &aggs.Terms{Field: "category", Size: 10}
	category.AddSub("avg_price", &aggs.Metric{Type: aggs.MetricAvg, Field: "price"})
	size := 20

	req := Request{
		Query: &query.Bool{
			Must: []query.Query{
				&query.Term{Field: "status", Value: "active"},
				&query.Range{Field: "age", GT: "30", LTE: "40"},
			},
			MustNot: []query.Query{&query.Exists{Field: "deleted"}},
		},
		Filter:        &query.Term{Field: "hidden", Value: "true"},
		Aggregations:  aggs.Set{"terms_category": category},
		Sort:          []query.SortField{{Field: "created", Descending: true, UnmappedType: "date"}},
		RuntimeFields: []schema.RuntimeField{{Name: "full_name", Script: "emit(doc['first'].value)"}},
		Size:          &size,
	}

	body, err := req.Body()
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "search_request", []byte(render(t, body)))
}

func TestRequest_Body(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		body, err := Request{}.Body()
		require.NoError(t, err)
		assert.Equal(t, `{"query":{"match_all":{}}}`, render(t, body))
	})

	t.Run("filter only", func(t *testing.T) {
		body, err := Request{Filter: &query.Exists{Field: "x"}}.Body()
		require.NoError(t, err)
		assert.Equal(t, `{"query":{"bool":{"filter":[{"exists":{"field":"x"}}]}}}`, render(t, body))
	})
}

func TestRuntimeMappings(t *testing.T) {
	result := RuntimeMappings([]schema.RuntimeField{
		{Name: "day", Type: schema.TypeDate, Script: "emit(1)"},
		{Name: "tag"},
	})
	assert.Equal(t, `{"day":{"script":{"source":"emit(1)"},"type":"date"},"tag":{"type":"keyword"}}`, render(t, result))
}
