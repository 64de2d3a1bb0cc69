package aggs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lucq/internal/schema"
)

func TestDefaultProvider_Metrics(t *testing.T) {
	testCases := []struct {
		op   string
		want MetricType
	}{
		{"min", MetricMin},
		{"max", MetricMax},
		{"avg", MetricAvg},
		{"sum", MetricSum},
		{"stats", MetricStats},
		{"exstats", MetricExtendedStats},
		{"cardinality", MetricCardinality},
		{"MAX", MetricMax},
	}
	for _, tc := range testCases {
		t.Run(tc.op, func(t *testing.T) {
			agg, err := DefaultProvider{}.Aggregation(context.Background(), Request{
				Operation: tc.op, Field: "age", Proximity: "0",
			})
			require.NoError(t, err)

			m, ok := agg.(*Metric)
			require.True(t, ok)
			assert.Equal(t, tc.want, m.Type)
			assert.Equal(t, "age", m.Field)
			assert.Equal(t, "0", m.Missing)
			assert.False(t, IsBucket(agg))
		})
	}
}

func TestDefaultProvider_Terms(t *testing.T) {
	agg, err := DefaultProvider{}.Aggregation(context.Background(), Request{
		Operation: "terms", Field: "tags", Proximity: "10", Boost: "2", FieldType: schema.TypeKeyword,
	})
	require.NoError(t, err)

	terms, ok := agg.(*Terms)
	require.True(t, ok)
	assert.Equal(t, "tags", terms.Field)
	assert.Equal(t, 10, terms.Size)
	require.NotNil(t, terms.MinDocCount)
	assert.Equal(t, 2, *terms.MinDocCount)
	assert.Equal(t, map[string]any{FieldTypeMeta: "keyword"}, terms.Meta())
	assert.True(t, IsBucket(agg))
}

func TestDefaultProvider_Buckets(t *testing.T) {
	ctx := context.Background()
	p := DefaultProvider{}

	agg, err := p.Aggregation(ctx, Request{Operation: "date", Field: "created", Proximity: "1h", Boost: "-5h"})
	require.NoError(t, err)
	assert.Equal(t, &DateHistogram{Field: "created", Interval: "1h", TimeZone: "-5h"}, agg)

	agg, err = p.Aggregation(ctx, Request{Operation: "histogram", Field: "age", Proximity: "10"})
	require.NoError(t, err)
	assert.Equal(t, &Histogram{Field: "age", Interval: 10}, agg)

	agg, err = p.Aggregation(ctx, Request{Operation: "histogram", Field: "age"})
	require.NoError(t, err)
	assert.Equal(t, &Histogram{Field: "age", Interval: 1}, agg)

	agg, err = p.Aggregation(ctx, Request{Operation: "geogrid", Field: "loc", Proximity: "5"})
	require.NoError(t, err)
	assert.Equal(t, &GeoGrid{Field: "loc", Precision: 5}, agg)

	agg, err = p.Aggregation(ctx, Request{Operation: "missing", Field: "age"})
	require.NoError(t, err)
	assert.Equal(t, &Missing{Field: "age"}, agg)
}

func TestDefaultProvider_Others(t *testing.T) {
	ctx := context.Background()
	p := DefaultProvider{}

	agg, err := p.Aggregation(ctx, Request{Operation: "percentiles", Field: "age", Proximity: "25,50,x,99.9"})
	require.NoError(t, err)
	assert.Equal(t, &Percentiles{Field: "age", Percents: []float64{25, 50, 99.9}}, agg)

	agg, err = p.Aggregation(ctx, Request{Operation: "tophits", Field: "_", Proximity: "3"})
	require.NoError(t, err)
	assert.Equal(t, &TopHits{Size: 3}, agg)

	agg, err = p.Aggregation(ctx, Request{Operation: "tophits", Field: "name"})
	require.NoError(t, err)
	assert.Equal(t, &TopHits{Includes: []string{"name"}}, agg)
}

func TestDefaultProvider_Unknown(t *testing.T) {
	agg, err := DefaultProvider{}.Aggregation(context.Background(), Request{Operation: "median", Field: "age"})

	require.NoError(t, err)
	assert.Nil(t, agg)
}

func TestProviderFunc(t *testing.T) {
	p := ProviderFunc(func(_ context.Context, req Request) (Aggregation, error) {
		return &Metric{Type: MetricSum, Field: req.Field}, nil
	})

	agg, err := p.Aggregation(context.Background(), Request{Operation: "anything", Field: "x"})
	require.NoError(t, err)
	assert.Equal(t, &Metric{Type: MetricSum, Field: "x"}, agg)
}

func TestName(t *testing.T) {
	assert.Equal(t, "terms_tags", Name("terms", "tags", ""))
	assert.Equal(t, "max_Age", Name("MAX", "data.age", "Age"))
}

func TestBucket_AddSub(t *testing.T) {
	root := &Container{}
	assert.Nil(t, root.Subs())

	root.AddSub("b", &Metric{Type: MetricMax, Field: "b"})
	root.AddSub("a", &Terms{Field: "a"})

	assert.Equal(t, []string{"a", "b"}, root.Subs().Names())
}

func TestSetMeta(t *testing.T) {
	m := &Metric{Type: MetricMin, Field: "a"}
	assert.Nil(t, m.Meta())

	m.SetMeta("k", 1)
	assert.Equal(t, map[string]any{"k": 1}, m.Meta())
}
