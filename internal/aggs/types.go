// Package aggs models aggregation fragments: named bucket and metric
// aggregations that nest into a tree.
//
// Aggregation is a sealed interface. Bucket aggregations (Terms,
// DateHistogram, Histogram, Missing, GeoGrid and the root Container) hold
// sub-aggregations; metric aggregations do not.
package aggs

import "sort"

// Aggregation is one node of an aggregation tree.
type Aggregation interface {
	// Meta returns the meta tags, nil when none were set.
	Meta() map[string]any
	// SetMeta sets a meta tag.
	SetMeta(key string, value any)

	aggregationNode() // Marker method - seals interface to this package
}

// Bucket is an aggregation that holds sub-aggregations.
type Bucket interface {
	Aggregation
	Subs() Set
	AddSub(name string, agg Aggregation)
}

// Set maps aggregation names to aggregations.
type Set map[string]Aggregation

// Names returns the aggregation names in ascending order.
func (s Set) Names() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type base struct {
	meta map[string]any
}

func (b *base) Meta() map[string]any { return b.meta }

func (b *base) SetMeta(key string, value any) {
	if b.meta == nil {
		b.meta = make(map[string]any)
	}
	b.meta[key] = value
}

func (*base) aggregationNode() {}

type bucket struct {
	base
	subs Set
}

func (b *bucket) Subs() Set { return b.subs }

func (b *bucket) AddSub(name string, agg Aggregation) {
	if b.subs == nil {
		b.subs = make(Set)
	}
	b.subs[name] = agg
}

// Container is the root placeholder bucket: it only groups the top-level
// aggregations of a request.
type Container struct {
	bucket
}

// Filter narrows the value set of a terms bucket. Pattern is a regular
// expression; Values is an exact list. Only one is set.
type Filter struct {
	Pattern string
	Values  []string
}

// Order sorts terms buckets by a sub-aggregation's value.
type Order struct {
	Key        string
	Descending bool
}

// Terms buckets documents by distinct field values.
type Terms struct {
	bucket
	Field       string
	Size        int
	MinDocCount *int
	Include     *Filter
	Exclude     *Filter
	Missing     string
	Order       []Order
}

// DateHistogram buckets documents by date intervals.
type DateHistogram struct {
	bucket
	Field    string
	Interval string
	TimeZone string
	Offset   string
	Missing  string
}

// Histogram buckets documents by numeric intervals.
type Histogram struct {
	bucket
	Field    string
	Interval float64
}

// Missing buckets documents that have no value for Field.
type Missing struct {
	bucket
	Field string
}

// GeoGrid buckets geo points by geohash cell.
type GeoGrid struct {
	bucket
	Field     string
	Precision int
}

// MetricType names a single-field metric.
type MetricType string

const (
	MetricMin           MetricType = "min"
	MetricMax           MetricType = "max"
	MetricAvg           MetricType = "avg"
	MetricSum           MetricType = "sum"
	MetricStats         MetricType = "stats"
	MetricExtendedStats MetricType = "extended_stats"
	MetricCardinality   MetricType = "cardinality"
)

// Metric computes a single metric over Field.
type Metric struct {
	base
	Type    MetricType
	Field   string
	Missing string
}

// Percentiles computes the given percentiles over Field.
type Percentiles struct {
	base
	Field    string
	Percents []float64
}

// TopHits returns the best matching documents of the enclosing bucket.
type TopHits struct {
	base
	Size     int
	Includes []string
}

var (
	_ Bucket = (*Container)(nil)
	_ Bucket = (*Terms)(nil)
	_ Bucket = (*DateHistogram)(nil)
	_ Bucket = (*Histogram)(nil)
	_ Bucket = (*Missing)(nil)
	_ Bucket = (*GeoGrid)(nil)

	_ Aggregation = (*Metric)(nil)
	_ Aggregation = (*Percentiles)(nil)
	_ Aggregation = (*TopHits)(nil)
)

// IsBucket reports whether agg can hold sub-aggregations.
func IsBucket(agg Aggregation) bool {
	_, ok := agg.(Bucket)
	return ok
}
