package aggs

import (
	"context"
	"strconv"
	"strings"

	"github.com/roach88/lucq/internal/schema"
)

// Request describes one aggregation to build: the operation keyword and the
// target field, plus the modifiers written in the expression.
type Request struct {
	Operation string
	Field     string

	// OriginalField is the field as written, before alias and schema
	// resolution. Empty when it did not change.
	OriginalField string

	// FieldType is the schema type of Field, TypeUnknown when unresolved.
	FieldType schema.FieldType

	// Proximity and Boost are the raw "~" and "^" modifiers.
	Proximity string
	Boost     string
}

// Provider builds concrete aggregation fragments for operation keywords.
//
// Aggregation returns (nil, nil) when the operation is unknown to the
// provider.
type Provider interface {
	Aggregation(ctx context.Context, req Request) (Aggregation, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, req Request) (Aggregation, error)

// Aggregation calls f.
func (f ProviderFunc) Aggregation(ctx context.Context, req Request) (Aggregation, error) {
	return f(ctx, req)
}

// Name returns the generated aggregation name "<operation>_<field>", using
// the field as written when it is known.
func Name(operation, field, originalField string) string {
	if originalField != "" {
		field = originalField
	}
	return strings.ToLower(operation) + "_" + field
}

// Operations lists the operation keywords DefaultProvider understands.
var Operations = []string{
	"min", "max", "avg", "sum", "stats", "exstats", "cardinality",
	"missing", "percentiles", "terms", "date", "histogram", "geogrid", "tophits",
}

// FieldTypeMeta is the meta tag carrying the schema type of the target field.
const FieldTypeMeta = "@field_type"

// DefaultProvider builds Elasticsearch-style aggregations:
//
//	min, max, avg, sum, stats, exstats, cardinality   metric; ~ sets the missing value
//	missing                                           missing-value bucket
//	percentiles                                       ~ lists percents, e.g. ~25,50,75
//	terms                                             ~ sets size, ^ sets min doc count
//	date                                              ~ sets interval, ^ sets time zone
//	histogram                                         ~ sets interval
//	geogrid                                           ~ sets precision
//	tophits                                           ~ sets size, field lists includes
type DefaultProvider struct{}

// Aggregation implements Provider.
func (DefaultProvider) Aggregation(_ context.Context, req Request) (Aggregation, error) {
	var agg Aggregation
	switch strings.ToLower(req.Operation) {
	case "min":
		agg = &Metric{Type: MetricMin, Field: req.Field, Missing: req.Proximity}
	case "max":
		agg = &Metric{Type: MetricMax, Field: req.Field, Missing: req.Proximity}
	case "avg":
		agg = &Metric{Type: MetricAvg, Field: req.Field, Missing: req.Proximity}
	case "sum":
		agg = &Metric{Type: MetricSum, Field: req.Field, Missing: req.Proximity}
	case "stats":
		agg = &Metric{Type: MetricStats, Field: req.Field, Missing: req.Proximity}
	case "exstats":
		agg = &Metric{Type: MetricExtendedStats, Field: req.Field, Missing: req.Proximity}
	case "cardinality":
		agg = &Metric{Type: MetricCardinality, Field: req.Field, Missing: req.Proximity}
	case "missing":
		agg = &Missing{Field: req.Field}
	case "percentiles":
		agg = &Percentiles{Field: req.Field, Percents: parsePercents(req.Proximity)}
	case "terms":
		t := &Terms{Field: req.Field, Size: atoi(req.Proximity)}
		if req.Boost != "" {
			n := atoi(req.Boost)
			t.MinDocCount = &n
		}
		agg = t
	case "date":
		agg = &DateHistogram{Field: req.Field, Interval: req.Proximity, TimeZone: req.Boost}
	case "histogram":
		interval, err := strconv.ParseFloat(req.Proximity, 64)
		if err != nil || interval <= 0 {
			interval = 1
		}
		agg = &Histogram{Field: req.Field, Interval: interval}
	case "geogrid":
		agg = &GeoGrid{Field: req.Field, Precision: atoi(req.Proximity)}
	case "tophits":
		th := &TopHits{Size: atoi(req.Proximity)}
		if req.Field != "" && req.Field != "_" {
			th.Includes = []string{req.Field}
		}
		agg = th
	default:
		return nil, nil
	}

	if req.FieldType != schema.TypeUnknown {
		agg.SetMeta(FieldTypeMeta, string(req.FieldType))
	}
	return agg, nil
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func parsePercents(s string) []float64 {
	if s == "" {
		return nil
	}
	var out []float64
	for _, p := range strings.Split(s, ",") {
		if f, err := strconv.ParseFloat(strings.TrimSpace(p), 64); err == nil {
			out = append(out, f)
		}
	}
	return out
}
