package elastic

import (
	"fmt"
	"regexp"

	"github.com/roach88/lucq/internal/aggs"
)

// Aggregations renders an aggregation set as the "aggs" object of a
// search request.
func Aggregations(set aggs.Set) (map[string]any, error) {
	out := make(map[string]any, len(set))
	for _, name := range set.Names() {
		body, err := Aggregation(set[name])
		if err != nil {
			return nil, fmt.Errorf("aggregation %s: %w", name, err)
		}
		out[name] = body
	}
	return out, nil
}

// Aggregation renders one aggregation together with its meta data and
// sub-aggregations.
func Aggregation(agg aggs.Aggregation) (map[string]any, error) {
	var (
		kind string
		body = map[string]any{}
	)

	switch v := agg.(type) {
	case *aggs.Terms:
		kind = "terms"
		body["field"] = v.Field
		if v.Size > 0 {
			body["size"] = v.Size
		}
		if v.MinDocCount != nil {
			body["min_doc_count"] = *v.MinDocCount
		}
		if v.Include != nil {
			body["include"] = filterValue(v.Include)
		}
		if v.Exclude != nil {
			body["exclude"] = filterValue(v.Exclude)
		}
		if v.Missing != "" {
			body["missing"] = v.Missing
		}
		if len(v.Order) > 0 {
			order := make([]any, len(v.Order))
			for i, o := range v.Order {
				dir := "asc"
				if o.Descending {
					dir = "desc"
				}
				order[i] = map[string]any{o.Key: dir}
			}
			body["order"] = order
		}

	case *aggs.DateHistogram:
		kind = "date_histogram"
		body["field"] = v.Field
		if v.Interval != "" {
			body[intervalKey(v.Interval)] = v.Interval
		}
		if v.TimeZone != "" {
			body["time_zone"] = v.TimeZone
		}
		if v.Offset != "" {
			body["offset"] = v.Offset
		}
		if v.Missing != "" {
			body["missing"] = v.Missing
		}

	case *aggs.Histogram:
		kind = "histogram"
		body["field"] = v.Field
		body["interval"] = v.Interval

	case *aggs.Missing:
		kind = "missing"
		body["field"] = v.Field

	case *aggs.GeoGrid:
		kind = "geohash_grid"
		body["field"] = v.Field
		if v.Precision > 0 {
			body["precision"] = v.Precision
		}

	case *aggs.Metric:
		kind = string(v.Type)
		body["field"] = v.Field
		if v.Missing != "" {
			body["missing"] = v.Missing
		}

	case *aggs.Percentiles:
		kind = "percentiles"
		body["field"] = v.Field
		if len(v.Percents) > 0 {
			percents := make([]any, len(v.Percents))
			for i, p := range v.Percents {
				percents[i] = p
			}
			body["percents"] = percents
		}

	case *aggs.TopHits:
		kind = "top_hits"
		if v.Size > 0 {
			body["size"] = v.Size
		}
		if len(v.Includes) > 0 {
			includes := make([]any, len(v.Includes))
			for i, f := range v.Includes {
				includes[i] = f
			}
			body["_source"] = map[string]any{"includes": includes}
		}

	default:
		return nil, fmt.Errorf("unsupported aggregation type: %T", agg)
	}

	out := map[string]any{kind: body}
	if meta := agg.Meta(); len(meta) > 0 {
		out["meta"] = meta
	}
	if b, ok := agg.(aggs.Bucket); ok && len(b.Subs()) > 0 {
		subs, err := Aggregations(b.Subs())
		if err != nil {
			return nil, err
		}
		out["aggs"] = subs
	}
	return out, nil
}

func filterValue(f *aggs.Filter) any {
	if f.Pattern != "" {
		return f.Pattern
	}
	values := make([]any, len(f.Values))
	for i, v := range f.Values {
		values[i] = v
	}
	return values
}

var calendarInterval = regexp.MustCompile(`^(1[mhdwMqy]|minute|hour|day|week|month|quarter|year)$`)

// intervalKey picks calendar_interval for single calendar units and
// fixed_interval for everything else.
func intervalKey(interval string) string {
	if calendarInterval.MatchString(interval) {
		return "calendar_interval"
	}
	return "fixed_interval"
}
