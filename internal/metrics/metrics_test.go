package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewPipelineMetrics(registry)

	m.ObserveVisitor("query", "alias", time.Millisecond, nil)
	m.ObserveVisitor("query", "field_resolver", time.Millisecond, errors.New("boom"))
	m.ObserveRun("query", 2*time.Millisecond, errors.New("boom"))
	m.ObserveRun("query", time.Millisecond, nil)
	m.ObserveRun("sort", time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("query", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("query", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.visitorErrsTotal.WithLabelValues("query", "field_resolver")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.visitorDuration))

	expected := `
# HELP lucq_visitor_errors_total Total number of visitor runs that returned an error
# TYPE lucq_visitor_errors_total counter
lucq_visitor_errors_total{pipeline="query",visitor="field_resolver"} 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "lucq_visitor_errors_total"))
}

func TestNewPipelineMetrics_DuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewPipelineMetrics(registry)
	assert.Panics(t, func() { NewPipelineMetrics(registry) })
}
