package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBusinessMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBusinessMetrics(reg, "blogforge")

	m.SessionsCreatedTotal.WithLabelValues("standard").Inc()
	m.StepsExecutedTotal.WithLabelValues("AI", "completed").Add(3)
	m.PlagiarismChecksTotal.WithLabelValues("unique").Inc()
	m.CorpusSize.Set(12)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsCreatedTotal.WithLabelValues("standard")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.StepsExecutedTotal.WithLabelValues("AI", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PlagiarismChecksTotal.WithLabelValues("unique")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.CorpusSize))
}

func TestObserveDurationWithoutTrace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBusinessMetrics(reg, "blogforge")

	// No active span; must fall back to a plain observation
	m.ObserveDurationWithExemplar(context.Background(), m.StepDuration, 1.5, "completed")

	count := testutil.CollectAndCount(m.StepDuration)
	require.Equal(t, 1, count)
}
