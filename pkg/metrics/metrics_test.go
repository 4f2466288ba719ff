package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounterRegisteredOnManager(t *testing.T) {
	registry := prometheus.NewRegistry()
	SetupMetricsManager("live-table", "core.test", registry)

	vec := NewCounterVec("mutation", []string{"op"})
	vec.WithLabelValues("CELL_UPDATE").Inc()
	vec.WithLabelValues("CELL_UPDATE").Inc()

	assert.Equal(t, float64(2), testutil.ToFloat64(vec.WithLabelValues("CELL_UPDATE")))

	families, err := registry.Gather()
	assert.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "live_table_core_test_mutation" {
			found = true
		}
	}
	assert.True(t, found)
}
