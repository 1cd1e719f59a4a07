package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// sample returns the series of family name whose labels include every
// name/value pair in kv. It fails the test when there is none.
func sample(t *testing.T, reg prometheus.Gatherer, name string, kv ...string) *dto.Metric {
	t.Helper()
	require.Zero(t, len(kv)%2, "labels come in name/value pairs")

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			if hasLabels(m, kv) {
				return m
			}
		}
		require.Failf(t, "series not found", "%s has no series with labels %v", name, kv)
	}
	require.Failf(t, "family not found", "no metric family %s", name)
	return nil
}

func hasLabels(m *dto.Metric, kv []string) bool {
	have := make(map[string]string, len(m.GetLabel()))
	for _, pair := range m.GetLabel() {
		have[pair.GetName()] = pair.GetValue()
	}
	for i := 0; i < len(kv); i += 2 {
		if have[kv[i]] != kv[i+1] {
			return false
		}
	}
	return true
}

// seriesCount is the number of label combinations exported for name.
func seriesCount(t *testing.T, reg prometheus.Gatherer, name string) int {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			return len(family.GetMetric())
		}
	}
	return 0
}
