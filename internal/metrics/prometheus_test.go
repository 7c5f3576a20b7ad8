package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_ExposesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)
	// A second registration is tolerated.
	Register(reg)

	SessionsTerminatedTotal.WithLabelValues("expired").Inc()
	ActivitySignalsTotal.WithLabelValues("click").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "sessiond_active_sessions")
	assert.Contains(t, names, "sessiond_sessions_terminated_total")
	assert.Contains(t, names, "sessiond_activity_signals_total")
}
