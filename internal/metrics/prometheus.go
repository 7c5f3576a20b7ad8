package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	ActiveSessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sessiond_active_sessions",
		Help: "Current number of monitored sessions.",
	})
	SessionsOpenedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessiond_sessions_opened_total",
		Help: "Total number of sessions opened.",
	})
	SessionsTerminatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sessiond_sessions_terminated_total",
		Help: "Total number of terminated sessions by reason.",
	}, []string{"reason"})
	LogoutNotifyFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessiond_logout_notify_failures_total",
		Help: "Total number of backend logout notifications that failed.",
	})
	ActivitySignalsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sessiond_activity_signals_total",
		Help: "Total number of activity signals received by kind.",
	}, []string{"kind"})
)

// Register registers the collectors with reg. Collectors that are
// already registered are logged and skipped.
func Register(reg prometheus.Registerer) {
	if reg == nil {
		log.Error().Msg("Prometheus registry is nil, cannot register session metrics.")
		return
	}

	collectors := map[string]prometheus.Collector{
		"ActiveSessionsGauge":       ActiveSessionsGauge,
		"SessionsOpenedTotal":       SessionsOpenedTotal,
		"SessionsTerminatedTotal":   SessionsTerminatedTotal,
		"LogoutNotifyFailuresTotal": LogoutNotifyFailuresTotal,
		"ActivitySignalsTotal":      ActivitySignalsTotal,
	}
	for name, c := range collectors {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Str("metric", name).Msg("Failed to register metric")
		}
	}
	log.Info().Msg("Session metrics registered.")
}
