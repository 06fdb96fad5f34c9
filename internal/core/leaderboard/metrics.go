package leaderboard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recomputeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leaderboard",
		Name:      "recompute_total",
		Help:      "recompute attempts by result",
	}, []string{"result"})

	recomputeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "leaderboard",
		Name:      "recompute_duration_seconds",
		Help:      "time spent fetching and computing one snapshot",
		Buckets:   prometheus.DefBuckets,
	})

	snapshotRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "leaderboard",
		Name:      "snapshot_rows",
		Help:      "rows in the latest snapshot by status",
	}, []string{"status"})

	snapshotVersion = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "leaderboard",
		Name:      "snapshot_version",
		Help:      "version of the latest published snapshot",
	})

	configVersion = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "leaderboard",
		Name:      "config_version",
		Help:      "version of the active event config",
	})

	configErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "leaderboard",
		Name:      "config_load_errors_total",
		Help:      "failed config reloads",
	})
)

func observeSnapshot(s *Snapshot) {
	counts := map[Status]int{StatusFinisher: 0, StatusDNF: 0, StatusDSQ: 0}
	for _, r := range s.Overall {
		counts[r.Status]++
	}
	for k, v := range counts {
		snapshotRows.WithLabelValues(string(k)).Set(float64(v))
	}
	snapshotVersion.Set(float64(s.Version))
}
