package world

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	generationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tileworld",
		Name:      "generation_duration_seconds",
		Help:      "Длительность генерации карты от Load до публикации",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"map"})

	generationRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tileworld",
		Name:      "generation_runs_total",
		Help:      "Завершённые прогоны генерации по результату (published, failed, stale)",
	}, []string{"map", "result"})

	rejectedMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tileworld",
		Name:      "rejected_mutations_total",
		Help:      "Изменения карты, отклонённые из-за состояния, отличного от ready",
	}, []string{"map", "op"})

	tilesBroken = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tileworld",
		Name:      "tiles_broken_total",
		Help:      "Разрушенные тайлы",
	}, []string{"map"})

	breakEntries = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tileworld",
		Name:      "break_entries",
		Help:      "Клетки с накопленным уроном",
	}, []string{"map"})

	lightRebuilds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tileworld",
		Name:      "light_rebuilds_total",
		Help:      "Перестроения маски освещения",
	}, []string{"map"})
)

func init() {
	prometheus.MustRegister(
		generationDuration,
		generationRuns,
		rejectedMutations,
		tilesBroken,
		breakEntries,
		lightRebuilds,
	)
}
