package manager

import (
	"github.com/prometheus/client_golang/prometheus"

	"chatd/internal/generate"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Subsystem: "generate",
			Name:      "runs_total",
			Help:      "Finished generation runs by stop reason",
		},
		[]string{"stop_reason"},
	)

	runErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatd",
			Subsystem: "generate",
			Name:      "errors_total",
			Help:      "Failed generation runs by error kind",
		},
		[]string{"kind"},
	)

	tokensTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chatd",
		Subsystem: "generate",
		Name:      "tokens_total",
		Help:      "Sampled tokens",
	})

	chunksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chatd",
		Subsystem: "generate",
		Name:      "chunks_total",
		Help:      "Text chunks accepted by stream sinks",
	})

	handleWaitSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "chatd",
		Subsystem: "generate",
		Name:      "handle_wait_seconds",
		Help:      "Time spent waiting for the shared model handle",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	})

	runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "chatd",
		Subsystem: "generate",
		Name:      "run_duration_seconds",
		Help:      "Duration of generation runs including the handle wait",
		Buckets:   prometheus.DefBuckets,
	})

	activeRuns = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chatd",
		Subsystem: "generate",
		Name:      "active_runs",
		Help:      "Runs between start and return, waiting or generating",
	})

	queueLength = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chatd",
		Subsystem: "generate",
		Name:      "queue_length",
		Help:      "Runs waiting for the model handle at the last status read",
	})

	turnsSavedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chatd",
		Name:      "turns_saved_total",
		Help:      "Chat turns written to the history store",
	})

	turnsFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chatd",
		Name:      "turns_failed_total",
		Help:      "Chat turns the history store rejected",
	})
)

func init() {
	prometheus.MustRegister(runsTotal, runErrorsTotal, tokensTotal, chunksTotal,
		handleWaitSeconds, runDuration, activeRuns, queueLength, turnsSavedTotal, turnsFailedTotal)
}

func observeRun(res generate.Result, err error) {
	runsTotal.WithLabelValues(string(res.StopReason)).Inc()
	tokensTotal.Add(float64(res.CompletionTokens))
	chunksTotal.Add(float64(res.Chunks))
	handleWaitSeconds.Observe(res.HandleWait.Seconds())
	runDuration.Observe(res.Duration.Seconds())
	if err != nil {
		kind := "unknown"
		if k, ok := generate.KindOf(err); ok {
			kind = k.String()
		}
		runErrorsTotal.WithLabelValues(kind).Inc()
	}
}
