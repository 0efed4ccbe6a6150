// Package metrics exposes Prometheus counters for the classification pipeline.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "haxmetrics"

// Custom registry to keep default Go collectors out of the export.
var registry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

var (
	ticksProcessed = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "engine", Name: "ticks_total",
		Help: "Ticks applied to the classifier.",
	})
	handlerErrors = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "engine", Name: "handler_errors_total",
		Help: "Host notifications rejected or recovered by the engine.",
	}, []string{"handler"})
	kicksEmitted = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "engine", Name: "kicks_total",
		Help: "Kick records appended, by type.",
	}, []string{"type"})
	corrections = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "engine", Name: "corrections_total",
		Help: "Save records rewritten to errors after a goal.",
	})
	goalsRecorded = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "engine", Name: "goals_total",
		Help: "Goal records, split by own goal.",
	}, []string{"own"})
	geometryFallbacks = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "engine", Name: "geometry_fallbacks_total",
		Help: "Matches started with default ball radius or without goal geometry.",
	})
	matchesFinished = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "engine", Name: "matches_total",
		Help: "Matches finalized, by end reason.",
	}, []string{"reason"})
	persistResults = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "persist", Name: "results_total",
		Help: "Match persistence outcomes.",
	}, []string{"outcome"})
	persistQueueDepth = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "persist", Name: "queue_depth",
		Help: "Finished matches waiting to be written.",
	})
	liveWatchers = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "live", Name: "watchers",
		Help: "Connected live-stream watchers.",
	})
)

func RecordTick()                       { ticksProcessed.Inc() }
func RecordHandlerError(handler string) { handlerErrors.WithLabelValues(handler).Inc() }
func RecordKick(kickType string)        { kicksEmitted.WithLabelValues(kickType).Inc() }
func RecordCorrection()                 { corrections.Inc() }
func RecordGoal(own bool)               { goalsRecorded.WithLabelValues(strconv.FormatBool(own)).Inc() }
func RecordGeometryFallback()           { geometryFallbacks.Inc() }
func RecordMatch(reason string)         { matchesFinished.WithLabelValues(reason).Inc() }
func RecordPersist(ok bool) {
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	persistResults.WithLabelValues(outcome).Inc()
}
func SetPersistQueueDepth(n int) { persistQueueDepth.Set(float64(n)) }
func SetLiveWatchers(n int)      { liveWatchers.Set(float64(n)) }

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// Gatherer exposes the registry for tests.
func Gatherer() prometheus.Gatherer { return registry }
