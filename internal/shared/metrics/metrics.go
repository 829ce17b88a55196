package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "slidebanai"

var (
	// PipelineRuns counts finished pipeline flows by result.
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Total pipeline flows by flow and result",
		},
		[]string{"flow", "result"},
	)

	// StageDuration measures each pipeline stage.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	// StageFailures counts stage failures by error kind.
	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Total pipeline stage failures",
		},
		[]string{"stage", "kind"},
	)

	// ExportSlides counts slides created in remote decks.
	ExportSlides = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_slides_total",
			Help:      "Total slides created by exports",
		},
	)

	// WorkerJobs counts finalize jobs handled by workers.
	WorkerJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_jobs_total",
			Help:      "Total worker jobs by result",
		},
		[]string{"result"},
	)
)

// ObserveStage records a stage duration, and a failure when kind is non-empty.
func ObserveStage(stage string, took time.Duration, kind string) {
	StageDuration.WithLabelValues(stage).Observe(took.Seconds())
	if kind != "" {
		StageFailures.WithLabelValues(stage, kind).Inc()
	}
}

// RecordRun records a finished pipeline flow.
func RecordRun(flow, result string) {
	PipelineRuns.WithLabelValues(flow, result).Inc()
}

// AddExportedSlides records slides created by one export.
func AddExportedSlides(n int) {
	if n > 0 {
		ExportSlides.Add(float64(n))
	}
}

// RecordWorkerJob records one worker job outcome.
func RecordWorkerJob(result string) {
	WorkerJobs.WithLabelValues(result).Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
