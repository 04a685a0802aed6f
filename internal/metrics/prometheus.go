package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guidance_pipeline_duration_seconds",
			Help:    "End-to-end pipeline duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"audience"},
	)

	PipelineTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guidance_pipeline_requests_total",
			Help: "Total pipeline runs by outcome",
		},
		[]string{"status"},
	)

	ModelCallDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "guidance_model_call_duration_seconds",
			Help:    "Generation endpoint round-trip duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	ExtractorRecoveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guidance_extractor_recoveries_total",
			Help: "Model output extractions by recovery strategy",
		},
		[]string{"strategy"},
	)

	LocalMatchCount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "guidance_local_match_count",
			Help:    "Number of local guideline documents matched per request",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		},
	)

	LiteratureSearches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guidance_literature_searches_total",
			Help: "Literature searches by phase",
		},
		[]string{"phase"},
	)

	LiteratureFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guidance_literature_failures_total",
			Help: "Degraded literature operations by stage",
		},
		[]string{"stage"},
	)
)

func Init() {
	prometheus.MustRegister(PipelineDuration)
	prometheus.MustRegister(PipelineTotal)
	prometheus.MustRegister(ModelCallDuration)
	prometheus.MustRegister(ExtractorRecoveries)
	prometheus.MustRegister(LocalMatchCount)
	prometheus.MustRegister(LiteratureSearches)
	prometheus.MustRegister(LiteratureFailures)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
