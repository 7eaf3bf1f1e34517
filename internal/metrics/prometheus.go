package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "notionsite"

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	passDuration     *prom.HistogramVec
	passOutcomes     *prom.CounterVec
	recordOutcomes   *prom.CounterVec
	recordFailures   *prom.CounterVec
	assetResults     *prom.CounterVec
	relationFailures *prom.CounterVec
}

// NewPrometheusRecorder creates the collectors and registers them with reg,
// or with a fresh registry when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		passDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Duration of export passes",
			Buckets:   prom.DefBuckets,
		}, []string{"collection"}),
		passOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pass_outcomes_total",
			Help:      "Export passes by outcome",
		}, []string{"collection", "outcome"}),
		recordOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "record_outcomes_total",
			Help:      "Processed records by outcome",
		}, []string{"collection", "outcome"}),
		recordFailures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "record_failures_total",
			Help:      "Failed records by the stage they failed in",
		}, []string{"collection", "stage"}),
		assetResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "asset_results_total",
			Help:      "Asset downloads by kind and outcome",
		}, []string{"kind", "outcome"}),
		relationFailures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "relation_failures_total",
			Help:      "Relation references that could not be resolved",
		}, []string{"collection"}),
	}
	reg.MustRegister(pr.passDuration, pr.passOutcomes, pr.recordOutcomes,
		pr.recordFailures, pr.assetResults, pr.relationFailures)
	return pr
}

func (p *PrometheusRecorder) ObservePassDuration(collection string, d time.Duration) {
	if p == nil {
		return
	}
	p.passDuration.WithLabelValues(collection).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPassOutcome(collection, outcome string) {
	if p == nil {
		return
	}
	p.passOutcomes.WithLabelValues(collection, outcome).Inc()
}

func (p *PrometheusRecorder) IncRecordOutcome(collection, outcome string) {
	if p == nil {
		return
	}
	p.recordOutcomes.WithLabelValues(collection, outcome).Inc()
}

func (p *PrometheusRecorder) IncRecordFailure(collection, stage string) {
	if p == nil {
		return
	}
	p.recordFailures.WithLabelValues(collection, stage).Inc()
}

func (p *PrometheusRecorder) IncAssetResult(kind, outcome string) {
	if p == nil {
		return
	}
	p.assetResults.WithLabelValues(kind, outcome).Inc()
}

func (p *PrometheusRecorder) IncRelationFailure(collection string) {
	if p == nil {
		return
	}
	p.relationFailures.WithLabelValues(collection).Inc()
}

// HTTPHandler serves the metrics of reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
