package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	stageDuration  *prom.HistogramVec
	buildDuration  prom.Histogram
	stageResults   *prom.CounterVec
	buildOutcome   *prom.CounterVec
	pagesRendered  *prom.CounterVec
	renderCacheHit prom.Counter
	brokenLinks    prom.Gauge
	brokenImages   prom.Gauge
	searchQueries  prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docsite",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "docsite",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docsite",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docsite",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.pagesRendered = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docsite",
			Name:      "pages_rendered_total",
			Help:      "Pages written, by docs version",
		}, []string{"version"})
		pr.renderCacheHit = prom.NewCounter(prom.CounterOpts{
			Namespace: "docsite",
			Name:      "render_cache_hits_total",
			Help:      "Documents served from the render cache",
		})
		pr.brokenLinks = prom.NewGauge(prom.GaugeOpts{
			Namespace: "docsite",
			Name:      "broken_links",
			Help:      "Broken internal links found by the last build",
		})
		pr.brokenImages = prom.NewGauge(prom.GaugeOpts{
			Namespace: "docsite",
			Name:      "broken_images",
			Help:      "Broken image references found by the last build",
		})
		pr.searchQueries = prom.NewCounter(prom.CounterOpts{
			Namespace: "docsite",
			Name:      "search_queries_total",
			Help:      "Queries answered by the search API",
		})
		reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome,
			pr.pagesRendered, pr.renderCacheHit, pr.brokenLinks, pr.brokenImages, pr.searchQueries)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}
func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}
func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) AddPagesRendered(version string, n int) {
	if p == nil || p.pagesRendered == nil {
		return
	}
	p.pagesRendered.WithLabelValues(version).Add(float64(n))
}

func (p *PrometheusRecorder) AddRenderCacheHits(n int) {
	if p == nil || p.renderCacheHit == nil {
		return
	}
	p.renderCacheHit.Add(float64(n))
}

func (p *PrometheusRecorder) SetBrokenLinks(n int) {
	if p == nil || p.brokenLinks == nil {
		return
	}
	p.brokenLinks.Set(float64(n))
}

func (p *PrometheusRecorder) SetBrokenImages(n int) {
	if p == nil || p.brokenImages == nil {
		return
	}
	p.brokenImages.Set(float64(n))
}

func (p *PrometheusRecorder) IncSearchQueries() {
	if p == nil || p.searchQueries == nil {
		return
	}
	p.searchQueries.Inc()
}
