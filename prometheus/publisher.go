// Package prometheus exports crawl progress as Prometheus metrics.
package prometheus

import (
	"context"
	"fmt"

	"github.com/fwojciec/sitescan"
	"github.com/prometheus/client_golang/prometheus"
)

// Ensure Publisher implements sitescan.EventPublisher.
var _ sitescan.EventPublisher = (*Publisher)(nil)

// Publisher updates Prometheus collectors from crawl events.
// It is safe for concurrent use.
type Publisher struct {
	pagesScanned     *prometheus.CounterVec
	responseTime     prometheus.Histogram
	sessionsFinished *prometheus.CounterVec
	urlsPending      prometheus.Gauge
}

// NewPublisher registers the collectors against reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewPublisher(reg prometheus.Registerer) (*Publisher, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Publisher{
		pagesScanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sitescan_pages_scanned_total",
			Help: "Pages recorded, partitioned by content type.",
		}, []string{"content_type"}),
		responseTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sitescan_response_time_seconds",
			Help:    "Response time of fetched pages.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		sessionsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sitescan_sessions_finished_total",
			Help: "Crawl sessions finished, partitioned by result.",
		}, []string{"result"}),
		urlsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sitescan_urls_pending",
			Help: "Known URLs not yet recorded in the running crawl.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		p.pagesScanned,
		p.responseTime,
		p.sessionsFinished,
		p.urlsPending,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return p, nil
}

// Publish records evt.
func (p *Publisher) Publish(_ context.Context, evt sitescan.Event) {
	switch e := evt.(type) {
	case sitescan.ProgressEvent:
		p.pagesScanned.WithLabelValues(string(e.ContentType)).Inc()
		if e.ResponseTime >= 0 {
			p.responseTime.Observe(float64(e.ResponseTime) / 1000)
		}
		p.urlsPending.Set(float64(max(e.TotalURLsKnown-e.ScannedCount, 0)))
	case sitescan.CompletedEvent:
		p.sessionsFinished.WithLabelValues("completed").Inc()
		p.urlsPending.Set(0)
	case sitescan.CancelledEvent:
		p.sessionsFinished.WithLabelValues("cancelled").Inc()
		p.urlsPending.Set(0)
	case sitescan.ErrorEvent:
		p.sessionsFinished.WithLabelValues("error").Inc()
		p.urlsPending.Set(0)
	}
}
