package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"qamod/internal/models"
	"qamod/internal/moderation"
)

var (
	pendingReviewsDesc = prometheus.NewDesc(
		"qamod_review_queue_pending",
		"Pending review queue items by review type",
		[]string{"review_type"},
		nil,
	)
)

// PendingCounter reports pending review items per review type.
type PendingCounter interface {
	CountPendingReviewItems(ctx context.Context) (map[models.ReviewType]int, error)
}

// QueueCollector is a custom Prometheus collector that reads review queue
// depth from the database on each scrape.
type QueueCollector struct {
	source  PendingCounter
	timeout time.Duration
}

// Describe sends the metric descriptor to the channel.
func (c *QueueCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- pendingReviewsDesc
}

// Collect queries the database for pending items and emits one gauge per
// review type, including empty ones.
func (c *QueueCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	counts, err := c.source.CountPendingReviewItems(ctx)
	if err != nil {
		slog.Error("failed to collect review queue metrics", "error", err)
		return
	}
	for _, rt := range models.ReviewTypes {
		ch <- prometheus.MustNewConstMetric(
			pendingReviewsDesc,
			prometheus.GaugeValue,
			float64(counts[rt]),
			string(rt),
		)
	}
}

// Recorder counts committed moderation resolutions. It implements
// moderation.Notifier.
type Recorder struct {
	resolutions *prometheus.CounterVec
	bonuses     *prometheus.CounterVec
	drift       prometheus.Gauge
}

// NewRecorder creates a recorder and registers its metrics together with a
// queue collector over source. source may be nil.
func NewRecorder(reg prometheus.Registerer, source PendingCounter) *Recorder {
	r := &Recorder{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qamod_resolutions_total",
			Help: "Committed moderation resolutions by kind and outcome",
		}, []string{"kind", "outcome"}),
		bonuses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qamod_consensus_bonuses_total",
			Help: "Consensus bonuses paid to voters by resolution kind",
		}, []string{"kind"}),
		drift: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "qamod_reputation_drift_users",
			Help: "Users whose cached reputation disagrees with their ledger at the last audit",
		}),
	}
	reg.MustRegister(r.resolutions, r.bonuses, r.drift)
	if source != nil {
		reg.MustRegister(&QueueCollector{source: source, timeout: 5 * time.Second})
	}
	return r
}

// Notify implements moderation.Notifier.
func (r *Recorder) Notify(_ context.Context, e moderation.Event) {
	outcome := ""
	switch e.Kind {
	case moderation.EventQuestionClosed:
		outcome = "consensus"
		if e.Hammer {
			outcome = "hammer"
		}
	case moderation.EventQuestionReopened:
		outcome = "consensus"
	case moderation.EventReviewResolved:
		if e.Item != nil {
			outcome = e.Item.Status
		}
	}
	r.resolutions.WithLabelValues(e.Kind, outcome).Inc()
	if len(e.Voters) > 0 {
		r.bonuses.WithLabelValues(e.Kind).Add(float64(len(e.Voters)))
	}
}

// RecordDrift stores the result of the latest reputation audit.
func (r *Recorder) RecordDrift(count int) {
	r.drift.Set(float64(count))
}

var (
	recorder     *Recorder
	recorderOnce sync.Once
)

// Init registers the metrics with the default registry and returns the
// process-wide recorder. Must be called once at startup; later calls return
// the same recorder.
func Init(source PendingCounter) *Recorder {
	recorderOnce.Do(func() {
		recorder = NewRecorder(prometheus.DefaultRegisterer, source)
	})
	return recorder
}
