package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Registry holds every collector of the process. It is served on /metrics and
// summarised by Dump.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	RunsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "league_digest_runs_total",
		Help: "Digest runs by outcome (ok, error).",
	}, []string{"status"})

	GroupsFetched = factory.NewCounter(prometheus.CounterOpts{
		Name: "league_digest_activity_groups_fetched_total",
		Help: "Raw activity groups returned by the league source.",
	})

	FetchFailures = factory.NewCounter(prometheus.CounterOpts{
		Name: "league_digest_fetch_failures_total",
		Help: "Runs whose activity fetch failed after retries and continued empty.",
	})

	EventsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "league_digest_events_total",
		Help: "Reconciled events by kind.",
	}, []string{"kind"})

	SourceRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "league_digest_source_requests_total",
		Help: "HTTP requests to the league API by view and status code.",
	}, []string{"view", "code"})

	SinkPushes = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "league_digest_sink_pushes_total",
		Help: "Digest deliveries by sink and outcome.",
	}, []string{"sink", "status"})

	RunDuration = factory.NewSummary(prometheus.SummaryOpts{
		Name:       "league_digest_run_duration_seconds",
		Help:       "Wall time of one fetch, reconcile, render and deliver cycle.",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	})

	LastSuccess = factory.NewGauge(prometheus.GaugeOpts{
		Name: "league_digest_last_success_timestamp_seconds",
		Help: "Unix time of the last successful run.",
	})
)

// Dump returns a human-readable snapshot of counters and gauges (for logging).
func Dump() string {
	mfs, err := Registry.Gather()
	if err != nil {
		return fmt.Sprintf("gather: %v", err)
	}
	var out []string
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			lbls := labels(m.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				out = append(out, fmt.Sprintf("%s{%s} %g", name, lbls, m.GetCounter().GetValue()))
			case dto.MetricType_GAUGE:
				out = append(out, fmt.Sprintf("%s{%s} %g", name, lbls, m.GetGauge().GetValue()))
			case dto.MetricType_SUMMARY:
				s := m.GetSummary()
				out = append(out, fmt.Sprintf("%s_count{%s} %d", name, lbls, s.GetSampleCount()))
				out = append(out, fmt.Sprintf("%s_sum{%s} %g", name, lbls, s.GetSampleSum()))
			}
		}
	}
	sort.Strings(out)
	return strings.Join(out, "\n")
}

func labels(pairs []*dto.LabelPair) string {
	b := strings.Builder{}
	for i, lp := range pairs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(lp.GetName())
		b.WriteByte('=')
		b.WriteString(lp.GetValue())
	}
	return b.String()
}
