package blocklist

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "listctl"

// WriteMetrics writes build metrics in the Prometheus text format to path,
// for node_exporter's textfile collector.
func WriteMetrics(path string, s *Summary) error {
	reg := prometheus.NewRegistry()

	uniqueLines := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "unique_lines",
		Help:      "Number of unique lines in the combined list.",
	})
	buildDuration := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "build_duration_seconds",
		Help:      "Wall time of the last build.",
	})
	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time the combined list was last written.",
	})
	sourceLines := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "source_lines",
		Help:      "Lines contributed by a source in the last build.",
	}, []string{"source", "url"})
	sourceUp := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "source_up",
		Help:      "1 if the source was fetched successfully in the last build.",
	}, []string{"source", "url"})

	reg.MustRegister(uniqueLines, buildDuration, lastSuccess, sourceLines, sourceUp)

	uniqueLines.Set(float64(s.UniqueLines))
	buildDuration.Set(s.Duration)
	lastSuccess.Set(float64(s.GeneratedAt.Unix()))
	for _, src := range s.Sources {
		sourceLines.WithLabelValues(src.Name, src.URL).Set(float64(src.Lines))
		up := 0.0
		if src.Status == StatusOK.String() {
			up = 1
		}
		sourceUp.WithLabelValues(src.Name, src.URL).Set(up)
	}

	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return errors.Wrap(err, "WriteMetrics: "+path)
	}
	return nil
}
