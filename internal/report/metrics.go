package report

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// outlineLookupMisses counts outline leaves with no matching topic in the
	// max-points record.
	outlineLookupMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gradeview_outline_lookup_misses_total",
		Help: "Outline leaves annotated with the default mastery because no topic matched",
	})

	// outlineOrphans counts outline rows dropped for a missing parent.
	outlineOrphans = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gradeview_outline_orphans_total",
		Help: "Outline rows dropped because their parent id does not exist",
	})

	// rosterFetchDuration tracks how long fetching every student record takes.
	rosterFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gradeview_roster_fetch_duration_seconds",
		Help:    "Time to fetch all roster score records",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
	})

	// reportRequests counts report computations by operation.
	reportRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gradeview_report_requests_total",
		Help: "Report computations by operation and result",
	}, []string{"operation", "result"})
)

func observe(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	reportRequests.WithLabelValues(operation, result).Inc()
}
