package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CatalogLoads counts scheme lists read from the metadata store by scope.
	CatalogLoads *prometheus.CounterVec
	// ResolutionsTotal counts cart resolutions by cart-level offer status.
	ResolutionsTotal *prometheus.CounterVec
	// SelectionsTotal counts remembered scheme selections by level and outcome.
	SelectionsTotal *prometheus.CounterVec
	// ScheduleSplits counts installment splits by path (flat, deposit, unavailable).
	ScheduleSplits *prometheus.CounterVec
	// PlanClosures counts manual plan closings by outcome.
	PlanClosures *prometheus.CounterVec
	// JobsProcessed counts background task executions by type and outcome.
	JobsProcessed *prometheus.CounterVec
	// JobDuration records task handler latency in milliseconds.
	JobDuration *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CatalogLoads = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_loads_total",
			Help:      "Count of scheme lists loaded from the metadata store.",
		}, []string{"scope"}))
		ResolutionsTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_resolutions_total",
			Help:      "Count of cart scheme resolutions by cart-level offer status.",
		}, []string{"offer"}))
		SelectionsTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheme_selections_total",
			Help:      "Count of shopper scheme selections by level and result.",
		}, []string{"level", "result"}))
		ScheduleSplits = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "installment_splits_total",
			Help:      "Count of installment schedule computations by path.",
		}, []string{"path"}))
		PlanClosures = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_closures_total",
			Help:      "Count of manual plan closings by result.",
		}, []string{"result"}))
		JobsProcessed = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_processed_total",
			Help:      "Count of background task executions by type and result.",
		}, []string{"task", "result"}))
		JobDuration = registerOrReuse(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_ms",
			Help:      "Latency of background task handlers in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		}, []string{"task"}))
	})
}

// ObserveSplit records the path a schedule computation took.
func ObserveSplit(path string) {
	if ScheduleSplits != nil {
		ScheduleSplits.WithLabelValues(path).Inc()
	}
}

// ObserveSelection records a remembered selection attempt.
func ObserveSelection(level string, accepted bool) {
	if SelectionsTotal == nil {
		return
	}
	result := "accepted"
	if !accepted {
		result = "rejected"
	}
	SelectionsTotal.WithLabelValues(level, result).Inc()
}
