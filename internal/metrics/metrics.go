// Package metrics exposes Prometheus collectors for reconciliation runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rl1809/sales-reconciler/internal/core/domain"
)

const namespace = "reconciler"

type Metrics struct {
	batches        *prometheus.CounterVec
	sales          *prometheus.CounterVec
	resupplyOrders prometheus.Counter
	unresolved     prometheus.Counter
	deltaRows      prometheus.Histogram
	duration       prometheus.Histogram
}

// New registers the collectors with reg. Pass prometheus.NewRegistry() in tests
// to avoid clashing with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Reconciliation batches by outcome.",
		}, []string{"outcome"}),
		sales: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_processed_total",
			Help:      "Processed sales by fulfillment result.",
		}, []string{"result"}),
		resupplyOrders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resupply_orders_total",
			Help:      "Resupply orders committed.",
		}),
		unresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unresolved_supplier_orders_total",
			Help:      "Resupply orders committed without a resolved supplier.",
		}),
		deltaRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inventory_delta_rows",
			Help:      "Inventory rows written per committed batch.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time of a reconciliation batch.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.batches, m.sales, m.resupplyOrders, m.unresolved, m.deltaRows, m.duration)
	return m
}

// ObserveCommitted records a batch that was committed.
func (m *Metrics) ObserveCommitted(result *domain.BatchResult, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues("committed").Inc()
	m.sales.WithLabelValues("fulfilled").Add(float64(result.Summary.Fulfilled))
	m.sales.WithLabelValues("stockout").Add(float64(result.Summary.Stockouts))
	m.resupplyOrders.Add(float64(len(result.Orders)))
	m.unresolved.Add(float64(result.Summary.UnresolvedSuppliers))
	m.deltaRows.Observe(float64(len(result.Delta)))
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveEmpty(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues("empty").Inc()
	m.duration.Observe(elapsed.Seconds())
}

// ObserveSkipped records a run that found another batch holding the lock.
func (m *Metrics) ObserveSkipped() {
	if m == nil {
		return
	}
	m.batches.WithLabelValues("skipped").Inc()
}

func (m *Metrics) ObserveFailed(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues("failed").Inc()
	m.duration.Observe(elapsed.Seconds())
}
