package metrics

import "github.com/prometheus/client_golang/prometheus"

// Order sources.
const (
	SourceClient = "client"
	SourceServer = "server"
)

// CheckoutMetrics counts order commits and rejections.
type CheckoutMetrics struct {
	committed      *prometheus.CounterVec
	partialCommits prometheus.Counter
	rejections     *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	committed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_orders_committed_total",
		Help: "Orders written to the store.",
	}, []string{"source"})
	partial := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_partial_commits_total",
		Help: "Orders written whose cart could not be cleared.",
	})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_rejections_total",
		Help: "Checkout attempts rejected before any write, by error code.",
	}, []string{"reason"})
	reg.MustRegister(committed, partial, rejections)
	return &CheckoutMetrics{
		committed:      committed,
		partialCommits: partial,
		rejections:     rejections,
	}
}

func (c *CheckoutMetrics) IncCommitted(source string) {
	if c == nil || c.committed == nil {
		return
	}
	c.committed.WithLabelValues(normalizeLabel(source)).Inc()
}

func (c *CheckoutMetrics) IncPartialCommit() {
	if c == nil || c.partialCommits == nil {
		return
	}
	c.partialCommits.Inc()
}

func (c *CheckoutMetrics) IncRejection(reason string) {
	if c == nil || c.rejections == nil {
		return
	}
	c.rejections.WithLabelValues(normalizeLabel(reason)).Inc()
}
