package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes counters/histograms for the booking and payment flows.
type Metrics struct {
	bookingsTotal     *prometheus.CounterVec
	webhookTotal      *prometheus.CounterVec
	summarizerLatency *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medibook",
			Subsystem: "appointments",
			Name:      "bookings_total",
			Help:      "Total booking attempts by outcome",
		}, []string{"outcome"}),
		webhookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medibook",
			Subsystem: "payments",
			Name:      "webhook_total",
			Help:      "Total Razorpay webhook deliveries by result",
		}, []string{"result"}),
		summarizerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medibook",
			Subsystem: "analysis",
			Name:      "summarizer_latency_seconds",
			Help:      "Latency of medical report summarization calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.webhookTotal, m.summarizerLatency)
	return m
}

func (m *Metrics) BookingObserved(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) WebhookObserved(result string) {
	if m == nil {
		return
	}
	m.webhookTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) SummarizerObserved(status string, seconds float64) {
	if m == nil {
		return
	}
	m.summarizerLatency.WithLabelValues(status).Observe(seconds)
}
