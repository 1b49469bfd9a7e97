package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.BookingObserved("booked")
	m.BookingObserved("slot_conflict")
	m.WebhookObserved("processed")
	m.SummarizerObserved("ok", 0.7)
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.BookingObserved("booked")
	m.WebhookObserved("processed")
	m.SummarizerObserved("error", 0.1)
}
