package run

import "github.com/prometheus/client_golang/prometheus"

type hookMetrics struct {
	sent    prometheus.Counter
	failed  prometheus.Counter
	dropped prometheus.Counter
}

func newHookMetrics() *hookMetrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sona",
			Subsystem: "hooks",
			Name:      name,
			Help:      help,
		})
	}
	return &hookMetrics{
		sent:    counter("sent_total", "Hook invocations that succeeded"),
		failed:  counter("failed_total", "Hook invocations that returned an error"),
		dropped: counter("dropped_total", "Transcripts dropped because the hook queue was full"),
	}
}

func (m *hookMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.sent, m.failed, m.dropped}
}
