package gelf

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what a UDPWriter hands to the socket.  A nil *Metrics
// records nothing.
type Metrics struct {
	messages  *prometheus.CounterVec
	datagrams prometheus.Counter
	bytes     prometheus.Counter
	failures  *prometheus.CounterVec
}

// NewMetrics builds unregistered collectors under the given namespace;
// pass the result to Register.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gelf_messages_sent_total",
			Help:      "GELF messages handed to the socket, by how they were sent",
		}, []string{"mode"}), // single|chunked
		datagrams: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gelf_datagrams_sent_total",
			Help:      "UDP datagrams written, chunks included",
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gelf_bytes_sent_total",
			Help:      "Bytes written to the socket, chunk headers included",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gelf_send_failures_total",
			Help:      "GELF messages that could not be sent, by reason",
		}, []string{"reason"}), // encode|oversized|transport
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.messages, m.datagrams, m.bytes, m.failures} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) sent(mode string, datagrams, bytes int) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(mode).Inc()
	m.datagrams.Add(float64(datagrams))
	m.bytes.Add(float64(bytes))
}

func (m *Metrics) failed(reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(reason).Inc()
}
