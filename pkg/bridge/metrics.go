package bridge

import (
	"github.com/ZentaChain/zentalk-toxbridge/pkg/filetransfer"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the prometheus collectors of one bridge
type Metrics struct {
	Requests  *prometheus.CounterVec
	Events    *prometheus.CounterVec
	Malformed *prometheus.CounterVec
	Friends   prometheus.Gauge
	Confs     prometheus.Gauge
	Transfers *prometheus.GaugeVec
	Sessions  prometheus.Gauge
	Iteration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toxbridge",
			Name:      "requests_total",
			Help:      "Requests executed, by request and response name.",
		}, []string{"request", "response"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toxbridge",
			Name:      "events_total",
			Help:      "Events published to sessions, by name.",
		}, []string{"event"}),
		Malformed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toxbridge",
			Name:      "malformed_requests_total",
			Help:      "Client frames rejected as malformed, by reason.",
		}, []string{"reason"}),
		Friends: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "toxbridge",
			Name:      "friends",
			Help:      "Number of friends.",
		}),
		Confs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "toxbridge",
			Name:      "conferences",
			Help:      "Number of conferences.",
		}),
		Transfers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "toxbridge",
			Name:      "file_transfers",
			Help:      "Live file transfers, by state.",
		}, []string{"state"}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "toxbridge",
			Name:      "sessions",
			Help:      "Attached client sessions.",
		}),
		Iteration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "toxbridge",
			Name:      "iteration_seconds",
			Help:      "Duration of one network stack iteration.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.Events, m.Malformed, m.Friends, m.Confs, m.Transfers, m.Sessions, m.Iteration)
	}
	return m
}

var transferStates = []filetransfer.State{filetransfer.Requested, filetransfer.Active, filetransfer.Paused}

func (n *Node) observe() {
	n.metrics.Friends.Set(float64(n.friends.Count()))
	n.metrics.Confs.Set(float64(n.confs.Count()))
	for _, s := range transferStates {
		n.metrics.Transfers.WithLabelValues(s.String()).Set(float64(n.files.Count(s)))
	}
}
