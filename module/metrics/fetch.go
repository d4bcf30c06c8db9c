package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/onflow/evm-p2p-fetch/module"
)

// BlockFetchCollector reports peer and request metrics of the fetch tool.
type BlockFetchCollector struct {
	peers             prometheus.Gauge
	handshakeFailures prometheus.Counter
	requestsSent      *prometheus.CounterVec
	responses         *prometheus.CounterVec
	retries           *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
}

var _ module.BlockFetchMetrics = (*BlockFetchCollector)(nil)

// NewBlockFetchCollector creates the collectors and registers them with registerer.
func NewBlockFetchCollector(registerer prometheus.Registerer) *BlockFetchCollector {
	factory := promauto.With(registerer)

	return &BlockFetchCollector{
		peers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceNetwork,
			Subsystem: subsystemPeers,
			Name:      "connected",
			Help:      "number of peers which completed the eth handshake",
		}),
		handshakeFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceNetwork,
			Subsystem: subsystemPeers,
			Name:      "handshake_failures_total",
			Help:      "number of failed eth handshakes",
		}),
		requestsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceFetch,
			Subsystem: subsystemRequests,
			Name:      "sent_total",
			Help:      "number of requests sent to peers",
		}, []string{LabelKind}),
		responses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceFetch,
			Subsystem: subsystemRequests,
			Name:      "completed_total",
			Help:      "number of completed requests by outcome",
		}, []string{LabelKind, LabelOutcome}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceFetch,
			Subsystem: subsystemRequests,
			Name:      "retries_total",
			Help:      "number of scheduled retries",
		}, []string{LabelKind}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespaceFetch,
			Subsystem: subsystemRequests,
			Name:      "duration_seconds",
			Help:      "round trip time of answered requests",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{LabelKind}),
	}
}

func (c *BlockFetchCollector) PeerConnected() {
	c.peers.Inc()
}

func (c *BlockFetchCollector) PeerDisconnected() {
	c.peers.Dec()
}

func (c *BlockFetchCollector) HandshakeFailed() {
	c.handshakeFailures.Inc()
}

func (c *BlockFetchCollector) RequestSent(kind string) {
	c.requestsSent.WithLabelValues(kind).Inc()
}

func (c *BlockFetchCollector) ResponseReceived(kind string, duration time.Duration) {
	c.responses.WithLabelValues(kind, OutcomeSuccess).Inc()
	c.requestDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (c *BlockFetchCollector) RequestFailed(kind string) {
	c.responses.WithLabelValues(kind, OutcomeFailure).Inc()
}

func (c *BlockFetchCollector) RetryScheduled(kind string) {
	c.retries.WithLabelValues(kind).Inc()
}
