package metrics

import (
	"time"

	"github.com/onflow/evm-p2p-fetch/module"
)

type NoopCollector struct{}

var _ module.BlockFetchMetrics = (*NoopCollector)(nil)

func NewNoopCollector() *NoopCollector {
	nc := &NoopCollector{}
	return nc
}

func (nc *NoopCollector) PeerConnected()                                       {}
func (nc *NoopCollector) PeerDisconnected()                                    {}
func (nc *NoopCollector) HandshakeFailed()                                     {}
func (nc *NoopCollector) RequestSent(kind string)                              {}
func (nc *NoopCollector) ResponseReceived(kind string, duration time.Duration) {}
func (nc *NoopCollector) RequestFailed(kind string)                            {}
func (nc *NoopCollector) RetryScheduled(kind string)                           {}
