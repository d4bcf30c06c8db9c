package module

import (
	"time"
)

// NetworkMetrics tracks the state of the devp2p node.
type NetworkMetrics interface {
	// PeerConnected is called after a peer completed the eth handshake.
	PeerConnected()

	// PeerDisconnected is called when a handshaked peer left.
	PeerDisconnected()

	// HandshakeFailed is called when the eth handshake with a peer failed.
	HandshakeFailed()
}

// FetchMetrics tracks requests issued through the fetch client and the retry loop around them.
type FetchMetrics interface {
	// RequestSent is called when a request of the given kind was handed to a peer.
	RequestSent(kind string)

	// ResponseReceived records the round trip of a request which a peer answered.
	ResponseReceived(kind string, duration time.Duration)

	// RequestFailed is called when a request failed, timed out or its response was rejected.
	RequestFailed(kind string)

	// RetryScheduled is called before the retry loop waits for the next attempt.
	RetryScheduled(kind string)
}

// BlockFetchMetrics combines all metrics reported by the fetch tool.
type BlockFetchMetrics interface {
	NetworkMetrics
	FetchMetrics
}
