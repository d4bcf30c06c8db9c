package network

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/p2p/enode"

	"github.com/onflow/evm-p2p-fetch/model/block"
)

// HeadersRequest asks a peer for a run of headers starting at Origin.
type HeadersRequest struct {
	Origin  block.Identifier
	Amount  uint64
	Skip    uint64
	Reverse bool
}

// PeerResponse is the payload of a response together with the peer which served it.
type PeerResponse[T any] struct {
	Peer enode.ID
	Data T
}

// FetchClient issues block data requests to connected peers. Each request is served by a
// single peer. Implementations are safe for concurrent use.
type FetchClient interface {
	// GetBlockHeaders requests headers from one peer. The returned list holds at most
	// req.Amount headers and may be empty if the peer does not know the origin.
	GetBlockHeaders(ctx context.Context, req HeadersRequest) (PeerResponse[[]*types.Header], error)

	// GetBlockBodies requests the bodies of the given block hashes from one peer. Peers may
	// return fewer bodies than requested.
	GetBlockBodies(ctx context.Context, hashes []common.Hash) (PeerResponse[[]*block.Body], error)

	// ReportBadPeer marks a peer whose response was malformed, so that subsequent requests
	// prefer other peers.
	ReportBadPeer(peer enode.ID)
}
