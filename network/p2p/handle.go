package p2p

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/p2p/enode"

	"github.com/onflow/evm-p2p-fetch/model/block"
	"github.com/onflow/evm-p2p-fetch/module/util"
	"github.com/onflow/evm-p2p-fetch/network"
	"github.com/onflow/evm-p2p-fetch/utils/retry"
)

// Handle is a reference to a running node. It stays valid after the node stopped; calls
// then fail with ErrClientUnavailable.
type Handle struct {
	node *Node
}

// FetchClient asks the node for its fetch client. Requests issued through the client are
// cancelled when the node shuts down.
// Expected errors:
//   - ErrClientUnavailable if the node has shut down
//   - context errors if ctx is cancelled first
func (h *Handle) FetchClient(ctx context.Context) (network.FetchClient, error) {
	resp := make(chan network.FetchClient, 1)

	select {
	case h.node.clientRequests <- resp:
	case <-h.node.ShutdownSignal():
		return nil, ErrClientUnavailable
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case client := <-resp:
		return &nodeClient{client: client, done: h.node.ShutdownSignal()}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Self returns the local node record.
func (h *Handle) Self() *enode.Node {
	return h.node.server.Self()
}

// PeerCount returns the number of peers which completed the eth handshake.
func (h *Handle) PeerCount() int {
	return h.node.handler.Peers().Len()
}

// Done is closed once the node has shut down.
func (h *Handle) Done() <-chan struct{} {
	return h.node.Done()
}

// nodeClient binds requests to the lifetime of the node. Once the node is gone requests fail
// with a permanent ErrClientUnavailable, retrying them cannot succeed.
type nodeClient struct {
	client network.FetchClient
	done   <-chan struct{}
}

func (c *nodeClient) GetBlockHeaders(ctx context.Context, req network.HeadersRequest) (network.PeerResponse[[]*types.Header], error) {
	ctx, cancel := util.WithDone(ctx, c.done)
	defer cancel()

	res, err := c.client.GetBlockHeaders(ctx, req)
	if err != nil && util.CheckClosed(c.done) {
		return res, retry.Permanent(ErrClientUnavailable)
	}
	return res, err
}

func (c *nodeClient) GetBlockBodies(ctx context.Context, hashes []common.Hash) (network.PeerResponse[[]*block.Body], error) {
	ctx, cancel := util.WithDone(ctx, c.done)
	defer cancel()

	res, err := c.client.GetBlockBodies(ctx, hashes)
	if err != nil && util.CheckClosed(c.done) {
		return res, retry.Permanent(ErrClientUnavailable)
	}
	return res, err
}

func (c *nodeClient) ReportBadPeer(peer enode.ID) {
	c.client.ReportBadPeer(peer)
}
