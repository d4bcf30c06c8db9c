package eth

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/p2p/enode"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/onflow/evm-p2p-fetch/model/block"
	"github.com/onflow/evm-p2p-fetch/module"
	"github.com/onflow/evm-p2p-fetch/module/metrics"
	"github.com/onflow/evm-p2p-fetch/network"
)

const (
	// DefaultRequestTimeout bounds the wait for a single response once the request was sent.
	DefaultRequestTimeout = 10 * time.Second

	// penaltyCacheSize is the number of misbehaving peers remembered by the client.
	penaltyCacheSize = 256
)

// Client implements network.FetchClient on top of the handler's peer set. Every request is
// sent to one idle peer; peers which failed a request are avoided by later requests as long
// as other peers are idle.
type Client struct {
	log       zerolog.Logger
	peers     *PeerSet
	metrics   module.FetchMetrics
	penalized *lru.Cache[enode.ID, struct{}]
	timeout   time.Duration
}

var _ network.FetchClient = (*Client)(nil)

func NewClient(log zerolog.Logger, peers *PeerSet, metrics module.FetchMetrics, timeout time.Duration) (*Client, error) {
	penalized, err := lru.New[enode.ID, struct{}](penaltyCacheSize)
	if err != nil {
		return nil, fmt.Errorf("could not create penalty cache: %w", err)
	}
	return &Client{
		log:       log.With().Str("component", "fetch-client").Logger(),
		peers:     peers,
		metrics:   metrics,
		penalized: penalized,
		timeout:   timeout,
	}, nil
}

func (c *Client) GetBlockHeaders(ctx context.Context, req network.HeadersRequest) (network.PeerResponse[[]*types.Header], error) {
	return fetch(ctx, c, metrics.KindHeaders, func(ctx context.Context, peer *Peer) ([]*types.Header, error) {
		return peer.RequestHeaders(ctx, GetBlockHeadersRequest{
			Origin:  req.Origin,
			Amount:  req.Amount,
			Skip:    req.Skip,
			Reverse: req.Reverse,
		})
	})
}

func (c *Client) GetBlockBodies(ctx context.Context, hashes []common.Hash) (network.PeerResponse[[]*block.Body], error) {
	return fetch(ctx, c, metrics.KindBodies, func(ctx context.Context, peer *Peer) ([]*block.Body, error) {
		return peer.RequestBodies(ctx, hashes)
	})
}

func (c *Client) ReportBadPeer(peer enode.ID) {
	c.penalized.Add(peer, struct{}{})
	c.log.Debug().Str("peer", peer.TerminalString()).Msg("peer penalized")
}

func (c *Client) isPenalized(peer enode.ID) bool {
	return c.penalized.Contains(peer)
}

func fetch[T any](ctx context.Context, c *Client, kind string, send func(context.Context, *Peer) (T, error)) (network.PeerResponse[T], error) {
	var res network.PeerResponse[T]

	if c.peers.Len() == 0 {
		c.log.Info().Str("kind", kind).Msg("no peers connected yet, waiting for an idle peer")
	}
	peer, release, err := c.peers.Acquire(ctx, c.isPenalized)
	if err != nil {
		return res, fmt.Errorf("no peer available: %w", err)
	}
	defer release()
	res.Peer = peer.ID()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.metrics.RequestSent(kind)
	start := time.Now()
	data, err := send(reqCtx, peer)
	if err != nil {
		c.metrics.RequestFailed(kind)
		if ctx.Err() == nil {
			c.ReportBadPeer(peer.ID())
		}
		return res, fmt.Errorf("%s request to peer %s failed: %w", kind, peer.ID().TerminalString(), err)
	}
	c.metrics.ResponseReceived(kind, time.Since(start))

	res.Data = data
	return res, nil
}
