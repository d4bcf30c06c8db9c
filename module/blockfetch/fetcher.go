package blockfetch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/onflow/evm-p2p-fetch/model/block"
	"github.com/onflow/evm-p2p-fetch/module"
	"github.com/onflow/evm-p2p-fetch/module/metrics"
	"github.com/onflow/evm-p2p-fetch/network"
	"github.com/onflow/evm-p2p-fetch/utils/retry"
)

// Fetcher downloads single headers and bodies through a fetch client. Every request is
// retried according to the policy; a notice is written to out before each retry.
type Fetcher struct {
	log     zerolog.Logger
	client  network.FetchClient
	policy  retry.Policy
	out     io.Writer
	metrics module.FetchMetrics
}

func NewFetcher(log zerolog.Logger, client network.FetchClient, policy retry.Policy, out io.Writer, metrics module.FetchMetrics) *Fetcher {
	return &Fetcher{
		log:     log.With().Str("component", "block-fetcher").Logger(),
		client:  client,
		policy:  policy,
		out:     out,
		metrics: metrics,
	}
}

// ResolveHash returns the hash of the identified block. A hash identifier is returned as is
// without any request; for a number identifier the header is downloaded first.
// Expected errors:
//   - retry.ExhaustedError if the header could not be downloaded
func (f *Fetcher) ResolveHash(ctx context.Context, id block.Identifier) (common.Hash, error) {
	if hash, ok := id.Hash(); ok {
		return hash, nil
	}

	fmt.Fprintln(f.out, "Block number provided. Downloading header first...")
	header, err := f.Header(ctx, id)
	if err != nil {
		return common.Hash{}, err
	}
	return header.Hash(), nil
}

// Header downloads the header of the identified block.
// Expected errors:
//   - retry.ExhaustedError if no attempt returned the requested header
func (f *Fetcher) Header(ctx context.Context, id block.Identifier) (*types.Header, error) {
	return retry.Do(ctx, f.policy, func(ctx context.Context) (*types.Header, error) {
		return GetSingleHeader(ctx, f.client, id)
	}, f.notify(metrics.KindHeaders, "Error requesting header: %v. Retrying..."))
}

// Body downloads the body of the identified block, resolving a number to its hash first.
// Expected errors:
//   - retry.ExhaustedError if the header or the body could not be downloaded
//   - CountMismatchError if the peer returned other than exactly one body
func (f *Fetcher) Body(ctx context.Context, id block.Identifier) (*block.Body, error) {
	hash, err := f.ResolveHash(ctx, id)
	if err != nil {
		return nil, err
	}

	bodies, err := retry.Do(ctx, f.policy, func(ctx context.Context) ([]*block.Body, error) {
		res, err := f.client.GetBlockBodies(ctx, []common.Hash{hash})
		if err != nil {
			return nil, err
		}
		f.log.Debug().
			Str("peer", res.Peer.TerminalString()).
			Hex("hash", hash[:]).
			Int("bodies", len(res.Data)).
			Msg("received block bodies")
		return res.Data, nil
	}, f.notify(metrics.KindBodies, "Error requesting block: %v. Retrying..."))
	if err != nil {
		return nil, err
	}

	if len(bodies) != 1 {
		return nil, NewCountMismatchError(1, len(bodies))
	}
	return bodies[0], nil
}

func (f *Fetcher) notify(kind string, notice string) retry.NotifyFunc {
	return func(err error, delay time.Duration) {
		f.metrics.RetryScheduled(kind)
		f.log.Debug().Err(err).Str("kind", kind).Dur("delay", delay).Msg("request failed, retrying")
		fmt.Fprintf(f.out, notice+"\n", err)
	}
}

// GetSingleHeader requests exactly one header and checks that it is the identified one.
// Peers answering with a wrong header are reported to the client.
// Expected errors:
//   - CountMismatchError if the peer returned other than exactly one header
//   - InvalidHeaderError if the returned header does not match id
//   - any error of the client's GetBlockHeaders
func GetSingleHeader(ctx context.Context, client network.FetchClient, id block.Identifier) (*types.Header, error) {
	res, err := client.GetBlockHeaders(ctx, network.HeadersRequest{
		Origin: id,
		Amount: 1,
	})
	if err != nil {
		return nil, err
	}

	if len(res.Data) != 1 {
		client.ReportBadPeer(res.Peer)
		return nil, NewCountMismatchError(1, len(res.Data))
	}

	header := res.Data[0]
	if hash, ok := id.Hash(); ok {
		if actual := header.Hash(); actual != hash {
			client.ReportBadPeer(res.Peer)
			return nil, NewInvalidHeaderErrorf(id, "peer returned header %s", actual.Hex())
		}
	}
	if number, ok := id.Number(); ok {
		if header.Number == nil || !header.Number.IsUint64() || header.Number.Uint64() != number {
			client.ReportBadPeer(res.Peer)
			return nil, NewInvalidHeaderErrorf(id, "peer returned header at height %v", header.Number)
		}
	}
	return header, nil
}
