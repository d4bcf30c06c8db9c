package p2p

import (
	"context"
	"time"

	devp2p "github.com/ethereum/go-ethereum/p2p"
	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/rs/zerolog"

	"github.com/onflow/evm-p2p-fetch/module/component"
	"github.com/onflow/evm-p2p-fetch/module/irrecoverable"
	"github.com/onflow/evm-p2p-fetch/module/util"
	"github.com/onflow/evm-p2p-fetch/network"
	"github.com/onflow/evm-p2p-fetch/network/p2p/eth"
)

const peerLogInterval = 30 * time.Second

// Node runs a devp2p server as a component. Its worker owns the server: it starts it,
// hands out the fetch client and stops the server once the component is shut down.
type Node struct {
	*component.ComponentManager
	log            zerolog.Logger
	server         *devp2p.Server
	handler        *eth.Handler
	client         *eth.Client
	dialCandidates enode.Iterator
	clientRequests chan chan network.FetchClient
}

func newNode(log zerolog.Logger, server *devp2p.Server, handler *eth.Handler, client *eth.Client, dialCandidates enode.Iterator) *Node {
	n := &Node{
		log:            log.With().Str("component", "p2p-node").Logger(),
		server:         server,
		handler:        handler,
		client:         client,
		dialCandidates: dialCandidates,
		clientRequests: make(chan chan network.FetchClient),
	}
	n.ComponentManager = component.NewComponentManager(n.serve)
	return n
}

func (n *Node) serve(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	if err := n.server.Start(); err != nil {
		if n.dialCandidates != nil {
			n.dialCandidates.Close()
		}
		ctx.Throw(NewNetworkErrorf("could not start p2p server: %w", err))
	}
	defer n.server.Stop()
	defer n.handler.Close()

	n.log.Info().
		Str("enode", n.server.Self().URLv4()).
		Str("listen_addr", n.server.ListenAddr).
		Msg("p2p node started")
	ready()

	ticker := time.NewTicker(peerLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			n.log.Info().Msg("stopping p2p node")
			return
		case resp := <-n.clientRequests:
			resp <- n.client
		case <-ticker.C:
			n.log.Debug().
				Int("peers", n.server.PeerCount()).
				Int("eth_peers", n.handler.Peers().Len()).
				Msg("peer status")
		}
	}
}

// Launch starts the node in the background and returns a handle to it as soon as the
// server is listening. It does not wait for peers. The node stops when ctx is cancelled.
// Expected errors:
//   - NetworkError if the server could not be started
//   - context errors if ctx is cancelled before the server was started
func Launch(ctx context.Context, node *Node) (*Handle, error) {
	signalerCtx, errChan := irrecoverable.WithSignaler(ctx)
	node.Start(signalerCtx)

	select {
	case <-node.Ready():
	case err := <-errChan:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	go func() {
		if err := util.WaitError(errChan, node.Done()); err != nil {
			node.log.Error().Err(err).Msg("p2p node failed")
		}
	}()

	return &Handle{node: node}, nil
}
