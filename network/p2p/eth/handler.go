package eth

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/core/forkid"
	"github.com/ethereum/go-ethereum/p2p"
	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/rs/zerolog"

	"github.com/onflow/evm-p2p-fetch/config"
	"github.com/onflow/evm-p2p-fetch/model/chain"
	"github.com/onflow/evm-p2p-fetch/module"
	"github.com/onflow/evm-p2p-fetch/network/enodes"
)

// DefaultHandshakeTimeout bounds the status exchange with a new peer.
const DefaultHandshakeTimeout = 5 * time.Second

// responseCodes maps the requests the node answers with an empty list to their response codes.
var responseCodes = map[uint64]uint64{
	GetBlockHeadersMsg:       BlockHeadersMsg,
	GetBlockBodiesMsg:        BlockBodiesMsg,
	GetPooledTransactionsMsg: PooledTransactionsMsg,
	GetReceiptsMsg:           ReceiptsMsg,
}

// Handler runs the eth protocol for every connected peer. It registers handshaked peers in its
// peer set and routes responses to the requests waiting for them. The node announces the
// genesis block as its head and serves no chain data.
type Handler struct {
	log     zerolog.Logger
	metrics module.NetworkMetrics
	peers   *PeerSet

	status           StatusPacket
	forkFilter       forkid.Filter
	trusted          map[enode.ID]struct{}
	trustedOnly      bool
	handshakeTimeout time.Duration
}

func NewHandler(log zerolog.Logger, spec chain.Spec, peerConfig config.PeerConfig, metrics module.NetworkMetrics) *Handler {
	genesis := spec.Genesis()

	return &Handler{
		log:     log.With().Str("component", "eth-handler").Logger(),
		metrics: metrics,
		peers:   NewPeerSet(),
		status: StatusPacket{
			ProtocolVersion: ETH68,
			NetworkID:       spec.NetworkID(),
			TD:              genesis.Difficulty(),
			Head:            genesis.Hash(),
			Genesis:         genesis.Hash(),
			ForkID:          forkid.NewID(spec.Config(), genesis, 0, genesis.Time()),
		},
		forkFilter:       forkid.NewStaticFilter(spec.Config(), genesis),
		trusted:          enodes.IDs(peerConfig.TrustedNodes),
		trustedOnly:      peerConfig.TrustedOnly,
		handshakeTimeout: DefaultHandshakeTimeout,
	}
}

// Peers returns the set of handshaked peers.
func (h *Handler) Peers() *PeerSet {
	return h.peers
}

// Protocol returns the eth/68 capability run by the p2p server. dialCandidates may be nil.
func (h *Handler) Protocol(dialCandidates enode.Iterator) p2p.Protocol {
	return p2p.Protocol{
		Name:    ProtocolName,
		Version: ETH68,
		Length:  protocolLength,
		Run:     h.runPeer,
		NodeInfo: func() interface{} {
			return &h.status
		},
		DialCandidates: dialCandidates,
	}
}

// Close releases all requests waiting for a peer.
func (h *Handler) Close() {
	h.peers.Close()
}

func (h *Handler) runPeer(p *p2p.Peer, rw p2p.MsgReadWriter) error {
	if h.trustedOnly {
		if _, ok := h.trusted[p.ID()]; !ok {
			return p2p.DiscUselessPeer
		}
	}

	peer := NewPeer(p, rw, h.log)
	defer peer.close()

	if err := peer.Handshake(&h.status, h.forkFilter, h.handshakeTimeout); err != nil {
		h.metrics.HandshakeFailed()
		peer.log.Debug().Err(err).Msg("eth handshake failed")
		return err
	}

	if err := h.peers.Register(peer); err != nil {
		return err
	}
	defer h.peers.Unregister(peer.ID())

	h.metrics.PeerConnected()
	defer h.metrics.PeerDisconnected()

	peer.log.Debug().
		Str("name", p.Name()).
		Str("remote_addr", p.RemoteAddr().String()).
		Msg("eth peer connected")

	for {
		if err := h.handleMessage(peer); err != nil {
			peer.log.Debug().Err(err).Msg("eth peer disconnected")
			return err
		}
	}
}

func (h *Handler) handleMessage(peer *Peer) error {
	msg, err := peer.rw.ReadMsg()
	if err != nil {
		return err
	}
	defer msg.Discard()

	if msg.Size > maxMessageSize {
		return fmt.Errorf("%w: %v > %v", errMsgTooLarge, msg.Size, maxMessageSize)
	}

	switch msg.Code {
	case StatusMsg:
		return errExtraStatusMsg

	case GetBlockHeadersMsg, GetBlockBodiesMsg, GetPooledTransactionsMsg, GetReceiptsMsg:
		var req requestEnvelope
		if err := msg.Decode(&req); err != nil {
			return fmt.Errorf("%w: message %v: %v", errDecode, msg, err)
		}
		return peer.replyEmpty(responseCodes[msg.Code], req.RequestID)

	case BlockHeadersMsg:
		var res BlockHeadersPacket
		if err := msg.Decode(&res); err != nil {
			return fmt.Errorf("%w: message %v: %v", errDecode, msg, err)
		}
		peer.deliver(res.RequestID, BlockHeadersMsg, res.Headers)

	case BlockBodiesMsg:
		var res BlockBodiesPacket
		if err := msg.Decode(&res); err != nil {
			return fmt.Errorf("%w: message %v: %v", errDecode, msg, err)
		}
		peer.deliver(res.RequestID, BlockBodiesMsg, res.Bodies)

	default:
		// announcements and transactions are of no use to the node
	}
	return nil
}
