package eth

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/forkid"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/p2p"
	"github.com/rs/zerolog"

	"github.com/onflow/evm-p2p-fetch/model/block"
)

var (
	errPeerClosed              = errors.New("peer connection closed")
	errNoStatusMsg             = errors.New("no status message")
	errExtraStatusMsg          = errors.New("extra status message")
	errMsgTooLarge             = errors.New("message too long")
	errDecode                  = errors.New("invalid message")
	errProtocolVersionMismatch = errors.New("protocol version mismatch")
	errNetworkIDMismatch       = errors.New("network id mismatch")
	errGenesisMismatch         = errors.New("genesis mismatch")
	errForkIDRejected          = errors.New("fork id rejected")
)

// Peer is a remote node which completed, or is about to complete, the eth handshake.
type Peer struct {
	*p2p.Peer
	rw  p2p.MsgReadWriter
	log zerolog.Logger

	status *StatusPacket

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]*pendingRequest

	closed    chan struct{}
	closeOnce sync.Once
}

type pendingRequest struct {
	code uint64 // expected response code
	resp chan interface{}
}

func NewPeer(p *p2p.Peer, rw p2p.MsgReadWriter, log zerolog.Logger) *Peer {
	return &Peer{
		Peer:    p,
		rw:      rw,
		log:     log.With().Str("peer", p.ID().TerminalString()).Logger(),
		nextID:  rand.Uint64(),
		pending: make(map[uint64]*pendingRequest),
		closed:  make(chan struct{}),
	}
}

// Status returns the status the peer announced during the handshake.
func (p *Peer) Status() *StatusPacket {
	return p.status
}

// Handshake exchanges status messages with the peer and checks that both sides are on the
// same chain.
func (p *Peer) Handshake(local *StatusPacket, filter forkid.Filter, timeout time.Duration) error {
	errc := make(chan error, 2)
	var status StatusPacket

	go func() {
		errc <- p2p.Send(p.rw, StatusMsg, local)
	}()
	go func() {
		errc <- p.readStatus(local, &status, filter)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for i := 0; i < 2; i++ {
		select {
		case err := <-errc:
			if err != nil {
				return err
			}
		case <-timer.C:
			return p2p.DiscReadTimeout
		}
	}
	p.status = &status
	return nil
}

func (p *Peer) readStatus(local *StatusPacket, status *StatusPacket, filter forkid.Filter) error {
	msg, err := p.rw.ReadMsg()
	if err != nil {
		return err
	}
	defer msg.Discard()

	if msg.Code != StatusMsg {
		return fmt.Errorf("%w: first msg has code %x (!= %x)", errNoStatusMsg, msg.Code, StatusMsg)
	}
	if msg.Size > maxMessageSize {
		return fmt.Errorf("%w: %v > %v", errMsgTooLarge, msg.Size, maxMessageSize)
	}
	if err := msg.Decode(status); err != nil {
		return fmt.Errorf("%w: message %v: %v", errDecode, msg, err)
	}
	if status.ProtocolVersion != local.ProtocolVersion {
		return fmt.Errorf("%w: %d (!= %d)", errProtocolVersionMismatch, status.ProtocolVersion, local.ProtocolVersion)
	}
	if status.NetworkID != local.NetworkID {
		return fmt.Errorf("%w: %d (!= %d)", errNetworkIDMismatch, status.NetworkID, local.NetworkID)
	}
	if status.Genesis != local.Genesis {
		return fmt.Errorf("%w: %x (!= %x)", errGenesisMismatch, status.Genesis, local.Genesis)
	}
	if err := filter(status.ForkID); err != nil {
		return fmt.Errorf("%w: %v", errForkIDRejected, err)
	}
	return nil
}

// RequestHeaders sends a GetBlockHeaders request and waits for the matching response.
func (p *Peer) RequestHeaders(ctx context.Context, req GetBlockHeadersRequest) ([]*types.Header, error) {
	return request[[]*types.Header](ctx, p, GetBlockHeadersMsg, BlockHeadersMsg, func(id uint64) interface{} {
		return &GetBlockHeadersPacket{RequestID: id, Request: req}
	})
}

// RequestBodies sends a GetBlockBodies request and waits for the matching response.
func (p *Peer) RequestBodies(ctx context.Context, hashes []common.Hash) ([]*block.Body, error) {
	return request[[]*block.Body](ctx, p, GetBlockBodiesMsg, BlockBodiesMsg, func(id uint64) interface{} {
		return &GetBlockBodiesPacket{RequestID: id, Hashes: hashes}
	})
}

func request[T any](ctx context.Context, p *Peer, code uint64, respCode uint64, packet func(id uint64) interface{}) (T, error) {
	var zero T

	id, resp := p.track(respCode)
	defer p.untrack(id)

	if err := p2p.Send(p.rw, code, packet(id)); err != nil {
		return zero, fmt.Errorf("could not send request: %w", err)
	}

	select {
	case res := <-resp:
		return res.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-p.closed:
		return zero, errPeerClosed
	}
}

func (p *Peer) track(respCode uint64) (uint64, <-chan interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	req := &pendingRequest{
		code: respCode,
		resp: make(chan interface{}, 1),
	}
	p.pending[id] = req
	return id, req.resp
}

func (p *Peer) untrack(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pending, id)
}

// deliver hands a response to the request waiting for it. Responses nobody waits for are dropped.
func (p *Peer) deliver(id uint64, code uint64, payload interface{}) {
	p.mu.Lock()
	req, ok := p.pending[id]
	if ok && req.code == code {
		delete(p.pending, id)
	}
	p.mu.Unlock()

	if !ok || req.code != code {
		p.log.Debug().Uint64("request_id", id).Uint64("code", code).Msg("dropping unsolicited response")
		return
	}
	req.resp <- payload
}

// replyEmpty answers a request with an empty list. The node serves no chain data.
func (p *Peer) replyEmpty(code uint64, id uint64) error {
	return p2p.Send(p.rw, code, &emptyResponse{RequestID: id})
}

func (p *Peer) close() {
	p.closeOnce.Do(func() {
		close(p.closed)
	})
}
