package eth

import (
	"context"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/p2p/enode"
)

var (
	errPeerSetClosed         = errors.New("peer set closed")
	errPeerAlreadyRegistered = errors.New("peer already registered")
)

// PeerSet tracks the handshaked peers and hands out idle ones to requests. At most one
// request is in flight per peer.
type PeerSet struct {
	mu      sync.Mutex
	peers   map[enode.ID]*Peer
	busy    map[enode.ID]bool
	changed chan struct{}
	closed  bool
}

func NewPeerSet() *PeerSet {
	return &PeerSet{
		peers:   make(map[enode.ID]*Peer),
		busy:    make(map[enode.ID]bool),
		changed: make(chan struct{}),
	}
}

func (ps *PeerSet) Register(p *Peer) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.closed {
		return errPeerSetClosed
	}
	if _, ok := ps.peers[p.ID()]; ok {
		return errPeerAlreadyRegistered
	}
	ps.peers[p.ID()] = p
	ps.busy[p.ID()] = false
	ps.notify()
	return nil
}

func (ps *PeerSet) Unregister(id enode.ID) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	delete(ps.peers, id)
	delete(ps.busy, id)
	ps.notify()
}

func (ps *PeerSet) Len() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.peers)
}

// Close wakes up all waiting Acquire calls and rejects further registrations.
func (ps *PeerSet) Close() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.closed {
		return
	}
	ps.closed = true
	ps.notify()
}

// Acquire blocks until an idle peer is available and marks it busy. Peers for which avoid
// returns true are only handed out when no other peer is idle. The returned release func must
// be called once the request completed.
func (ps *PeerSet) Acquire(ctx context.Context, avoid func(enode.ID) bool) (*Peer, func(), error) {
	for {
		ps.mu.Lock()
		if ps.closed {
			ps.mu.Unlock()
			return nil, nil, errPeerSetClosed
		}
		if peer := ps.pickIdle(avoid); peer != nil {
			ps.busy[peer.ID()] = true
			ps.mu.Unlock()
			return peer, func() { ps.release(peer.ID()) }, nil
		}
		changed := ps.changed
		ps.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
}

// pickIdle must be called with the lock held.
func (ps *PeerSet) pickIdle(avoid func(enode.ID) bool) *Peer {
	var fallback *Peer
	for id, peer := range ps.peers {
		if ps.busy[id] {
			continue
		}
		if avoid != nil && avoid(id) {
			fallback = peer
			continue
		}
		return peer
	}
	return fallback
}

func (ps *PeerSet) release(id enode.ID) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if _, ok := ps.peers[id]; ok {
		ps.busy[id] = false
	}
	ps.notify()
}

// notify wakes up all waiters. It must be called with the lock held.
func (ps *PeerSet) notify() {
	close(ps.changed)
	ps.changed = make(chan struct{})
}
