package config

import (
	"github.com/ethereum/go-ethereum/p2p/enode"

	"github.com/onflow/evm-p2p-fetch/network/enodes"
)

// PeerConfig is the peer configuration the network is bootstrapped with.
type PeerConfig struct {
	// TrustedNodes are always allowed to connect and are dialed as static peers
	// in trusted-only mode. Each node ID appears once.
	TrustedNodes []*enode.Node
	// TrustedOnly restricts the node to the trusted set.
	TrustedOnly bool
	// MaxPeers is the maximum number of connected peers.
	MaxPeers int
}

// WithTrustedPeers merges the persisted peer section with trusted peers and the trusted-only flag
// given on the command line. The trusted sets are unioned and the flag is taken from the
// command line.
// Expected errors:
//   - ConfigurationError if a persisted trusted node record is malformed
//   - ErrNoTrustedPeers if trustedOnly is set and the merged trusted set is empty
func (c PeersConfig) WithTrustedPeers(cliPeers []*enode.Node, trustedOnly bool) (PeerConfig, error) {
	persisted, err := enodes.ParseNodes(c.TrustedNodes)
	if err != nil {
		return PeerConfig{}, NewConfigurationErrorf("invalid trusted node in config: %w", err)
	}

	trusted := enodes.Union(persisted, cliPeers)
	if len(trusted) == 0 && trustedOnly {
		return PeerConfig{}, ErrNoTrustedPeers
	}

	maxPeers := c.MaxPeers
	if maxPeers <= 0 {
		maxPeers = DefaultMaxPeers
	}

	return PeerConfig{
		TrustedNodes: trusted,
		TrustedOnly:  trustedOnly,
		MaxPeers:     maxPeers,
	}, nil
}
