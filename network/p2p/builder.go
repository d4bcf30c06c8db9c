package p2p

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	devp2p "github.com/ethereum/go-ethereum/p2p"
	"github.com/ethereum/go-ethereum/p2p/dnsdisc"
	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/ethereum/go-ethereum/p2p/nat"
	"github.com/rs/zerolog"

	"github.com/onflow/evm-p2p-fetch/config"
	"github.com/onflow/evm-p2p-fetch/model/chain"
	"github.com/onflow/evm-p2p-fetch/module"
	"github.com/onflow/evm-p2p-fetch/module/metrics"
	"github.com/onflow/evm-p2p-fetch/network/enodes"
	"github.com/onflow/evm-p2p-fetch/network/p2p/eth"
)

const (
	// ClientName is announced to peers in the devp2p hello message.
	ClientName = "p2p-fetch"
	// ClientVersion is the version announced next to ClientName.
	ClientVersion = "0.1.0"

	DefaultListenIP   = "0.0.0.0"
	DefaultListenPort = 30303
)

// DiscoveryConfig selects the peer discovery mechanisms of the node.
type DiscoveryConfig struct {
	// DisableDiscovery turns off the discv4 table.
	DisableDiscovery bool
	// DisableDNSDiscovery stops dialing nodes from the chain's EIP-1459 trees.
	DisableDNSDiscovery bool
	// EnableDiscV5 additionally runs discv5.
	EnableDiscV5 bool
}

type NodeBuilder interface {
	SetPeerConfig(config.PeerConfig) NodeBuilder
	SetListenAddress(ip string, port uint16) NodeBuilder
	SetNAT(nat.Interface) NodeBuilder
	SetBootNodes([]*enode.Node) NodeBuilder
	SetDiscovery(DiscoveryConfig) NodeBuilder
	SetRequestTimeout(time.Duration) NodeBuilder
	SetLogger(zerolog.Logger) NodeBuilder
	SetMetrics(module.BlockFetchMetrics) NodeBuilder
	Build() (*Node, error)
}

// DefaultNodeBuilder assembles a devp2p server speaking eth/68 for a chain.
type DefaultNodeBuilder struct {
	key            *ecdsa.PrivateKey
	spec           chain.Spec
	peers          config.PeerConfig
	listenAddr     string
	nat            nat.Interface
	bootnodes      []*enode.Node
	discovery      DiscoveryConfig
	requestTimeout time.Duration
	logger         zerolog.Logger
	metrics        module.BlockFetchMetrics
}

func NewDefaultNodeBuilder(key *ecdsa.PrivateKey, spec chain.Spec) NodeBuilder {
	return &DefaultNodeBuilder{
		key:            key,
		spec:           spec,
		listenAddr:     net.JoinHostPort(DefaultListenIP, strconv.Itoa(DefaultListenPort)),
		nat:            nat.Any(),
		requestTimeout: eth.DefaultRequestTimeout,
		logger:         zerolog.Nop(),
		metrics:        metrics.NewNoopCollector(),
	}
}

func (builder *DefaultNodeBuilder) SetPeerConfig(peers config.PeerConfig) NodeBuilder {
	builder.peers = peers
	return builder
}

func (builder *DefaultNodeBuilder) SetListenAddress(ip string, port uint16) NodeBuilder {
	builder.listenAddr = net.JoinHostPort(ip, strconv.Itoa(int(port)))
	return builder
}

// SetNAT sets the port mapping mechanism. A nil interface disables NAT traversal.
func (builder *DefaultNodeBuilder) SetNAT(natm nat.Interface) NodeBuilder {
	builder.nat = natm
	return builder
}

// SetBootNodes overrides the bootnodes of the chain spec.
func (builder *DefaultNodeBuilder) SetBootNodes(nodes []*enode.Node) NodeBuilder {
	builder.bootnodes = nodes
	return builder
}

func (builder *DefaultNodeBuilder) SetDiscovery(discovery DiscoveryConfig) NodeBuilder {
	builder.discovery = discovery
	return builder
}

func (builder *DefaultNodeBuilder) SetRequestTimeout(timeout time.Duration) NodeBuilder {
	builder.requestTimeout = timeout
	return builder
}

func (builder *DefaultNodeBuilder) SetLogger(logger zerolog.Logger) NodeBuilder {
	builder.logger = logger
	return builder
}

func (builder *DefaultNodeBuilder) SetMetrics(metrics module.BlockFetchMetrics) NodeBuilder {
	builder.metrics = metrics
	return builder
}

func (builder *DefaultNodeBuilder) Build() (*Node, error) {
	if builder.key == nil {
		return nil, errors.New("unable to create p2p node: node key not provided")
	}
	if builder.spec == nil {
		return nil, errors.New("unable to create p2p node: chain spec not provided")
	}
	if builder.requestTimeout <= 0 {
		return nil, fmt.Errorf("unable to create p2p node: request timeout must be positive, got %v", builder.requestTimeout)
	}

	bootnodes := builder.bootnodes
	if bootnodes == nil {
		var err error
		bootnodes, err = builder.spec.Bootnodes()
		if err != nil {
			return nil, NewNetworkErrorf("invalid bootnodes of chain %s: %w", builder.spec.Name(), err)
		}
	}

	handler := eth.NewHandler(builder.logger, builder.spec, builder.peers, builder.metrics)
	client, err := eth.NewClient(builder.logger, handler.Peers(), builder.metrics, builder.requestTimeout)
	if err != nil {
		return nil, err
	}

	dialCandidates, err := builder.dialCandidates()
	if err != nil {
		return nil, err
	}

	cfg := builder.serverConfig(bootnodes)
	cfg.Protocols = []devp2p.Protocol{handler.Protocol(dialCandidates)}

	builder.logger.Debug().
		Str("chain", builder.spec.Name()).
		Str("listen_addr", cfg.ListenAddr).
		Int("bootnodes", len(cfg.BootstrapNodes)).
		Strs("trusted_nodes", enodes.URLs(cfg.TrustedNodes)).
		Bool("trusted_only", builder.peers.TrustedOnly).
		Bool("discovery", !cfg.NoDiscovery).
		Bool("dns_discovery", dialCandidates != nil).
		Msg("p2p node configured")

	return newNode(builder.logger, &devp2p.Server{Config: cfg}, handler, client, dialCandidates), nil
}

// serverConfig assembles the devp2p server configuration without protocols. Trusted nodes
// are always dialed. In trusted-only mode every discovery mechanism is off.
func (builder *DefaultNodeBuilder) serverConfig(bootnodes []*enode.Node) devp2p.Config {
	maxPeers := builder.peers.MaxPeers
	if maxPeers <= 0 {
		maxPeers = config.DefaultMaxPeers
	}

	cfg := devp2p.Config{
		PrivateKey:     builder.key,
		MaxPeers:       maxPeers,
		Name:           fmt.Sprintf("%s/v%s", ClientName, ClientVersion),
		ListenAddr:     builder.listenAddr,
		NAT:            builder.nat,
		TrustedNodes:   builder.peers.TrustedNodes,
		StaticNodes:    builder.peers.TrustedNodes,
		BootstrapNodes: bootnodes,
		NoDiscovery:    builder.discovery.DisableDiscovery,
		DiscoveryV5:    builder.discovery.EnableDiscV5,
	}
	if cfg.DiscoveryV5 {
		cfg.BootstrapNodesV5 = bootnodes
	}

	if builder.peers.TrustedOnly {
		cfg.NoDiscovery = true
		cfg.DiscoveryV5 = false
		cfg.BootstrapNodes = nil
		cfg.BootstrapNodesV5 = nil
	}
	return cfg
}

// dialCandidates returns an iterator over the nodes published in the chain's DNS trees, or
// nil if DNS discovery is not used.
func (builder *DefaultNodeBuilder) dialCandidates() (enode.Iterator, error) {
	if builder.peers.TrustedOnly || builder.discovery.DisableDNSDiscovery {
		return nil, nil
	}
	urls := builder.spec.DNSNetworks()
	if len(urls) == 0 {
		return nil, nil
	}

	iter, err := dnsdisc.NewClient(dnsdisc.Config{}).NewIterator(urls...)
	if err != nil {
		return nil, NewNetworkErrorf("could not create dns discovery iterator: %w", err)
	}
	return iter, nil
}
