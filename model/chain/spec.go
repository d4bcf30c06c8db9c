package chain

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/ethereum/go-ethereum/params"

	"github.com/onflow/evm-p2p-fetch/network/enodes"
)

// Spec describes the chain a node joins: how it identifies itself during the
// eth handshake and where it finds its first peers.
type Spec interface {
	// Name is the short name of the chain, used for data directories and logging.
	Name() string
	// NetworkID is the eth protocol network identifier.
	NetworkID() uint64
	// Config returns the fork schedule of the chain.
	Config() *params.ChainConfig
	// Genesis returns the genesis block of the chain.
	Genesis() *types.Block
	// Bootnodes returns the nodes used to seed discovery. It may be empty.
	Bootnodes() ([]*enode.Node, error)
	// DNSNetworks returns EIP-1459 tree URLs serving nodes of the chain. It may be empty.
	DNSNetworks() []string
}

// GenesisSpec is a Spec backed by a genesis definition.
type GenesisSpec struct {
	name      string
	networkID uint64
	genesis   *core.Genesis
	bootnodes []string

	blockOnce sync.Once
	block     *types.Block
}

var _ Spec = (*GenesisSpec)(nil)

// NewGenesisSpec returns a Spec for the given genesis. The network ID is taken from the
// genesis chain ID.
func NewGenesisSpec(name string, genesis *core.Genesis, bootnodes []string) (*GenesisSpec, error) {
	if genesis.Config == nil || genesis.Config.ChainID == nil {
		return nil, fmt.Errorf("genesis of chain %s has no chain id", name)
	}
	return &GenesisSpec{
		name:      name,
		networkID: genesis.Config.ChainID.Uint64(),
		genesis:   genesis,
		bootnodes: bootnodes,
	}, nil
}

func (s *GenesisSpec) Name() string {
	return s.name
}

func (s *GenesisSpec) NetworkID() uint64 {
	return s.networkID
}

func (s *GenesisSpec) Config() *params.ChainConfig {
	return s.genesis.Config
}

func (s *GenesisSpec) Genesis() *types.Block {
	s.blockOnce.Do(func() {
		s.block = s.genesis.ToBlock()
	})
	return s.block
}

func (s *GenesisSpec) Bootnodes() ([]*enode.Node, error) {
	return enodes.ParseNodes(s.bootnodes)
}

func (s *GenesisSpec) DNSNetworks() []string {
	url := params.KnownDNSNetwork(s.Genesis().Hash(), "all")
	if url == "" {
		return nil
	}
	return []string{url}
}

// Built-in chains.
const (
	Mainnet = "mainnet"
	Sepolia = "sepolia"
	Holesky = "holesky"
)

// SupportedChains lists the built-in chain names, the first one is the default.
var SupportedChains = []string{Mainnet, Sepolia, Holesky}

// ByName returns a built-in chain spec.
func ByName(name string) (Spec, error) {
	switch name {
	case Mainnet:
		return NewGenesisSpec(name, core.DefaultGenesisBlock(), params.MainnetBootnodes)
	case Sepolia:
		return NewGenesisSpec(name, core.DefaultSepoliaGenesisBlock(), params.SepoliaBootnodes)
	case Holesky:
		return NewGenesisSpec(name, core.DefaultHoleskyGenesisBlock(), params.HoleskyBootnodes)
	default:
		return nil, fmt.Errorf("unknown chain %q", name)
	}
}

// FromGenesisFile loads a chain spec from a genesis JSON file. Custom chains have no
// bootnodes; peers must be provided as trusted peers.
func FromGenesisFile(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read genesis file: %w", err)
	}
	var genesis core.Genesis
	if err := json.Unmarshal(data, &genesis); err != nil {
		return nil, fmt.Errorf("could not decode genesis file %s: %w", path, err)
	}
	return NewGenesisSpec(fmt.Sprintf("chain-%d", genesisChainID(&genesis)), &genesis, nil)
}

func genesisChainID(genesis *core.Genesis) uint64 {
	if genesis.Config == nil || genesis.Config.ChainID == nil {
		return 0
	}
	return genesis.Config.ChainID.Uint64()
}

// Parse resolves a built-in chain name or a path to a genesis file.
func Parse(value string) (Spec, error) {
	for _, name := range SupportedChains {
		if value == name {
			return ByName(name)
		}
	}
	if _, err := os.Stat(value); err != nil {
		return nil, fmt.Errorf("chain %q is neither a built-in chain (%v) nor a readable genesis file", value, SupportedChains)
	}
	return FromGenesisFile(value)
}
