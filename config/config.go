package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	// FileName is the name of the configuration file inside a data directory.
	FileName = "p2p-fetch.toml"
	// EnvPrefix prefixes environment variables overriding configuration keys,
	// e.g. P2P_FETCH_PEERS_TRUSTED_NODES_ONLY.
	EnvPrefix = "P2P_FETCH"
)

// configuration keys
const (
	keyTrustedNodes     = "peers.trusted_nodes"
	keyTrustedNodesOnly = "peers.trusted_nodes_only"
	keyMaxPeers         = "peers.max_peers"
)

// DefaultMaxPeers bounds the number of peer connections of the fetch node.
const DefaultMaxPeers = 50

// Config is the persisted node configuration.
type Config struct {
	Peers PeersConfig `mapstructure:"peers"`
}

// PeersConfig is the persisted [peers] section.
type PeersConfig struct {
	// TrustedNodes holds enode URLs or ENR records of trusted peers.
	TrustedNodes []string `mapstructure:"trusted_nodes"`
	// TrustedNodesOnly restricts connections to trusted peers.
	TrustedNodesOnly bool `mapstructure:"trusted_nodes_only"`
	// MaxPeers is the maximum number of connected peers.
	MaxPeers int `mapstructure:"max_peers"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Peers: PeersConfig{
			TrustedNodes:     []string{},
			TrustedNodesOnly: false,
			MaxPeers:         DefaultMaxPeers,
		},
	}
}

func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()
	v.SetDefault(keyTrustedNodes, defaults.Peers.TrustedNodes)
	v.SetDefault(keyTrustedNodesOnly, defaults.Peers.TrustedNodesOnly)
	v.SetDefault(keyMaxPeers, defaults.Peers.MaxPeers)
}

// Load reads the TOML configuration at path. A missing file yields the default configuration;
// environment variables prefixed with EnvPrefix override file values in both cases.
// Expected errors:
//   - ConfigurationError if the file exists but cannot be read or decoded
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, NewConfigurationErrorf("could not read config file %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
			// fall back to defaults
		default:
			return nil, NewConfigurationErrorf("could not access config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, NewConfigurationErrorf("could not decode config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) String() string {
	return fmt.Sprintf("peers: trusted=%d trusted_only=%t max_peers=%d",
		len(c.Peers.TrustedNodes), c.Peers.TrustedNodesOnly, c.Peers.MaxPeers)
}
