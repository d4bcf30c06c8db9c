package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/onflow/evm-p2p-fetch/config"
	"github.com/onflow/evm-p2p-fetch/model/chain"
	"github.com/onflow/evm-p2p-fetch/network/p2p"
	"github.com/onflow/evm-p2p-fetch/network/p2p/eth"
	"github.com/onflow/evm-p2p-fetch/utils/retry"
)

const (
	chainFlag               = "chain"
	dataDirFlag             = "datadir"
	configFlag              = "config"
	retriesFlag             = "retries"
	retryDelayFlag          = "retry-delay"
	trustedPeersFlag        = "trusted-peers"
	trustedOnlyFlag         = "trusted-only"
	bootNodesFlag           = "bootnodes"
	requestTimeoutFlag      = "request-timeout"
	secretKeyFlag           = "p2p-secret-key"
	addrFlag                = "addr"
	portFlag                = "port"
	natFlag                 = "nat"
	disableDiscoveryFlag    = "disable-discovery"
	disableDNSDiscoveryFlag = "disable-dns-discovery"
	enableDiscV5Flag        = "enable-discv5"
	maxPeersFlag            = "max-peers"
	logLevelFlag            = "loglevel"
	metricsPortFlag         = "metrics-port"
)

// Flags holds the command line options shared by all subcommands.
type Flags struct {
	Chain               string
	DataDir             string
	ConfigPath          string
	Retries             uint
	RetryDelay          time.Duration
	TrustedPeers        []string
	TrustedOnly         bool
	BootNodes           []string
	RequestTimeout      time.Duration
	SecretKeyPath       string
	Addr                string
	Port                uint16
	NAT                 string
	DisableDiscovery    bool
	DisableDNSDiscovery bool
	EnableDiscV5        bool
	MaxPeers            int
	LogLevel            string
	MetricsPort         uint
}

func DefaultFlags() Flags {
	return Flags{
		Chain:          chain.Mainnet,
		Retries:        retry.DefaultMaxAttempts,
		RetryDelay:     retry.DefaultDelay,
		RequestTimeout: eth.DefaultRequestTimeout,
		Addr:           p2p.DefaultListenIP,
		Port:           p2p.DefaultListenPort,
		NAT:            "any",
		LogLevel:       "info",
	}
}

// InitializeFlags registers all flags on fs with the values of f as defaults.
func InitializeFlags(fs *pflag.FlagSet, f *Flags) {
	fs.StringVar(&f.Chain, chainFlag, f.Chain,
		fmt.Sprintf("chain to connect to, one of %v or the path to a genesis file", chain.SupportedChains))
	fs.StringVar(&f.DataDir, dataDirFlag, f.DataDir,
		fmt.Sprintf("data directory holding the node key and config file (default %s)", defaultDataDirHint))
	fs.StringVar(&f.ConfigPath, configFlag, f.ConfigPath,
		fmt.Sprintf("path to the config file (default <datadir>/%s)", config.FileName))
	fs.UintVar(&f.Retries, retriesFlag, f.Retries,
		"number of attempts per request, values below 1 mean a single attempt")
	fs.DurationVar(&f.RetryDelay, retryDelayFlag, f.RetryDelay, "wait between two attempts")
	fs.StringSliceVar(&f.TrustedPeers, trustedPeersFlag, f.TrustedPeers,
		"comma separated enode or enr records of trusted peers")
	fs.BoolVar(&f.TrustedOnly, trustedOnlyFlag, f.TrustedOnly, "connect to trusted peers only")
	fs.StringSliceVar(&f.BootNodes, bootNodesFlag, f.BootNodes,
		"comma separated enode or enr records used instead of the chain's bootnodes")
	fs.DurationVar(&f.RequestTimeout, requestTimeoutFlag, f.RequestTimeout, "time a peer has to answer a single request")
	fs.StringVar(&f.SecretKeyPath, secretKeyFlag, f.SecretKeyPath,
		fmt.Sprintf("path to the node key, generated if missing (default <datadir>/%s)", secretKeyFileName))
	fs.StringVar(&f.Addr, addrFlag, f.Addr, "listen address of the p2p server")
	fs.Uint16Var(&f.Port, portFlag, f.Port, "listen port of the p2p server")
	fs.StringVar(&f.NAT, natFlag, f.NAT, "NAT port mapping mechanism (any|none|upnp|pmp|extip:<IP>)")
	fs.BoolVar(&f.DisableDiscovery, disableDiscoveryFlag, f.DisableDiscovery, "disable the discv4 peer discovery")
	fs.BoolVar(&f.DisableDNSDiscovery, disableDNSDiscoveryFlag, f.DisableDNSDiscovery, "disable the DNS peer discovery")
	fs.BoolVar(&f.EnableDiscV5, enableDiscV5Flag, f.EnableDiscV5, "enable the discv5 peer discovery")
	fs.IntVar(&f.MaxPeers, maxPeersFlag, f.MaxPeers, "maximum number of peers, overrides the config file")
	fs.StringVar(&f.LogLevel, logLevelFlag, f.LogLevel, "log level (panic, fatal, error, warn, info, debug)")
	fs.UintVar(&f.MetricsPort, metricsPortFlag, f.MetricsPort, "port of the prometheus metrics server, 0 disables it")
}

// BindEnv sets every flag not given on the command line from the environment. The variable
// of a flag is its name upper cased with dashes replaced, prefixed with the config env prefix,
// e.g. P2P_FETCH_RETRY_DELAY.
func BindEnv(v *viper.Viper, fs *pflag.FlagSet) error {
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var err error
	fs.VisitAll(func(flag *pflag.Flag) {
		if err != nil || flag.Changed || !v.IsSet(flag.Name) {
			return
		}
		if setErr := fs.Set(flag.Name, v.GetString(flag.Name)); setErr != nil {
			err = fmt.Errorf("invalid value for %s from environment: %w", flag.Name, setErr)
		}
	})
	return err
}
