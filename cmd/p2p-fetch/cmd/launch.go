package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/p2p/nat"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/onflow/evm-p2p-fetch/config"
	"github.com/onflow/evm-p2p-fetch/model/chain"
	"github.com/onflow/evm-p2p-fetch/module"
	"github.com/onflow/evm-p2p-fetch/module/blockfetch"
	"github.com/onflow/evm-p2p-fetch/module/irrecoverable"
	"github.com/onflow/evm-p2p-fetch/module/metrics"
	"github.com/onflow/evm-p2p-fetch/module/util"
	"github.com/onflow/evm-p2p-fetch/network/enodes"
	"github.com/onflow/evm-p2p-fetch/network/p2p"
	"github.com/onflow/evm-p2p-fetch/network/p2p/keyutils"
	"github.com/onflow/evm-p2p-fetch/utils/retry"
)

const shutdownTimeout = 5 * time.Second

// session is a running node together with a fetcher bound to it.
type session struct {
	log     zerolog.Logger
	fetcher *blockfetch.Fetcher
	handle  *p2p.Handle
	cancel  context.CancelFunc
	done    []<-chan struct{}
}

// launch loads the node identity and peer configuration, starts the p2p node in the
// background and returns a fetcher using its fetch client. Notices are written to out.
func launch(ctx context.Context, log zerolog.Logger, f Flags, out io.Writer) (*session, error) {
	spec, err := chain.Parse(f.Chain)
	if err != nil {
		return nil, config.NewConfigurationErrorf("invalid --%s: %w", chainFlag, err)
	}

	files, err := resolvePaths(f, spec.Name())
	if err != nil {
		return nil, err
	}

	peerConfig, err := loadPeerConfig(files.Config, f)
	if err != nil {
		return nil, err
	}

	bootnodes, err := enodes.ParseNodes(f.BootNodes)
	if err != nil {
		return nil, config.NewConfigurationErrorf("invalid --%s: %w", bootNodesFlag, err)
	}
	if f.RequestTimeout <= 0 {
		return nil, config.NewConfigurationErrorf("invalid --%s: must be positive, got %v", requestTimeoutFlag, f.RequestTimeout)
	}

	key, err := keyutils.LoadOrGenerateSecretKey(files.SecretKey)
	if err != nil {
		return nil, err
	}

	natm, err := nat.Parse(f.NAT)
	if err != nil {
		return nil, config.NewConfigurationErrorf("invalid --%s: %w", natFlag, err)
	}

	log.Info().
		Str("chain", spec.Name()).
		Str("datadir", files.DataDir).
		Int("trusted_peers", len(peerConfig.TrustedNodes)).
		Bool("trusted_only", peerConfig.TrustedOnly).
		Msg("launching p2p node")

	ctx, cancel := context.WithCancel(ctx)
	s := &session{log: log, cancel: cancel}

	collector, err := s.startMetrics(ctx, f.MetricsPort)
	if err != nil {
		s.shutdown()
		return nil, err
	}

	builder := p2p.NewDefaultNodeBuilder(key, spec)
	if len(bootnodes) > 0 {
		builder.SetBootNodes(bootnodes)
	}
	node, err := builder.
		SetPeerConfig(peerConfig).
		SetRequestTimeout(f.RequestTimeout).
		SetListenAddress(f.Addr, f.Port).
		SetNAT(natm).
		SetDiscovery(p2p.DiscoveryConfig{
			DisableDiscovery:    f.DisableDiscovery,
			DisableDNSDiscovery: f.DisableDNSDiscovery,
			EnableDiscV5:        f.EnableDiscV5,
		}).
		SetLogger(log).
		SetMetrics(collector).
		Build()
	if err != nil {
		s.shutdown()
		return nil, err
	}

	s.handle, err = p2p.Launch(ctx, node)
	if err != nil {
		s.shutdown()
		return nil, err
	}
	s.done = append(s.done, s.handle.Done())

	client, err := s.handle.FetchClient(ctx)
	if err != nil {
		s.shutdown()
		return nil, err
	}

	s.fetcher = blockfetch.NewFetcher(log, client, retry.NewPolicy(f.Retries, f.RetryDelay), out, collector)
	return s, nil
}

// loadPeerConfig merges the peers section of the config file with the peer flags.
func loadPeerConfig(path string, f Flags) (config.PeerConfig, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.PeerConfig{}, err
	}

	cliPeers, err := enodes.ParseNodes(f.TrustedPeers)
	if err != nil {
		return config.PeerConfig{}, config.NewConfigurationErrorf("invalid --%s: %w", trustedPeersFlag, err)
	}

	peerConfig, err := cfg.Peers.WithTrustedPeers(cliPeers, f.TrustedOnly)
	if err != nil {
		return config.PeerConfig{}, err
	}
	if f.MaxPeers > 0 {
		peerConfig.MaxPeers = f.MaxPeers
	}
	return peerConfig, nil
}

// startMetrics starts the metrics server if a port is configured. Without a port metrics
// are discarded.
func (s *session) startMetrics(ctx context.Context, port uint) (module.BlockFetchMetrics, error) {
	if port == 0 {
		return metrics.NewNoopCollector(), nil
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewBlockFetchCollector(registry)
	server := metrics.NewServer(s.log, port, registry)

	signalerCtx, errChan := irrecoverable.WithSignaler(ctx)
	server.Start(signalerCtx)
	select {
	case <-server.Ready():
	case err := <-errChan:
		return nil, fmt.Errorf("could not start metrics server: %w", err)
	}
	s.done = append(s.done, server.Done())
	return collector, nil
}

// shutdown stops the node and the metrics server and waits for them to terminate.
func (s *session) shutdown() {
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, done := range s.done {
		if err := util.WaitClosed(ctx, done); err != nil {
			s.log.Warn().Err(err).Msg("shutdown timed out")
			return
		}
	}
}
