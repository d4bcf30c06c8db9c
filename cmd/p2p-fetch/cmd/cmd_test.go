package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onflow/evm-p2p-fetch/config"
	"github.com/onflow/evm-p2p-fetch/utils/unittest"
)

// parseFlags registers fresh flags on a new set and parses args. The returned Flags are the
// ones bound to the set, so later changes made through the set are visible.
func parseFlags(t *testing.T, args ...string) (*Flags, *pflag.FlagSet) {
	f := DefaultFlags()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	InitializeFlags(fs, &f)
	require.NoError(t, fs.Parse(args))
	return &f, fs
}

func TestFlags_Defaults(t *testing.T) {
	f, _ := parseFlags(t)

	assert.Equal(t, "mainnet", f.Chain)
	assert.Equal(t, uint(5), f.Retries)
	assert.Equal(t, time.Second, f.RetryDelay)
	assert.Equal(t, "0.0.0.0", f.Addr)
	assert.Equal(t, uint16(30303), f.Port)
	assert.Equal(t, "any", f.NAT)
	assert.False(t, f.TrustedOnly)
	assert.Empty(t, f.TrustedPeers)
	assert.Empty(t, f.BootNodes)
	assert.Equal(t, 10*time.Second, f.RequestTimeout)
	assert.Equal(t, uint(0), f.MetricsPort)
}

func TestFlags_Parse(t *testing.T) {
	first, second := unittest.NodeFixture(t).URLv4(), unittest.NodeFixture(t).URLv4()

	f, _ := parseFlags(t,
		"--chain", "sepolia",
		"--retries", "0",
		"--retry-delay", "250ms",
		"--trusted-peers", first+","+second,
		"--trusted-only",
		"--port", "30305",
		"--nat", "extip:1.2.3.4",
		"--disable-discovery",
		"--enable-discv5",
		"--max-peers", "3",
		"--bootnodes", second,
		"--request-timeout", "3s",
	)

	assert.Equal(t, "sepolia", f.Chain)
	assert.Equal(t, uint(0), f.Retries)
	assert.Equal(t, 250*time.Millisecond, f.RetryDelay)
	assert.Equal(t, []string{first, second}, f.TrustedPeers)
	assert.True(t, f.TrustedOnly)
	assert.Equal(t, uint16(30305), f.Port)
	assert.Equal(t, "extip:1.2.3.4", f.NAT)
	assert.True(t, f.DisableDiscovery)
	assert.False(t, f.DisableDNSDiscovery)
	assert.True(t, f.EnableDiscV5)
	assert.Equal(t, 3, f.MaxPeers)
	assert.Equal(t, []string{second}, f.BootNodes)
	assert.Equal(t, 3*time.Second, f.RequestTimeout)
}

func TestBindEnv(t *testing.T) {
	t.Setenv("P2P_FETCH_RETRIES", "3")
	t.Setenv("P2P_FETCH_RETRY_DELAY", "2s")
	t.Setenv("P2P_FETCH_TRUSTED_ONLY", "true")
	t.Setenv("P2P_FETCH_REQUEST_TIMEOUT", "4s")

	f, fs := parseFlags(t, "--retries", "7")
	require.NoError(t, BindEnv(viper.New(), fs))
	assert.Equal(t, "2s", fs.Lookup(retryDelayFlag).Value.String())

	// the command line has precedence over the environment
	assert.Equal(t, uint(7), f.Retries)
	assert.Equal(t, 2*time.Second, f.RetryDelay)
	assert.True(t, f.TrustedOnly)
	assert.Equal(t, 4*time.Second, f.RequestTimeout)
}

func TestBindEnv_InvalidValue(t *testing.T) {
	t.Setenv("P2P_FETCH_PORT", "not-a-port")

	_, fs := parseFlags(t)
	err := BindEnv(viper.New(), fs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
}

func TestResolvePaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	t.Run("defaults", func(t *testing.T) {
		p, err := resolvePaths(DefaultFlags(), "sepolia")
		require.NoError(t, err)

		dataDir := filepath.Join(home, ".local", "share", "p2p-fetch", "sepolia")
		assert.Equal(t, dataDir, p.DataDir)
		assert.Equal(t, filepath.Join(dataDir, "p2p-fetch.toml"), p.Config)
		assert.Equal(t, filepath.Join(dataDir, "discovery-secret"), p.SecretKey)
	})

	t.Run("overrides", func(t *testing.T) {
		f := DefaultFlags()
		f.DataDir = "/data"
		f.SecretKeyPath = "/keys/node.key"

		p, err := resolvePaths(f, "mainnet")
		require.NoError(t, err)
		assert.Equal(t, "/data", p.DataDir)
		assert.Equal(t, filepath.Join("/data", "p2p-fetch.toml"), p.Config)
		assert.Equal(t, "/keys/node.key", p.SecretKey)
	})
}

func TestLoadPeerConfig(t *testing.T) {
	unittest.RunWithTempDir(t, func(dir string) {
		persisted, cli := unittest.NodeFixture(t), unittest.NodeFixture(t)
		path := filepath.Join(dir, config.FileName)
		content := fmt.Sprintf("[peers]\ntrusted_nodes = [%q]\nmax_peers = 10\n", persisted.URLv4())
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))

		f := DefaultFlags()
		f.TrustedPeers = []string{cli.URLv4()}
		f.TrustedOnly = true

		peerConfig, err := loadPeerConfig(path, f)
		require.NoError(t, err)
		assert.True(t, peerConfig.TrustedOnly)
		assert.Equal(t, 10, peerConfig.MaxPeers)
		require.Len(t, peerConfig.TrustedNodes, 2)
		assert.ElementsMatch(t, []string{persisted.URLv4(), cli.URLv4()}, []string{
			peerConfig.TrustedNodes[0].URLv4(),
			peerConfig.TrustedNodes[1].URLv4(),
		})

		f.MaxPeers = 2
		peerConfig, err = loadPeerConfig(path, f)
		require.NoError(t, err)
		assert.Equal(t, 2, peerConfig.MaxPeers)

		f.TrustedPeers = []string{"enode://garbage"}
		_, err = loadPeerConfig(path, f)
		require.Error(t, err)
		assert.True(t, config.IsConfigurationError(err))
	})
}

func TestLaunch_RejectsConfiguration(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown chain", func(t *testing.T) {
		f := DefaultFlags()
		f.Chain = "no-such-chain"
		_, err := launch(ctx, unittest.Logger(), f, &bytes.Buffer{})
		require.Error(t, err)
		assert.True(t, config.IsConfigurationError(err))
	})

	t.Run("trusted only without trusted peers", func(t *testing.T) {
		unittest.RunWithTempDir(t, func(dir string) {
			f := DefaultFlags()
			f.DataDir = dir
			f.TrustedOnly = true

			_, err := launch(ctx, unittest.Logger(), f, &bytes.Buffer{})
			require.ErrorIs(t, err, config.ErrNoTrustedPeers)
			assert.True(t, strings.HasPrefix(err.Error(), "no trusted nodes. Set trusted peer with `--trusted-peers <enode record>`"))

			// nothing was written before the configuration was rejected
			assert.NoFileExists(t, filepath.Join(dir, secretKeyFileName))
		})
	})

	t.Run("invalid bootnodes", func(t *testing.T) {
		unittest.RunWithTempDir(t, func(dir string) {
			f := DefaultFlags()
			f.DataDir = dir
			f.BootNodes = []string{"enode://garbage"}

			_, err := launch(ctx, unittest.Logger(), f, &bytes.Buffer{})
			require.Error(t, err)
			assert.True(t, config.IsConfigurationError(err))
			assert.Contains(t, err.Error(), "--bootnodes")
		})
	})

	t.Run("non positive request timeout", func(t *testing.T) {
		unittest.RunWithTempDir(t, func(dir string) {
			f := DefaultFlags()
			f.DataDir = dir
			f.RequestTimeout = 0

			_, err := launch(ctx, unittest.Logger(), f, &bytes.Buffer{})
			require.Error(t, err)
			assert.True(t, config.IsConfigurationError(err))
			assert.NoFileExists(t, filepath.Join(dir, secretKeyFileName))
		})
	})

	t.Run("invalid nat", func(t *testing.T) {
		unittest.RunWithTempDir(t, func(dir string) {
			f := DefaultFlags()
			f.DataDir = dir
			f.NAT = "carrier-pigeon"

			_, err := launch(ctx, unittest.Logger(), f, &bytes.Buffer{})
			require.Error(t, err)
			assert.True(t, config.IsConfigurationError(err))
		})
	})
}

func TestLaunch_Session(t *testing.T) {
	unittest.RunWithTempDir(t, func(dir string) {
		f := DefaultFlags()
		f.DataDir = dir
		f.Addr = "127.0.0.1"
		f.Port = 0
		f.NAT = "none"
		f.TrustedOnly = true
		f.TrustedPeers = []string{unittest.NodeFixture(t).URLv4()}
		f.BootNodes = []string{unittest.NodeFixture(t).URLv4()}
		f.RequestTimeout = 2 * time.Second

		s, err := launch(context.Background(), unittest.Logger(), f, &bytes.Buffer{})
		require.NoError(t, err)
		require.NotNil(t, s.fetcher)
		assert.Equal(t, 0, s.handle.PeerCount())
		assert.FileExists(t, filepath.Join(dir, secretKeyFileName))

		unittest.RequireCloseBefore(t, func() <-chan struct{} {
			done := make(chan struct{})
			go func() {
				s.shutdown()
				close(done)
			}()
			return done
		}(), 10*time.Second, "session did not shut down")
		unittest.RequireCloseBefore(t, s.handle.Done(), time.Second, "node still running after shutdown")
	})
}

func TestSubcommands(t *testing.T) {
	for _, name := range []string{"header", "body"} {
		t.Run(name, func(t *testing.T) {
			cmd, args, err := rootCmd.Find([]string{name, "1024"})
			require.NoError(t, err)
			assert.Equal(t, name, cmd.Name())
			assert.Equal(t, []string{"1024"}, args)

			assert.NoError(t, cmd.Args(cmd, []string{"1024"}))
			assert.Error(t, cmd.Args(cmd, nil))
			assert.Error(t, cmd.Args(cmd, []string{"1", "2"}))
		})
	}
}

func TestRun_InvalidIdentifier(t *testing.T) {
	err := runHeader(headerCmd, []string{"0xnothex"})
	require.Error(t, err)

	err = runBody(bodyCmd, []string{"-1"})
	require.Error(t, err)
}

func TestPrintResult(t *testing.T) {
	header := unittest.HeaderFixture(1024)
	out := &bytes.Buffer{}

	printResult(out, "header", header)
	assert.True(t, strings.HasPrefix(out.String(), "Successfully downloaded header: (*types.Header)"))
	assert.Contains(t, out.String(), "Number: (*big.Int)(1024)")
}
