package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/onflow/evm-p2p-fetch/config"
)

const (
	secretKeyFileName  = "discovery-secret"
	defaultDataDirHint = "$HOME/.local/share/p2p-fetch/<chain>"
)

// paths are the files used by one invocation.
type paths struct {
	DataDir   string
	Config    string
	SecretKey string
}

// resolvePaths fills in the per-chain defaults for every path not given on the command line.
func resolvePaths(f Flags, chainName string) (paths, error) {
	dataDir := f.DataDir
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return paths{}, fmt.Errorf("could not determine default data directory, set --%s: %w", dataDirFlag, err)
		}
		dataDir = filepath.Join(home, ".local", "share", "p2p-fetch", chainName)
	}

	p := paths{
		DataDir:   dataDir,
		Config:    f.ConfigPath,
		SecretKey: f.SecretKeyPath,
	}
	if p.Config == "" {
		p.Config = filepath.Join(dataDir, config.FileName)
	}
	if p.SecretKey == "" {
		p.SecretKey = filepath.Join(dataDir, secretKeyFileName)
	}
	return p, nil
}
