package main

import (
	"github.com/onflow/evm-p2p-fetch/cmd/p2p-fetch/cmd"
)

func main() {
	cmd.Execute()
}
