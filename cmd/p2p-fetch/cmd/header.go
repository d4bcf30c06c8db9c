package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/onflow/evm-p2p-fetch/model/block"
)

var headerCmd = &cobra.Command{
	Use:   "header <hash|number>",
	Short: "Download a block header",
	Example: "  p2p-fetch header 0xd4e56740f876aef8c010b86a40d5f56745a118d0906a34e69aec8c0db1cb8fa3\n" +
		"  p2p-fetch header 1024 --chain sepolia",
	Args: cobra.ExactArgs(1),
	RunE: runHeader,
}

func init() {
	rootCmd.AddCommand(headerCmd)
}

func runHeader(cmd *cobra.Command, args []string) error {
	id, err := block.ParseIdentifier(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := launch(ctx, log, flags, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer s.shutdown()

	header, err := s.fetcher.Header(ctx, id)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), "header", header)
	return nil
}
