package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/onflow/evm-p2p-fetch/model/block"
)

var bodyCmd = &cobra.Command{
	Use:   "body <hash|number>",
	Short: "Download a block body",
	Long: "Download the transactions, uncles and withdrawals of a block. A block number is " +
		"resolved to its hash by downloading the header first.",
	Example: "  p2p-fetch body 17034870 --retries 10",
	Args:    cobra.ExactArgs(1),
	RunE:    runBody,
}

func init() {
	rootCmd.AddCommand(bodyCmd)
}

func runBody(cmd *cobra.Command, args []string) error {
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

	body, err := s.fetcher.Body(ctx, id)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), "body", body)
	return nil
}
