package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	flags = DefaultFlags()
	log   zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "p2p-fetch",
	Short: "Download block headers and bodies from Ethereum peers over devp2p",
	Long: "p2p-fetch starts a short lived devp2p node, connects to peers of the selected chain and " +
		"downloads a single block header or body identified by its hash or number.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := BindEnv(viper.GetViper(), cmd.Flags()); err != nil {
			return err
		}
		return initLogger()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	InitializeFlags(rootCmd.PersistentFlags(), &flags)

	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	viper.AutomaticEnv()
}

func initLogger() error {
	lvl, err := zerolog.ParseLevel(flags.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", flags.LogLevel, err)
	}
	log = log.Level(lvl)
	return nil
}
