package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "coinwatch",
		Short:        "Coin contract transfer watcher",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Report every Sent event with both balances",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}

	addChainFlags(watchCmd.Flags())
	watchCmd.Flags().Duration("poll-interval", 4*time.Second, "log polling interval for endpoints without subscriptions")
	watchCmd.Flags().String("out", "", "optional JSONL file for transfer records")
	watchCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for transfer records")
	watchCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	root.AddCommand(watchCmd)

	balanceCmd := &cobra.Command{
		Use:   "balance <address>...",
		Short: "Print the coin balance of each address",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runBalance,
	}

	addChainFlags(balanceCmd.Flags())

	root.AddCommand(balanceCmd)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Replay past Sent events over a block range",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}

	addChainFlags(historyCmd.Flags())
	historyCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	historyCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	historyCmd.Flags().Uint64("batch-size", 2000, "blocks per eth_getLogs request")
	historyCmd.Flags().String("checkpoint", "", "checkpoint file path; empty disables resume")
	historyCmd.Flags().String("out", "", "optional JSONL file for transfer records")
	historyCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for transfer records")

	root.AddCommand(historyCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addChainFlags(flags *pflag.FlagSet) {
	flags.String("rpc", "", "JSON-RPC endpoint (http, ws or IPC path)")
	flags.String("address", "", "Coin contract address")
	flags.String("abi", "", "contract ABI JSON file; empty uses the built-in Coin ABI")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
