package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"coinwatch/internal/config"
	"coinwatch/internal/history"
	"coinwatch/internal/listener"
)

func runHistory(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadHistory(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := openSession(ctx, cfg.Config)
	if err != nil {
		return err
	}
	defer sess.Close()

	sinks, err := sess.sinks(ctx, cfg.Config, logger)
	if err != nil {
		return err
	}

	reporter := listener.NewReporter(listener.ReporterConfig{
		Reader:       sess.contract,
		Printer:      listener.NewPrinter(cmd.OutOrStdout()),
		Sinks:        sinks,
		ChainID:      sess.client.ChainID().Uint64(),
		AtEventBlock: true,
	})

	runner := history.NewRunner(history.RunConfig{
		Contract:       sess.contract.Address().Hex(),
		FromBlock:      cfg.FromBlock,
		ToBlock:        cfg.ToBlock,
		BatchSize:      cfg.BatchSize,
		CheckpointPath: cfg.Checkpoint,
	}, sess.contract, sess.client, reporter.Handle, logger)

	logger.Info("history start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("contract", sess.contract.Address().Hex()),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	return runner.Run(ctx)
}
