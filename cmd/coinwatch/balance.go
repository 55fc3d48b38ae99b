package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"coinwatch/internal/coin"
	"coinwatch/internal/config"
)

func runBalance(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
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

	sess, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	for _, arg := range args {
		holder, err := coin.ParseAddress(arg)
		if err != nil {
			return err
		}
		balance, err := sess.contract.Balances(ctx, holder, nil)
		if err != nil {
			return fmt.Errorf("balances %s: %w", holder.Hex(), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", holder.Hex(), balance.String())
	}
	return nil
}
