package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"coinwatch/internal/coin"
	"coinwatch/internal/config"
	"coinwatch/internal/listener"
	"coinwatch/internal/observability"
)

func runWatch(cmd *cobra.Command, _ []string) error {
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

	sinks, err := sess.sinks(ctx, cfg, logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)
	if cfg.MetricsAddr != "" {
		srv := observability.Serve(cfg.MetricsAddr, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics shutdown", zap.Error(err))
			}
		}()
	}

	reporter := listener.NewReporter(listener.ReporterConfig{
		Reader:  sess.contract,
		Printer: listener.NewPrinter(cmd.OutOrStdout()),
		Sinks:   sinks,
		Metrics: metrics,
		ChainID: sess.client.ChainID().Uint64(),
	})

	l := listener.New(sess.contract, logger, metrics)
	if err := l.Subscribe(ctx, coin.EventSent, reporter.Handle); err != nil {
		return err
	}

	logger.Info("watch start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("contract", sess.contract.Address().Hex()),
		zap.Uint64("chain_id", sess.client.ChainID().Uint64()),
		zap.Int("sinks", len(sinks)),
		zap.String("metrics_addr", cfg.MetricsAddr),
	)

	if err := l.Wait(); err != nil {
		return err
	}
	logger.Info("watch stopped")
	return nil
}
