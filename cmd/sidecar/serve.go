package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cordialsys/substrate-sidecar/api"
	"github.com/cordialsys/substrate-sidecar/config"
	"github.com/cordialsys/substrate-sidecar/gateway"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second
const resubscribeDelay = 5 * time.Second

func cmdServe() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the block endpoints over HTTP",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(configFrom(cmd.Context()))
		},
	}
}

func serve(cfg config.Config) error {
	client, service, err := newService(cfg)
	if err != nil {
		return err
	}
	handler := api.NewBlocks(service, fetchDefaults(cfg))
	svr := api.NewServer(handler)

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if cfg.SubscribeFinalized && cfg.Finalizes {
		go watchFinalizedHeads(watchCtx, client)
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"listen": cfg.Listen,
			"chain":  cfg.Chain,
		}).Info("sidecar starting")
		err := svr.Start(cfg.Listen)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("server stopped")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logrus.Info("sidecar stopping")
	go func() {
		<-sig
		logrus.Warn("forcing exit")
		os.Exit(1)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := svr.Shutdown(ctx); err != nil {
		return fmt.Errorf("could not shut down server: %v", err)
	}
	return nil
}

// watchFinalizedHeads keeps the gateway's finalized-head cache fed,
// redialing the subscription whenever the node drops it.
func watchFinalizedHeads(ctx context.Context, client *gateway.Client) {
	for {
		err := client.WatchFinalizedHeads(ctx)
		if ctx.Err() != nil {
			return
		}
		logrus.WithError(err).Warn("finalized-heads subscription dropped")
		select {
		case <-ctx.Done():
			return
		case <-time.After(resubscribeDelay):
		}
	}
}
