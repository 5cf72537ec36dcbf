package main

import (
	"context"
	"os"

	sidecar "github.com/cordialsys/substrate-sidecar"
	"github.com/cordialsys/substrate-sidecar/blocks"
	"github.com/cordialsys/substrate-sidecar/config"
	"github.com/cordialsys/substrate-sidecar/gateway"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type contextKey string

const contextConfig contextKey = "config"

func withConfig(ctx context.Context, cfg config.Config) context.Context {
	return context.WithValue(ctx, contextConfig, cfg)
}

func configFrom(ctx context.Context) config.Config {
	return ctx.Value(contextConfig).(config.Config)
}

func CmdSidecar() *cobra.Command {
	var configPath string
	var rpcOverride string
	cmd := &cobra.Command{
		Use:          "sidecar",
		Short:        "Serve assembled views of substrate blocks",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if configPath != "" {
				// the loader finds its file through the environment
				os.Setenv(config.ConfigEnv, configPath)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if rpcOverride != "" {
				cfg.Rpc = rpcOverride
			}
			config.ConfigureLogger(cfg.LogLevel, cfg.LogFormat)
			logrus.WithFields(logrus.Fields{
				"chain": cfg.Chain,
				"rpc":   cfg.Rpc,
			}).Debug("configuration loaded")
			cmd.SetContext(withConfig(cmd.Context(), cfg))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file")
	cmd.PersistentFlags().StringVar(&rpcOverride, "rpc", "", "Override the configured node endpoint")

	cmd.AddCommand(cmdServe())
	cmd.AddCommand(cmdBlock())

	return cmd
}

// newService dials the node and assembles the block service over it.
func newService(cfg config.Config) (*gateway.Client, *blocks.Service, error) {
	endpoint, err := cfg.Endpoint()
	if err != nil {
		return nil, nil, err
	}
	client, err := gateway.NewClient(endpoint, cfg.AddressPrefix)
	if err != nil {
		return nil, nil, err
	}
	return client, blocks.NewService(client), nil
}

// fetchDefaults maps the chain profile onto the per-request fetch
// defaults of the HTTP surface.
func fetchDefaults(cfg config.Config) sidecar.FetchOptions {
	return sidecar.FetchOptions{
		CheckFinalized:     true,
		QueryFinalizedHead: cfg.QueryFinalizedHead,
		OmitFinalizedTag:   !cfg.Finalizes,
	}
}

func main() {
	if err := CmdSidecar().Execute(); err != nil {
		os.Exit(1)
	}
}
