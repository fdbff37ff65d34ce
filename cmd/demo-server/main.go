package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/incident-demo/internal/config"
	"github.com/signalsfoundry/incident-demo/internal/logging"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile, envFile string

	cmd := &cobra.Command{
		Use:          "demo-server",
		Short:        "Incident demo engine with HTTP API, websocket stream and gRPC health",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.Options{
				ConfigFile: configFile,
				EnvFile:    envFile,
				Flags:      cmd.Flags(),
			})
			if err != nil {
				return err
			}
			log := logging.New(cfg.Logging())

			lis, err := listen(cfg)
			if err != nil {
				log.Error(cmd.Context(), "failed to listen", logging.Err(err))
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, log, lis)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "path to a YAML, JSON or TOML config file")
	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment (default .env if present)")
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func listen(cfg config.Config) (listeners, error) {
	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return listeners{}, fmt.Errorf("listen http %s: %w", cfg.HTTPAddr, err)
	}
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		_ = httpLis.Close()
		return listeners{}, fmt.Errorf("listen grpc %s: %w", cfg.GRPCAddr, err)
	}
	return listeners{http: httpLis, grpc: grpcLis}, nil
}
