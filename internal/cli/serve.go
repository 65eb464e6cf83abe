package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/congo-pay/ghostchain/internal/config"
	"github.com/congo-pay/ghostchain/internal/genesis"
	"github.com/congo-pay/ghostchain/internal/infra"
	"github.com/congo-pay/ghostchain/internal/kvstore"
	"github.com/congo-pay/ghostchain/internal/ledger"
	"github.com/congo-pay/ghostchain/internal/logging"
	"github.com/congo-pay/ghostchain/internal/notification"
	"github.com/congo-pay/ghostchain/internal/orchestrator"
	"github.com/congo-pay/ghostchain/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the ledger behind the HTTP API. The store backend, Redis and the
listen port come from the environment (STORE_BACKEND, REDIS_URL, PORT, ...).

Example:
  STORE_BACKEND=sqlite SQLITE_PATH=./ghost.db ghostchain serve --genesis ./genesis.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if rootOpts.LogLevel != "" {
				cfg.LogLevel = rootOpts.LogLevel
			}
			if rootOpts.Genesis != "" {
				cfg.GenesisFile = rootOpts.Genesis
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := logging.NewWriter(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	res, err := infra.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn("close resources", "error", err)
		}
	}()

	engine := ledger.NewEngine(res.Backend,
		ledger.WithLogger(logger),
		ledger.WithNotifier(notification.NewLoggerNotifier(logger)))
	orch := orchestrator.New(engine,
		orchestrator.WithAdmin(engine.Admin()),
		orchestrator.WithZone(kvstore.NewZone(res.Backend)),
		orchestrator.WithLogger(logger))

	if cfg.GenesisFile != "" {
		g, err := genesis.Load(cfg.GenesisFile)
		if err != nil {
			return err
		}
		if err := genesis.Apply(ctx, orch, g, logger); err != nil {
			return fmt.Errorf("apply genesis: %w", err)
		}
	}

	srv := server.New(cfg, orch, res, logger)

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()
	logger.Info("listening", "addr", cfg.Address(), "store", cfg.StoreBackend)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server exited cleanly")
	return nil
}
