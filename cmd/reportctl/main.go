package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/inventory-report-api/internal/repository"
	"github.com/noah-isme/inventory-report-api/internal/service"
	"github.com/noah-isme/inventory-report-api/pkg/config"
	"github.com/noah-isme/inventory-report-api/pkg/logger"
)

// app holds what every subcommand needs once configuration is loaded.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *service.MetricsService
	providers repository.Providers
}

func main() {
	a := &app{}
	root := &cobra.Command{
		Use:           "reportctl",
		Short:         "Generate inventory, order and supplier reports from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.AddCommand(newGenerateCmd(a), newProductCmd(a), newCacheCmd(a), newShadowCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *app) init() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logr.With(zap.String("component", "reportctl"))
	a.metrics = service.NewMetricsService()
	a.providers = repository.NewProviders(cfg.Providers, a.metrics, a.logger)
	return nil
}
