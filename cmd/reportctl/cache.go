package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/inventory-report-api/internal/models"
	"github.com/noah-isme/inventory-report-api/internal/repository"
	"github.com/noah-isme/inventory-report-api/internal/service"
	"github.com/noah-isme/inventory-report-api/pkg/cache"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the report cache",
	}

	var reportType string
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Drop cached reports so the next request recomputes them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var target models.ReportType
			if reportType != "" {
				parsed, ok := models.ParseReportType(reportType)
				if !ok {
					return fmt.Errorf("invalid report type: %s", reportType)
				}
				target = parsed
			}

			client, err := cache.NewRedis(a.cfg.Redis)
			if err != nil {
				return err
			}
			repo := repository.NewCacheRepository(client, a.logger)
			defer repo.Close() //nolint:errcheck

			rc := service.NewReportCache(repo, a.metrics, a.cfg.Reports.CacheTTL, a.logger, true)
			if err := rc.Purge(cmd.Context(), target); err != nil {
				return err
			}
			scope := "all reports"
			if target != "" {
				scope = string(target) + " reports"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "purged cached %s\n", scope)
			return err
		},
	}
	purge.Flags().StringVar(&reportType, "type", "", "Only purge this report type")

	cmd.AddCommand(purge)
	return cmd
}
