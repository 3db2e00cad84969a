package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/inventory-report-api/internal/dto"
	"github.com/noah-isme/inventory-report-api/internal/models"
	"github.com/noah-isme/inventory-report-api/internal/service"
	appErrors "github.com/noah-isme/inventory-report-api/pkg/errors"
	"github.com/noah-isme/inventory-report-api/pkg/export"
)

const formatJSON = "json"

type generateCmd struct {
	app        *app
	reportType string
	from       string
	to         string
	params     map[string]string
	format     string
	output     string
}

func newGenerateCmd(a *app) *cobra.Command {
	gc := &generateCmd{app: a}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a report against the configured provider services",
		Example: "  reportctl generate --type inventory --from 2024-01-01 --to 2024-01-31 --param minStock=10\n" +
			"  reportctl generate --type order --param status=SHIPPED --format xlsx --output orders.xlsx",
		RunE: gc.run,
	}

	cmd.Flags().StringVar(&gc.reportType, "type", "", "Report type: inventory, order or supplier")
	cmd.Flags().StringVar(&gc.from, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&gc.to, "to", "", "End date (YYYY-MM-DD)")
	cmd.Flags().StringToStringVar(&gc.params, "param", nil, "Report parameter as key=value, repeatable")
	cmd.Flags().StringVar(&gc.format, "format", formatJSON, "Output format: json, csv, pdf or xlsx")
	cmd.Flags().StringVarP(&gc.output, "output", "o", "", "Write to file instead of stdout")

	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func (gc *generateCmd) run(cmd *cobra.Command, _ []string) error {
	req, err := gc.request()
	if err != nil {
		return err
	}

	format := strings.ToLower(strings.TrimSpace(gc.format))
	var renderer export.Renderer
	if format != formatJSON {
		parsed, err := export.ParseFormat(format)
		if err != nil {
			return err
		}
		renderer = export.Renderers()[parsed]
	}

	reports := service.NewReportService(
		service.ReportProviders{
			Products:  gc.app.providers.Products,
			Stocks:    gc.app.providers.Stocks,
			Orders:    gc.app.providers.Orders,
			Suppliers: gc.app.providers.Suppliers,
		},
		nil,
		gc.app.metrics,
		service.NewLogDiagnostics(gc.app.logger, gc.app.metrics),
		gc.app.logger,
		service.ReportServiceConfig{Loaders: service.LoaderConfig{
			MaxConcurrency: gc.app.cfg.Providers.MaxConcurrency,
			BatchWait:      gc.app.cfg.Providers.BatchWait,
		}},
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	result, _, err := reports.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("generate report: %s", appErrors.FromError(err).Message)
	}

	var body []byte
	if renderer == nil {
		body, err = json.MarshalIndent(result.Payload(), "", "  ")
		if err == nil {
			body = append(body, '\n')
		}
	} else {
		body, err = renderer.Render(service.ReportDataset(result, models.DateRange{Start: req.StartDate, End: req.EndDate}))
	}
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	return gc.write(cmd.OutOrStdout(), body)
}

func (gc *generateCmd) request() (dto.ReportRequest, error) {
	req := dto.ReportRequest{ReportType: gc.reportType}
	if gc.from != "" {
		d, err := models.ParseDate(gc.from)
		if err != nil {
			return req, fmt.Errorf("invalid --from: %w", err)
		}
		req.StartDate = &d
	}
	if gc.to != "" {
		d, err := models.ParseDate(gc.to)
		if err != nil {
			return req, fmt.Errorf("invalid --to: %w", err)
		}
		req.EndDate = &d
	}
	if len(gc.params) > 0 {
		req.Parameters = make(map[string]interface{}, len(gc.params))
		for k, v := range gc.params {
			req.Parameters[k] = v
		}
	}
	return req, nil
}

func (gc *generateCmd) write(stdout io.Writer, body []byte) error {
	if gc.output == "" {
		_, err := stdout.Write(body)
		return err
	}
	if err := os.WriteFile(gc.output, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", gc.output, err)
	}
	gc.app.logger.Sugar().Infow("report written", "path", gc.output, "bytes", len(body))
	return nil
}
