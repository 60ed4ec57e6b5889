package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/GiGurra/boa/pkg/boa"

	"pfm/internal/cli"
	"pfm/internal/config"
	applog "pfm/internal/log"
	"pfm/internal/report"
	"pfm/internal/services"
)

type Params struct {
	User   string `descr:"User whose records (or group membership) the report is computed for"`
	Group  string `descr:"Group id; empty for the user's personal records" optional:"true"`
	Range  int    `descr:"Window in days (7, 30, 90 or 365)" default:"30"`
	Format string `descr:"Output format" alts:"table,json,yaml,xlsx" strict:"true" default:"table"`
	Out    string `descr:"Output file (required for xlsx, stdout otherwise)" optional:"true"`
}

func main() {
	boa.NewCmdT[Params]("pfm-report").
		WithShort("Print or export an analytics snapshot").
		WithLong("Computes the analytics snapshot of a personal or group scope from the configured record store and renders it as a table, JSON, YAML or an XLSX workbook.").
		WithRunFunc(func(params *Params) {
			if err := run(params); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}).
		Run()
}

func run(params *Params) error {
	cli.LoadEnvFile()
	logger := cli.SetupLoggerTo(os.Stderr, applog.ComponentReport)

	format, err := report.ParseFormat(params.Format)
	if err != nil {
		return err
	}
	if !config.ValidRange(params.Range) {
		return fmt.Errorf("range must be one of 7, 30, 90, 365, got %d", params.Range)
	}
	if format == report.FormatXLSX && strings.TrimSpace(params.Out) == "" {
		return fmt.Errorf("--out is required for xlsx output")
	}

	cfg := cli.LoadAndValidateConfig(logger)
	ctx := context.Background()
	store := cli.InitBackend(ctx, logger, cfg)
	defer store.Close()

	svc := cli.BuildServices(cfg, store, nil, logger)
	viewer := services.Viewer{UserID: params.User}
	snap, err := svc.Analytics.Snapshot(ctx, viewer, viewer.ScopeFor(params.Group), params.Range)
	if err != nil {
		return fmt.Errorf("computing snapshot: %w", err)
	}
	display := snap.Display()

	if format == report.FormatXLSX {
		if err := report.WriteXLSX(params.Out, display); err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", params.Out)
		return nil
	}

	out := os.Stdout
	if params.Out != "" {
		f, err := os.Create(params.Out)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return report.Write(out, format, display)
}
