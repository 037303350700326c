package main

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coreybb/consumo/client"
	"github.com/coreybb/consumo/logging"
	"github.com/coreybb/consumo/report"
	"github.com/coreybb/consumo/reshape"
	"github.com/coreybb/consumo/storage"
)

type showOptions struct {
	date      string
	devices   []string
	histogram string
	exportDir string
}

func newShowCmd(root *rootOptions) *cobra.Command {
	opts := &showOptions{}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the consumption summary for one day",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runShow(cmd, root, opts); err != nil {
				return warn(cmd.ErrOrStderr(), root.apiURL, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.date, "date", today(), "day to show (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&opts.devices, "device", defaultDevices, "device to include (repeatable)")
	cmd.Flags().StringVar(&opts.histogram, "histogram", "", "also show the hourly distribution of this device")
	cmd.Flags().StringVar(&opts.exportDir, "export-dir", "", "write an XLSX workbook under this directory")
	return cmd
}

func runShow(cmd *cobra.Command, root *rootOptions, opts *showOptions) error {
	if len(opts.devices) == 0 {
		return errors.New("selecione pelo menos um aparelho (--device)")
	}

	loader := client.NewLoader(root.client(), root.timeout)
	raw, err := loader.LoadDay(cmd.Context(), opts.date, opts.devices)
	if err != nil {
		return err
	}

	table, err := reshape.Build(raw)
	if err != nil {
		return err
	}
	if table.Dropped > 0 {
		logging.Warn().Int("dropped", table.Dropped).Msg("Rows with non-numeric consumption were dropped")
	}

	summary := report.Build(opts.date, table)
	out := cmd.OutOrStdout()
	if err := report.RenderText(out, summary); err != nil {
		return err
	}

	if opts.histogram != "" {
		fmt.Fprintln(out)
		if err := report.RenderHistogram(out, opts.histogram, table.ForDevice(opts.histogram).Histogram(reshape.MaxHistogramBins)); err != nil {
			return err
		}
	}

	if opts.exportDir != "" {
		path, err := export(opts.exportDir, summary)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nPlanilha salva em %s\n", path)
	}
	return nil
}

func export(dir string, summary report.Summary) (string, error) {
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, summary); err != nil {
		return "", err
	}
	storer := storage.NewLocalFileStorer(dir)
	rel, err := storer.Store(summary.Date, "consumo-"+summary.Date, buf.Bytes(), storage.FormatXLSX)
	if err != nil {
		return "", fmt.Errorf("failed to export workbook: %w", err)
	}
	return rel, nil
}
