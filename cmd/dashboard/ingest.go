package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coreybb/consumo/report"
	"github.com/coreybb/consumo/reshape"
)

type ingestOptions struct {
	date   string
	device string
}

func newIngestCmd(root *rootOptions) *cobra.Command {
	opts := &ingestOptions{}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Generate and store a day of readings for one device",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runIngest(cmd, root, opts); err != nil {
				return warn(cmd.ErrOrStderr(), root.apiURL, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.date, "date", today(), "day to generate (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.device, "device", "", "device name")
	return cmd
}

func runIngest(cmd *cobra.Command, root *rootOptions, opts *ingestOptions) error {
	if strings.TrimSpace(opts.date) == "" || strings.TrimSpace(opts.device) == "" {
		return errors.New("--date e --device são obrigatórios")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), root.timeout)
	defer cancel()

	res, err := root.client().Ingest(ctx, opts.date, opts.device)
	if err != nil {
		return err
	}

	table, err := reshape.Build(res.Readings)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Lote %s: %d leituras geradas para %s\n", res.BatchID, len(res.Readings), opts.device)
	return report.RenderText(out, report.Build(opts.date, table))
}
