package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/consensys/dbc/batch"
	"github.com/spf13/cobra"
)

func newBatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch FILE...",
		Short: "Convert many .DBC files concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *a.cfg
			flags := cmd.Flags()
			if flags.Changed("out-dir") {
				cfg.Output.Dir, _ = flags.GetString("out-dir")
			}
			if flags.Changed("workers") {
				cfg.Batch.Workers, _ = flags.GetInt("workers")
			}
			if flags.Changed("continue-on-error") {
				cfg.Batch.ContinueOnError, _ = flags.GetBool("continue-on-error")
			}
			if flags.Changed("metrics-file") {
				cfg.Batch.MetricsFile, _ = flags.GetString("metrics-file")
			}
			if err := applyConversionFlags(flags, &cfg); err != nil {
				return err
			}

			opts, err := a.batchOptions(&cfg)
			if err != nil {
				return err
			}
			if cfg.Batch.MetricsFile != "" {
				opts.Metrics = batch.NewMetrics()
			}

			jobs, err := batch.Jobs(args, cfg.Output.Dir, cfg.Output.Compression)
			if err != nil {
				return err
			}

			results, runErr := batch.NewRunner(opts).Run(cmd.Context(), jobs)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INPUT\tOUTPUT\tROWS\tSTATUS")
			for _, res := range results {
				status := "ok"
				switch {
				case res.Err != nil:
					status = "error: " + res.Err.Error()
				case res.Skipped:
					status = "skipped"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", res.Job.Input, res.Job.Output, res.Stats.Rows, status)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if opts.Metrics != nil {
				if err := opts.Metrics.WriteTextfile(cfg.Batch.MetricsFile); err != nil {
					return errors.Join(runErr, fmt.Errorf("failed to write metrics: %w", err))
				}
			}
			return runErr
		},
	}

	addConversionFlags(cmd)
	f := cmd.Flags()
	f.String("out-dir", "", "directory for the outputs (default next to each input)")
	f.Int("workers", 0, "number of files converted at once (default 4)")
	f.Bool("continue-on-error", false, "keep converting after a file fails")
	f.String("metrics-file", "", "write Prometheus metrics to this file, for the node exporter textfile collector")
	return cmd
}
