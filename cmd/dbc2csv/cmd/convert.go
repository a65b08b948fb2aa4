package cmd

import (
	"os"
	"time"

	"github.com/consensys/dbc/batch"
	"github.com/spf13/cobra"
)

func newConvertCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert IN [OUT]",
		Short: "Convert one .DBC file",
		Long: `Convert one .DBC file to delimited text. OUT defaults to IN with its
extension replaced by .csv; "-" writes to standard output.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *a.cfg
			if err := applyConversionFlags(cmd.Flags(), &cfg); err != nil {
				return err
			}
			opts, err := a.batchOptions(&cfg)
			if err != nil {
				return err
			}

			in := args[0]
			out := ""
			if len(args) == 2 {
				out = args[1]
			}
			if out == "" {
				if out, err = batch.OutputPath(in, cfg.Output.Dir, cfg.Output.Compression); err != nil {
					return err
				}
			}

			start := time.Now()
			var stats batch.Stats
			if out == "-" {
				file, err := os.ReadFile(in)
				if err != nil {
					return err
				}
				stats, err = batch.Convert(cmd.Context(), file, cmd.OutOrStdout(), opts)
				if err != nil {
					return err
				}
			} else {
				if stats, err = batch.ConvertFile(cmd.Context(), batch.Job{Input: in, Output: out}, opts); err != nil {
					return err
				}
			}

			if stats.HintMismatch {
				a.log.Warn().Str("file", in).Stringer("dict", stats.Preamble.Dict).Msg("dictionary size differs from the hint, using the stream's")
			}
			a.log.Info().
				Str("file", in).
				Str("output", out).
				Int("rows", stats.Rows).
				Int("deleted", stats.Deleted).
				Dur("duration", time.Since(start)).
				Msg("converted")
			return nil
		},
	}
	addConversionFlags(cmd)
	return cmd
}
