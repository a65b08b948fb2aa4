package cmd

import (
	"github.com/consensys/dbc/batch"
	"github.com/consensys/dbc/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// addConversionFlags registers the flags that override config values for
// commands that convert files.
func addConversionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("sep", "", "field separator (default ;)")
	f.String("charset", "", "text encoding of the table (default latin1)")
	f.Bool("header", false, "write the field names as the first line")
	f.Bool("include-deleted", false, "also write deleted records")
	f.String("compress", "", "compress the output: none, gzip, zstd or s2")
	f.String("format", "", "input layout: auto, raw or datasus")
	f.String("dict", "", "expected dictionary size: 1K, 2K or 4K (advisory)")
	f.Int("max-output", 0, "fail files that decompress to more bytes than this")
}

// applyConversionFlags copies the flags the user set over cfg and validates the result.
func applyConversionFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if flags.Changed(name) {
			*dst, _ = flags.GetBool(name)
		}
	}

	str("sep", &cfg.Output.Separator)
	str("charset", &cfg.Input.Charset)
	boolean("header", &cfg.Output.Header)
	boolean("include-deleted", &cfg.Input.IncludeDeleted)
	str("compress", &cfg.Output.Compression)
	str("format", &cfg.Input.Format)
	str("dict", &cfg.Input.DictHint)
	if flags.Changed("max-output") {
		cfg.Input.MaxOutputBytes, _ = flags.GetInt("max-output")
	}
	return cfg.Validate()
}

// batchOptions turns the settings into conversion options.
func (a *app) batchOptions(cfg *config.Config) (*batch.Options, error) {
	decode, err := cfg.Input.Options()
	if err != nil {
		return nil, err
	}
	emitOpts, err := cfg.Output.EmitOptions()
	if err != nil {
		return nil, err
	}
	return &batch.Options{
		Decode:          decode,
		Emit:            emitOpts,
		Compression:     cfg.Output.Compression,
		Workers:         cfg.Batch.Workers,
		ContinueOnError: cfg.Batch.ContinueOnError,
		Logger:          a.log,
	}, nil
}
