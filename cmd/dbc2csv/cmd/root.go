package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/consensys/dbc/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

// app is the state shared by the commands once the root command has set it up.
type app struct {
	cfg *config.Config
	log zerolog.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "dbc2csv",
		Short: "Convert DATASUS .DBC files to delimited text",
		Long: `dbc2csv decompresses DATASUS .DBC files (dBase tables compressed with
PKWARE DCL implode) and writes their rows as delimited text.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().String("config", "", "config file (default "+config.GetDefaultConfigPath()+" when it exists)")
	root.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error")
	root.PersistentFlags().String("log-format", "", "log format: console or json")

	root.AddCommand(newConvertCmd(a), newBatchCmd(a), newProbeCmd(a), newVersionCmd())
	return root
}

// Execute runs the root command and exits with status 1 on error.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "dbc2csv:", err)
		stop()
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format, _ = flags.GetString("log-format")
	}

	log, err := newLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.LoadConfig(path)
	}
	if path = config.GetDefaultConfigPath(); config.ConfigExists(path) {
		return config.LoadConfig(path)
	}
	return config.DefaultConfig(), nil
}

func newLogger(l config.Logging, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(l.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("logging level: %w", err)
	}

	switch l.Format {
	case "json":
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	default:
		return zerolog.Nop(), fmt.Errorf("logging format must be console or json, got %q", l.Format)
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "dbc2csv v"+version)
			return err
		},
	}
}
