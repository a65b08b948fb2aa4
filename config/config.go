// Package config holds the converter settings, stored as YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/consensys/dbc"
	"github.com/consensys/dbc/dbf"
	"github.com/consensys/dbc/emit"
	"github.com/consensys/dbc/implode"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config represents the dbc2csv configuration
type Config struct {
	Input   Input   `yaml:"input"`
	Output  Output  `yaml:"output"`
	Batch   Batch   `yaml:"batch"`
	Logging Logging `yaml:"logging"`
}

// Input controls how .DBC files are read
type Input struct {
	Format         string `yaml:"format"`
	DictHint       string `yaml:"dict_hint"`
	Charset        string `yaml:"charset"`
	IncludeDeleted bool   `yaml:"include_deleted"`
	MaxOutputBytes int    `yaml:"max_output_bytes"`
}

// Output controls the delimited text
type Output struct {
	Separator   string `yaml:"separator"`
	Header      bool   `yaml:"header"`
	CRLF        bool   `yaml:"crlf"`
	Compression string `yaml:"compression"`
	Dir         string `yaml:"dir"`
}

// Batch controls multi-file runs
type Batch struct {
	Workers         int    `yaml:"workers"`
	ContinueOnError bool   `yaml:"continue_on_error"`
	MetricsFile     string `yaml:"metrics_file"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Input: Input{
			Format:  dbc.FormatAuto.String(),
			Charset: dbf.DefaultCharset,
		},
		Output: Output{
			Separator:   string(emit.DefaultSeparator),
			Compression: emit.None,
		},
		Batch: Batch{
			Workers: 4,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from the specified path. Keys missing from
// the file keep their default values.
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return config, nil
}

// SaveConfig saves the configuration to the specified path
func SaveConfig(config *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetDefaultConfigPath returns ~/.config/dbc2csv/config.yaml, or a file in
// the working directory when there is no home directory.
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./dbc2csv.yaml"
	}
	return filepath.Join(homeDir, ".config", "dbc2csv", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := dbc.ParseFormat(c.Input.Format); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Input.Dict(); err != nil {
		errs = append(errs, err)
	}
	if _, err := dbf.LookupCharset(c.Input.Charset); err != nil {
		errs = append(errs, err)
	}
	if c.Input.MaxOutputBytes < 0 {
		errs = append(errs, fmt.Errorf("max_output_bytes must not be negative, got %d", c.Input.MaxOutputBytes))
	}
	if _, err := c.Output.SeparatorRune(); err != nil {
		errs = append(errs, err)
	}
	if _, err := emit.Extension(c.Output.Compression); err != nil {
		errs = append(errs, err)
	}
	if c.Batch.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Batch.Workers))
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging level: %w", err))
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		errs = append(errs, fmt.Errorf("logging format must be console or json, got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// Dict parses the dictionary hint: empty, 1K, 2K or 4K.
func (in Input) Dict() (implode.DictSize, error) {
	switch strings.ToUpper(strings.TrimSpace(in.DictHint)) {
	case "":
		return 0, nil
	case "1K", "1024":
		return implode.Dict1K, nil
	case "2K", "2048":
		return implode.Dict2K, nil
	case "4K", "4096":
		return implode.Dict4K, nil
	}
	return 0, fmt.Errorf("dict_hint must be 1K, 2K or 4K, got %q", in.DictHint)
}

// SeparatorRune returns the separator. "tab" and `\t` name a tab.
func (out Output) SeparatorRune() (rune, error) {
	s := out.Separator
	switch s {
	case "":
		return emit.DefaultSeparator, nil
	case "tab", `\t`:
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) {
		return 0, fmt.Errorf("separator must be a single character, got %q", s)
	}
	return r, emit.ValidSeparator(r)
}

// Options returns the decoding options the input settings describe.
func (in Input) Options() (*dbc.Options, error) {
	format, err := dbc.ParseFormat(in.Format)
	if err != nil {
		return nil, err
	}
	dict, err := in.Dict()
	if err != nil {
		return nil, err
	}
	charset, err := dbf.LookupCharset(in.Charset)
	if err != nil {
		return nil, err
	}
	return &dbc.Options{
		Format:         format,
		DictHint:       dict,
		MaxOutput:      in.MaxOutputBytes,
		Charset:        charset,
		IncludeDeleted: in.IncludeDeleted,
	}, nil
}

// EmitOptions returns the emitter options the output settings describe.
func (out Output) EmitOptions() (*emit.Options, error) {
	sep, err := out.SeparatorRune()
	if err != nil {
		return nil, err
	}
	return &emit.Options{Separator: sep, Header: out.Header, CRLF: out.CRLF}, nil
}
