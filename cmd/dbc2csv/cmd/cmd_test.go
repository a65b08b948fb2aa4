package cmd

import (
	"bytes"
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/consensys/dbc/batch"
	"github.com/consensys/dbc/config"
	"github.com/consensys/dbc/implode"
	"github.com/consensys/dbc/internal/fixture"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "355030;SÃO PAULO;11451245;1521.11;2022-08-01;true\n" +
	"330455;RIO DE JANEIRO;6211423;1200.33;2022-08-01;true\n" +
	"350950;CAMPINAS;1139047;794.57;2022-08-01;false\n" +
	"310620;BELO HORIZONTE;2315560;331.35;2022-08-01;true\n"

// setup writes a default config and a sample .DBC file into a temporary directory.
func setup(t *testing.T) (dir, cfgPath, input string) {
	dir = t.TempDir()
	cfgPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, config.SaveConfig(config.DefaultConfig(), cfgPath))

	file, err := fixture.Sample().DBC(implode.Preamble{Literals: implode.LiteralsCoded, Dict: implode.Dict1K})
	require.NoError(t, err)
	input = filepath.Join(dir, "PAAC2301.dbc")
	require.NoError(t, os.WriteFile(input, file, 0600))
	return dir, cfgPath, input
}

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	_, cfg, _ := setup(t)
	out, _, err := run(t, "--config", cfg, "version")
	require.NoError(t, err)
	assert.Equal(t, "dbc2csv v"+version+"\n", out)
}

func TestConvertToStdout(t *testing.T) {
	_, cfg, input := setup(t)

	out, _, err := run(t, "--config", cfg, "convert", input, "-")
	require.NoError(t, err)
	assert.Equal(t, sampleCSV, out)

	out, _, err = run(t, "--config", cfg, "convert", input, "-", "--header", "--sep", ",", "--include-deleted")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "CODMUN,NOME,POP,AREA,DTREF,CAPITAL", lines[0])
	assert.Equal(t, "999999,REMOVIDO,0,0.00,,", lines[4])
}

func TestConvertToFile(t *testing.T) {
	dir, cfg, input := setup(t)

	_, logs, err := run(t, "--config", cfg, "--log-format", "json", "convert", input)
	require.NoError(t, err)
	assert.Contains(t, logs, `"rows":4`)
	assert.Contains(t, logs, `"message":"converted"`)

	got, err := os.ReadFile(filepath.Join(dir, "PAAC2301.csv"))
	require.NoError(t, err)
	assert.Equal(t, sampleCSV, string(got))
}

func TestConvertCompressed(t *testing.T) {
	dir, cfg, input := setup(t)

	_, _, err := run(t, "--config", cfg, "--log-level", "error", "convert", input, "--compress", "gzip")
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, "PAAC2301.csv.gz"))
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = buf.ReadFrom(zr)
	require.NoError(t, err)
	assert.Equal(t, sampleCSV, buf.String())
}

func TestConvertErrors(t *testing.T) {
	dir, cfg, input := setup(t)

	_, _, err := run(t, "--config", cfg, "convert", input, "-", "--sep", `"`)
	assert.Error(t, err)

	_, _, err = run(t, "--config", cfg, "convert", filepath.Join(dir, "missing.dbc"), "-")
	assert.Error(t, err)

	_, _, err = run(t, "--config", cfg, "convert", input, "-", "--format", "raw")
	assert.ErrorIs(t, err, implode.ErrBadPreamble)

	_, _, err = run(t, "--config", cfg, "--log-level", "loud", "version")
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("batch:\n  workers: -2\n"), 0600))
	_, _, err = run(t, "--config", bad, "version")
	assert.ErrorContains(t, err, "workers")
}

func TestBatch(t *testing.T) {
	dir, cfg, input := setup(t)
	file, err := os.ReadFile(input)
	require.NoError(t, err)

	second := filepath.Join(dir, "PAAC2302.dbc")
	require.NoError(t, os.WriteFile(second, file, 0600))
	broken := filepath.Join(dir, "BROKEN.dbc")
	require.NoError(t, os.WriteFile(broken, file[:len(file)-3], 0600))

	outDir := filepath.Join(dir, "out")
	metrics := filepath.Join(dir, "dbc.prom")
	out, _, err := run(t, "--config", cfg, "batch", input, second, broken,
		"--out-dir", outDir, "--workers", "2", "--continue-on-error", "--metrics-file", metrics)
	assert.ErrorIs(t, err, batch.ErrFailures)

	assert.Contains(t, out, "INPUT")
	assert.Equal(t, 2, strings.Count(out, "  ok"))
	assert.Contains(t, out, "error: ")
	assert.FileExists(t, filepath.Join(outDir, "PAAC2301.csv"))
	assert.FileExists(t, filepath.Join(outDir, "PAAC2302.csv"))
	assert.NoFileExists(t, filepath.Join(outDir, "BROKEN.csv"))

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `dbc_files_total{status="error"} 1`)
	assert.Contains(t, string(prom), `dbc_files_total{status="success"} 2`)
	assert.Contains(t, string(prom), "dbc_rows_total 8")
}

func TestProbe(t *testing.T) {
	_, cfg, input := setup(t)

	out, _, err := run(t, "--config", cfg, "probe", input)
	require.NoError(t, err)
	for _, want := range []string{
		"size: ",
		"00000000  03 7b 05 11",
		"layout: datasus",
		"preamble: literals coded, dictionary 1K",
		"checksum: ",
		"records: 5",
		"record length: 53",
		"CODMUN      C        6        0",
		"AREA        N        9        2",
	} {
		assert.Contains(t, out, want)
	}
}

func TestProbeTokens(t *testing.T) {
	dir, cfg, _ := setup(t)
	raw, err := hex.DecodeString("00048224258f807f")
	require.NoError(t, err)
	input := filepath.Join(dir, "known.imp")
	require.NoError(t, os.WriteFile(input, raw, 0600))

	out, _, err := run(t, "--config", cfg, "probe", input, "--tokens")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "bit;output;kind;literal;length;distance", lines[0])
	assert.Equal(t, "16;0;literal;41;;", lines[1])
	assert.Equal(t, "25;1;literal;49;;", lines[2])
	assert.Equal(t, "34;2;copy;;11;2", lines[3])
	assert.Contains(t, lines[4], ";13;end;;;")

	out, _, err = run(t, "--config", cfg, "probe", input, "--tokens", "--limit", "2")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 3)
}
