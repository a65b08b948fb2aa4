package batch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/consensys/dbc"
	"github.com/consensys/dbc/emit"
	"github.com/consensys/dbc/implode"
	"github.com/consensys/dbc/internal/fixture"
	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "355030;SÃO PAULO;11451245;1521.11;2022-08-01;true\n" +
	"330455;RIO DE JANEIRO;6211423;1200.33;2022-08-01;true\n" +
	"350950;CAMPINAS;1139047;794.57;2022-08-01;false\n" +
	"310620;BELO HORIZONTE;2315560;331.35;2022-08-01;true\n"

var samplePreamble = implode.Preamble{Literals: implode.LiteralsCoded, Dict: implode.Dict1K}

func sampleDBC(t *testing.T) []byte {
	file, err := fixture.Sample().DBC(samplePreamble)
	require.NoError(t, err)
	return file
}

// writeInputs writes good sample files and, for each bad name, a truncated one.
func writeInputs(t *testing.T, dir string, good []string, bad ...string) []string {
	file := sampleDBC(t)
	var paths []string
	for _, name := range good {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, file, 0600))
		paths = append(paths, p)
	}
	for _, name := range bad {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, file[:len(file)-3], 0600))
		paths = append(paths, p)
	}
	return paths
}

func TestConvert(t *testing.T) {
	var buf bytes.Buffer
	stats, err := Convert(context.Background(), sampleDBC(t), &buf, nil)
	require.NoError(t, err)

	assert.Equal(t, sampleCSV, buf.String())
	assert.Equal(t, dbc.FormatDATASUS, stats.Format)
	assert.Equal(t, samplePreamble, stats.Preamble)
	assert.Equal(t, 5, stats.Records)
	assert.Equal(t, 4, stats.Rows)
	assert.Equal(t, 1, stats.Deleted)
	assert.Equal(t, int64(len(sampleCSV)), stats.OutputBytes)
	assert.Equal(t, int64(len(sampleDBC(t))), stats.InputBytes)
}

func TestConvertError(t *testing.T) {
	file := sampleDBC(t)
	_, err := Convert(context.Background(), file[:len(file)-3], &bytes.Buffer{}, nil)
	assert.ErrorIs(t, err, implode.ErrTruncatedInput)

	opts := DefaultOptions()
	opts.Compression = "lz4"
	_, err = Convert(context.Background(), file, &bytes.Buffer{}, opts)
	assert.Error(t, err)
}

func TestConvertClosesCompressorOnEmitterError(t *testing.T) {
	opts := DefaultOptions()
	opts.Compression = emit.Gzip
	opts.Emit = &emit.Options{Separator: '"'}

	var buf bytes.Buffer
	_, err := Convert(context.Background(), sampleDBC(t), &buf, opts)
	require.Error(t, err)

	zr, err := gzip.NewReader(&buf)
	require.NoError(t, err, "gzip stream is terminated")
	rest, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Empty(t, rest)
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	in := writeInputs(t, dir, []string{"PAAC2301.dbc"})[0]
	out := filepath.Join(dir, "csv", "PAAC2301.csv")

	_, err := ConvertFile(context.Background(), Job{Input: in, Output: out}, nil)
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, sampleCSV, string(got))

	entries, err := os.ReadDir(filepath.Join(dir, "csv"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")

	// A plain file created the usual way shows the mode the umask allows.
	ref := filepath.Join(dir, "ref")
	require.NoError(t, os.WriteFile(ref, nil, 0644))
	refInfo, err := os.Stat(ref)
	require.NoError(t, err)
	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, refInfo.Mode().Perm(), info.Mode().Perm())

	bad := writeInputs(t, dir, nil, "BAD.dbc")[0]
	badOut := filepath.Join(dir, "csv", "BAD.csv")
	_, err = ConvertFile(context.Background(), Job{Input: bad, Output: badOut}, nil)
	assert.ErrorIs(t, err, implode.ErrTruncatedInput)
	assert.NoFileExists(t, badOut)
	entries, err = os.ReadDir(filepath.Join(dir, "csv"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestOutputPath(t *testing.T) {
	for _, tc := range []struct {
		input, outDir, compression, want string
	}{
		{"data/PAAC2301.dbc", "", "gzip", filepath.Join("data", "PAAC2301.csv.gz")},
		{"x.DBC", "out", "none", filepath.Join("out", "x.csv")},
		{"/tmp/noext", "", "", filepath.Join("/tmp", "noext.csv")},
		{"a/b.dbc", "c", "zstd", filepath.Join("c", "b.csv.zst")},
	} {
		got, err := OutputPath(tc.input, tc.outDir, tc.compression)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
	_, err := OutputPath("x.dbc", "", "rar")
	assert.Error(t, err)
}

func TestJobs(t *testing.T) {
	jobs, err := Jobs([]string{"a/X.dbc", "b/X.dbc"}, "", "none")
	require.NoError(t, err)
	assert.Equal(t, Job{Input: "b/X.dbc", Output: filepath.Join("b", "X.csv")}, jobs[1])

	_, err = Jobs([]string{"a/X.dbc", "b/X.dbc"}, "out", "none")
	assert.Error(t, err)
}

func TestRunContinueOnError(t *testing.T) {
	dir := t.TempDir()
	inputs := writeInputs(t, dir, []string{"A.dbc", "B.dbc", "C.dbc"}, "BAD.dbc")
	jobs, err := Jobs(inputs, filepath.Join(dir, "out"), "none")
	require.NoError(t, err)

	var logs bytes.Buffer
	metrics := NewMetrics()
	opts := DefaultOptions()
	opts.Workers = 3
	opts.ContinueOnError = true
	opts.Logger = zerolog.New(&logs)
	opts.Metrics = metrics

	runner := NewRunner(opts)
	results, err := runner.Run(context.Background(), jobs)
	assert.ErrorIs(t, err, ErrFailures)
	require.Len(t, results, 4)

	for i, res := range results[:3] {
		assert.NoError(t, res.Err, i)
		assert.False(t, res.Skipped)
		assert.Equal(t, 4, res.Stats.Rows)
		assert.FileExists(t, res.Job.Output)
	}
	assert.ErrorIs(t, results[3].Err, implode.ErrTruncatedInput)

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.filesTotal.WithLabelValues(statusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.filesTotal.WithLabelValues(statusError)))
	assert.Equal(t, 12.0, testutil.ToFloat64(metrics.rowsTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.deletedTotal))

	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	assert.Len(t, lines, 6)
	for _, line := range lines {
		assert.Contains(t, line, `"run_id":"`+runner.ID()+`"`)
	}
	assert.Contains(t, logs.String(), `"message":"conversion failed"`)
}

func TestRunFailFast(t *testing.T) {
	dir := t.TempDir()
	inputs := writeInputs(t, dir, []string{"A.dbc", "B.dbc"}, "BAD.dbc")
	inputs = append(inputs[2:], inputs[:2]...)
	jobs, err := Jobs(inputs, "", "none")
	require.NoError(t, err)

	results, err := NewRunner(DefaultOptions()).Run(context.Background(), jobs)
	assert.ErrorIs(t, err, implode.ErrTruncatedInput)
	assert.Contains(t, err.Error(), "BAD.dbc")

	require.Len(t, results, 3)
	assert.Error(t, results[0].Err)
	for _, res := range results[1:] {
		assert.True(t, res.Skipped)
		assert.NoError(t, res.Err)
		assert.NoFileExists(t, res.Job.Output)
	}
}

func TestRunCanceled(t *testing.T) {
	dir := t.TempDir()
	jobs, err := Jobs(writeInputs(t, dir, []string{"A.dbc", "B.dbc"}), "", "none")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := NewRunner(nil).Run(ctx, jobs)
	assert.True(t, errors.Is(err, context.Canceled))
	for _, res := range results {
		assert.True(t, res.Skipped)
	}
}

func TestHintMismatchIsLogged(t *testing.T) {
	dir := t.TempDir()
	jobs, err := Jobs(writeInputs(t, dir, []string{"A.dbc"}), "", "gzip")
	require.NoError(t, err)

	var logs bytes.Buffer
	opts := DefaultOptions()
	opts.Compression = "gzip"
	opts.Decode = &dbc.Options{DictHint: implode.Dict4K}
	opts.Logger = zerolog.New(&logs)

	results, err := NewRunner(opts).Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.True(t, results[0].Stats.HintMismatch)
	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), `"hint":"4K"`)
	assert.True(t, strings.HasSuffix(results[0].Job.Output, ".csv.gz"))
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.Record(Result{Stats: Stats{Rows: 7, InputBytes: 100, OutputBytes: 300}})
	m.finishRun()

	path := filepath.Join(t.TempDir(), "dbc.prom")
	require.NoError(t, m.WriteTextfile(path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(got), `dbc_files_total{status="success"} 1`)
	assert.Contains(t, string(got), "dbc_rows_total 7")
	assert.Contains(t, string(got), "dbc_last_run_finished_timestamp_seconds")
}
