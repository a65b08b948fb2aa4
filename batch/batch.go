// Package batch converts many .DBC files concurrently.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/consensys/dbc"
	"github.com/consensys/dbc/emit"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
	"golang.org/x/exp/slices"
)

// ErrFailures is returned by a run that kept going past failed files.
var ErrFailures = errors.New("batch: some conversions failed")

// Job converts Input into Output.
type Job struct {
	Input  string
	Output string
}

// Result is the outcome of one job. Skipped jobs never started because
// the run stopped first.
type Result struct {
	Job      Job
	Stats    Stats
	Duration time.Duration
	Skipped  bool
	Err      error
}

// Options configure conversions and runs.
type Options struct {
	Decode      *dbc.Options
	Emit        *emit.Options
	Compression string

	// Workers bounds the number of files converted at once.
	Workers int
	// ContinueOnError keeps converting after a file fails.
	ContinueOnError bool

	Logger  zerolog.Logger
	Metrics *Metrics // nil disables metrics
}

func DefaultOptions() *Options {
	return &Options{
		Decode:      dbc.DefaultOptions(),
		Emit:        emit.DefaultOptions(),
		Compression: emit.None,
		Workers:     1,
		Logger:      zerolog.Nop(),
	}
}

// Runner runs batches of jobs. Each runner has its own id, attached to its log lines.
type Runner struct {
	opts Options
	id   ksuid.KSUID
	log  zerolog.Logger
}

// NewRunner returns a Runner. Options nil means DefaultOptions.
func NewRunner(opts *Options) *Runner {
	if opts == nil {
		opts = DefaultOptions()
	}
	id := ksuid.New()
	return &Runner{
		opts: *opts,
		id:   id,
		log:  opts.Logger.With().Str("run_id", id.String()).Logger(),
	}
}

func (r *Runner) ID() string {
	return r.id.String()
}

// Run converts jobs with a bounded pool of workers and returns one result per
// job, in job order. Without ContinueOnError the first failure cancels the
// jobs not yet started and is returned; with it, failures yield ErrFailures
// once every job ran.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]Result, len(jobs))
	for i := range jobs {
		results[i] = Result{Job: jobs[i], Skipped: true}
	}

	workers := r.opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	r.log.Info().Int("files", len(jobs)).Int("workers", workers).Msg("batch started")
	start := time.Now()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
		queue    = make(chan int)
	)
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range queue {
				res := r.convert(ctx, jobs[i])
				results[i] = res
				if res.Err != nil && !r.opts.ContinueOnError {
					once.Do(func() {
						firstErr = fmt.Errorf("%s: %w", res.Job.Input, res.Err)
						cancel()
					})
				}
			}
		}()
	}

feed:
	for i := range jobs {
		select {
		case queue <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()

	if r.opts.Metrics != nil {
		r.opts.Metrics.finishRun()
	}

	failed, skipped := 0, 0
	for _, res := range results {
		switch {
		case res.Err != nil:
			failed++
		case res.Skipped:
			skipped++
		}
	}
	r.log.Info().
		Int("files", len(jobs)).
		Int("failed", failed).
		Int("skipped", skipped).
		Dur("duration", time.Since(start)).
		Msg("batch finished")

	switch {
	case firstErr != nil:
		return results, firstErr
	case failed > 0:
		return results, fmt.Errorf("%w: %d of %d files", ErrFailures, failed, len(jobs))
	}
	return results, ctx.Err()
}

// Jobs pairs each input with its output path. Two inputs may not share an output.
func Jobs(inputs []string, outDir, compression string) ([]Job, error) {
	jobs := make([]Job, len(inputs))
	outputs := make([]string, len(inputs))
	for i, in := range inputs {
		out, err := OutputPath(in, outDir, compression)
		if err != nil {
			return nil, err
		}
		jobs[i], outputs[i] = Job{Input: in, Output: out}, out
	}

	slices.Sort(outputs)
	if len(slices.Compact(outputs)) != len(jobs) {
		return nil, errors.New("batch: several inputs map to the same output file")
	}
	return jobs, nil
}

func (r *Runner) convert(ctx context.Context, job Job) Result {
	log := r.log.With().Str("file", job.Input).Logger()
	if err := ctx.Err(); err != nil {
		return Result{Job: job, Skipped: true}
	}

	start := time.Now()
	stats, err := ConvertFile(ctx, job, &r.opts)
	res := Result{Job: job, Stats: stats, Duration: time.Since(start), Err: err}

	if r.opts.Metrics != nil {
		r.opts.Metrics.Record(res)
	}

	if err != nil {
		log.Error().Err(err).Msg("conversion failed")
		return res
	}
	if stats.HintMismatch {
		log.Warn().
			Stringer("dict", stats.Preamble.Dict).
			Stringer("hint", r.opts.Decode.DictHint).
			Msg("dictionary size differs from the hint, using the stream's")
	}
	log.Info().
		Str("output", job.Output).
		Stringer("format", stats.Format).
		Int("rows", stats.Rows).
		Int("deleted", stats.Deleted).
		Int64("bytes_in", stats.InputBytes).
		Int64("bytes_out", stats.OutputBytes).
		Dur("duration", res.Duration).
		Msg("converted")
	return res
}
