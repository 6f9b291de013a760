package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/record"
	"github.com/sarchlab/cachesim/reference"
	"github.com/sarchlab/cachesim/sim"
	"github.com/sarchlab/cachesim/trace"
)

// run replays the trace and prints the summary line to out.
func run(ctx context.Context, opts options, out io.Writer) (stats cache.Statistics, err error) {
	c, err := cache.New(opts.config)
	if err != nil {
		return stats, err
	}

	if opts.saveConfigPath != "" {
		if err := opts.config.SaveConfig(opts.saveConfigPath); err != nil {
			return stats, err
		}
	}

	if opts.verbose {
		_, _ = fmt.Fprintf(out, "Cache: %s (%d sets, %d-byte blocks)\nTrace file: %s\n",
			opts.config, opts.config.NumSets(), opts.config.BlockSize(), opts.trace)
	}

	simOpts, err := buildSimOptions(opts, out)
	s := sim.New(c, simOpts...)
	defer func() {
		if closeErr := s.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	if err != nil {
		return stats, err
	}

	f, err := os.Open(opts.trace)
	if err != nil {
		return stats, fmt.Errorf("failed to open trace: %w", err)
	}
	defer f.Close()

	r := trace.NewReader(f)
	if err := s.RunReader(ctx, r); err != nil {
		return s.Stats(), fmt.Errorf("%s line %d: %w", opts.trace, r.Line(), err)
	}

	stats = s.Stats()
	printSummary(out, stats)

	if opts.metricsPath != "" {
		if err := record.WriteMetrics(opts.metricsPath, stats, opts.config); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// buildSimOptions returns the options built so far even on error, so that
// recorders already opened get closed.
func buildSimOptions(opts options, out io.Writer) ([]sim.Option, error) {
	var simOpts []sim.Option

	if opts.verbose {
		simOpts = append(simOpts, sim.WithLogger(log.New(out, "", 0)))
	}

	if opts.check {
		simOpts = append(simOpts, sim.WithInvariantChecks())
	}

	if opts.verify {
		m, err := reference.New(opts.config)
		if err != nil {
			return simOpts, err
		}
		simOpts = append(simOpts, sim.WithReference(m))
	}

	if opts.record {
		r, err := record.NewSQLiteRecorder(opts.recordPath)
		if err != nil {
			return simOpts, err
		}
		simOpts = append(simOpts, sim.WithRecorder(r))
	}

	if opts.arrowPath != "" {
		r, err := record.NewArrowRecorder(opts.arrowPath, record.DefaultBatchSize)
		if err != nil {
			return simOpts, err
		}
		simOpts = append(simOpts, sim.WithRecorder(r))
	}

	return simOpts, nil
}

func printSummary(out io.Writer, stats cache.Statistics) {
	_, _ = fmt.Fprintf(out, "hits:%d misses:%d evictions:%d\n",
		stats.Hits, stats.Misses, stats.Evictions)
}
