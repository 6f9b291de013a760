// Package main provides a profiling wrapper for the cache simulator to
// identify performance bottlenecks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sarchlab/cachesim/benchmarks"
	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/reference"
	"github.com/sarchlab/cachesim/sim"
	"github.com/sarchlab/cachesim/trace"
)

var (
	setBits    = flag.Uint("s", 6, "number of set index bits")
	lines      = flag.Uint("E", 8, "number of lines per set")
	blockBits  = flag.Uint("b", 6, "number of block offset bits")
	workload   = flag.String("workload", "random_uniform", "synthetic workload to replay when no trace is given")
	repeat     = flag.Int("repeat", 200, "number of times to replay the records")
	verify     = flag.Bool("verify", false, "also replay through the reference model")
	cpuProfile = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile = flag.String("memprofile", "", "write memory profile to file")
	duration   = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
)

func main() {
	flag.Parse()

	if flag.NArg() > 1 {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] [tracefile]\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	records, source, err := loadRecords()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading records: %v\n", err)
		os.Exit(1)
	}

	config := cache.Config{SetIndexBits: *setBits, LinesPerSet: *lines, BlockOffsetBits: *blockBits}
	c, err := cache.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating cache: %v\n", err)
		os.Exit(1)
	}

	var opts []sim.Option
	if *verify {
		m, err := reference.New(config)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating reference model: %v\n", err)
			os.Exit(1)
		}
		opts = append(opts, sim.WithReference(m))
	}
	s := sim.New(c, opts...)

	fmt.Printf("Loaded: %s (%d records)\n", source, len(records))
	fmt.Printf("Cache: %s\n", config)

	// Start CPU profiling if requested
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	replays := 0
	for ; replays < *repeat; replays++ {
		if err := s.Run(ctx, records); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				fmt.Printf("\nTimeout reached after %v - stopping replay\n", *duration)
				break
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	elapsed := time.Since(start)

	// Write memory profile if requested
	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
	}

	stats := s.Stats()
	accesses := stats.Accesses()

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Replays completed: %d\n", replays)
	fmt.Printf("hits:%d misses:%d evictions:%d\n", stats.Hits, stats.Misses, stats.Evictions)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if accesses > 0 {
		fmt.Printf("Accesses/second: %.0f\n", float64(accesses)/elapsed.Seconds())
	}
}

// loadRecords reads the trace named on the command line, or builds the
// selected synthetic workload.
func loadRecords() ([]trace.Record, string, error) {
	if flag.NArg() == 1 {
		path := flag.Arg(0)
		records, err := trace.Load(path)
		return records, path, err
	}

	for _, w := range benchmarks.GetWorkloads() {
		if w.Name == *workload {
			return w.Records(), "workload " + w.Name, nil
		}
	}
	return nil, "", fmt.Errorf("unknown workload %q", *workload)
}
