// Package benchmarks provides synthetic cache workloads and a harness that
// replays them across cache geometries.
package benchmarks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/reference"
	"github.com/sarchlab/cachesim/sim"
	"github.com/sarchlab/cachesim/trace"
)

// Version is reported in JSON output.
const Version = "0.3.0"

// Result holds the counters of one workload on one cache geometry.
type Result struct {
	// Workload identifies the trace
	Workload string `json:"workload"`

	// Description explains the access pattern
	Description string `json:"description"`

	// Config is the cache geometry
	Config cache.Config `json:"config"`

	// Records is the number of trace records, including instruction fetches
	Records int `json:"records"`

	Hits       uint64  `json:"hits"`
	Misses     uint64  `json:"misses"`
	Evictions  uint64  `json:"evictions"`
	ColdMisses uint64  `json:"cold_misses"`
	HitRate    float64 `json:"hit_rate"`

	// Verified is set when the run was cross-checked against the reference
	// model
	Verified bool `json:"verified"`

	// WallTime is the actual time taken to replay the trace
	WallTime time.Duration `json:"wall_time_ns"`
}

// Workload is a named, deterministic trace.
type Workload struct {
	// Name identifies the workload
	Name string

	// Description explains what the workload exercises
	Description string

	// Records builds the trace. It must return the same records every call.
	Records func() []trace.Record
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Configs are the cache geometries every workload runs on
	Configs []cache.Config

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose prints a line per run
	Verbose bool

	// Verify replays every access through the reference model as well
	Verify bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Configs: []cache.Config{
			cache.DefaultConfig(),
			{SetIndexBits: 4, LinesPerSet: 1, BlockOffsetBits: 4},
			{SetIndexBits: 4, LinesPerSet: 4, BlockOffsetBits: 5},
			{SetIndexBits: 0, LinesPerSet: 16, BlockOffsetBits: 6},
		},
		Output: os.Stdout,
	}
}

// Harness runs workloads and reports results.
type Harness struct {
	config    HarnessConfig
	workloads []Workload
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if len(config.Configs) == 0 {
		config.Configs = []cache.Config{cache.DefaultConfig()}
	}
	return &Harness{
		config:    config,
		workloads: []Workload{},
	}
}

// AddWorkload adds a workload to the harness.
func (h *Harness) AddWorkload(w Workload) {
	h.workloads = append(h.workloads, w)
}

// AddWorkloads adds multiple workloads to the harness.
func (h *Harness) AddWorkloads(workloads []Workload) {
	h.workloads = append(h.workloads, workloads...)
}

// RunAll runs every workload on every configured geometry. Results are
// ordered by workload, then by geometry.
func (h *Harness) RunAll() ([]Result, error) {
	results := make([]Result, 0, len(h.workloads)*len(h.config.Configs))

	for _, w := range h.workloads {
		records := w.Records()
		for _, config := range h.config.Configs {
			result, err := h.run(w, records, config)
			if err != nil {
				return results, fmt.Errorf("workload %s on %s: %w", w.Name, config, err)
			}
			results = append(results, result)
		}
	}

	return results, nil
}

func (h *Harness) run(w Workload, records []trace.Record, config cache.Config) (Result, error) {
	c, err := cache.New(config)
	if err != nil {
		return Result{}, err
	}

	var opts []sim.Option
	verified := false
	if h.config.Verify {
		m, err := reference.New(config)
		switch {
		case errors.Is(err, reference.ErrUnsupportedConfig):
			if h.config.Verbose {
				_, _ = fmt.Fprintf(h.config.Output, "skipping reference check for %s: %v\n", config, err)
			}
		case err != nil:
			return Result{}, err
		default:
			opts = append(opts, sim.WithReference(m))
			verified = true
		}
	}

	s := sim.New(c, opts...)

	start := time.Now()
	err = s.Run(context.Background(), records)
	wallTime := time.Since(start)
	if err != nil {
		return Result{}, err
	}

	stats := s.Stats()
	result := Result{
		Workload:    w.Name,
		Description: w.Description,
		Config:      config,
		Records:     len(records),
		Hits:        stats.Hits,
		Misses:      stats.Misses,
		Evictions:   stats.Evictions,
		ColdMisses:  stats.ColdMisses,
		HitRate:     stats.HitRate(),
		Verified:    verified,
		WallTime:    wallTime,
	}

	if h.config.Verbose {
		_, _ = fmt.Fprintf(h.config.Output, "%-18s %-14s hits:%d misses:%d evictions:%d\n",
			w.Name, config, result.Hits, result.Misses, result.Evictions)
	}

	return result, nil
}

// PrintResults outputs results in a human-readable format.
func (h *Harness) PrintResults(results []Result) {
	_, _ = fmt.Fprintln(h.config.Output, "=== Cache Simulator Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Workload: %s (%s)\n", r.Workload, r.Config)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Records:     %d\n", r.Records)
		_, _ = fmt.Fprintf(h.config.Output, "  Hits:        %d\n", r.Hits)
		_, _ = fmt.Fprintf(h.config.Output, "  Misses:      %d\n", r.Misses)
		_, _ = fmt.Fprintf(h.config.Output, "  Evictions:   %d\n", r.Evictions)
		_, _ = fmt.Fprintf(h.config.Output, "  Cold Misses: %d\n", r.ColdMisses)
		_, _ = fmt.Fprintf(h.config.Output, "  Hit Rate:    %.1f%%\n", r.HitRate*100)
		if r.Verified {
			_, _ = fmt.Fprintln(h.config.Output, "  Reference:   agreed")
		}
		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time:   %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []Result) {
	_, _ = fmt.Fprintln(h.config.Output,
		"workload,s,E,b,records,hits,misses,evictions,cold_misses,hit_rate,wall_time_ns")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%d,%d,%d,%d,%d,%d,%.4f,%d\n",
			r.Workload,
			r.Config.SetIndexBits,
			r.Config.LinesPerSet,
			r.Config.BlockOffsetBits,
			r.Records,
			r.Hits,
			r.Misses,
			r.Evictions,
			r.ColdMisses,
			r.HitRate,
			r.WallTime.Nanoseconds(),
		)
	}
}

// Report is the complete JSON output of a harness run.
type Report struct {
	Metadata ReportMetadata `json:"metadata"`
	Results  []Result       `json:"results"`
	Summary  ReportSummary  `json:"summary"`
}

// ReportMetadata contains information about the run.
type ReportMetadata struct {
	Timestamp string         `json:"timestamp"`
	Version   string         `json:"version"`
	Configs   []cache.Config `json:"configs"`
	Verify    bool           `json:"verify"`
}

// ReportSummary contains aggregate statistics across all results.
type ReportSummary struct {
	TotalRuns     int           `json:"total_runs"`
	TotalHits     uint64        `json:"total_hits"`
	TotalMisses   uint64        `json:"total_misses"`
	AverageHit    float64       `json:"average_hit_rate"`
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// PrintJSON outputs results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []Result) error {
	summary := ReportSummary{TotalRuns: len(results)}
	var hitRates float64
	for _, r := range results {
		summary.TotalHits += r.Hits
		summary.TotalMisses += r.Misses
		summary.TotalWallTime += r.WallTime
		hitRates += r.HitRate
	}
	if len(results) > 0 {
		summary.AverageHit = hitRates / float64(len(results))
	}

	report := Report{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   Version,
			Configs:   h.config.Configs,
			Verify:    h.config.Verify,
		},
		Results: results,
		Summary: summary,
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
