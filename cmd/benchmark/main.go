// Command benchmark runs the synthetic cache workload harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv      Output results in CSV format (default: human-readable)
//	-json     Output results in JSON format
//	-core     Run only the core workloads
//	-verify   Cross-check every access against the reference model
//	-config   Run on the geometry in this JSON file instead of the defaults
//	-v        Print a line per run
//
// Example:
//
//	# Run all workloads with human-readable output
//	go run ./cmd/benchmark
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark -csv > results.csv
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/cachesim/benchmarks"
	"github.com/sarchlab/cachesim/cache"
)

func main() {
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results in JSON format")
	coreOnly := flag.Bool("core", false, "Run only the core workloads")
	verify := flag.Bool("verify", false, "Cross-check every access against the reference model")
	configPath := flag.String("config", "", "Path to a cache geometry JSON file")
	verbose := flag.Bool("v", false, "Print a line per run")
	flag.Parse()

	config := benchmarks.DefaultConfig()
	config.Output = os.Stdout
	config.Verify = *verify
	config.Verbose = *verbose

	if *configPath != "" {
		c, err := cache.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		config.Configs = []cache.Config{c}
	}

	harness := benchmarks.NewHarness(config)
	if *coreOnly {
		harness.AddWorkloads(benchmarks.GetCoreWorkloads())
	} else {
		harness.AddWorkloads(benchmarks.GetWorkloads())
	}

	human := !*csvOutput && !*jsonOutput
	if human {
		fmt.Println("Cache Simulator Benchmark Harness")
		fmt.Println("=================================")
		for _, c := range config.Configs {
			fmt.Printf("Geometry: %s (%d lines)\n", c, c.Capacity())
		}
		fmt.Printf("Reference check: %v\n", config.Verify)
		fmt.Println("")
	}

	results, err := harness.RunAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing JSON: %v\n", err)
			os.Exit(1)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)

		fmt.Println("=== Summary ===")
		fmt.Println("")
		fmt.Println("Expected characteristics:")
		fmt.Println("- sequential: one miss per block, hit rate grows with block size")
		fmt.Println("- strided: one access per block, hits only when the sweep fits")
		fmt.Println("- thrash: no hits under LRU")
		fmt.Println("- matrix_transpose: column writes conflict in small caches")
		fmt.Println("- random_uniform: hit rate tracks capacity over 64KiB")
		fmt.Println("- modify_heavy: at least half of all hits come from writes")
	}
}
