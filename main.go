// Package main provides the entry point for cachesim.
// cachesim is a trace-driven set-associative LRU cache simulator.
//
// For the full CLI, use: go run ./cmd/csim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("cachesim - Set-Associative LRU Cache Simulator")
	fmt.Println("Cross-checked against the Akita cache directory")
	fmt.Println("")
	fmt.Println("Usage: csim [-v] -s <s> -E <E> -b <b> -t <tracefile>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -s         Number of set index bits (2^s sets)")
	fmt.Println("  -E         Number of lines per set")
	fmt.Println("  -b         Number of block offset bits (2^b bytes per block)")
	fmt.Println("  -t         Trace file to replay")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/csim' for the full CLI.")
	fmt.Println("Run 'go run ./cmd/benchmark' for the synthetic workload harness.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/csim' instead.")
	}
}
