// Package main cross-checks the cache model against the Akita reference
// model. Every access of every workload must be classified identically.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sarchlab/cachesim/benchmarks"
	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/reference"
	"github.com/sarchlab/cachesim/sim"
	"github.com/sarchlab/cachesim/trace"
)

// testEvictionScenarios checks the two hand-computed traces on a single
// two-line set.
func testEvictionScenarios() bool {
	fmt.Println("Testing eviction scenarios...")

	config := cache.Config{SetIndexBits: 0, LinesPerSet: 2, BlockOffsetBits: 0}
	cases := []struct {
		addrs []uint64
		want  []cache.Outcome
	}{
		{
			addrs: []uint64{1, 2, 1, 3},
			want: []cache.Outcome{
				cache.ColdMissOutcome(), cache.ColdMissOutcome(),
				cache.HitOutcome(), cache.MissOutcome(2),
			},
		},
		{
			addrs: []uint64{1, 2, 3, 1},
			want: []cache.Outcome{
				cache.ColdMissOutcome(), cache.ColdMissOutcome(),
				cache.MissOutcome(1), cache.MissOutcome(2),
			},
		},
	}

	for i, tc := range cases {
		c, err := cache.New(config)
		if err != nil {
			fmt.Printf("❌ Scenario %d: %v\n", i, err)
			return false
		}
		m, err := reference.New(config)
		if err != nil {
			fmt.Printf("❌ Scenario %d: %v\n", i, err)
			return false
		}

		for j, addr := range tc.addrs {
			got := c.Access(addr)
			ref := m.Access(addr)
			if got != tc.want[j] || ref != tc.want[j] {
				fmt.Printf("❌ Scenario %d access %d (0x%x): cache %v, reference %v, want %v\n",
					i, j, addr, got, ref, tc.want[j])
				return false
			}
		}

		fmt.Printf("✅ Scenario %d: %v\n", i, tc.addrs)
	}

	return true
}

// testWorkloads replays every benchmark workload on several geometries with
// the reference model and invariant checks enabled.
func testWorkloads() bool {
	fmt.Println("\nTesting workloads against the reference model...")

	configs := []cache.Config{
		{SetIndexBits: 0, LinesPerSet: 1, BlockOffsetBits: 0},
		{SetIndexBits: 1, LinesPerSet: 3, BlockOffsetBits: 2},
		cache.DefaultConfig(),
		{SetIndexBits: 5, LinesPerSet: 1, BlockOffsetBits: 5},
		{SetIndexBits: 3, LinesPerSet: 8, BlockOffsetBits: 6},
		{SetIndexBits: 0, LinesPerSet: 32, BlockOffsetBits: 4},
	}

	allPassed := true
	for _, w := range benchmarks.GetWorkloads() {
		records := w.Records()
		for _, config := range configs {
			if !replay(w.Name, records, config) {
				allPassed = false
			}
		}
	}

	return allPassed
}

func replay(name string, records []trace.Record, config cache.Config) bool {
	c, err := cache.New(config)
	if err != nil {
		fmt.Printf("❌ %s on %s: %v\n", name, config, err)
		return false
	}
	m, err := reference.New(config)
	if err != nil {
		fmt.Printf("❌ %s on %s: %v\n", name, config, err)
		return false
	}

	s := sim.New(c, sim.WithReference(m), sim.WithInvariantChecks())
	if err := s.Run(context.Background(), records); err != nil {
		fmt.Printf("❌ %s on %s: %v\n", name, config, err)
		return false
	}

	stats := s.Stats()
	fmt.Printf("✅ %s on %s: hits:%d misses:%d evictions:%d\n",
		name, config, stats.Hits, stats.Misses, stats.Evictions)
	return true
}

func main() {
	fmt.Println("Cache Simulator Reference Validation")
	fmt.Println("====================================")

	allPassed := true

	if !testEvictionScenarios() {
		allPassed = false
	}

	if !testWorkloads() {
		allPassed = false
	}

	fmt.Println("\n====================================")
	if allPassed {
		fmt.Println("🎉 ALL REFERENCE CHECKS PASSED")
		os.Exit(0)
	} else {
		fmt.Println("❌ REFERENCE CHECKS FAILED")
		os.Exit(1)
	}
}
