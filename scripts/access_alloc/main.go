// Validate the access hot path - measures allocations in Cache.Access
package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/sarchlab/cachesim/cache"
)

func main() {
	c, err := cache.New(cache.Config{SetIndexBits: 6, LinesPerSet: 8, BlockOffsetBits: 6})
	if err != nil {
		panic(err)
	}

	// Addresses that mix hits, cold misses, and evictions
	addrs := make([]uint64, 0, 4096)
	for i := uint64(0); i < 4096; i++ {
		addrs = append(addrs, (i*2654435761)%(1<<18))
	}

	// Warm up
	for _, a := range addrs {
		c.Access(a)
	}

	runtime.GC()
	var m1, m2 runtime.MemStats
	runtime.ReadMemStats(&m1)

	start := time.Now()
	iterations := 100

	for i := 0; i < iterations; i++ {
		for _, a := range addrs {
			c.Access(a)
		}
	}

	elapsed := time.Since(start)
	runtime.ReadMemStats(&m2)

	totalAccesses := iterations * len(addrs)
	allocations := m2.Mallocs - m1.Mallocs
	allocatedBytes := m2.TotalAlloc - m1.TotalAlloc
	stats := c.Stats()

	fmt.Printf("Access Path Validation Results:\n")
	fmt.Printf("===============================\n")
	fmt.Printf("Total accesses: %d\n", totalAccesses)
	fmt.Printf("hits:%d misses:%d evictions:%d\n", stats.Hits, stats.Misses, stats.Evictions)
	fmt.Printf("Time elapsed: %v\n", elapsed)
	fmt.Printf("Accesses per second: %.0f\n", float64(totalAccesses)/elapsed.Seconds())
	fmt.Printf("Allocations: %d\n", allocations)
	fmt.Printf("Allocated bytes: %d\n", allocatedBytes)
	fmt.Printf("Allocations per access: %.3f\n", float64(allocations)/float64(totalAccesses))

	if allocations == 0 {
		fmt.Printf("\n✅ SUCCESS: Zero allocations detected on the access path.\n")
	} else if float64(allocations)/float64(totalAccesses) < 0.1 {
		fmt.Printf("\n✅ GOOD: Low allocation rate (< 0.1 per access)\n")
	} else {
		fmt.Printf("\n⚠️  WARNING: High allocation rate detected\n")
	}
}
