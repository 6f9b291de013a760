package benchmarks

import (
	"math/rand"

	"github.com/sarchlab/cachesim/trace"
)

// GetWorkloads returns the standard set of synthetic workloads. Each one
// targets a specific cache behavior.
func GetWorkloads() []Workload {
	return []Workload{
		sequential(),
		strided(),
		thrash(),
		matrixTranspose(),
		randomUniform(),
		modifyHeavy(),
	}
}

// GetCoreWorkloads returns a minimal set for quick validation: spatial
// locality, conflict misses, and random reuse.
func GetCoreWorkloads() []Workload {
	return []Workload{
		sequential(),
		thrash(),
		randomUniform(),
	}
}

func load(addr uint64, size uint64) trace.Record {
	return trace.Record{Op: trace.Load, Address: addr, Size: size}
}

func store(addr uint64, size uint64) trace.Record {
	return trace.Record{Op: trace.Store, Address: addr, Size: size}
}

func fetch(addr uint64) trace.Record {
	return trace.Record{Op: trace.Instruction, Address: addr, Size: 4}
}

// 1. Sequential - 8-byte loads over consecutive addresses
func sequential() Workload {
	return Workload{
		Name:        "sequential",
		Description: "1024 consecutive 8-byte loads - measures spatial locality",
		Records: func() []trace.Record {
			records := make([]trace.Record, 0, 1024)
			for i := uint64(0); i < 1024; i++ {
				records = append(records, load(i*8, 8))
			}
			return records
		},
	}
}

// 2. Strided - loads 256 bytes apart, swept four times
func strided() Workload {
	return Workload{
		Name:        "strided",
		Description: "4 sweeps of 64 loads with a 256-byte stride - one access per block",
		Records: func() []trace.Record {
			records := make([]trace.Record, 0, 4*64)
			for sweep := 0; sweep < 4; sweep++ {
				for i := uint64(0); i < 64; i++ {
					records = append(records, load(0x10000+i*256, 4))
				}
			}
			return records
		},
	}
}

// ThrashTags is the number of distinct blocks the thrash workload cycles
// through.
const ThrashTags = 17

// 3. Thrash - more blocks than any configured set holds, all in one set
func thrash() Workload {
	return Workload{
		Name:        "thrash",
		Description: "17 blocks 64KiB apart, cycled 8 times - LRU worst case",
		Records: func() []trace.Record {
			records := make([]trace.Record, 0, 8*ThrashTags)
			for round := 0; round < 8; round++ {
				for i := uint64(0); i < ThrashTags; i++ {
					records = append(records, load(i<<16, 8))
				}
			}
			return records
		},
	}
}

// 4. Matrix Transpose - B[j][i] = A[i][j] on 32x32 int64 matrices
func matrixTranspose() Workload {
	const (
		n     = 32
		elem  = 8
		aBase = uint64(0x100000)
		bBase = uint64(0x200000)
		pc    = uint64(0x400000)
	)
	return Workload{
		Name:        "matrix_transpose",
		Description: "32x32 transpose - row-major reads, column-major writes",
		Records: func() []trace.Record {
			records := make([]trace.Record, 0, n*n*3)
			for i := uint64(0); i < n; i++ {
				for j := uint64(0); j < n; j++ {
					records = append(records,
						fetch(pc),
						load(aBase+(i*n+j)*elem, elem),
						store(bBase+(j*n+i)*elem, elem),
					)
				}
			}
			return records
		},
	}
}

// RandomSeed seeds the random workload.
const RandomSeed = 20240611

// 5. Random Uniform - seeded random loads and stores over 64KiB
func randomUniform() Workload {
	return Workload{
		Name:        "random_uniform",
		Description: "4096 random accesses over 64KiB - capacity-bound reuse",
		Records: func() []trace.Record {
			rng := rand.New(rand.NewSource(RandomSeed))
			records := make([]trace.Record, 0, 4096)
			for i := 0; i < 4096; i++ {
				addr := uint64(rng.Intn(1<<16)) &^ 7
				if rng.Intn(3) == 0 {
					records = append(records, store(addr, 8))
				} else {
					records = append(records, load(addr, 8))
				}
			}
			return records
		},
	}
}

// 6. Modify Heavy - read-modify-write over a small counter array
func modifyHeavy() Workload {
	const pc = uint64(0x400100)
	return Workload{
		Name:        "modify_heavy",
		Description: "16 passes of M over 32 counters - each modify adds a write hit",
		Records: func() []trace.Record {
			records := make([]trace.Record, 0, 16*32*2)
			for pass := 0; pass < 16; pass++ {
				for i := uint64(0); i < 32; i++ {
					records = append(records,
						fetch(pc+i%4*4),
						trace.Record{Op: trace.Modify, Address: 0x8000 + i*4, Size: 4},
					)
				}
			}
			return records
		},
	}
}
