// Package reference provides a second cache model, built on Akita's cache
// directory, for cross-checking the simulator.
package reference

import (
	"errors"
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/cachesim/cache"
)

// Limits on the geometries the Akita directory can hold.
const (
	MaxSetIndexBits    = 20
	MaxBlockOffsetBits = 40
)

// ErrUnsupportedConfig is returned for geometries the directory cannot model.
var ErrUnsupportedConfig = errors.New("config not supported by the reference model")

// Model is an LRU cache backed by an Akita directory. Akita keys blocks by
// their block-aligned address, so the tag is recovered by shifting.
type Model struct {
	config    cache.Config
	directory *akitacache.DirectoryImpl
}

// New creates a Model with the given geometry.
func New(config cache.Config) (*Model, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}

	if config.SetIndexBits > MaxSetIndexBits ||
		config.BlockOffsetBits > MaxBlockOffsetBits ||
		config.TagBits() == 0 {
		return nil, fmt.Errorf("%s: %w", config, ErrUnsupportedConfig)
	}

	return &Model{
		config: config,
		directory: akitacache.NewDirectory(
			int(config.NumSets()),
			int(config.LinesPerSet),
			int(config.BlockSize()),
			akitacache.NewLRUVictimFinder(),
		),
	}, nil
}

// Config returns the model geometry.
func (m *Model) Config() cache.Config {
	return m.config
}

// Access classifies one access the same way cache.Cache does.
func (m *Model) Access(addr uint64) cache.Outcome {
	blockAddr := cache.BlockAddress(addr, m.config)

	block := m.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		m.directory.Visit(block)
		return cache.HitOutcome()
	}

	victim := m.directory.FindVictim(blockAddr)
	if victim == nil {
		panic(fmt.Sprintf("no victim for address 0x%x", addr))
	}

	outcome := cache.ColdMissOutcome()
	if victim.IsValid {
		outcome = cache.MissOutcome(m.tagOf(victim.Tag))
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	m.directory.Visit(victim)

	return outcome
}

// Reset invalidates every block.
func (m *Model) Reset() {
	m.directory.Reset()
}

func (m *Model) tagOf(blockAddr uint64) uint64 {
	return blockAddr >> (m.config.SetIndexBits + m.config.BlockOffsetBits)
}
