// Package cache provides a set-associative cache model with LRU replacement.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// AddressBits is the width of a simulated address.
const AddressBits = 64

// MaxSetIndexBits bounds the number of sets a cache may allocate.
const MaxSetIndexBits = 30

// MaxLinesPerSet bounds the associativity of one set.
const MaxLinesPerSet = 1 << 20

// MaxLines bounds the total number of lines a cache may allocate.
const MaxLines = 1 << 30

var (
	// ErrAddressBitsExceeded is returned when the set index and block offset
	// fields do not fit in an address.
	ErrAddressBitsExceeded = errors.New("set index bits plus block offset bits exceed address width")

	// ErrNoLines is returned when a set would hold no lines.
	ErrNoLines = errors.New("lines per set must be > 0")

	// ErrTooManySets is returned when the set table cannot be allocated.
	ErrTooManySets = errors.New("too many set index bits")

	// ErrTooManyLines is returned when the line store cannot be allocated.
	ErrTooManyLines = errors.New("too many lines")
)

// Config holds the cache geometry.
type Config struct {
	// SetIndexBits is s; the cache has 2^s sets.
	SetIndexBits uint `json:"set_index_bits"`

	// LinesPerSet is E, the associativity.
	LinesPerSet uint `json:"lines_per_set"`

	// BlockOffsetBits is b; each line holds 2^b bytes.
	BlockOffsetBits uint `json:"block_offset_bits"`
}

// DefaultConfig returns a small 4-set, 2-way cache with 16-byte lines.
func DefaultConfig() Config {
	return Config{
		SetIndexBits:    2,
		LinesPerSet:     2,
		BlockOffsetBits: 4,
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep their default values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read cache config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse cache config: %w", err)
	}

	return config, nil
}

// SaveConfig writes the Config to a JSON file.
func (c Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize cache config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache config file: %w", err)
	}

	return nil
}

// Validate checks that the geometry describes a buildable cache.
func (c Config) Validate() error {
	if c.BlockOffsetBits > AddressBits ||
		c.SetIndexBits > AddressBits-c.BlockOffsetBits {
		return fmt.Errorf("s=%d, b=%d: %w",
			c.SetIndexBits, c.BlockOffsetBits, ErrAddressBitsExceeded)
	}
	if c.SetIndexBits > MaxSetIndexBits {
		return fmt.Errorf("s=%d exceeds %d: %w",
			c.SetIndexBits, MaxSetIndexBits, ErrTooManySets)
	}
	if c.LinesPerSet == 0 {
		return ErrNoLines
	}
	if c.LinesPerSet > MaxLinesPerSet {
		return fmt.Errorf("E=%d exceeds %d: %w",
			c.LinesPerSet, MaxLinesPerSet, ErrTooManyLines)
	}
	if c.Capacity() > MaxLines {
		return fmt.Errorf("%d lines exceed %d: %w",
			c.Capacity(), uint64(MaxLines), ErrTooManyLines)
	}
	return nil
}

// TagBits returns the number of address bits left for the tag.
func (c Config) TagBits() uint {
	return AddressBits - c.SetIndexBits - c.BlockOffsetBits
}

// NumSets returns 2^SetIndexBits.
func (c Config) NumSets() uint64 {
	return uint64(1) << c.SetIndexBits
}

// BlockSize returns the line size in bytes. It saturates at the largest
// uint64 when BlockOffsetBits is 64.
func (c Config) BlockSize() uint64 {
	if c.BlockOffsetBits >= AddressBits {
		return ^uint64(0)
	}
	return uint64(1) << c.BlockOffsetBits
}

// Capacity returns the number of lines in the cache.
func (c Config) Capacity() uint64 {
	return c.NumSets() * uint64(c.LinesPerSet)
}

// String renders the geometry in the cachelab flag style.
func (c Config) String() string {
	return fmt.Sprintf("s=%d E=%d b=%d", c.SetIndexBits, c.LinesPerSet, c.BlockOffsetBits)
}
