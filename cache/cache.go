package cache

import "fmt"

// Cache is a set-associative cache that evicts the least recently used line
// of a set. It tracks tags only; no data is stored. A Cache is not safe for
// concurrent use.
type Cache struct {
	config Config
	sets   []set
	stats  Statistics
}

// New builds an empty cache with the given geometry.
func New(config Config) (*Cache, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}

	sets := make([]set, config.NumSets())
	for i := range sets {
		sets[i] = newSet(int(config.LinesPerSet))
	}

	return &Cache{
		config: config,
		sets:   sets,
	}, nil
}

// Config returns the cache geometry.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns the counters for all accesses made so far.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// Access looks up addr, updates the recency order of its set, and reports
// whether the access hit, filled an unused line, or evicted a line.
func (c *Cache) Access(addr uint64) Outcome {
	tag, setIndex := Decode(addr, c.config)
	s := c.set(setIndex)

	outcome := s.access(tag)
	c.stats.Record(outcome)

	return outcome
}

// Probe reports whether addr is resident without changing any state.
func (c *Cache) Probe(addr uint64) bool {
	tag, setIndex := Decode(addr, c.config)
	_, ok := c.set(setIndex).find(tag)
	return ok
}

// Resident returns the tags held by the set at setIndex, most recently used
// first.
func (c *Cache) Resident(setIndex uint64) []uint64 {
	s := c.set(setIndex)

	tags := make([]uint64, 0, s.used)
	for _, slot := range s.recency.order() {
		if s.lines[slot].valid {
			tags = append(tags, s.lines[slot].tag)
		}
	}
	return tags
}

// CheckInvariants verifies every set's line store and recency order.
func (c *Cache) CheckInvariants() error {
	for i := range c.sets {
		if err := c.sets[i].check(); err != nil {
			return fmt.Errorf("set %d: %w", i, err)
		}
	}
	return nil
}

// Reset invalidates all lines and clears the counters.
func (c *Cache) Reset() {
	for i := range c.sets {
		c.sets[i].reset()
	}
	c.stats = Statistics{}
}

func (c *Cache) set(setIndex uint64) *set {
	if setIndex >= uint64(len(c.sets)) {
		panic(fmt.Sprintf("set index %d out of range [0, %d)", setIndex, len(c.sets)))
	}
	return &c.sets[setIndex]
}

// access classifies one access to the set and updates its state.
func (s *set) access(tag uint64) Outcome {
	if slot, ok := s.find(tag); ok {
		s.recency.touch(slot)
		return HitOutcome()
	}

	// Unused slots are never touched, so the tail is unused until the set
	// fills up.
	slot := s.recency.victim()

	if !s.isFull() {
		if s.lines[slot].valid {
			panic(fmt.Sprintf("set not full but LRU slot %d is valid", slot))
		}
		s.occupy(slot, tag)
		s.recency.touch(slot)
		return ColdMissOutcome()
	}

	evicted := s.lines[slot].tag
	s.occupy(slot, tag)
	s.recency.touch(slot)

	return MissOutcome(evicted)
}
