package cache

// Statistics holds the performance counters of a run.
type Statistics struct {
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
	Evictions  uint64 `json:"evictions"`
	ColdMisses uint64 `json:"cold_misses"`
}

// Record counts one access outcome. Cold misses are kept apart from Misses,
// so Misses only counts accesses that evicted a line.
func (s *Statistics) Record(o Outcome) {
	switch o.Kind {
	case Hit:
		s.Hits++
	case ColdMiss:
		s.ColdMisses++
	case Miss:
		s.Misses++
		s.Evictions++
	}
}

// AddHit counts one hit that did not come from an access.
func (s *Statistics) AddHit() {
	s.Hits++
}

// Accesses returns the number of recorded outcomes plus extra hits.
func (s Statistics) Accesses() uint64 {
	return s.Hits + s.Misses + s.ColdMisses
}

// HitRate returns hits over all accesses, or 0 for an empty run.
func (s Statistics) HitRate() float64 {
	total := s.Accesses()
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
