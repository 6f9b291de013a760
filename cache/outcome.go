package cache

import "fmt"

// OutcomeKind classifies a single access.
type OutcomeKind int

const (
	// Hit means the line was resident.
	Hit OutcomeKind = iota
	// ColdMiss means the line was absent and the set still had an unused slot.
	ColdMiss
	// Miss means the line was absent and another line had to be evicted.
	Miss
)

func (k OutcomeKind) String() string {
	switch k {
	case Hit:
		return "hit"
	case ColdMiss:
		return "cold_miss"
	case Miss:
		return "miss"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the result of one access. EvictedTag is only meaningful when
// Kind is Miss.
type Outcome struct {
	Kind       OutcomeKind
	EvictedTag uint64
}

// HitOutcome returns a Hit outcome.
func HitOutcome() Outcome {
	return Outcome{Kind: Hit}
}

// ColdMissOutcome returns a ColdMiss outcome.
func ColdMissOutcome() Outcome {
	return Outcome{Kind: ColdMiss}
}

// MissOutcome returns a Miss outcome that evicted evictedTag.
func MissOutcome(evictedTag uint64) Outcome {
	return Outcome{Kind: Miss, EvictedTag: evictedTag}
}

// IsHit reports whether the access hit.
func (o Outcome) IsHit() bool {
	return o.Kind == Hit
}

// Evicted reports whether the access evicted a line.
func (o Outcome) Evicted() bool {
	return o.Kind == Miss
}

// String renders the outcome the way the verbose trace output prints it.
func (o Outcome) String() string {
	switch o.Kind {
	case Hit:
		return "hit"
	case ColdMiss:
		return "miss"
	case Miss:
		return "miss eviction"
	default:
		return o.Kind.String()
	}
}
