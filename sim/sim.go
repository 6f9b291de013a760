// Package sim replays memory-access traces through a cache and counts the
// results.
package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/trace"
)

// Event describes one simulated data access.
type Event struct {
	Seq        uint64
	Op         trace.Op
	Address    uint64
	Size       uint64
	Tag        uint64
	Set        uint64
	Kind       cache.OutcomeKind
	EvictedTag uint64
	ExtraHit   bool
}

// A Recorder receives every simulated data access.
type Recorder interface {
	Record(event Event) error
	Close() error
}

// A Checker is an independent cache model that replays the same accesses.
type Checker interface {
	Access(addr uint64) cache.Outcome
}

// Result is what Step did with one trace record.
type Result struct {
	Record  trace.Record
	Outcome cache.Outcome

	// Accessed is false for records that do not reach the cache.
	Accessed bool

	// ExtraHit is set for Modify records, whose write half always hits.
	ExtraHit bool
}

// MismatchError is returned when the reference model classifies an access
// differently.
type MismatchError struct {
	Seq    uint64
	Record trace.Record
	Got    cache.Outcome
	Want   cache.Outcome
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("access %d (%s): cache says %s (evicted 0x%x), reference says %s (evicted 0x%x)",
		e.Seq, e.Record, e.Got.Kind, e.Got.EvictedTag, e.Want.Kind, e.Want.EvictedTag)
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithLogger prints every data access in verbose form to logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Simulator) {
		s.logger = logger
	}
}

// WithRecorder adds a recorder. It can be given more than once.
func WithRecorder(r Recorder) Option {
	return func(s *Simulator) {
		s.recorders = append(s.recorders, r)
	}
}

// WithReference cross-checks every access against another model.
func WithReference(c Checker) Option {
	return func(s *Simulator) {
		s.reference = c
	}
}

// WithInvariantChecks verifies the cache state after every access.
func WithInvariantChecks() Option {
	return func(s *Simulator) {
		s.checkInvariants = true
	}
}

// Simulator drives a cache with trace records.
type Simulator struct {
	cache *cache.Cache
	stats cache.Statistics
	seq   uint64

	logger          *log.Logger
	recorders       []Recorder
	reference       Checker
	checkInvariants bool
}

// New creates a Simulator around c.
func New(c *cache.Cache, opts ...Option) *Simulator {
	s := &Simulator{cache: c}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns the run counters. Unlike the cache's own Stats, they include the
// extra hit counted for every Modify record.
func (s *Simulator) Stats() cache.Statistics {
	return s.stats
}

// Step simulates one trace record.
//
// Load and Store are one access each. Instruction records are skipped.
// Modify is one access followed by a write that always hits, so it adds one
// hit on top of whatever the access produced.
func (s *Simulator) Step(rec trace.Record) (Result, error) {
	result := Result{Record: rec}
	if rec.Op == trace.Instruction {
		return result, nil
	}

	seq := s.seq
	s.seq++

	outcome := s.cache.Access(rec.Address)
	s.stats.Record(outcome)

	result.Accessed = true
	result.Outcome = outcome

	if rec.Op == trace.Modify {
		s.stats.AddHit()
		result.ExtraHit = true
	}

	if s.logger != nil {
		s.logVerbose(result)
	}

	if s.reference != nil {
		want := s.reference.Access(rec.Address)
		if want != outcome {
			return result, &MismatchError{Seq: seq, Record: rec, Got: outcome, Want: want}
		}
	}

	if s.checkInvariants {
		if err := s.cache.CheckInvariants(); err != nil {
			return result, fmt.Errorf("after access %d (%s): %w", seq, rec, err)
		}
	}

	if len(s.recorders) > 0 {
		if err := s.record(seq, result); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (s *Simulator) logVerbose(result Result) {
	line := fmt.Sprintf("%s %s", result.Record, result.Outcome)
	if result.ExtraHit {
		line += " hit"
	}
	s.logger.Println(line)
}

func (s *Simulator) record(seq uint64, result Result) error {
	tag, setIndex := cache.Decode(result.Record.Address, s.cache.Config())
	event := Event{
		Seq:        seq,
		Op:         result.Record.Op,
		Address:    result.Record.Address,
		Size:       result.Record.Size,
		Tag:        tag,
		Set:        setIndex,
		Kind:       result.Outcome.Kind,
		EvictedTag: result.Outcome.EvictedTag,
		ExtraHit:   result.ExtraHit,
	}

	for _, r := range s.recorders {
		if err := r.Record(event); err != nil {
			return fmt.Errorf("failed to record access %d: %w", seq, err)
		}
	}

	return nil
}

// Run simulates records in order. It stops early if ctx is cancelled.
func (s *Simulator) Run(ctx context.Context, records []trace.Record) error {
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := s.Step(rec); err != nil {
			return err
		}
	}
	return nil
}

// RunReader simulates every record r yields.
func (s *Simulator) RunReader(ctx context.Context, r *trace.Reader) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if _, err := s.Step(rec); err != nil {
			return err
		}
	}
}

// Close closes all recorders.
func (s *Simulator) Close() error {
	var errs []error
	for _, r := range s.recorders {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
