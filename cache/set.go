package cache

import "fmt"

// line is one slot of a set.
type line struct {
	valid bool
	tag   uint64
}

// set holds the lines that share one set index, plus their recency order.
type set struct {
	lines   []line
	used    int
	recency recencyList
}

func newSet(linesPerSet int) set {
	return set{
		lines:   make([]line, linesPerSet),
		recency: newRecencyList(linesPerSet),
	}
}

// find returns the slot holding tag, if any.
func (s *set) find(tag uint64) (int, bool) {
	for i := range s.lines {
		if s.lines[i].valid && s.lines[i].tag == tag {
			return i, true
		}
	}
	return 0, false
}

// isFull reports whether every slot is valid.
func (s *set) isFull() bool {
	return s.used == len(s.lines)
}

// occupy stores tag in slot and marks it valid.
func (s *set) occupy(slot int, tag uint64) {
	l := &s.lines[slot]
	if !l.valid {
		l.valid = true
		s.used++
	}
	l.tag = tag
}

// check verifies the line store against the recency order. Unused slots are
// never touched, so they must form the tail of the order.
func (s *set) check() error {
	if err := s.recency.check(); err != nil {
		return err
	}

	tags := make(map[uint64]int, len(s.lines))
	valid := 0
	for i, l := range s.lines {
		if !l.valid {
			continue
		}
		if other, dup := tags[l.tag]; dup {
			return fmt.Errorf("tag 0x%x held by slots %d and %d", l.tag, other, i)
		}
		tags[l.tag] = i
		valid++
	}
	if valid != s.used {
		return fmt.Errorf("%d valid lines, counter says %d", valid, s.used)
	}

	order := s.recency.order()
	for pos, slot := range order {
		resident := pos < s.used
		if s.lines[slot].valid != resident {
			return fmt.Errorf("slot %d at recency position %d has valid=%v",
				slot, pos, s.lines[slot].valid)
		}
	}

	return nil
}

// reset returns the set to its freshly built state.
func (s *set) reset() {
	*s = newSet(len(s.lines))
}
