package servo

// Sweep is a resumable sequence of angles from one endpoint to another.
// Each call to Next yields the next angle to write; a scheduler decides
// how long to wait between calls.
type Sweep struct {
	cur, to, step int
}

// NewSweep creates a sweep from from (exclusive) to to (inclusive) in
// increments of step degrees. The last increment is shortened to land
// exactly on to.
func NewSweep(from, to, step int) *Sweep {
	if step < 1 {
		step = 1
	}
	if to < from {
		step = -step
	}
	return &Sweep{cur: from, to: to, step: step}
}

// Next returns the next angle, or false once the target has been yielded.
func (s *Sweep) Next() (int, bool) {
	if s.cur == s.to {
		return 0, false
	}
	next := s.cur + s.step
	if (s.step > 0 && next > s.to) || (s.step < 0 && next < s.to) {
		next = s.to
	}
	s.cur = next
	return next, true
}

// Current returns the last angle yielded (or the start angle).
func (s *Sweep) Current() int {
	return s.cur
}

// Done reports whether the sweep has reached its target.
func (s *Sweep) Done() bool {
	return s.cur == s.to
}
