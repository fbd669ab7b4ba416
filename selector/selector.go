package selector

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/milk9111/barrage/fsm"
	"github.com/milk9111/barrage/logger"
)

var ErrInvalidCandidate = errors.New("selector: invalid candidate")

// Candidate is one weighted option. MaxFires bounds how often it may be chosen
// per cycle; MissedMax forces it once it has been passed over that many times.
type Candidate struct {
	Event     fsm.EventID
	Weight    float64
	MaxFires  int
	MissedMax int
}

// Counter is a candidate's runtime state.
type Counter struct {
	Event  fsm.EventID
	Fired  int
	Missed int
}

type Option func(*Selector)

func WithRand(r *rand.Rand) Option {
	return func(s *Selector) {
		if r != nil {
			s.rng = r
		}
	}
}

func WithSeed(seed uint64) Option {
	return func(s *Selector) { s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Selector) {
		if l != nil {
			s.log = l
		}
	}
}

// Selector picks events by weight with two fairness rules: candidates that used
// up MaxFires sit out until every candidate has, and a candidate passed over
// MissedMax times is chosen next regardless of weight.
type Selector struct {
	candidates []Candidate
	counters   []Counter
	rng        *rand.Rand
	log        *slog.Logger
	cycles     int
}

func New(candidates []Candidate, opts ...Option) (*Selector, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: empty candidate list", ErrInvalidCandidate)
	}
	for i, c := range candidates {
		switch {
		case c.Event == "":
			return nil, fmt.Errorf("%w: candidate %d has no event", ErrInvalidCandidate, i)
		case c.Weight <= 0:
			return nil, fmt.Errorf("%w: %q weight %v must be positive", ErrInvalidCandidate, c.Event, c.Weight)
		case c.MaxFires < 1:
			return nil, fmt.Errorf("%w: %q max fires %d must be at least 1", ErrInvalidCandidate, c.Event, c.MaxFires)
		case c.MissedMax < 1:
			return nil, fmt.Errorf("%w: %q missed max %d must be at least 1", ErrInvalidCandidate, c.Event, c.MissedMax)
		}
	}

	s := &Selector{
		candidates: append([]Candidate(nil), candidates...),
		counters:   make([]Counter, len(candidates)),
		log:        logger.Discard(),
	}
	for i, c := range candidates {
		s.counters[i].Event = c.Event
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		seed := uint64(time.Now().UnixNano())
		s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	return s, nil
}

// Next chooses the next event and updates the counters.
func (s *Selector) Next() fsm.EventID {
	if i, ok := s.forced(); ok {
		s.commit(i)
		s.log.Debug("selector forced", logger.Event(s.candidates[i].Event))
		return s.candidates[i].Event
	}

	total := s.eligibleWeight()
	if total == 0 {
		s.resetCounters()
		s.cycles++
		total = s.eligibleWeight()
	}

	i := s.pick(total)
	s.commit(i)
	return s.candidates[i].Event
}

// Reset zeroes every counter.
func (s *Selector) Reset() {
	s.resetCounters()
	s.cycles = 0
}

func (s *Selector) Counters() []Counter {
	return append([]Counter(nil), s.counters...)
}

func (s *Selector) Candidates() []Candidate {
	return append([]Candidate(nil), s.candidates...)
}

func (s *Selector) Len() int { return len(s.candidates) }

// Cycles counts how many times every candidate was exhausted and the counters
// restarted.
func (s *Selector) Cycles() int { return s.cycles }

func (s *Selector) forced() (int, bool) {
	for i, c := range s.candidates {
		if s.counters[i].Missed >= c.MissedMax {
			return i, true
		}
	}
	return 0, false
}

func (s *Selector) eligible(i int) bool {
	return s.counters[i].Fired < s.candidates[i].MaxFires
}

func (s *Selector) eligibleWeight() float64 {
	total := 0.0
	for i, c := range s.candidates {
		if s.eligible(i) {
			total += c.Weight
		}
	}
	return total
}

// pick draws an eligible index proportionally to weight. Float edge cases fall to
// the last eligible candidate.
func (s *Selector) pick(total float64) int {
	r := s.rng.Float64() * total
	last := -1
	for i, c := range s.candidates {
		if !s.eligible(i) {
			continue
		}
		last = i
		if r < c.Weight {
			return i
		}
		r -= c.Weight
	}
	return last
}

// commit records chosen as fired and every other eligible candidate as missed.
func (s *Selector) commit(chosen int) {
	for i := range s.candidates {
		if i == chosen || !s.eligible(i) {
			continue
		}
		s.counters[i].Missed++
	}
	s.counters[chosen].Fired++
	s.counters[chosen].Missed = 0
}

func (s *Selector) resetCounters() {
	for i := range s.counters {
		s.counters[i].Fired = 0
		s.counters[i].Missed = 0
	}
}
