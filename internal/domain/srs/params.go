package srs

// Params defines all configurable parameters for the interval scheduler.
type Params struct {
	// Quality bounds. Review quality is an integer signal describing
	// recall quality for the most recent review.
	MinQuality int
	MaxQuality int

	// PassingQuality is the lowest quality counted as a successful
	// recall. Anything below it resets the repetition cycle.
	PassingQuality int

	// MinEaseFactor is the floor for the ease factor so intervals never
	// stop growing.
	MinEaseFactor float64

	// FirstInterval and SecondInterval are the fixed intervals, in days,
	// for the first and second successful repetitions.
	FirstInterval  int
	SecondInterval int
}

// NewDefaultParams returns the standard SM-2 parameter set: quality 0-5
// with 3 as passing, ease factor floored at 1.3, and the classic 1-day /
// 6-day opening intervals.
func NewDefaultParams() *Params {
	return &Params{
		MinQuality:     0,
		MaxQuality:     5,
		PassingQuality: 3,
		MinEaseFactor:  1.3,
		FirstInterval:  1,
		SecondInterval: 6,
	}
}

// ValidQuality reports whether the quality signal lies within the
// configured range.
func (p *Params) ValidQuality(quality int) bool {
	return quality >= p.MinQuality && quality <= p.MaxQuality
}
