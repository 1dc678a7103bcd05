package srs

import (
	"math"
	"time"
)

// ReviewResult is the scheduler's output for a single review: the updated
// scheduling state plus the next review date derived from it.
type ReviewResult struct {
	Repetition int
	Interval   int
	EaseFactor float64
	NextReview time.Time
}

// nextEaseFactor computes the updated ease factor after a review.
//
// The adjustment is the SM-2 formula
//
//	EF' = EF + (0.1 - (5-q) * (0.08 + (5-q) * 0.02))
//
// which rewards a perfect recall (q=5) with +0.1 and penalizes a barely
// passing one (q=3) with -0.14. The result is clamped to the configured
// floor so a difficult task can never drive interval growth to zero or
// below.
//
// Callers must validate the quality range first; this function assumes a
// valid input.
func nextEaseFactor(ef float64, quality int, params *Params) float64 {
	miss := float64(params.MaxQuality - quality)
	newEF := ef + (0.1 - miss*(0.08+miss*0.02))

	if newEF < params.MinEaseFactor {
		newEF = params.MinEaseFactor
	}
	return newEF
}

// nextInterval computes the interval, in days, until the next review of a
// task that just passed its review.
//
// Intervals follow the SM-2 progression: the first repetition waits
// FirstInterval days, the second SecondInterval days, and every later one
// multiplies the previous interval by the ease factor (rounded to the
// nearest day, never below one day).
//
// newRepetition is the repetition count after the passing review, so it
// is always at least 1 here.
func nextInterval(newRepetition, previousInterval int, ef float64, params *Params) int {
	switch newRepetition {
	case 1:
		return params.FirstInterval
	case 2:
		return params.SecondInterval
	}

	interval := int(math.Round(float64(previousInterval) * ef))
	if interval < 1 {
		interval = 1
	}
	return interval
}

// review is the pure scheduling function. Given a task's current state
// (repetition count, interval in days, ease factor), the review quality,
// and the review time, it returns the fully updated scheduling state.
//
// A failing review (quality below PassingQuality) resets the repetition
// cycle: repetition goes back to 0, the interval back to the minimum one
// day, and the ease factor is left untouched so accumulated difficulty
// information survives the lapse. A passing review increments the
// repetition count, grows the interval, and adjusts the ease factor.
//
// The function has no side effects: identical inputs always produce
// identical outputs, which the pending-operation replay relies on.
func review(repetition, interval int, ef float64, quality int, now time.Time, params *Params) ReviewResult {
	if quality < params.PassingQuality {
		return ReviewResult{
			Repetition: 0,
			Interval:   params.FirstInterval,
			EaseFactor: ef,
			NextReview: now.UTC().AddDate(0, 0, params.FirstInterval),
		}
	}

	newRepetition := repetition + 1
	newEF := nextEaseFactor(ef, quality, params)
	newInterval := nextInterval(newRepetition, interval, newEF, params)

	return ReviewResult{
		Repetition: newRepetition,
		Interval:   newInterval,
		EaseFactor: newEF,
		NextReview: now.UTC().AddDate(0, 0, newInterval),
	}
}
