package srs

import (
	"testing"
	"time"
)

func TestNextInterval(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	testCases := []struct {
		name          string
		newRepetition int
		previous      int
		ef            float64
		expected      int
	}{
		{
			name:          "first repetition uses the fixed first interval",
			newRepetition: 1,
			previous:      0,
			ef:            2.5,
			expected:      1,
		},
		{
			name:          "second repetition uses the fixed second interval",
			newRepetition: 2,
			previous:      1,
			ef:            2.5,
			expected:      6,
		},
		{
			name:          "third repetition multiplies by the ease factor",
			newRepetition: 3,
			previous:      6,
			ef:            2.5,
			expected:      15, // 6 * 2.5
		},
		{
			name:          "rounds to the nearest day",
			newRepetition: 3,
			previous:      6,
			ef:            2.36,
			expected:      14, // 6 * 2.36 = 14.16
		},
		{
			name:          "never drops below one day",
			newRepetition: 3,
			previous:      0,
			ef:            1.3,
			expected:      1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := nextInterval(tc.newRepetition, tc.previous, tc.ef, params)
			if got != tc.expected {
				t.Errorf("Expected interval %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestNextEaseFactor(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	testCases := []struct {
		name     string
		current  float64
		quality  int
		expected float64
	}{
		{
			name:     "perfect recall rewards the ease factor",
			current:  2.5,
			quality:  5,
			expected: 2.6, // +0.1
		},
		{
			name:     "hesitant recall leaves the ease factor almost unchanged",
			current:  2.5,
			quality:  4,
			expected: 2.5, // 2.5 + (0.1 - 1*(0.08+0.02))
		},
		{
			name:     "barely passing recall penalizes the ease factor",
			current:  2.5,
			quality:  3,
			expected: 2.36, // 2.5 + (0.1 - 2*(0.08+2*0.02))
		},
		{
			name:     "floor is enforced",
			current:  1.3,
			quality:  3,
			expected: 1.3,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := nextEaseFactor(tc.current, tc.quality, params)
			if diff := got - tc.expected; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Expected ease factor %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestReviewResetsOnFailure(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for quality := 0; quality < params.PassingQuality; quality++ {
		result := review(4, 30, 2.1, quality, now, params)

		if result.Repetition != 0 {
			t.Errorf("quality %d: expected repetition reset to 0, got %d", quality, result.Repetition)
		}
		if result.Interval != 1 {
			t.Errorf("quality %d: expected interval reset to 1, got %d", quality, result.Interval)
		}
		if result.EaseFactor != 2.1 {
			t.Errorf("quality %d: expected ease factor unchanged, got %v", quality, result.EaseFactor)
		}
		if !result.NextReview.Equal(now.AddDate(0, 0, 1)) {
			t.Errorf("quality %d: expected next review tomorrow, got %v", quality, result.NextReview)
		}
	}
}

func TestReviewGrowsIntervalOnSuccess(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	rep, interval, ef := 0, 0, 2.5
	var previousNext time.Time

	// Walk a chain of passing reviews; the next-review date must move
	// strictly later every time.
	for i := 0; i < 6; i++ {
		result := review(rep, interval, ef, 4, now, params)

		if result.Repetition != rep+1 {
			t.Fatalf("step %d: expected repetition %d, got %d", i, rep+1, result.Repetition)
		}
		if !result.NextReview.After(previousNext) {
			t.Fatalf("step %d: next review %v did not advance past %v", i, result.NextReview, previousNext)
		}
		previousNext = result.NextReview
		rep, interval, ef = result.Repetition, result.Interval, result.EaseFactor
		now = result.NextReview
	}
}

func TestReviewIsDeterministic(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for quality := 0; quality <= 5; quality++ {
		first := review(3, 15, 2.2, quality, now, params)
		second := review(3, 15, 2.2, quality, now, params)
		if first != second {
			t.Errorf("quality %d: identical inputs produced different results: %+v vs %+v",
				quality, first, second)
		}
	}
}
