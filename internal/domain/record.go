package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/cogodo/spaced-sub003/internal/store"
)

// Record field accessors shared by the entity codecs. JSON decoding turns
// every number into a float64, so the integer accessor accepts both.

func recordString(rec store.Record, key string) (string, error) {
	v, ok := rec[key]
	if !ok {
		return "", fmt.Errorf("%w: missing field %q", store.ErrMalformedRecord, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %q is not a string", store.ErrMalformedRecord, key)
	}
	return s, nil
}

func recordInt(rec store.Record, key string) (int, error) {
	v, ok := rec[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing field %q", store.ErrMalformedRecord, key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: field %q is not an integer", store.ErrMalformedRecord, key)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("%w: field %q is not a number", store.ErrMalformedRecord, key)
	}
}

func recordFloat(rec store.Record, key string) (float64, error) {
	v, ok := rec[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing field %q", store.ErrMalformedRecord, key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%w: field %q is not a number", store.ErrMalformedRecord, key)
	}
}

func recordTime(rec store.Record, key string) (time.Time, error) {
	s, err := recordString(rec, key)
	if err != nil {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: field %q is not a timestamp: %v", store.ErrMalformedRecord, key, err)
	}
	return ts.UTC(), nil
}
