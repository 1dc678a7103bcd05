package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerge(t *testing.T) {
	t.Parallel()

	existing := Record{"a": 1, "b": "keep"}
	incoming := Record{"a": 2, "c": true}

	merged := Merge(existing, incoming)

	assert.Equal(t, Record{"a": 2, "b": "keep", "c": true}, merged)
	// Inputs stay untouched.
	assert.Equal(t, Record{"a": 1, "b": "keep"}, existing)
	assert.Equal(t, Record{"a": 2, "c": true}, incoming)
}

func TestMergeWithNilExisting(t *testing.T) {
	t.Parallel()

	incoming := Record{"a": 1}
	assert.Equal(t, incoming, Merge(nil, incoming))
}

func TestClone(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Clone(nil))

	original := Record{"a": 1}
	cloned := Clone(original)
	cloned["a"] = 2
	assert.Equal(t, 1, original["a"])
}
