package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Settings{RepetitionCeiling: 1}.Validate())
	assert.ErrorIs(t, Settings{RepetitionCeiling: 0}.Validate(), ErrInvalidCeiling)
	assert.ErrorIs(t, Settings{RepetitionCeiling: -3}.Validate(), ErrInvalidCeiling)
}

func TestSettingsRecordRoundTrip(t *testing.T) {
	t.Parallel()

	original := Settings{RepetitionCeiling: 4}
	restored, err := SettingsFromRecord(original.Record())
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}
