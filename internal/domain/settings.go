package domain

import (
	"github.com/cogodo/spaced-sub003/internal/store"
)

// DefaultRepetitionCeiling is the repetition count at which a task is
// considered learned and removed from the schedule, unless the user has
// configured a different ceiling.
const DefaultRepetitionCeiling = 7

// Settings holds the per-user scheduling settings. They are read once at
// startup and mutated only through an explicit setter, never implicitly.
type Settings struct {
	RepetitionCeiling int `json:"repetition_ceiling"`
}

// DefaultSettings returns the settings used when no persisted settings
// exist or the stored record cannot be read.
func DefaultSettings() Settings {
	return Settings{RepetitionCeiling: DefaultRepetitionCeiling}
}

// Validate checks that the settings hold acceptable values.
func (s Settings) Validate() error {
	if s.RepetitionCeiling < 1 {
		return ErrInvalidCeiling
	}
	return nil
}

// Record converts the settings into their persisted document form.
func (s Settings) Record() store.Record {
	return store.Record{
		"repetition_ceiling": s.RepetitionCeiling,
	}
}

// SettingsFromRecord reconstructs Settings from their persisted form.
func SettingsFromRecord(rec store.Record) (Settings, error) {
	ceiling, err := recordInt(rec, "repetition_ceiling")
	if err != nil {
		return Settings{}, err
	}
	settings := Settings{RepetitionCeiling: ceiling}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}
