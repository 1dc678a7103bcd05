// Package events delivers change notifications from the schedule
// manager to interested observers, typically the UI layer.
package events

import (
	"time"

	"github.com/cogodo/spaced-sub003/internal/domain"
)

// ChangeKind identifies what part of the schedule state changed.
type ChangeKind string

// Change kinds emitted by the schedule manager.
const (
	ChangeTaskAdded       ChangeKind = "task_added"
	ChangeTaskUpdated     ChangeKind = "task_updated"
	ChangeTaskRemoved     ChangeKind = "task_removed"
	ChangeSettingsUpdated ChangeKind = "settings_updated"
	ChangeSyncCompleted   ChangeKind = "sync_completed"
)

// Change is an immutable snapshot emitted on every state change. Task
// and the Tasks slice are copies; observers may hold onto and mutate
// them freely.
type Change struct {
	Kind       ChangeKind
	Task       *domain.Task // the task affected, when the change targets one
	Tasks      []domain.Task
	Settings   domain.Settings
	OccurredAt time.Time
}
