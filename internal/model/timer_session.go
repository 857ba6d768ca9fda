package model

import "time"

// Timer session status. Absence of a row means the engineer is idle;
// stop and cancel delete the row.
type TimerStatus string

const (
	TimerActive TimerStatus = "active"
	TimerPaused TimerStatus = "paused"
)

type TimerSession struct {
	ID          int64  `json:"id"`
	EngineerID  int64  `json:"engineer_id"`
	PhaseID     int64  `json:"phase_id"`
	Description string `json:"description"`

	Status    TimerStatus `json:"status"`
	StartTime time.Time   `json:"start_time"`
	// PausedAt is set only while paused.
	PausedAt *time.Time `json:"paused_at"`

	// Snapshots persisted on pause/resume; monotonically non-decreasing.
	// Readers recompute live elapsed time from StartTime, not from these.
	ElapsedTimeMs int64 `json:"elapsed_time_ms"`
	TotalPausedMs int64 `json:"total_paused_ms"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
