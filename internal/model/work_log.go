package model

import "time"

// WorkLog is immutable once created.
type WorkLog struct {
	ID          int64     `json:"id"`
	PhaseID     int64     `json:"phase_id"`
	EngineerID  int64     `json:"engineer_id"`
	Hours       float64   `json:"hours"`
	Description string    `json:"description"`
	WorkDate    time.Time `json:"work_date"`
	CreatedAt   time.Time `json:"created_at"`
}
