package model

import "time"

// 阶段生命周期状态
type PhaseStatus string

const (
	PhaseNotStarted PhaseStatus = "not_started"
	PhaseReady      PhaseStatus = "ready"
	PhaseInProgress PhaseStatus = "in_progress"
	PhaseSubmitted  PhaseStatus = "submitted"
	PhaseApproved   PhaseStatus = "approved"
	PhaseCompleted  PhaseStatus = "completed"
)

// EarlyAccessStatus is only meaningful while EarlyAccessGranted is true.
type EarlyAccessStatus string

const (
	EarlyAccessNotAccessible EarlyAccessStatus = "not_accessible"
	EarlyAccessAccessible    EarlyAccessStatus = "accessible"
	EarlyAccessInProgress    EarlyAccessStatus = "in_progress"
)

type DelayReason string

const (
	DelayNone    DelayReason = "none"
	DelayClient  DelayReason = "client"
	DelayCompany DelayReason = "company"
)

func ValidDelayReason(r DelayReason) bool {
	switch r {
	case DelayNone, DelayClient, DelayCompany:
		return true
	}
	return false
}

type Phase struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	PhaseName string `json:"phase_name"`
	// PhaseOrder is unique per project.
	PhaseOrder int `json:"phase_order"`

	Status             PhaseStatus       `json:"status"`
	EarlyAccessGranted bool              `json:"early_access_granted"`
	EarlyAccessStatus  EarlyAccessStatus `json:"early_access_status"`

	WarningFlag bool        `json:"warning_flag"`
	DelayReason DelayReason `json:"delay_reason"`

	PlannedStartDate *time.Time `json:"planned_start_date"`
	PlannedEndDate   *time.Time `json:"planned_end_date"`
	ActualStartDate  *time.Time `json:"actual_start_date"`
	ActualEndDate    *time.Time `json:"actual_end_date"`
	SubmittedDate    *time.Time `json:"submitted_date"`
	ApprovedDate     *time.Time `json:"approved_date"`

	PredictedHours float64 `json:"predicted_hours"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EarlyAccessUsable reports whether the phase can be started through the
// early-access bypass right now.
func (p *Phase) EarlyAccessUsable() bool {
	return p.EarlyAccessGranted && p.EarlyAccessStatus == EarlyAccessAccessible
}

// HistoricalDates carries the supervisor-editable date fields; nil fields
// are left untouched.
type HistoricalDates struct {
	ActualStartDate *time.Time `json:"actual_start_date"`
	ActualEndDate   *time.Time `json:"actual_end_date"`
	SubmittedDate   *time.Time `json:"submitted_date"`
	ApprovedDate    *time.Time `json:"approved_date"`
}
