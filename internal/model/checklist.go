package model

import "time"

// Approval is one filled approval slot (first engineer approver or a
// supervisor level).
type Approval struct {
	UserID     int64     `json:"user_id"`
	Name       string    `json:"name"`
	ApprovedAt time.Time `json:"approved_at"`
}

// EngineerApproval is one entry in the append-only engineer approval set.
type EngineerApproval struct {
	EngineerID   int64     `json:"engineer_id"`
	EngineerName string    `json:"engineer_name"`
	ApprovedAt   time.Time `json:"approved_at"`
}

type ChecklistItem struct {
	ID           int64   `json:"id"`
	ProjectID    int64   `json:"project_id"`
	PhaseName    string  `json:"phase_name"`
	SectionName  *string `json:"section_name,omitempty"`
	TaskTitleAr  string  `json:"task_title_ar"`
	TaskTitleEn  *string `json:"task_title_en,omitempty"`
	DisplayOrder int     `json:"display_order"`
	IsCustom     bool    `json:"is_custom"`

	IsCompleted bool `json:"is_completed"`

	// EngineerApprovals is keyed by engineer: re-approving by the same
	// engineer is a no-op, distinct engineers append independently.
	EngineerApprovals []EngineerApproval `json:"engineer_approvals"`
	// EngineerApprovedBy is the denormalized first approver, used for
	// display and revocation.
	EngineerApprovedBy *Approval `json:"engineer_approved_by"`

	Supervisor1ApprovedBy *Approval `json:"supervisor_1_approved_by"`
	Supervisor2ApprovedBy *Approval `json:"supervisor_2_approved_by"`
	Supervisor3ApprovedBy *Approval `json:"supervisor_3_approved_by"`

	ClientNotes *string `json:"client_notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SupervisorApproval returns the slot for levels 1..3, nil otherwise.
func (c *ChecklistItem) SupervisorApproval(level int) *Approval {
	switch level {
	case 1:
		return c.Supervisor1ApprovedBy
	case 2:
		return c.Supervisor2ApprovedBy
	case 3:
		return c.Supervisor3ApprovedBy
	}
	return nil
}

// SetSupervisorApproval fills or clears the slot for levels 1..3.
func (c *ChecklistItem) SetSupervisorApproval(level int, a *Approval) {
	switch level {
	case 1:
		c.Supervisor1ApprovedBy = a
	case 2:
		c.Supervisor2ApprovedBy = a
	case 3:
		c.Supervisor3ApprovedBy = a
	}
}

// HasEngineerApproval reports whether the given engineer already approved
// this item.
func (c *ChecklistItem) HasEngineerApproval(engineerID int64) bool {
	for _, a := range c.EngineerApprovals {
		if a.EngineerID == engineerID {
			return true
		}
	}
	return false
}
