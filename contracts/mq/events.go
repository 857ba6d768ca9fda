package mq

import "time"

// Routing keys for domain events published by the workflow engines.
// Downstream consumers (notification delivery, phase-hours aggregation)
// bind to these on the topic exchange.
const (
	RoutingKeyPhaseStatusChanged = "phase.status_changed"
	RoutingKeyPhaseDelayed       = "phase.delayed"
	RoutingKeyWorkLogCreated     = "worklog.created"
)

// 阶段状态变更事件的 payload
type PhaseStatusChangedPayload struct {
	PhaseID   int64     `json:"phase_id"`
	ProjectID int64     `json:"project_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	ActorID   int64     `json:"actor_id"`
	ChangedAt time.Time `json:"changed_at"`
}

// 阶段延期事件的 payload
type PhaseDelayedPayload struct {
	PhaseID     int64      `json:"phase_id"`
	ProjectID   int64      `json:"project_id"`
	DelayReason string     `json:"delay_reason"`
	NewEndDate  *time.Time `json:"new_end_date,omitempty"`
	ActorID     int64      `json:"actor_id"`
}

// 工时记录创建事件的 payload
type WorkLogCreatedPayload struct {
	WorkLogID  int64     `json:"work_log_id"`
	PhaseID    int64     `json:"phase_id"`
	EngineerID int64     `json:"engineer_id"`
	Hours      float64   `json:"hours"`
	WorkDate   time.Time `json:"work_date"`
}
