package phase

import (
	"context"
	"time"

	"go.uber.org/zap"

	mqcontracts "github.com/marwanhelal/track-management-system/contracts/mq"
	"github.com/marwanhelal/track-management-system/internal/model"
	"github.com/marwanhelal/track-management-system/pkg/apperr"
	"github.com/marwanhelal/track-management-system/pkg/metrics"
	"github.com/marwanhelal/track-management-system/pkg/outbox"
	"github.com/marwanhelal/track-management-system/pkg/rbac"
)

// Repository is the storage surface the phase engine needs. The pgx
// implementation enforces every write with a status-guarded UPDATE.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*model.Phase, error)
	ListByProject(ctx context.Context, projectID int64) ([]model.Phase, error)
	ApplyTransition(ctx context.Context, p *model.Phase, expected model.PhaseStatus) error
	GrantEarlyAccess(ctx context.Context, id int64) error
	RevokeEarlyAccess(ctx context.Context, id int64) error
	SetWarning(ctx context.Context, id int64, flag bool) error
	SetDelay(ctx context.Context, id int64, reason model.DelayReason, newEndDate *time.Time) error
	UpdateHistoricalDates(ctx context.Context, id int64, dates model.HistoricalDates) error
	IsEngineerAssigned(ctx context.Context, phaseID, engineerID int64) (bool, error)
}

// OutboxWriter persists domain events for the dispatcher to publish.
type OutboxWriter interface {
	Insert(ctx context.Context, event *outbox.Event) error
}

type Service struct {
	repo   Repository
	outbox OutboxWriter
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, outboxWriter OutboxWriter, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		outbox: outboxWriter,
		logger: logger,
		now:    time.Now,
	}
}

// permission per lifecycle event; start and submit are also open to
// assigned engineers, the rest are supervisor actions.
var eventPermissions = map[string]string{
	EventStart:    rbac.PermissionPhaseStart,
	EventSubmit:   rbac.PermissionPhaseSubmit,
	EventApprove:  rbac.PermissionPhaseApprove,
	EventComplete: rbac.PermissionPhaseComplete,
}

func (s *Service) Start(ctx context.Context, actor model.Actor, phaseID int64, note string) (*model.Phase, error) {
	return s.applyLifecycleEvent(ctx, actor, phaseID, EventStart, note)
}

func (s *Service) Submit(ctx context.Context, actor model.Actor, phaseID int64, note string) (*model.Phase, error) {
	return s.applyLifecycleEvent(ctx, actor, phaseID, EventSubmit, note)
}

func (s *Service) Approve(ctx context.Context, actor model.Actor, phaseID int64, note string) (*model.Phase, error) {
	return s.applyLifecycleEvent(ctx, actor, phaseID, EventApprove, note)
}

func (s *Service) Complete(ctx context.Context, actor model.Actor, phaseID int64, note string) (*model.Phase, error) {
	return s.applyLifecycleEvent(ctx, actor, phaseID, EventComplete, note)
}

func (s *Service) applyLifecycleEvent(ctx context.Context, actor model.Actor, phaseID int64, event, note string) (*model.Phase, error) {
	if !rbac.Has(actor.Role, eventPermissions[event]) {
		return nil, apperr.Authorization("role is not allowed to perform this phase action")
	}
	if actor.Role == rbac.RoleEngineer {
		assigned, err := s.repo.IsEngineerAssigned(ctx, phaseID, actor.ID)
		if err != nil {
			return nil, err
		}
		if !assigned {
			return nil, apperr.Authorization("engineer is not assigned to this phase")
		}
	}

	p, err := s.repo.GetByID(ctx, phaseID)
	if err != nil {
		return nil, err
	}

	machine, err := newLifecycleMachine(p.Status, p.ID, p.EarlyAccessUsable)
	if err != nil {
		return nil, apperr.Infrastructure("failed to build lifecycle machine", err)
	}

	prev := p.Status
	if err := machine.Transition(event); err != nil {
		return nil, err
	}
	p.Status = machine.Current()

	today := s.today()
	switch event {
	case EventStart:
		if p.ActualStartDate == nil {
			p.ActualStartDate = &today
		}
		if prev == model.PhaseNotStarted {
			// start went through the early-access bypass
			p.EarlyAccessStatus = model.EarlyAccessInProgress
		}
	case EventSubmit:
		p.SubmittedDate = &today
	case EventApprove:
		p.ApprovedDate = &today
	case EventComplete:
		p.ActualEndDate = &today
	}

	if err := s.repo.ApplyTransition(ctx, p, prev); err != nil {
		return nil, err
	}

	metrics.IncrementPhaseTransition(event)
	s.logger.Info("Phase lifecycle event applied",
		zap.Int64("phase_id", p.ID),
		zap.String("event", event),
		zap.String("from", string(prev)),
		zap.String("to", string(p.Status)),
		zap.Int64("actor_id", actor.ID),
		zap.String("note", note),
	)

	s.publishStatusChanged(ctx, p, prev, actor)
	return p, nil
}

func (s *Service) GrantEarlyAccess(ctx context.Context, actor model.Actor, phaseID int64, note string) (*model.Phase, error) {
	if !rbac.Has(actor.Role, rbac.PermissionPhaseEarlyAccess) {
		return nil, apperr.Authorization("only supervisors can grant early access")
	}

	p, err := s.repo.GetByID(ctx, phaseID)
	if err != nil {
		return nil, err
	}
	if p.Status != model.PhaseNotStarted {
		return nil, apperr.InvalidTransition("early access can only be granted before the phase starts",
			string(p.Status), string(model.PhaseNotStarted))
	}

	if err := s.repo.GrantEarlyAccess(ctx, phaseID); err != nil {
		return nil, err
	}

	p.EarlyAccessGranted = true
	p.EarlyAccessStatus = model.EarlyAccessAccessible
	s.logger.Info("Early access granted",
		zap.Int64("phase_id", phaseID),
		zap.Int64("actor_id", actor.ID),
		zap.String("note", note),
	)
	return p, nil
}

func (s *Service) RevokeEarlyAccess(ctx context.Context, actor model.Actor, phaseID int64, note string) (*model.Phase, error) {
	if !rbac.Has(actor.Role, rbac.PermissionPhaseEarlyAccess) {
		return nil, apperr.Authorization("only supervisors can revoke early access")
	}

	p, err := s.repo.GetByID(ctx, phaseID)
	if err != nil {
		return nil, err
	}
	if !p.EarlyAccessGranted {
		return nil, apperr.InvalidTransition("early access is not granted", string(p.Status), "")
	}

	if err := s.repo.RevokeEarlyAccess(ctx, phaseID); err != nil {
		return nil, err
	}

	// status is deliberately untouched: revoke only resets the sub-state
	p.EarlyAccessGranted = false
	p.EarlyAccessStatus = model.EarlyAccessNotAccessible
	s.logger.Info("Early access revoked",
		zap.Int64("phase_id", phaseID),
		zap.Int64("actor_id", actor.ID),
		zap.String("note", note),
	)
	return p, nil
}

func (s *Service) MarkWarning(ctx context.Context, actor model.Actor, phaseID int64, flag bool, note string) (*model.Phase, error) {
	if !rbac.Has(actor.Role, rbac.PermissionPhaseWarning) {
		return nil, apperr.Authorization("only supervisors can mark warnings")
	}

	if err := s.repo.SetWarning(ctx, phaseID, flag); err != nil {
		return nil, err
	}

	s.logger.Info("Phase warning flag updated",
		zap.Int64("phase_id", phaseID),
		zap.Bool("warning_flag", flag),
		zap.Int64("actor_id", actor.ID),
		zap.String("note", note),
	)
	return s.repo.GetByID(ctx, phaseID)
}

// DelayInput records why a phase slipped and optionally extends the
// planned end date, either by whole weeks or to an explicit date.
type DelayInput struct {
	DelayReason     model.DelayReason
	AdditionalWeeks int
	NewEndDate      *time.Time
	Note            string
}

func (s *Service) HandleDelay(ctx context.Context, actor model.Actor, phaseID int64, input DelayInput) (*model.Phase, error) {
	if !rbac.Has(actor.Role, rbac.PermissionPhaseDelay) {
		return nil, apperr.Authorization("only supervisors can record delays")
	}
	if !model.ValidDelayReason(input.DelayReason) {
		return nil, apperr.Validation("delay_reason must be one of none, client, company")
	}
	if input.AdditionalWeeks < 0 {
		return nil, apperr.Validation("additional_weeks cannot be negative")
	}

	p, err := s.repo.GetByID(ctx, phaseID)
	if err != nil {
		return nil, err
	}

	newEnd := input.NewEndDate
	if newEnd == nil && input.AdditionalWeeks > 0 {
		if p.PlannedEndDate == nil {
			return nil, apperr.Validation("phase has no planned end date to extend")
		}
		extended := p.PlannedEndDate.AddDate(0, 0, input.AdditionalWeeks*7)
		newEnd = &extended
	}
	if newEnd != nil && p.PlannedStartDate != nil && newEnd.Before(*p.PlannedStartDate) {
		return nil, apperr.Validation("new end date cannot be before the planned start date")
	}

	if err := s.repo.SetDelay(ctx, phaseID, input.DelayReason, newEnd); err != nil {
		return nil, err
	}

	p.DelayReason = input.DelayReason
	if newEnd != nil {
		p.PlannedEndDate = newEnd
	}

	s.logger.Info("Phase delay recorded",
		zap.Int64("phase_id", phaseID),
		zap.String("delay_reason", string(input.DelayReason)),
		zap.Int64("actor_id", actor.ID),
		zap.String("note", input.Note),
	)

	event, err := outbox.NewEvent("phase", p.ID, mqcontracts.RoutingKeyPhaseDelayed, mqcontracts.PhaseDelayedPayload{
		PhaseID:     p.ID,
		ProjectID:   p.ProjectID,
		DelayReason: string(input.DelayReason),
		NewEndDate:  newEnd,
		ActorID:     actor.ID,
	})
	if err == nil {
		err = s.outbox.Insert(ctx, event)
	}
	if err != nil {
		s.logger.Error("Failed to enqueue phase.delayed event",
			zap.Int64("phase_id", p.ID), zap.Error(err))
	}

	return p, nil
}

func (s *Service) UpdateHistoricalDates(ctx context.Context, actor model.Actor, phaseID int64, dates model.HistoricalDates) (*model.Phase, error) {
	if !rbac.Has(actor.Role, rbac.PermissionPhaseEditDates) {
		return nil, apperr.Authorization("only supervisors can edit historical dates")
	}

	p, err := s.repo.GetByID(ctx, phaseID)
	if err != nil {
		return nil, err
	}

	start := coalesceDate(dates.ActualStartDate, p.ActualStartDate)
	end := coalesceDate(dates.ActualEndDate, p.ActualEndDate)
	submitted := coalesceDate(dates.SubmittedDate, p.SubmittedDate)
	approved := coalesceDate(dates.ApprovedDate, p.ApprovedDate)

	if start != nil && end != nil && end.Before(*start) {
		return nil, apperr.Validation("actual end date cannot be before actual start date")
	}
	if submitted != nil && approved != nil && approved.Before(*submitted) {
		return nil, apperr.Validation("approved date cannot be before submitted date")
	}

	if err := s.repo.UpdateHistoricalDates(ctx, phaseID, dates); err != nil {
		return nil, err
	}

	s.logger.Info("Phase historical dates updated",
		zap.Int64("phase_id", phaseID),
		zap.Int64("actor_id", actor.ID),
	)
	return s.repo.GetByID(ctx, phaseID)
}

func (s *Service) Get(ctx context.Context, phaseID int64) (*model.Phase, error) {
	return s.repo.GetByID(ctx, phaseID)
}

func (s *Service) ListByProject(ctx context.Context, projectID int64) ([]model.Phase, error) {
	return s.repo.ListByProject(ctx, projectID)
}

func (s *Service) publishStatusChanged(ctx context.Context, p *model.Phase, from model.PhaseStatus, actor model.Actor) {
	event, err := outbox.NewEvent("phase", p.ID, mqcontracts.RoutingKeyPhaseStatusChanged, mqcontracts.PhaseStatusChangedPayload{
		PhaseID:   p.ID,
		ProjectID: p.ProjectID,
		From:      string(from),
		To:        string(p.Status),
		ActorID:   actor.ID,
		ChangedAt: s.now(),
	})
	if err == nil {
		err = s.outbox.Insert(ctx, event)
	}
	if err != nil {
		// the transition itself is already durable; event loss is logged,
		// not surfaced to the caller
		s.logger.Error("Failed to enqueue phase.status_changed event",
			zap.Int64("phase_id", p.ID), zap.Error(err))
	}
}

func (s *Service) today() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func coalesceDate(override, current *time.Time) *time.Time {
	if override != nil {
		return override
	}
	return current
}
