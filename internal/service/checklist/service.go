package checklist

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/marwanhelal/track-management-system/internal/model"
	"github.com/marwanhelal/track-management-system/pkg/apperr"
	"github.com/marwanhelal/track-management-system/pkg/metrics"
	"github.com/marwanhelal/track-management-system/pkg/rbac"
)

// Repository is the storage surface the approval engine needs. The pgx
// implementation guards every approval write on the gate it depends on,
// so racing revokes cannot let an approval slip through out of order.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*model.ChecklistItem, error)
	ListByPhase(ctx context.Context, phaseID int64) ([]model.ChecklistItem, error)
	SetCompletion(ctx context.Context, id int64, completed bool) error
	AddEngineerApproval(ctx context.Context, id int64, entry model.EngineerApproval) (bool, error)
	SetSupervisorApproval(ctx context.Context, id int64, level int, a model.Approval) (bool, error)
	ClearEngineerApproval(ctx context.Context, id int64) error
	ClearSupervisorApproval(ctx context.Context, id int64, level int) error
	SetClientNotes(ctx context.Context, id int64, notes string) error
	Insert(ctx context.Context, item *model.ChecklistItem) error
	BulkInsert(ctx context.Context, items []model.ChecklistItem) error
	Delete(ctx context.Context, id int64) error
}

// PhaseReader resolves a phase id to its project and name when creating
// or seeding items.
type PhaseReader interface {
	GetByID(ctx context.Context, id int64) (*model.Phase, error)
}

type Service struct {
	repo   Repository
	phases PhaseReader
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, phases PhaseReader, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		phases: phases,
		logger: logger,
		now:    time.Now,
	}
}

// ItemResult is the per-item outcome of a batch operation. One item's
// failure never blocks or rolls back its siblings.
type ItemResult struct {
	ItemID int64
	Item   *model.ChecklistItem
	Err    error
}

func (s *Service) ToggleCompletion(ctx context.Context, actor model.Actor, itemID int64, completed bool) (*model.ChecklistItem, error) {
	if !rbac.Has(actor.Role, rbac.PermissionChecklistToggle) {
		return nil, apperr.Authorization("role is not allowed to toggle checklist completion")
	}

	// un-completing does not cascade into existing approvals; revocation
	// is a separate, explicit supervisor action
	if err := s.repo.SetCompletion(ctx, itemID, completed); err != nil {
		return nil, err
	}

	s.logger.Info("Checklist completion toggled",
		zap.Int64("item_id", itemID),
		zap.Bool("is_completed", completed),
		zap.Int64("actor_id", actor.ID),
	)
	return s.repo.GetByID(ctx, itemID)
}

// EngineerApprove appends the actor's approval to each completed item.
// Re-approving an item the actor already approved is a no-op, not an
// error.
func (s *Service) EngineerApprove(ctx context.Context, actor model.Actor, itemIDs []int64) ([]ItemResult, error) {
	if !rbac.Has(actor.Role, rbac.PermissionChecklistApproveEngineer) {
		return nil, apperr.Authorization("only engineers can add engineer approvals")
	}
	if len(itemIDs) == 0 {
		return nil, apperr.Validation("items cannot be empty")
	}

	results := make([]ItemResult, 0, len(itemIDs))
	for _, id := range itemIDs {
		results = append(results, s.engineerApproveOne(ctx, actor, id))
	}
	return results, nil
}

func (s *Service) engineerApproveOne(ctx context.Context, actor model.Actor, itemID int64) ItemResult {
	item, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		return ItemResult{ItemID: itemID, Err: err}
	}
	if !item.IsCompleted {
		metrics.IncrementChecklistApproval("engineer", "rejected")
		return ItemResult{ItemID: itemID, Err: apperr.PreconditionNotMet("item must be completed before engineer approval")}
	}
	if item.HasEngineerApproval(actor.ID) {
		// idempotent: same engineer approving twice keeps one entry
		return ItemResult{ItemID: itemID, Item: item}
	}

	entry := model.EngineerApproval{
		EngineerID:   actor.ID,
		EngineerName: actor.Name,
		ApprovedAt:   s.now(),
	}
	applied, err := s.repo.AddEngineerApproval(ctx, itemID, entry)
	if err != nil {
		return ItemResult{ItemID: itemID, Err: err}
	}
	if !applied {
		// completion was cleared between our read and the guarded write
		metrics.IncrementChecklistApproval("engineer", "rejected")
		return ItemResult{ItemID: itemID, Err: apperr.PreconditionNotMet("item must be completed before engineer approval")}
	}

	metrics.IncrementChecklistApproval("engineer", "approved")
	item, err = s.repo.GetByID(ctx, itemID)
	return ItemResult{ItemID: itemID, Item: item, Err: err}
}

// SupervisorApprove fills the given level's slot on each item whose
// previous gate is satisfied (engineer approval for level 1, the level
// below for 2 and 3).
func (s *Service) SupervisorApprove(ctx context.Context, actor model.Actor, itemIDs []int64, level int) ([]ItemResult, error) {
	if !rbac.Has(actor.Role, rbac.PermissionChecklistApproveSupervisor) {
		return nil, apperr.Authorization("only supervisors can add supervisor approvals")
	}
	if level < 1 || level > 3 {
		return nil, apperr.Validation("supervisor level must be 1, 2 or 3")
	}
	if len(itemIDs) == 0 {
		return nil, apperr.Validation("items cannot be empty")
	}

	results := make([]ItemResult, 0, len(itemIDs))
	for _, id := range itemIDs {
		results = append(results, s.supervisorApproveOne(ctx, actor, id, level))
	}
	return results, nil
}

func (s *Service) supervisorApproveOne(ctx context.Context, actor model.Actor, itemID int64, level int) ItemResult {
	gate := metricGate(level)

	item, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		return ItemResult{ItemID: itemID, Err: err}
	}

	if level == 1 {
		if item.EngineerApprovedBy == nil {
			metrics.IncrementChecklistApproval(gate, "rejected")
			return ItemResult{ItemID: itemID, Err: apperr.PreconditionNotMet("engineer approval is required before supervisor level 1")}
		}
	} else if item.SupervisorApproval(level-1) == nil {
		metrics.IncrementChecklistApproval(gate, "rejected")
		return ItemResult{ItemID: itemID, Err: apperr.PreconditionNotMet("previous supervisor level has not approved yet")}
	}

	if item.SupervisorApproval(level) != nil {
		// already approved at this level; keep the existing slot
		return ItemResult{ItemID: itemID, Item: item}
	}

	slot := model.Approval{
		UserID:     actor.ID,
		Name:       actor.Name,
		ApprovedAt: s.now(),
	}
	applied, err := s.repo.SetSupervisorApproval(ctx, itemID, level, slot)
	if err != nil {
		return ItemResult{ItemID: itemID, Err: err}
	}
	if !applied {
		metrics.IncrementChecklistApproval(gate, "rejected")
		return ItemResult{ItemID: itemID, Err: apperr.PreconditionNotMet("approval chain changed concurrently")}
	}

	metrics.IncrementChecklistApproval(gate, "approved")
	item, err = s.repo.GetByID(ctx, itemID)
	return ItemResult{ItemID: itemID, Item: item, Err: err}
}

// RevokeEngineerApproval clears the engineer slot and the approval list.
// Supervisor levels built on top of it are left in place; see the chain
// semantics in the package tests.
func (s *Service) RevokeEngineerApproval(ctx context.Context, actor model.Actor, itemID int64) (*model.ChecklistItem, error) {
	if !rbac.Has(actor.Role, rbac.PermissionChecklistRevoke) {
		return nil, apperr.Authorization("only supervisors can revoke approvals")
	}

	if err := s.repo.ClearEngineerApproval(ctx, itemID); err != nil {
		return nil, err
	}

	s.logger.Info("Engineer approval revoked",
		zap.Int64("item_id", itemID),
		zap.Int64("actor_id", actor.ID),
	)
	return s.repo.GetByID(ctx, itemID)
}

// RevokeSupervisorApproval clears exactly one level, leaving the others
// untouched.
func (s *Service) RevokeSupervisorApproval(ctx context.Context, actor model.Actor, itemID int64, level int) (*model.ChecklistItem, error) {
	if !rbac.Has(actor.Role, rbac.PermissionChecklistRevoke) {
		return nil, apperr.Authorization("only supervisors can revoke approvals")
	}
	if level < 1 || level > 3 {
		return nil, apperr.Validation("supervisor level must be 1, 2 or 3")
	}

	if err := s.repo.ClearSupervisorApproval(ctx, itemID, level); err != nil {
		return nil, err
	}

	s.logger.Info("Supervisor approval revoked",
		zap.Int64("item_id", itemID),
		zap.Int("level", level),
		zap.Int64("actor_id", actor.ID),
	)
	return s.repo.GetByID(ctx, itemID)
}

func (s *Service) UpdateClientNotes(ctx context.Context, actor model.Actor, itemID int64, notes string) (*model.ChecklistItem, error) {
	if !rbac.Has(actor.Role, rbac.PermissionChecklistNotes) {
		return nil, apperr.Authorization("only supervisors can edit client notes")
	}

	if err := s.repo.SetClientNotes(ctx, itemID, notes); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, itemID)
}

// CreateItemInput describes a custom checklist item added to a phase.
type CreateItemInput struct {
	SectionName  *string
	TaskTitleAr  string
	TaskTitleEn  *string
	DisplayOrder int
}

func (s *Service) CreateItem(ctx context.Context, actor model.Actor, phaseID int64, input CreateItemInput) (*model.ChecklistItem, error) {
	if !rbac.Has(actor.Role, rbac.PermissionChecklistManage) {
		return nil, apperr.Authorization("only supervisors can add checklist items")
	}
	if input.TaskTitleAr == "" {
		return nil, apperr.Validation("task_title_ar is required")
	}

	p, err := s.phases.GetByID(ctx, phaseID)
	if err != nil {
		return nil, err
	}

	item := &model.ChecklistItem{
		ProjectID:         p.ProjectID,
		PhaseName:         p.PhaseName,
		SectionName:       input.SectionName,
		TaskTitleAr:       input.TaskTitleAr,
		TaskTitleEn:       input.TaskTitleEn,
		DisplayOrder:      input.DisplayOrder,
		IsCustom:          true,
		EngineerApprovals: []model.EngineerApproval{},
	}
	if err := s.repo.Insert(ctx, item); err != nil {
		return nil, err
	}

	s.logger.Info("Custom checklist item created",
		zap.Int64("item_id", item.ID),
		zap.Int64("phase_id", phaseID),
		zap.Int64("actor_id", actor.ID),
	)
	return item, nil
}

func (s *Service) DeleteItem(ctx context.Context, actor model.Actor, itemID int64) error {
	if !rbac.Has(actor.Role, rbac.PermissionChecklistManage) {
		return apperr.Authorization("only supervisors can delete checklist items")
	}

	if err := s.repo.Delete(ctx, itemID); err != nil {
		return err
	}

	s.logger.Info("Custom checklist item deleted",
		zap.Int64("item_id", itemID),
		zap.Int64("actor_id", actor.ID),
	)
	return nil
}

// Template is one task of a phase's predefined checklist.
type Template struct {
	SectionName *string
	TaskTitleAr string
	TaskTitleEn *string
}

// SeedPhase instantiates a phase's checklist from templates in bulk.
// Called by the project module when a phase is added.
func (s *Service) SeedPhase(ctx context.Context, phaseID int64, templates []Template) error {
	if len(templates) == 0 {
		return nil
	}

	p, err := s.phases.GetByID(ctx, phaseID)
	if err != nil {
		return err
	}

	items := make([]model.ChecklistItem, 0, len(templates))
	for i, tpl := range templates {
		if tpl.TaskTitleAr == "" {
			return apperr.Validation("template task_title_ar is required")
		}
		items = append(items, model.ChecklistItem{
			ProjectID:         p.ProjectID,
			PhaseName:         p.PhaseName,
			SectionName:       tpl.SectionName,
			TaskTitleAr:       tpl.TaskTitleAr,
			TaskTitleEn:       tpl.TaskTitleEn,
			DisplayOrder:      i + 1,
			EngineerApprovals: []model.EngineerApproval{},
		})
	}
	return s.repo.BulkInsert(ctx, items)
}

func (s *Service) ListByPhase(ctx context.Context, phaseID int64) ([]model.ChecklistItem, error) {
	return s.repo.ListByPhase(ctx, phaseID)
}

func metricGate(level int) string {
	switch level {
	case 1:
		return "supervisor_1"
	case 2:
		return "supervisor_2"
	default:
		return "supervisor_3"
	}
}
