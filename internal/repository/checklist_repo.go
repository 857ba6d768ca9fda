package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/marwanhelal/track-management-system/internal/model"
	"github.com/marwanhelal/track-management-system/pkg/apperr"
)

type ChecklistRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewChecklistRepository(db *pgxpool.Pool, logger *zap.Logger) *ChecklistRepository {
	return &ChecklistRepository{db: db, logger: logger}
}

const checklistColumns = `
	id, project_id, phase_name, section_name, task_title_ar, task_title_en,
	display_order, is_custom, is_completed,
	engineer_approvals, engineer_approved_by,
	supervisor_1_approved_by, supervisor_2_approved_by, supervisor_3_approved_by,
	client_notes, created_at, updated_at
`

func scanChecklistItem(row pgx.Row) (*model.ChecklistItem, error) {
	var (
		item          model.ChecklistItem
		approvalsJSON []byte
		engineerJSON  []byte
		s1JSON        []byte
		s2JSON        []byte
		s3JSON        []byte
	)
	err := row.Scan(
		&item.ID,
		&item.ProjectID,
		&item.PhaseName,
		&item.SectionName,
		&item.TaskTitleAr,
		&item.TaskTitleEn,
		&item.DisplayOrder,
		&item.IsCustom,
		&item.IsCompleted,
		&approvalsJSON,
		&engineerJSON,
		&s1JSON,
		&s2JSON,
		&s3JSON,
		&item.ClientNotes,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.EngineerApprovals = []model.EngineerApproval{}
	if len(approvalsJSON) > 0 {
		if err := json.Unmarshal(approvalsJSON, &item.EngineerApprovals); err != nil {
			return nil, fmt.Errorf("failed to decode engineer_approvals: %w", err)
		}
	}
	for slot, raw := range map[int][]byte{0: engineerJSON, 1: s1JSON, 2: s2JSON, 3: s3JSON} {
		if len(raw) == 0 {
			continue
		}
		var a model.Approval
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("failed to decode approval slot: %w", err)
		}
		if slot == 0 {
			item.EngineerApprovedBy = &a
		} else {
			item.SetSupervisorApproval(slot, &a)
		}
	}
	return &item, nil
}

func (r *ChecklistRepository) GetByID(ctx context.Context, id int64) (*model.ChecklistItem, error) {
	query := `SELECT ` + checklistColumns + ` FROM checklist_items WHERE id = $1`

	item, err := scanChecklistItem(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("checklist item not found")
		}
		r.logger.Error("Failed to fetch checklist item", zap.Int64("item_id", id), zap.Error(err))
		return nil, apperr.Infrastructure("failed to fetch checklist item", err)
	}
	return item, nil
}

// ListByPhase resolves the phase's project and name, then returns its
// checklist in display order.
func (r *ChecklistRepository) ListByPhase(ctx context.Context, phaseID int64) ([]model.ChecklistItem, error) {
	query := `
		SELECT ` + checklistColumns + `
		FROM checklist_items c
		JOIN phases p ON p.project_id = c.project_id AND p.phase_name = c.phase_name
		WHERE p.id = $1
		ORDER BY c.display_order ASC, c.id ASC
	`
	rows, err := r.db.Query(ctx, query, phaseID)
	if err != nil {
		r.logger.Error("Failed to query checklist", zap.Int64("phase_id", phaseID), zap.Error(err))
		return nil, apperr.Infrastructure("failed to query checklist", err)
	}
	defer rows.Close()

	items := []model.ChecklistItem{}
	for rows.Next() {
		item, err := scanChecklistItem(rows)
		if err != nil {
			return nil, apperr.Infrastructure("failed to scan checklist row", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (r *ChecklistRepository) SetCompletion(ctx context.Context, id int64, completed bool) error {
	result, err := r.db.Exec(ctx,
		`UPDATE checklist_items SET is_completed = $1, updated_at = NOW() WHERE id = $2`,
		completed, id,
	)
	if err != nil {
		return apperr.Infrastructure("failed to toggle completion", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("checklist item not found")
	}
	return nil
}

// AddEngineerApproval appends the entry and fills the denormalized first
// approver, all in one guarded statement: the item must be completed and
// must not already carry an approval by this engineer. Returns false when
// the guard matched no row (caller distinguishes duplicate from
// unsatisfied precondition).
func (r *ChecklistRepository) AddEngineerApproval(ctx context.Context, id int64, entry model.EngineerApproval) (bool, error) {
	entryJSON, err := json.Marshal([]model.EngineerApproval{entry})
	if err != nil {
		return false, apperr.Infrastructure("failed to encode approval entry", err)
	}
	firstJSON, err := json.Marshal(model.Approval{
		UserID:     entry.EngineerID,
		Name:       entry.EngineerName,
		ApprovedAt: entry.ApprovedAt,
	})
	if err != nil {
		return false, apperr.Infrastructure("failed to encode approval slot", err)
	}
	dupProbe, err := json.Marshal([]map[string]int64{{"engineer_id": entry.EngineerID}})
	if err != nil {
		return false, apperr.Infrastructure("failed to encode approval probe", err)
	}

	query := `
		UPDATE checklist_items
		SET engineer_approvals = engineer_approvals || $1::jsonb,
		    engineer_approved_by = COALESCE(engineer_approved_by, $2::jsonb),
		    updated_at = NOW()
		WHERE id = $3
		  AND is_completed = TRUE
		  AND NOT (engineer_approvals @> $4::jsonb)
	`
	result, err := r.db.Exec(ctx, query, entryJSON, firstJSON, id, dupProbe)
	if err != nil {
		return false, apperr.Infrastructure("failed to record engineer approval", err)
	}
	return result.RowsAffected() > 0, nil
}

func supervisorColumn(level int) (string, error) {
	switch level {
	case 1:
		return "supervisor_1_approved_by", nil
	case 2:
		return "supervisor_2_approved_by", nil
	case 3:
		return "supervisor_3_approved_by", nil
	}
	return "", apperr.Validation("supervisor level must be 1, 2 or 3")
}

// SetSupervisorApproval fills the level's slot if it is empty and the
// previous gate is still satisfied. Returns false when the guard matched
// no row.
func (r *ChecklistRepository) SetSupervisorApproval(ctx context.Context, id int64, level int, a model.Approval) (bool, error) {
	column, err := supervisorColumn(level)
	if err != nil {
		return false, err
	}
	previous := "engineer_approved_by"
	if level > 1 {
		previous, _ = supervisorColumn(level - 1)
	}

	slotJSON, err := json.Marshal(a)
	if err != nil {
		return false, apperr.Infrastructure("failed to encode approval slot", err)
	}

	query := fmt.Sprintf(`
		UPDATE checklist_items
		SET %s = $1::jsonb, updated_at = NOW()
		WHERE id = $2
		  AND %s IS NOT NULL
		  AND %s IS NULL
	`, column, previous, column)

	result, err := r.db.Exec(ctx, query, slotJSON, id)
	if err != nil {
		return false, apperr.Infrastructure("failed to record supervisor approval", err)
	}
	return result.RowsAffected() > 0, nil
}

// ClearEngineerApproval clears the first-approver slot and the approval
// list. Supervisor slots are left untouched.
func (r *ChecklistRepository) ClearEngineerApproval(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `
		UPDATE checklist_items
		SET engineer_approved_by = NULL, engineer_approvals = '[]'::jsonb, updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return apperr.Infrastructure("failed to revoke engineer approval", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("checklist item not found")
	}
	return nil
}

// ClearSupervisorApproval clears exactly one level.
func (r *ChecklistRepository) ClearSupervisorApproval(ctx context.Context, id int64, level int) error {
	column, err := supervisorColumn(level)
	if err != nil {
		return err
	}
	result, err := r.db.Exec(ctx, fmt.Sprintf(`
		UPDATE checklist_items SET %s = NULL, updated_at = NOW() WHERE id = $1
	`, column), id)
	if err != nil {
		return apperr.Infrastructure("failed to revoke supervisor approval", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("checklist item not found")
	}
	return nil
}

func (r *ChecklistRepository) SetClientNotes(ctx context.Context, id int64, notes string) error {
	result, err := r.db.Exec(ctx,
		`UPDATE checklist_items SET client_notes = $1, updated_at = NOW() WHERE id = $2`,
		notes, id,
	)
	if err != nil {
		return apperr.Infrastructure("failed to update client notes", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("checklist item not found")
	}
	return nil
}

func (r *ChecklistRepository) Insert(ctx context.Context, item *model.ChecklistItem) error {
	query := `
		INSERT INTO checklist_items
			(project_id, phase_name, section_name, task_title_ar, task_title_en,
			 display_order, is_custom, is_completed, engineer_approvals)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, '[]'::jsonb)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		item.ProjectID,
		item.PhaseName,
		item.SectionName,
		item.TaskTitleAr,
		item.TaskTitleEn,
		item.DisplayOrder,
		item.IsCustom,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert checklist item",
			zap.Int64("project_id", item.ProjectID),
			zap.String("phase_name", item.PhaseName),
			zap.Error(err),
		)
		return apperr.Infrastructure("failed to insert checklist item", err)
	}
	return nil
}

// BulkInsert instantiates a phase's checklist from templates in one batch.
func (r *ChecklistRepository) BulkInsert(ctx context.Context, items []model.ChecklistItem) error {
	if len(items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(`
			INSERT INTO checklist_items
				(project_id, phase_name, section_name, task_title_ar, task_title_en,
				 display_order, is_custom, is_completed, engineer_approvals)
			VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, '[]'::jsonb)
		`,
			item.ProjectID,
			item.PhaseName,
			item.SectionName,
			item.TaskTitleAr,
			item.TaskTitleEn,
			item.DisplayOrder,
			item.IsCustom,
		)
	}
	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range items {
		if _, err := results.Exec(); err != nil {
			return apperr.Infrastructure("failed to bulk insert checklist items", err)
		}
	}

	r.logger.Info("Checklist seeded", zap.Int("count", len(items)))
	return nil
}

// Delete removes a custom item. Template items are protected.
func (r *ChecklistRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx,
		`DELETE FROM checklist_items WHERE id = $1 AND is_custom = TRUE`, id)
	if err != nil {
		return apperr.Infrastructure("failed to delete checklist item", err)
	}
	if result.RowsAffected() == 0 {
		// Distinguish missing item from protected template item.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return apperr.Validation("only custom checklist items can be deleted")
	}
	return nil
}
