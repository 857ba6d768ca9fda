package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/marwanhelal/track-management-system/internal/model"
	"github.com/marwanhelal/track-management-system/pkg/apperr"
)

type PhaseRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewPhaseRepository(db *pgxpool.Pool, logger *zap.Logger) *PhaseRepository {
	return &PhaseRepository{db: db, logger: logger}
}

const phaseColumns = `
	id, project_id, phase_name, phase_order, status,
	early_access_granted, early_access_status, warning_flag, delay_reason,
	planned_start_date, planned_end_date, actual_start_date, actual_end_date,
	submitted_date, approved_date, predicted_hours, created_at, updated_at
`

func scanPhase(row pgx.Row) (*model.Phase, error) {
	var p model.Phase
	err := row.Scan(
		&p.ID,
		&p.ProjectID,
		&p.PhaseName,
		&p.PhaseOrder,
		&p.Status,
		&p.EarlyAccessGranted,
		&p.EarlyAccessStatus,
		&p.WarningFlag,
		&p.DelayReason,
		&p.PlannedStartDate,
		&p.PlannedEndDate,
		&p.ActualStartDate,
		&p.ActualEndDate,
		&p.SubmittedDate,
		&p.ApprovedDate,
		&p.PredictedHours,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PhaseRepository) GetByID(ctx context.Context, id int64) (*model.Phase, error) {
	query := `SELECT ` + phaseColumns + ` FROM phases WHERE id = $1`

	p, err := scanPhase(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("phase not found")
		}
		r.logger.Error("Failed to fetch phase", zap.Int64("phase_id", id), zap.Error(err))
		return nil, apperr.Infrastructure("failed to fetch phase", err)
	}
	return p, nil
}

func (r *PhaseRepository) ListByProject(ctx context.Context, projectID int64) ([]model.Phase, error) {
	query := `SELECT ` + phaseColumns + ` FROM phases WHERE project_id = $1 ORDER BY phase_order ASC`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		r.logger.Error("Failed to query phases", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, apperr.Infrastructure("failed to query phases", err)
	}
	defer rows.Close()

	phases := []model.Phase{}
	for rows.Next() {
		p, err := scanPhase(rows)
		if err != nil {
			return nil, apperr.Infrastructure("failed to scan phase row", err)
		}
		phases = append(phases, *p)
	}
	return phases, rows.Err()
}

// ApplyTransition writes the lifecycle fields of p, guarded on the status
// the caller observed. Two concurrent transitions from the same prior
// state cannot both succeed: the second one matches zero rows.
func (r *PhaseRepository) ApplyTransition(ctx context.Context, p *model.Phase, expected model.PhaseStatus) error {
	query := `
		UPDATE phases
		SET status = $1, early_access_status = $2,
		    actual_start_date = $3, actual_end_date = $4,
		    submitted_date = $5, approved_date = $6,
		    updated_at = NOW()
		WHERE id = $7 AND status = $8
	`
	result, err := r.db.Exec(ctx, query,
		p.Status,
		p.EarlyAccessStatus,
		p.ActualStartDate,
		p.ActualEndDate,
		p.SubmittedDate,
		p.ApprovedDate,
		p.ID,
		expected,
	)
	if err != nil {
		r.logger.Error("Failed to apply phase transition",
			zap.Int64("phase_id", p.ID),
			zap.String("to", string(p.Status)),
			zap.Error(err),
		)
		return apperr.Infrastructure("failed to apply phase transition", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.InvalidTransition("phase state changed concurrently", string(expected), string(p.Status))
	}

	r.logger.Info("Phase transition applied",
		zap.Int64("phase_id", p.ID),
		zap.String("from", string(expected)),
		zap.String("to", string(p.Status)),
	)
	return nil
}

// GrantEarlyAccess is legal only while the phase has not started.
func (r *PhaseRepository) GrantEarlyAccess(ctx context.Context, id int64) error {
	query := `
		UPDATE phases
		SET early_access_granted = TRUE, early_access_status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`
	result, err := r.db.Exec(ctx, query, model.EarlyAccessAccessible, id, model.PhaseNotStarted)
	if err != nil {
		return apperr.Infrastructure("failed to grant early access", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.InvalidTransition("early access can only be granted before the phase starts",
			"", string(model.PhaseNotStarted))
	}
	return nil
}

// RevokeEarlyAccess resets the early-access sub-state without touching
// the lifecycle status.
func (r *PhaseRepository) RevokeEarlyAccess(ctx context.Context, id int64) error {
	query := `
		UPDATE phases
		SET early_access_granted = FALSE, early_access_status = $1, updated_at = NOW()
		WHERE id = $2 AND early_access_granted = TRUE
	`
	result, err := r.db.Exec(ctx, query, model.EarlyAccessNotAccessible, id)
	if err != nil {
		return apperr.Infrastructure("failed to revoke early access", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.InvalidTransition("early access is not granted", "", "")
	}
	return nil
}

func (r *PhaseRepository) SetWarning(ctx context.Context, id int64, flag bool) error {
	result, err := r.db.Exec(ctx,
		`UPDATE phases SET warning_flag = $1, updated_at = NOW() WHERE id = $2`,
		flag, id,
	)
	if err != nil {
		return apperr.Infrastructure("failed to set warning flag", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("phase not found")
	}
	return nil
}

func (r *PhaseRepository) SetDelay(ctx context.Context, id int64, reason model.DelayReason, newEndDate *time.Time) error {
	query := `
		UPDATE phases
		SET delay_reason = $1,
		    planned_end_date = COALESCE($2, planned_end_date),
		    updated_at = NOW()
		WHERE id = $3
	`
	result, err := r.db.Exec(ctx, query, reason, newEndDate, id)
	if err != nil {
		return apperr.Infrastructure("failed to record delay", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("phase not found")
	}
	return nil
}

func (r *PhaseRepository) UpdateHistoricalDates(ctx context.Context, id int64, dates model.HistoricalDates) error {
	query := `
		UPDATE phases
		SET actual_start_date = COALESCE($1, actual_start_date),
		    actual_end_date = COALESCE($2, actual_end_date),
		    submitted_date = COALESCE($3, submitted_date),
		    approved_date = COALESCE($4, approved_date),
		    updated_at = NOW()
		WHERE id = $5
	`
	result, err := r.db.Exec(ctx, query,
		dates.ActualStartDate,
		dates.ActualEndDate,
		dates.SubmittedDate,
		dates.ApprovedDate,
		id,
	)
	if err != nil {
		return apperr.Infrastructure("failed to update phase dates", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("phase not found")
	}
	return nil
}

// engineerAssignedQuery checks the project roster for the phase's project.
// Column names must stay in step with migrations/001_init.sql.
const engineerAssignedQuery = `
	SELECT EXISTS (
		SELECT 1
		FROM project_engineers pe
		JOIN phases p ON p.project_id = pe.project_id
		WHERE p.id = $1 AND pe.engineer_id = $2
	)
`

// IsEngineerAssigned reports whether the engineer is on the roster of the
// project this phase belongs to.
func (r *PhaseRepository) IsEngineerAssigned(ctx context.Context, phaseID, engineerID int64) (bool, error) {
	var assigned bool
	if err := r.db.QueryRow(ctx, engineerAssignedQuery, phaseID, engineerID).Scan(&assigned); err != nil {
		return false, apperr.Infrastructure("failed to check phase assignment", err)
	}
	return assigned, nil
}
