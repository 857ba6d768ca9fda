package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/marwanhelal/track-management-system/internal/model"
	"github.com/marwanhelal/track-management-system/pkg/apperr"
)

type WorkLogRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewWorkLogRepository(db *pgxpool.Pool, logger *zap.Logger) *WorkLogRepository {
	return &WorkLogRepository{db: db, logger: logger}
}

func (r *WorkLogRepository) ListByPhase(ctx context.Context, phaseID int64) ([]model.WorkLog, error) {
	query := `
		SELECT id, phase_id, engineer_id, hours, description, work_date, created_at
		FROM work_logs
		WHERE phase_id = $1
		ORDER BY work_date DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, phaseID)
	if err != nil {
		r.logger.Error("Failed to query work logs", zap.Int64("phase_id", phaseID), zap.Error(err))
		return nil, apperr.Infrastructure("failed to query work logs", err)
	}
	defer rows.Close()

	logs := []model.WorkLog{}
	for rows.Next() {
		var wl model.WorkLog
		if err := rows.Scan(
			&wl.ID,
			&wl.PhaseID,
			&wl.EngineerID,
			&wl.Hours,
			&wl.Description,
			&wl.WorkDate,
			&wl.CreatedAt,
		); err != nil {
			return nil, apperr.Infrastructure("failed to scan work log row", err)
		}
		logs = append(logs, wl)
	}
	return logs, rows.Err()
}

// SumHoursByPhase backs the phase actual-hours aggregation.
func (r *WorkLogRepository) SumHoursByPhase(ctx context.Context, phaseID int64) (float64, error) {
	var total float64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(hours), 0) FROM work_logs WHERE phase_id = $1`,
		phaseID,
	).Scan(&total)
	if err != nil {
		return 0, apperr.Infrastructure("failed to sum work log hours", err)
	}
	return total, nil
}
