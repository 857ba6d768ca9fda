package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	mqcontracts "github.com/marwanhelal/track-management-system/contracts/mq"
	"github.com/marwanhelal/track-management-system/internal/model"
	"github.com/marwanhelal/track-management-system/pkg/apperr"
	"github.com/marwanhelal/track-management-system/pkg/metrics"
	"github.com/marwanhelal/track-management-system/pkg/outbox"
)

type TimerSessionRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewTimerSessionRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository, logger *zap.Logger) *TimerSessionRepository {
	return &TimerSessionRepository{db: db, outbox: outboxRepo, logger: logger}
}

const sessionColumns = `
	id, engineer_id, phase_id, description, status, start_time, paused_at,
	elapsed_time_ms, total_paused_ms, created_at, updated_at
`

func scanSession(row pgx.Row) (*model.TimerSession, error) {
	var s model.TimerSession
	err := row.Scan(
		&s.ID,
		&s.EngineerID,
		&s.PhaseID,
		&s.Description,
		&s.Status,
		&s.StartTime,
		&s.PausedAt,
		&s.ElapsedTimeMs,
		&s.TotalPausedMs,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts the session. The unique constraint on engineer_id makes
// the one-active-session rule hold even for two racing inserts.
func (r *TimerSessionRepository) Create(ctx context.Context, s *model.TimerSession) error {
	query := `
		INSERT INTO timer_sessions
			(engineer_id, phase_id, description, status, start_time, elapsed_time_ms, total_paused_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		s.EngineerID,
		s.PhaseID,
		s.Description,
		s.Status,
		s.StartTime,
		s.ElapsedTimeMs,
		s.TotalPausedMs,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.SessionConflict("engineer already has an active timer session")
		}
		r.logger.Error("Failed to create timer session",
			zap.Int64("engineer_id", s.EngineerID),
			zap.Int64("phase_id", s.PhaseID),
			zap.Error(err),
		)
		return apperr.Infrastructure("failed to create timer session", err)
	}

	metrics.ActiveTimerSessions.Inc()
	r.logger.Info("Timer session started",
		zap.Int64("session_id", s.ID),
		zap.Int64("engineer_id", s.EngineerID),
		zap.Int64("phase_id", s.PhaseID),
	)
	return nil
}

func (r *TimerSessionRepository) GetByID(ctx context.Context, id int64) (*model.TimerSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM timer_sessions WHERE id = $1`

	s, err := scanSession(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("timer session not found")
		}
		return nil, apperr.Infrastructure("failed to fetch timer session", err)
	}
	return s, nil
}

// GetActiveByEngineer returns the engineer's current session, or nil when
// the engineer is idle.
func (r *TimerSessionRepository) GetActiveByEngineer(ctx context.Context, engineerID int64) (*model.TimerSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM timer_sessions WHERE engineer_id = $1`

	s, err := scanSession(r.db.QueryRow(ctx, query, engineerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Infrastructure("failed to fetch active timer session", err)
	}
	return s, nil
}

// Pause persists the client's elapsed snapshot; guarded on active status.
func (r *TimerSessionRepository) Pause(ctx context.Context, id int64, elapsedMs int64, pausedAt time.Time) error {
	query := `
		UPDATE timer_sessions
		SET status = $1, elapsed_time_ms = $2, paused_at = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5
	`
	result, err := r.db.Exec(ctx, query, model.TimerPaused, elapsedMs, pausedAt, id, model.TimerActive)
	if err != nil {
		return apperr.Infrastructure("failed to pause timer session", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.InvalidTransition("only an active session can be paused",
			string(model.TimerPaused), string(model.TimerActive))
	}
	return nil
}

// Resume persists the accumulated paused duration; guarded on paused status.
func (r *TimerSessionRepository) Resume(ctx context.Context, id int64, totalPausedMs int64) error {
	query := `
		UPDATE timer_sessions
		SET status = $1, total_paused_ms = $2, paused_at = NULL, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.Exec(ctx, query, model.TimerActive, totalPausedMs, id, model.TimerPaused)
	if err != nil {
		return apperr.Infrastructure("failed to resume timer session", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.InvalidTransition("only a paused session can be resumed",
			string(model.TimerActive), string(model.TimerPaused))
	}
	return nil
}

// CloseWithWorkLog finalizes a session: the work log insert, session
// delete and worklog.created outbox event commit or roll back together.
func (r *TimerSessionRepository) CloseWithWorkLog(ctx context.Context, sessionID int64, wl *model.WorkLog) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return apperr.Infrastructure("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `DELETE FROM timer_sessions WHERE id = $1`, sessionID)
	if err != nil {
		return apperr.Infrastructure("failed to delete timer session", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("timer session not found")
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO work_logs (phase_id, engineer_id, hours, description, work_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`,
		wl.PhaseID,
		wl.EngineerID,
		wl.Hours,
		wl.Description,
		wl.WorkDate,
	).Scan(&wl.ID, &wl.CreatedAt)
	if err != nil {
		return apperr.Infrastructure("failed to insert work log", err)
	}

	event, err := outbox.NewEvent("work_log", wl.ID, mqcontracts.RoutingKeyWorkLogCreated, mqcontracts.WorkLogCreatedPayload{
		WorkLogID:  wl.ID,
		PhaseID:    wl.PhaseID,
		EngineerID: wl.EngineerID,
		Hours:      wl.Hours,
		WorkDate:   wl.WorkDate,
	})
	if err != nil {
		return apperr.Infrastructure("failed to build outbox event", err)
	}
	if err := r.outbox.InsertTx(ctx, tx, event); err != nil {
		return apperr.Infrastructure("failed to insert outbox event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Infrastructure("failed to commit transaction", err)
	}

	metrics.ActiveTimerSessions.Dec()
	r.logger.Info("Timer session stopped",
		zap.Int64("session_id", sessionID),
		zap.Int64("work_log_id", wl.ID),
		zap.Float64("hours", wl.Hours),
	)
	return nil
}

// Delete discards a session without producing a work log.
func (r *TimerSessionRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM timer_sessions WHERE id = $1`, id)
	if err != nil {
		return apperr.Infrastructure("failed to delete timer session", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("timer session not found")
	}

	metrics.ActiveTimerSessions.Dec()
	r.logger.Info("Timer session cancelled", zap.Int64("session_id", id))
	return nil
}
