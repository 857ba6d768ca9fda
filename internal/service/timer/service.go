package timer

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/marwanhelal/track-management-system/internal/model"
	"github.com/marwanhelal/track-management-system/pkg/apperr"
	"github.com/marwanhelal/track-management-system/pkg/rbac"
)

// Sessions is the storage surface the timer engine needs. Create fails
// with SessionConflict when the engineer already has a session, and
// CloseWithWorkLog finalizes a session atomically.
type Sessions interface {
	Create(ctx context.Context, s *model.TimerSession) error
	GetByID(ctx context.Context, id int64) (*model.TimerSession, error)
	GetActiveByEngineer(ctx context.Context, engineerID int64) (*model.TimerSession, error)
	Pause(ctx context.Context, id int64, elapsedMs int64, pausedAt time.Time) error
	Resume(ctx context.Context, id int64, totalPausedMs int64) error
	CloseWithWorkLog(ctx context.Context, sessionID int64, wl *model.WorkLog) error
	Delete(ctx context.Context, id int64) error
}

// PhaseReader checks that a phase is in an engineer-workable status
// before time is tracked against it.
type PhaseReader interface {
	GetByID(ctx context.Context, id int64) (*model.Phase, error)
}

// Locker guards session creation against duplicate concurrent requests.
type Locker interface {
	Acquire(ctx context.Context, engineerID int64) (bool, error)
	Release(ctx context.Context, engineerID int64)
}

type Service struct {
	sessions Sessions
	phases   PhaseReader
	lock     Locker
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(sessions Sessions, phases PhaseReader, lock Locker, logger *zap.Logger) *Service {
	return &Service{
		sessions: sessions,
		phases:   phases,
		lock:     lock,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) Start(ctx context.Context, actor model.Actor, phaseID int64, description string) (*model.TimerSession, error) {
	if !rbac.Has(actor.Role, rbac.PermissionTimerUse) {
		return nil, apperr.Authorization("role is not allowed to track time")
	}

	p, err := s.phases.GetByID(ctx, phaseID)
	if err != nil {
		return nil, err
	}
	switch p.Status {
	case model.PhaseReady, model.PhaseInProgress, model.PhaseSubmitted:
	default:
		return nil, apperr.InvalidTransition("time can only be tracked against a workable phase",
			string(p.Status), "ready|in_progress|submitted")
	}

	ok, err := s.lock.Acquire(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.SessionConflict("a timer start for this engineer is already in flight")
	}
	defer s.lock.Release(ctx, actor.ID)

	existing, err := s.sessions.GetActiveByEngineer(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.SessionConflict("engineer already has an active timer session")
	}

	session := &model.TimerSession{
		EngineerID:    actor.ID,
		PhaseID:       phaseID,
		Description:   description,
		Status:        model.TimerActive,
		StartTime:     s.now(),
		ElapsedTimeMs: 0,
		TotalPausedMs: 0,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Pause persists the client's locally observed elapsed snapshot. The
// snapshot may run ahead of server wall-clock maths (clock drift) but it
// must never decrease.
func (s *Service) Pause(ctx context.Context, actor model.Actor, sessionID, elapsedTimeMs int64) (*model.TimerSession, error) {
	session, err := s.ownedSession(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}
	if elapsedTimeMs < 0 {
		return nil, apperr.Validation("elapsed_time_ms cannot be negative")
	}
	if elapsedTimeMs < session.ElapsedTimeMs {
		return nil, apperr.Validation("elapsed_time_ms cannot decrease")
	}
	if session.Status != model.TimerActive {
		return nil, apperr.InvalidTransition("only an active session can be paused",
			string(session.Status), string(model.TimerActive))
	}

	pausedAt := s.now()
	if err := s.sessions.Pause(ctx, sessionID, elapsedTimeMs, pausedAt); err != nil {
		return nil, err
	}

	session.Status = model.TimerPaused
	session.ElapsedTimeMs = elapsedTimeMs
	session.PausedAt = &pausedAt
	return session, nil
}

func (s *Service) Resume(ctx context.Context, actor model.Actor, sessionID, totalPausedMs int64) (*model.TimerSession, error) {
	session, err := s.ownedSession(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}
	if totalPausedMs < 0 {
		return nil, apperr.Validation("total_paused_ms cannot be negative")
	}
	if totalPausedMs < session.TotalPausedMs {
		return nil, apperr.Validation("total_paused_ms cannot decrease")
	}
	if session.Status != model.TimerPaused {
		return nil, apperr.InvalidTransition("only a paused session can be resumed",
			string(session.Status), string(model.TimerPaused))
	}

	if err := s.sessions.Resume(ctx, sessionID, totalPausedMs); err != nil {
		return nil, err
	}

	session.Status = model.TimerActive
	session.TotalPausedMs = totalPausedMs
	session.PausedAt = nil
	return session, nil
}

// StopResult is the finalized work log plus the hour breakdown the
// client renders.
type StopResult struct {
	WorkLog     *model.WorkLog `json:"work_log"`
	ActiveHours float64        `json:"active_hours"`
	PausedHours float64        `json:"paused_hours"`
}

func (s *Service) Stop(ctx context.Context, actor model.Actor, sessionID, elapsedTimeMs, totalPausedMs int64) (*StopResult, error) {
	session, err := s.ownedSession(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}
	if elapsedTimeMs < 0 || totalPausedMs < 0 {
		return nil, apperr.Validation("durations cannot be negative")
	}

	activeWorkMs := elapsedTimeMs - totalPausedMs
	if activeWorkMs <= 0 {
		return nil, apperr.Validation("active work duration must be positive")
	}

	wl := &model.WorkLog{
		PhaseID:     session.PhaseID,
		EngineerID:  session.EngineerID,
		Hours:       roundHours(activeWorkMs),
		Description: session.Description,
		WorkDate:    s.today(),
	}
	if err := s.sessions.CloseWithWorkLog(ctx, sessionID, wl); err != nil {
		return nil, err
	}

	return &StopResult{
		WorkLog:     wl,
		ActiveHours: wl.Hours,
		PausedHours: roundHours(totalPausedMs),
	}, nil
}

func (s *Service) Cancel(ctx context.Context, actor model.Actor, sessionID int64) error {
	if _, err := s.ownedSession(ctx, actor, sessionID); err != nil {
		return err
	}
	return s.sessions.Delete(ctx, sessionID)
}

// GetActive returns the caller's current session, or nil when idle. The
// server answer is authoritative; clients discard any local cache once
// it arrives.
func (s *Service) GetActive(ctx context.Context, actor model.Actor) (*model.TimerSession, error) {
	return s.sessions.GetActiveByEngineer(ctx, actor.ID)
}

func (s *Service) ownedSession(ctx context.Context, actor model.Actor, sessionID int64) (*model.TimerSession, error) {
	if !rbac.Has(actor.Role, rbac.PermissionTimerUse) {
		return nil, apperr.Authorization("role is not allowed to track time")
	}
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.EngineerID != actor.ID {
		return nil, apperr.Authorization("timer sessions can only be controlled by their owner")
	}
	return session, nil
}

func (s *Service) today() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// roundHours converts milliseconds to hours, rounded half away from zero
// to two decimals.
func roundHours(ms int64) float64 {
	return math.Round(float64(ms)/3_600_000*100) / 100
}
