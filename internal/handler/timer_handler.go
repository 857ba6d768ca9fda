package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/marwanhelal/track-management-system/internal/service/timer"
	"github.com/marwanhelal/track-management-system/pkg/apperr"
)

type TimerHandler struct {
	timerService *timer.Service
	logger       *zap.Logger
}

func NewTimerHandler(timerService *timer.Service, logger *zap.Logger) *TimerHandler {
	return &TimerHandler{timerService: timerService, logger: logger}
}

type startTimerRequest struct {
	PhaseID     int64  `json:"phase_id"`
	Description string `json:"description"`
}

func (h *TimerHandler) Start(c *gin.Context) {
	var req startTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body"))
		return
	}
	if req.PhaseID <= 0 {
		respondError(c, apperr.Validation("phase_id is required"))
		return
	}

	session, err := h.timerService.Start(c.Request.Context(), actorFrom(c), req.PhaseID, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Timer session started",
		zap.Int64("session_id", session.ID),
		zap.Int64("phase_id", req.PhaseID),
		zap.Int64("engineer_id", session.EngineerID),
	)
	respondOK(c, http.StatusCreated, session)
}

type pauseTimerRequest struct {
	ElapsedTimeMs int64 `json:"elapsed_time_ms"`
}

func (h *TimerHandler) Pause(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req pauseTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body"))
		return
	}

	session, err := h.timerService.Pause(c.Request.Context(), actorFrom(c), id, req.ElapsedTimeMs)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, session)
}

type resumeTimerRequest struct {
	TotalPausedMs int64 `json:"total_paused_ms"`
}

func (h *TimerHandler) Resume(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req resumeTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body"))
		return
	}

	session, err := h.timerService.Resume(c.Request.Context(), actorFrom(c), id, req.TotalPausedMs)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, session)
}

type stopTimerRequest struct {
	ElapsedTimeMs int64 `json:"elapsed_time_ms"`
	TotalPausedMs int64 `json:"total_paused_ms"`
}

func (h *TimerHandler) Stop(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req stopTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body"))
		return
	}

	result, err := h.timerService.Stop(c.Request.Context(), actorFrom(c), id, req.ElapsedTimeMs, req.TotalPausedMs)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Timer session stopped",
		zap.Int64("session_id", id),
		zap.Float64("active_hours", result.ActiveHours),
	)
	respondOK(c, http.StatusOK, result)
}

func (h *TimerHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.timerService.Cancel(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"cancelled": true})
}

// GetActive reports the caller's current session; data is null when no
// session exists, which clients treat as the authoritative idle state.
func (h *TimerHandler) GetActive(c *gin.Context) {
	session, err := h.timerService.GetActive(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, session)
}
