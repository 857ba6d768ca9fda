package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/marwanhelal/track-management-system/internal/repository"
)

// WorkLogHandler serves read-only work log queries straight from the
// repository; there is no engine behavior behind them.
type WorkLogHandler struct {
	repo   *repository.WorkLogRepository
	logger *zap.Logger
}

func NewWorkLogHandler(repo *repository.WorkLogRepository, logger *zap.Logger) *WorkLogHandler {
	return &WorkLogHandler{repo: repo, logger: logger}
}

func (h *WorkLogHandler) ListByPhase(c *gin.Context) {
	phaseID, ok := pathID(c, "id")
	if !ok {
		return
	}

	logs, err := h.repo.ListByPhase(c.Request.Context(), phaseID)
	if err != nil {
		h.logger.Error("Failed to list work logs",
			zap.Int64("phase_id", phaseID),
			zap.Error(err),
		)
		respondError(c, err)
		return
	}

	total, err := h.repo.SumHoursByPhase(c.Request.Context(), phaseID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"work_logs":   logs,
		"total_hours": total,
	})
}
