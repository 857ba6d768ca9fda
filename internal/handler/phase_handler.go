package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/marwanhelal/track-management-system/internal/model"
	"github.com/marwanhelal/track-management-system/internal/service/phase"
	"github.com/marwanhelal/track-management-system/pkg/apperr"
)

type PhaseHandler struct {
	phaseService *phase.Service
	logger       *zap.Logger
}

func NewPhaseHandler(phaseService *phase.Service, logger *zap.Logger) *PhaseHandler {
	return &PhaseHandler{phaseService: phaseService, logger: logger}
}

type phaseActionRequest struct {
	Note string `json:"note"`
}

func (h *PhaseHandler) Start(c *gin.Context) {
	h.lifecycle(c, h.phaseService.Start)
}

func (h *PhaseHandler) Submit(c *gin.Context) {
	h.lifecycle(c, h.phaseService.Submit)
}

func (h *PhaseHandler) Approve(c *gin.Context) {
	h.lifecycle(c, h.phaseService.Approve)
}

func (h *PhaseHandler) Complete(c *gin.Context) {
	h.lifecycle(c, h.phaseService.Complete)
}

func (h *PhaseHandler) lifecycle(c *gin.Context, op func(ctx context.Context, actor model.Actor, phaseID int64, note string) (*model.Phase, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req phaseActionRequest
	_ = c.ShouldBindJSON(&req) // note is optional, body may be empty

	p, err := op(c.Request.Context(), actorFrom(c), id, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, p)
}

func (h *PhaseHandler) GrantEarlyAccess(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req phaseActionRequest
	_ = c.ShouldBindJSON(&req)

	p, err := h.phaseService.GrantEarlyAccess(c.Request.Context(), actorFrom(c), id, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, p)
}

func (h *PhaseHandler) RevokeEarlyAccess(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req phaseActionRequest
	_ = c.ShouldBindJSON(&req)

	p, err := h.phaseService.RevokeEarlyAccess(c.Request.Context(), actorFrom(c), id, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, p)
}

type warningRequest struct {
	WarningFlag bool   `json:"warning_flag"`
	Note        string `json:"note"`
}

func (h *PhaseHandler) MarkWarning(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req warningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body"))
		return
	}

	p, err := h.phaseService.MarkWarning(c.Request.Context(), actorFrom(c), id, req.WarningFlag, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, p)
}

type delayRequest struct {
	DelayReason     string     `json:"delay_reason"`
	AdditionalWeeks int        `json:"additional_weeks"`
	NewEndDate      *time.Time `json:"new_end_date"`
	Note            string     `json:"note"`
}

func (h *PhaseHandler) HandleDelay(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req delayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body"))
		return
	}

	p, err := h.phaseService.HandleDelay(c.Request.Context(), actorFrom(c), id, phase.DelayInput{
		DelayReason:     model.DelayReason(req.DelayReason),
		AdditionalWeeks: req.AdditionalWeeks,
		NewEndDate:      req.NewEndDate,
		Note:            req.Note,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, p)
}

type datesRequest struct {
	ActualStartDate *time.Time `json:"actual_start_date"`
	ActualEndDate   *time.Time `json:"actual_end_date"`
	SubmittedDate   *time.Time `json:"submitted_date"`
	ApprovedDate    *time.Time `json:"approved_date"`
}

func (h *PhaseHandler) UpdateHistoricalDates(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req datesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body"))
		return
	}

	p, err := h.phaseService.UpdateHistoricalDates(c.Request.Context(), actorFrom(c), id, model.HistoricalDates{
		ActualStartDate: req.ActualStartDate,
		ActualEndDate:   req.ActualEndDate,
		SubmittedDate:   req.SubmittedDate,
		ApprovedDate:    req.ApprovedDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, p)
}

func (h *PhaseHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.phaseService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, p)
}

func (h *PhaseHandler) ListByProject(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	phases, err := h.phaseService.ListByProject(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, phases)
}
