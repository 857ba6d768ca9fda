package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/marwanhelal/track-management-system/internal/service/checklist"
	"github.com/marwanhelal/track-management-system/pkg/apperr"
)

type ChecklistHandler struct {
	checklistService *checklist.Service
	logger           *zap.Logger
}

func NewChecklistHandler(checklistService *checklist.Service, logger *zap.Logger) *ChecklistHandler {
	return &ChecklistHandler{checklistService: checklistService, logger: logger}
}

type toggleRequest struct {
	IsCompleted bool `json:"is_completed"`
}

func (h *ChecklistHandler) ToggleCompletion(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body"))
		return
	}

	item, err := h.checklistService.ToggleCompletion(c.Request.Context(), actorFrom(c), id, req.IsCompleted)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, item)
}

type batchApproveRequest struct {
	Items []int64 `json:"items"`
}

func (h *ChecklistHandler) EngineerApprove(c *gin.Context) {
	var req batchApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body"))
		return
	}

	results, err := h.checklistService.EngineerApprove(c.Request.Context(), actorFrom(c), req.Items)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondBatch(c, results)
}

type supervisorApproveRequest struct {
	Items []int64 `json:"items"`
	Level int     `json:"level"`
}

func (h *ChecklistHandler) SupervisorApprove(c *gin.Context) {
	var req supervisorApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body"))
		return
	}

	results, err := h.checklistService.SupervisorApprove(c.Request.Context(), actorFrom(c), req.Items, req.Level)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondBatch(c, results)
}

// respondBatch serializes per-item results. The HTTP status is 200 even
// when some items failed; each entry carries its own outcome.
func (h *ChecklistHandler) respondBatch(c *gin.Context, results []checklist.ItemResult) {
	out := make([]gin.H, 0, len(results))
	failed := 0
	for _, r := range results {
		entry := gin.H{"item_id": r.ItemID}
		if r.Err != nil {
			failed++
			entry["error"] = errorPayload(r.Err)
		} else {
			entry["item"] = r.Item
		}
		out = append(out, entry)
	}

	if failed > 0 {
		h.logger.Info("Checklist batch finished with failures",
			zap.Int("total", len(results)),
			zap.Int("failed", failed),
		)
	}
	respondOK(c, http.StatusOK, gin.H{"results": out})
}

func (h *ChecklistHandler) RevokeEngineerApproval(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	item, err := h.checklistService.RevokeEngineerApproval(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, item)
}

type revokeSupervisorRequest struct {
	Level int `json:"level"`
}

func (h *ChecklistHandler) RevokeSupervisorApproval(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req revokeSupervisorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body"))
		return
	}

	item, err := h.checklistService.RevokeSupervisorApproval(c.Request.Context(), actorFrom(c), id, req.Level)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, item)
}

type clientNotesRequest struct {
	ClientNotes string `json:"client_notes"`
}

func (h *ChecklistHandler) UpdateClientNotes(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req clientNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body"))
		return
	}

	item, err := h.checklistService.UpdateClientNotes(c.Request.Context(), actorFrom(c), id, req.ClientNotes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, item)
}

type createItemRequest struct {
	SectionName  *string `json:"section_name"`
	TaskTitleAr  string  `json:"task_title_ar"`
	TaskTitleEn  *string `json:"task_title_en"`
	DisplayOrder int     `json:"display_order"`
}

func (h *ChecklistHandler) CreateItem(c *gin.Context) {
	phaseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body"))
		return
	}

	item, err := h.checklistService.CreateItem(c.Request.Context(), actorFrom(c), phaseID, checklist.CreateItemInput{
		SectionName:  req.SectionName,
		TaskTitleAr:  req.TaskTitleAr,
		TaskTitleEn:  req.TaskTitleEn,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, item)
}

func (h *ChecklistHandler) DeleteItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.checklistService.DeleteItem(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *ChecklistHandler) ListByPhase(c *gin.Context) {
	phaseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	items, err := h.checklistService.ListByPhase(c.Request.Context(), phaseID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, items)
}
