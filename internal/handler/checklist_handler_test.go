package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/marwanhelal/track-management-system/internal/model"
	"github.com/marwanhelal/track-management-system/internal/service/checklist"
	"github.com/marwanhelal/track-management-system/pkg/apperr"
)

func TestBatchResponseShape(t *testing.T) {
	h := NewChecklistHandler(nil, zap.NewNop())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/checklist/approve/engineer", nil)

	h.respondBatch(c, []checklist.ItemResult{
		{ItemID: 1, Item: &model.ChecklistItem{ID: 1, IsCompleted: true}},
		{ItemID: 2, Err: apperr.PreconditionNotMet("item must be completed before engineer approval")},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even with per-item failures", w.Code)
	}

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Results []map[string]any `json:"results"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success {
		t.Error("success = false, want true")
	}
	if len(body.Data.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(body.Data.Results))
	}

	if _, ok := body.Data.Results[0]["item"]; !ok {
		t.Error("first result should carry the item")
	}
	if _, ok := body.Data.Results[0]["error"]; ok {
		t.Error("first result should not carry an error")
	}

	errObj, ok := body.Data.Results[1]["error"].(map[string]any)
	if !ok {
		t.Fatal("second result should carry an error object")
	}
	if errObj["code"] != "precondition_not_met" {
		t.Errorf("error.code = %v, want precondition_not_met", errObj["code"])
	}
}
