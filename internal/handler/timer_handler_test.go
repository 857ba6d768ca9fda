package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/marwanhelal/track-management-system/internal/model"
	"github.com/marwanhelal/track-management-system/internal/service/timer"
	"github.com/marwanhelal/track-management-system/pkg/apperr"
	"github.com/marwanhelal/track-management-system/pkg/rbac"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubSessions struct {
	session *model.TimerSession
	workLog *model.WorkLog
}

func (s *stubSessions) Create(_ context.Context, sess *model.TimerSession) error {
	if s.session != nil {
		return apperr.SessionConflict("engineer already has an active timer session")
	}
	sess.ID = 7
	cp := *sess
	s.session = &cp
	return nil
}

func (s *stubSessions) GetByID(_ context.Context, id int64) (*model.TimerSession, error) {
	if s.session == nil || s.session.ID != id {
		return nil, apperr.NotFound("timer session not found")
	}
	cp := *s.session
	return &cp, nil
}

func (s *stubSessions) GetActiveByEngineer(_ context.Context, engineerID int64) (*model.TimerSession, error) {
	if s.session != nil && s.session.EngineerID == engineerID {
		cp := *s.session
		return &cp, nil
	}
	return nil, nil
}

func (s *stubSessions) Pause(_ context.Context, _ int64, elapsedMs int64, pausedAt time.Time) error {
	s.session.Status = model.TimerPaused
	s.session.ElapsedTimeMs = elapsedMs
	s.session.PausedAt = &pausedAt
	return nil
}

func (s *stubSessions) Resume(_ context.Context, _ int64, totalPausedMs int64) error {
	s.session.Status = model.TimerActive
	s.session.TotalPausedMs = totalPausedMs
	s.session.PausedAt = nil
	return nil
}

func (s *stubSessions) CloseWithWorkLog(_ context.Context, _ int64, wl *model.WorkLog) error {
	wl.ID = 1
	s.workLog = wl
	s.session = nil
	return nil
}

func (s *stubSessions) Delete(_ context.Context, _ int64) error {
	s.session = nil
	return nil
}

type stubPhases struct{}

func (stubPhases) GetByID(_ context.Context, id int64) (*model.Phase, error) {
	return &model.Phase{ID: id, Status: model.PhaseInProgress}, nil
}

type openLocker struct{}

func (openLocker) Acquire(_ context.Context, _ int64) (bool, error) { return true, nil }
func (openLocker) Release(_ context.Context, _ int64)               {}

func timerTestRouter(sessions *stubSessions) *gin.Engine {
	svc := timer.NewService(sessions, stubPhases{}, openLocker{}, zap.NewNop())
	h := NewTimerHandler(svc, zap.NewNop())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ActorKey, model.Actor{ID: 20, Name: "Omar", Role: rbac.RoleEngineer})
	})
	r.POST("/timer-sessions", h.Start)
	r.PUT("/timer-sessions/:id/stop", h.Stop)
	r.GET("/timer-sessions/active", h.GetActive)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestStartEndpoint(t *testing.T) {
	sessions := &stubSessions{}
	router := timerTestRouter(sessions)

	w := doJSON(t, router, "POST", "/timer-sessions", gin.H{"phase_id": 1, "description": "detailing"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	data := body["data"].(map[string]any)
	if data["status"] != "active" {
		t.Errorf("data.status = %v, want active", data["status"])
	}
}

func TestStartConflictEnvelope(t *testing.T) {
	sessions := &stubSessions{session: &model.TimerSession{ID: 7, EngineerID: 20, Status: model.TimerActive}}
	router := timerTestRouter(sessions)

	w := doJSON(t, router, "POST", "/timer-sessions", gin.H{"phase_id": 1})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
	errObj := body["error"].(map[string]any)
	if errObj["code"] != "session_conflict" {
		t.Errorf("error.code = %v, want session_conflict", errObj["code"])
	}
}

func TestStopEndpointReturnsHours(t *testing.T) {
	sessions := &stubSessions{session: &model.TimerSession{
		ID:         7,
		EngineerID: 20,
		PhaseID:    1,
		Status:     model.TimerActive,
		StartTime:  time.Now(),
	}}
	router := timerTestRouter(sessions)

	w := doJSON(t, router, "PUT", "/timer-sessions/7/stop", gin.H{
		"elapsed_time_ms": 1_000_000,
		"total_paused_ms": 100_000,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	data := decodeBody(t, w)["data"].(map[string]any)
	if data["active_hours"] != 0.25 {
		t.Errorf("active_hours = %v, want 0.25", data["active_hours"])
	}
	if sessions.workLog == nil || sessions.workLog.Hours != 0.25 {
		t.Errorf("work log = %+v, want 0.25h", sessions.workLog)
	}
}

func TestGetActiveWhenIdle(t *testing.T) {
	router := timerTestRouter(&stubSessions{})

	w := doJSON(t, router, "GET", "/timer-sessions/active", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	if body["data"] != nil {
		t.Errorf("data = %v, want null for idle engineer", body["data"])
	}
}

func TestInvalidPathID(t *testing.T) {
	router := timerTestRouter(&stubSessions{})

	w := doJSON(t, router, "PUT", "/timer-sessions/abc/stop", gin.H{"elapsed_time_ms": 1000})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	errObj := decodeBody(t, w)["error"].(map[string]any)
	if errObj["code"] != "validation_error" {
		t.Errorf("error.code = %v, want validation_error", errObj["code"])
	}
}
