package phase

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/marwanhelal/track-management-system/internal/model"
	"github.com/marwanhelal/track-management-system/pkg/apperr"
	"github.com/marwanhelal/track-management-system/pkg/outbox"
	"github.com/marwanhelal/track-management-system/pkg/rbac"
)

type fakePhaseRepo struct {
	phases   map[int64]*model.Phase
	assigned map[int64]bool // engineerID -> assigned
}

func newFakePhaseRepo(phases ...*model.Phase) *fakePhaseRepo {
	r := &fakePhaseRepo{
		phases:   make(map[int64]*model.Phase),
		assigned: make(map[int64]bool),
	}
	for _, p := range phases {
		r.phases[p.ID] = p
	}
	return r
}

func (r *fakePhaseRepo) GetByID(_ context.Context, id int64) (*model.Phase, error) {
	p, ok := r.phases[id]
	if !ok {
		return nil, apperr.NotFound("phase not found")
	}
	cp := *p
	return &cp, nil
}

func (r *fakePhaseRepo) ListByProject(_ context.Context, projectID int64) ([]model.Phase, error) {
	var out []model.Phase
	for _, p := range r.phases {
		if p.ProjectID == projectID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePhaseRepo) ApplyTransition(_ context.Context, p *model.Phase, expected model.PhaseStatus) error {
	stored, ok := r.phases[p.ID]
	if !ok {
		return apperr.NotFound("phase not found")
	}
	if stored.Status != expected {
		return apperr.InvalidTransition("phase state changed concurrently", string(stored.Status), string(p.Status))
	}
	cp := *p
	r.phases[p.ID] = &cp
	return nil
}

func (r *fakePhaseRepo) GrantEarlyAccess(_ context.Context, id int64) error {
	p := r.phases[id]
	p.EarlyAccessGranted = true
	p.EarlyAccessStatus = model.EarlyAccessAccessible
	return nil
}

func (r *fakePhaseRepo) RevokeEarlyAccess(_ context.Context, id int64) error {
	p := r.phases[id]
	p.EarlyAccessGranted = false
	p.EarlyAccessStatus = model.EarlyAccessNotAccessible
	return nil
}

func (r *fakePhaseRepo) SetWarning(_ context.Context, id int64, flag bool) error {
	r.phases[id].WarningFlag = flag
	return nil
}

func (r *fakePhaseRepo) SetDelay(_ context.Context, id int64, reason model.DelayReason, newEndDate *time.Time) error {
	p := r.phases[id]
	p.DelayReason = reason
	if newEndDate != nil {
		p.PlannedEndDate = newEndDate
	}
	return nil
}

func (r *fakePhaseRepo) UpdateHistoricalDates(_ context.Context, id int64, dates model.HistoricalDates) error {
	p := r.phases[id]
	if dates.ActualStartDate != nil {
		p.ActualStartDate = dates.ActualStartDate
	}
	if dates.ActualEndDate != nil {
		p.ActualEndDate = dates.ActualEndDate
	}
	if dates.SubmittedDate != nil {
		p.SubmittedDate = dates.SubmittedDate
	}
	if dates.ApprovedDate != nil {
		p.ApprovedDate = dates.ApprovedDate
	}
	return nil
}

func (r *fakePhaseRepo) IsEngineerAssigned(_ context.Context, _, engineerID int64) (bool, error) {
	return r.assigned[engineerID], nil
}

type fakeOutbox struct {
	events []*outbox.Event
}

func (o *fakeOutbox) Insert(_ context.Context, event *outbox.Event) error {
	o.events = append(o.events, event)
	return nil
}

var (
	supervisor = model.Actor{ID: 10, Name: "Sara", Role: rbac.RoleSupervisor}
	engineer   = model.Actor{ID: 20, Name: "Omar", Role: rbac.RoleEngineer}
)

func newTestService(repo *fakePhaseRepo) (*Service, *fakeOutbox) {
	ob := &fakeOutbox{}
	svc := NewService(repo, ob, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC) }
	return svc, ob
}

func readyPhase() *model.Phase {
	return &model.Phase{
		ID:                1,
		ProjectID:         100,
		PhaseName:         "concept design",
		Status:            model.PhaseReady,
		EarlyAccessStatus: model.EarlyAccessNotAccessible,
		DelayReason:       model.DelayNone,
	}
}

func TestFullLifecycle(t *testing.T) {
	repo := newFakePhaseRepo(readyPhase())
	svc, ob := newTestService(repo)
	ctx := context.Background()

	p, err := svc.Start(ctx, supervisor, 1, "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if p.Status != model.PhaseInProgress {
		t.Fatalf("status = %q, want in_progress", p.Status)
	}
	if p.ActualStartDate == nil {
		t.Fatal("Start should stamp actual_start_date")
	}

	if p, err = svc.Submit(ctx, supervisor, 1, ""); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if p.SubmittedDate == nil {
		t.Fatal("Submit should stamp submitted_date")
	}

	if p, err = svc.Approve(ctx, supervisor, 1, ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if p.ApprovedDate == nil {
		t.Fatal("Approve should stamp approved_date")
	}

	if p, err = svc.Complete(ctx, supervisor, 1, ""); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if p.Status != model.PhaseCompleted {
		t.Fatalf("status = %q, want completed", p.Status)
	}
	if p.ActualEndDate == nil {
		t.Fatal("Complete should stamp actual_end_date")
	}

	if len(ob.events) != 4 {
		t.Errorf("outbox events = %d, want 4", len(ob.events))
	}
}

func TestRestartKeepsOriginalStartDate(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	p := readyPhase()
	p.Status = model.PhaseApproved
	p.ActualStartDate = &start
	repo := newFakePhaseRepo(p)
	svc, _ := newTestService(repo)

	got, err := svc.Start(context.Background(), supervisor, 1, "rework requested")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got.Status != model.PhaseInProgress {
		t.Fatalf("status = %q, want in_progress", got.Status)
	}
	if !got.ActualStartDate.Equal(start) {
		t.Errorf("actual_start_date changed on restart: %v", got.ActualStartDate)
	}
}

func TestInvalidTransitionRejected(t *testing.T) {
	repo := newFakePhaseRepo(readyPhase())
	svc, _ := newTestService(repo)

	_, err := svc.Approve(context.Background(), supervisor, 1, "")
	if !apperr.IsKind(err, apperr.KindInvalidTransition) {
		t.Fatalf("err = %v, want invalid transition", err)
	}
	if repo.phases[1].Status != model.PhaseReady {
		t.Errorf("status mutated on rejected transition: %q", repo.phases[1].Status)
	}
}

func TestEngineerMustBeAssigned(t *testing.T) {
	repo := newFakePhaseRepo(readyPhase())
	svc, _ := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Start(ctx, engineer, 1, "")
	if !apperr.IsKind(err, apperr.KindAuthorization) {
		t.Fatalf("err = %v, want authorization error", err)
	}

	repo.assigned[engineer.ID] = true
	if _, err := svc.Start(ctx, engineer, 1, ""); err != nil {
		t.Fatalf("assigned engineer start: %v", err)
	}
}

func TestEngineerCannotApprove(t *testing.T) {
	p := readyPhase()
	p.Status = model.PhaseSubmitted
	repo := newFakePhaseRepo(p)
	repo.assigned[engineer.ID] = true
	svc, _ := newTestService(repo)

	_, err := svc.Approve(context.Background(), engineer, 1, "")
	if !apperr.IsKind(err, apperr.KindAuthorization) {
		t.Fatalf("err = %v, want authorization error", err)
	}
}

func TestEarlyAccessFlow(t *testing.T) {
	p := readyPhase()
	p.Status = model.PhaseNotStarted
	repo := newFakePhaseRepo(p)
	repo.assigned[engineer.ID] = true
	svc, _ := newTestService(repo)
	ctx := context.Background()

	// engineers cannot grant
	if _, err := svc.GrantEarlyAccess(ctx, engineer, 1, ""); !apperr.IsKind(err, apperr.KindAuthorization) {
		t.Fatalf("engineer grant err = %v, want authorization", err)
	}

	granted, err := svc.GrantEarlyAccess(ctx, supervisor, 1, "client pre-approval")
	if err != nil {
		t.Fatalf("GrantEarlyAccess: %v", err)
	}
	if !granted.EarlyAccessGranted || granted.EarlyAccessStatus != model.EarlyAccessAccessible {
		t.Fatalf("grant did not mark phase accessible: %+v", granted)
	}

	started, err := svc.Start(ctx, engineer, 1, "")
	if err != nil {
		t.Fatalf("Start through early access: %v", err)
	}
	if started.Status != model.PhaseInProgress {
		t.Fatalf("status = %q, want in_progress", started.Status)
	}
	if started.EarlyAccessStatus != model.EarlyAccessInProgress {
		t.Errorf("early_access_status = %q, want in_progress", started.EarlyAccessStatus)
	}
}

func TestEarlyAccessOnlyBeforeStart(t *testing.T) {
	repo := newFakePhaseRepo(readyPhase())
	svc, _ := newTestService(repo)

	_, err := svc.GrantEarlyAccess(context.Background(), supervisor, 1, "")
	if !apperr.IsKind(err, apperr.KindInvalidTransition) {
		t.Fatalf("err = %v, want invalid transition", err)
	}
}

func TestRevokeEarlyAccessRequiresGrant(t *testing.T) {
	p := readyPhase()
	p.Status = model.PhaseNotStarted
	repo := newFakePhaseRepo(p)
	svc, _ := newTestService(repo)
	ctx := context.Background()

	if _, err := svc.RevokeEarlyAccess(ctx, supervisor, 1, ""); !apperr.IsKind(err, apperr.KindInvalidTransition) {
		t.Fatalf("revoke without grant err = %v, want invalid transition", err)
	}

	if _, err := svc.GrantEarlyAccess(ctx, supervisor, 1, ""); err != nil {
		t.Fatal(err)
	}
	revoked, err := svc.RevokeEarlyAccess(ctx, supervisor, 1, "")
	if err != nil {
		t.Fatalf("RevokeEarlyAccess: %v", err)
	}
	if revoked.EarlyAccessGranted {
		t.Error("early access still granted after revoke")
	}
	if revoked.Status != model.PhaseNotStarted {
		t.Errorf("revoke touched lifecycle status: %q", revoked.Status)
	}
}

func TestHandleDelayExtendsByWeeks(t *testing.T) {
	end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	p := readyPhase()
	p.PlannedEndDate = &end
	repo := newFakePhaseRepo(p)
	svc, ob := newTestService(repo)

	got, err := svc.HandleDelay(context.Background(), supervisor, 1, DelayInput{
		DelayReason:     model.DelayClient,
		AdditionalWeeks: 2,
	})
	if err != nil {
		t.Fatalf("HandleDelay: %v", err)
	}
	want := end.AddDate(0, 0, 14)
	if !got.PlannedEndDate.Equal(want) {
		t.Errorf("planned_end_date = %v, want %v", got.PlannedEndDate, want)
	}
	if got.DelayReason != model.DelayClient {
		t.Errorf("delay_reason = %q, want client", got.DelayReason)
	}
	if len(ob.events) != 1 {
		t.Errorf("outbox events = %d, want 1", len(ob.events))
	}
}

func TestHandleDelayValidation(t *testing.T) {
	repo := newFakePhaseRepo(readyPhase())
	svc, _ := newTestService(repo)
	ctx := context.Background()

	if _, err := svc.HandleDelay(ctx, supervisor, 1, DelayInput{DelayReason: "weather"}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("unknown reason err = %v, want validation", err)
	}
	if _, err := svc.HandleDelay(ctx, supervisor, 1, DelayInput{DelayReason: model.DelayClient, AdditionalWeeks: -1}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("negative weeks err = %v, want validation", err)
	}
	// no planned end date to extend
	if _, err := svc.HandleDelay(ctx, supervisor, 1, DelayInput{DelayReason: model.DelayClient, AdditionalWeeks: 1}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("missing end date err = %v, want validation", err)
	}
}

func TestUpdateHistoricalDatesValidation(t *testing.T) {
	repo := newFakePhaseRepo(readyPhase())
	svc, _ := newTestService(repo)

	start := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -3)
	_, err := svc.UpdateHistoricalDates(context.Background(), supervisor, 1, model.HistoricalDates{
		ActualStartDate: &start,
		ActualEndDate:   &end,
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestUpdateHistoricalDatesMergesWithStored(t *testing.T) {
	start := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	p := readyPhase()
	p.ActualStartDate = &start
	repo := newFakePhaseRepo(p)
	svc, _ := newTestService(repo)

	// end date before the stored start date must be caught even though
	// the request does not carry the start date itself
	end := start.AddDate(0, 0, -1)
	_, err := svc.UpdateHistoricalDates(context.Background(), supervisor, 1, model.HistoricalDates{
		ActualEndDate: &end,
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestUpdateHistoricalDatesRequiresSupervisor(t *testing.T) {
	repo := newFakePhaseRepo(readyPhase())
	svc, _ := newTestService(repo)

	now := time.Now()
	_, err := svc.UpdateHistoricalDates(context.Background(), engineer, 1, model.HistoricalDates{ActualStartDate: &now})
	if !apperr.IsKind(err, apperr.KindAuthorization) {
		t.Fatalf("err = %v, want authorization", err)
	}
}
