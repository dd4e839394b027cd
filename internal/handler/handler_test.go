package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/mmeshcher/eduaccess-system/internal/access"
	"github.com/mmeshcher/eduaccess-system/internal/capacity"
	"github.com/mmeshcher/eduaccess-system/internal/coverage"
	"github.com/mmeshcher/eduaccess-system/internal/ledger"
	"github.com/mmeshcher/eduaccess-system/internal/middleware"
	"github.com/mmeshcher/eduaccess-system/internal/model"
	"github.com/mmeshcher/eduaccess-system/internal/repository"
	"github.com/mmeshcher/eduaccess-system/internal/service"
)

type stubService struct {
	registerUserID int64
	registerErr    error

	authUserID int64
	authErr    error

	curriculum    *model.Curriculum
	curriculumErr error

	sub    *model.Subscription
	subErr error

	history    []model.CreditHistoryRecord
	historyErr error

	coverageLevels    []coverage.LevelCoverage
	coverageRemaining int
	coverageErr       error

	group    *model.CurriculumGroup
	groupErr error

	assignAlready bool

	session    *model.AttendanceSession
	sessionErr error

	progressPct int
	progressErr error
}

func (s *stubService) RegisterUser(ctx context.Context, login, password string) (int64, error) {
	return s.registerUserID, s.registerErr
}

func (s *stubService) AuthenticateUser(ctx context.Context, login, password string) (int64, error) {
	return s.authUserID, s.authErr
}

func (s *stubService) CreateCurriculum(ctx context.Context, cur *model.Curriculum) error {
	return s.curriculumErr
}

func (s *stubService) GetCurriculum(ctx context.Context, id string) (*model.Curriculum, error) {
	return s.curriculum, s.curriculumErr
}

func (s *stubService) CreateSubscription(ctx context.Context, studentID, curriculumID string, plan model.PlanType, actorID string) (*model.Subscription, error) {
	return s.sub, s.subErr
}

func (s *stubService) GetSubscription(ctx context.Context, id string) (*model.Subscription, bool, error) {
	return s.sub, false, s.subErr
}

func (s *stubService) GetCreditHistory(ctx context.Context, subscriptionID string) ([]model.CreditHistoryRecord, error) {
	return s.history, s.historyErr
}

func (s *stubService) Activate(ctx context.Context, subscriptionID, actorID string) (*model.Subscription, error) {
	return s.sub, s.subErr
}

func (s *stubService) Reject(ctx context.Context, subscriptionID, actorID string) (*model.Subscription, error) {
	return s.sub, s.subErr
}

func (s *stubService) AddCredit(ctx context.Context, subscriptionID string, days int, reason string, isPromotion bool, actorID string) (*model.Subscription, error) {
	return s.sub, s.subErr
}

func (s *stubService) AdvanceLevel(ctx context.Context, subscriptionID, actorID string) (*model.Subscription, error) {
	return s.sub, s.subErr
}

func (s *stubService) RenewCredit(ctx context.Context, subscriptionID string, days int, reason string, isPromotion bool, actorID string) (*model.Subscription, error) {
	return s.sub, s.subErr
}

func (s *stubService) ProjectCoverage(ctx context.Context, curriculumID string, planDays int) ([]coverage.LevelCoverage, int, error) {
	return s.coverageLevels, s.coverageRemaining, s.coverageErr
}

func (s *stubService) CreateGroup(ctx context.Context, curriculumID string, minSize, maxSize int, trainerID string) (*model.CurriculumGroup, error) {
	return s.group, s.groupErr
}

func (s *stubService) GetGroup(ctx context.Context, id string) (*model.CurriculumGroup, model.GroupStatus, error) {
	if s.groupErr != nil {
		return nil, "", s.groupErr
	}
	return s.group, s.group.Status, nil
}

func (s *stubService) ChangeGroupStatus(ctx context.Context, groupID string, newStatus model.GroupStatus, override bool, actorID string) (*model.CurriculumGroup, error) {
	return s.group, s.groupErr
}

func (s *stubService) AssignStudent(ctx context.Context, groupID, studentID, actorID string) (*model.CurriculumGroup, bool, error) {
	return s.group, s.assignAlready, s.groupErr
}

func (s *stubService) RemoveStudent(ctx context.Context, groupID, studentID, actorID string) (*model.CurriculumGroup, error) {
	return s.group, s.groupErr
}

func (s *stubService) RecordAttendance(ctx context.Context, groupID string, level, sessionNumber int, marks []model.AttendanceMark, actorID string) (*model.AttendanceSession, error) {
	return s.session, s.sessionErr
}

func (s *stubService) LevelProgress(ctx context.Context, subscriptionID string) (int, error) {
	return s.progressPct, s.progressErr
}

func (s *stubService) OverallProgress(ctx context.Context, subscriptionID string) (int, error) {
	return s.progressPct, s.progressErr
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware("test-secret")

	return NewHandler(svc, logger, auth)
}

// doAuthorized выполняет запрос через полный роутер с валидной cookie.
func doAuthorized(t *testing.T, h *Handler, method, target string, body []byte) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)

	cookieRec := httptest.NewRecorder()
	h.authMiddleware.SetAuthCookie(cookieRec, 1)
	req.AddCookie(cookieRec.Result().Cookies()[0])

	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)
	return rec.Result()
}

func TestRegister_Success(t *testing.T) {
	svc := &stubService{
		registerUserID: 42,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{
		Login:    "user",
		Password: "pass",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if len(res.Cookies()) == 0 {
		t.Fatalf("register must set auth cookie")
	}
}

func TestLogin_UnauthorizedOnUnknownUser(t *testing.T) {
	svc := &stubService{
		authErr: repository.ErrUserNotFound,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{
		Login:    "user",
		Password: "pass",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestMutations_RequireAuth(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	req := httptest.NewRequest(http.MethodPost, "/api/subscriptions/sub-1/activate", nil)
	rec := httptest.NewRecorder()

	h.SetupRouter().ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestActivate_InsufficientCredit(t *testing.T) {
	svc := &stubService{
		subErr: &ledger.InsufficientCreditError{Need: 30, Have: 25},
	}
	h := newTestHandler(t, svc)

	res := doAuthorized(t, h, http.MethodPost, "/api/subscriptions/sub-1/activate", nil)
	if res.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusPaymentRequired)
	}
}

func TestActivate_VersionConflict(t *testing.T) {
	svc := &stubService{
		subErr: repository.ErrVersionConflict,
	}
	h := newTestHandler(t, svc)

	res := doAuthorized(t, h, http.MethodPost, "/api/subscriptions/sub-1/activate", nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusConflict)
	}
}

func TestAdvanceLevel_Expired(t *testing.T) {
	svc := &stubService{
		subErr: access.ErrAccessExpired,
	}
	h := newTestHandler(t, svc)

	res := doAuthorized(t, h, http.MethodPost, "/api/subscriptions/sub-1/advance", nil)
	if res.StatusCode != http.StatusGone {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusGone)
	}
}

func TestCreateSubscription_UnknownPlan(t *testing.T) {
	svc := &stubService{
		subErr: service.ErrUnknownPlan,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(createSubscriptionRequest{
		StudentID:    "student-1",
		CurriculumID: "cur-1",
		Plan:         "weekly",
	})

	res := doAuthorized(t, h, http.MethodPost, "/api/subscriptions/", body)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestGetSubscription_NotFound(t *testing.T) {
	svc := &stubService{
		subErr: repository.ErrNotFound,
	}
	h := newTestHandler(t, svc)

	res := doAuthorized(t, h, http.MethodGet, "/api/subscriptions/missing", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestGetCreditHistory_NoContent(t *testing.T) {
	svc := &stubService{
		history: []model.CreditHistoryRecord{},
	}
	h := newTestHandler(t, svc)

	res := doAuthorized(t, h, http.MethodGet, "/api/subscriptions/sub-1/history", nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNoContent)
	}
}

func TestProjectCoverage_ByPlanName(t *testing.T) {
	svc := &stubService{
		coverageLevels: []coverage.LevelCoverage{
			{Level: 1, Coverage: coverage.Full},
		},
	}
	h := newTestHandler(t, svc)

	res := doAuthorized(t, h, http.MethodGet, "/api/curricula/cur-1/coverage?plan=monthly", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}
}

func TestProjectCoverage_MissingParams(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	res := doAuthorized(t, h, http.MethodGet, "/api/curricula/cur-1/coverage", nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestChangeGroupStatus_MissingTrainer(t *testing.T) {
	svc := &stubService{
		groupErr: capacity.ErrMissingTrainer,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(changeStatusRequest{Status: "active"})

	res := doAuthorized(t, h, http.MethodPost, "/api/groups/group-1/status", body)
	if res.StatusCode != http.StatusPreconditionFailed {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusPreconditionFailed)
	}
}

func TestAssignStudent_RepeatedReturnsOK(t *testing.T) {
	svc := &stubService{
		group: &model.CurriculumGroup{
			ID:       "group-1",
			Status:   model.GroupPending,
			Students: []string{"student-1"},
		},
		assignAlready: true,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(assignStudentRequest{StudentID: "student-1"})

	res := doAuthorized(t, h, http.MethodPost, "/api/groups/group-1/students", body)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
}

func TestRemoveStudent_NotInGroup(t *testing.T) {
	svc := &stubService{
		groupErr: service.ErrStudentNotInGroup,
	}
	h := newTestHandler(t, svc)

	res := doAuthorized(t, h, http.MethodDelete, "/api/groups/group-1/students/ghost", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestRecordAttendance_GroupNotActive(t *testing.T) {
	svc := &stubService{
		sessionErr: repository.ErrGroupNotActive,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(attendanceRequest{
		Level:         1,
		SessionNumber: 1,
		Marks: []model.AttendanceMark{
			{StudentID: "student-1", Status: model.AttendancePresent},
		},
	})

	res := doAuthorized(t, h, http.MethodPost, "/api/groups/group-1/attendance", body)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusConflict)
	}
}

func TestLevelProgress_JSONResponse(t *testing.T) {
	svc := &stubService{
		progressPct: 75,
	}
	h := newTestHandler(t, svc)

	res := doAuthorized(t, h, http.MethodGet, "/api/subscriptions/sub-1/progress/level", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp progressResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Percent != 75 {
		t.Fatalf("percent = %d, want 75", resp.Percent)
	}
}
