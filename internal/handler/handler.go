// Package handler содержит HTTP-обработчики API движка доступа eduaccess.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
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

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, login, password string) (int64, error)
	AuthenticateUser(ctx context.Context, login, password string) (int64, error)
	CreateCurriculum(ctx context.Context, cur *model.Curriculum) error
	GetCurriculum(ctx context.Context, id string) (*model.Curriculum, error)
	CreateSubscription(ctx context.Context, studentID, curriculumID string, plan model.PlanType, actorID string) (*model.Subscription, error)
	GetSubscription(ctx context.Context, id string) (*model.Subscription, bool, error)
	GetCreditHistory(ctx context.Context, subscriptionID string) ([]model.CreditHistoryRecord, error)
	Activate(ctx context.Context, subscriptionID, actorID string) (*model.Subscription, error)
	Reject(ctx context.Context, subscriptionID, actorID string) (*model.Subscription, error)
	AddCredit(ctx context.Context, subscriptionID string, days int, reason string, isPromotion bool, actorID string) (*model.Subscription, error)
	AdvanceLevel(ctx context.Context, subscriptionID, actorID string) (*model.Subscription, error)
	RenewCredit(ctx context.Context, subscriptionID string, days int, reason string, isPromotion bool, actorID string) (*model.Subscription, error)
	ProjectCoverage(ctx context.Context, curriculumID string, planDays int) ([]coverage.LevelCoverage, int, error)
	CreateGroup(ctx context.Context, curriculumID string, minSize, maxSize int, trainerID string) (*model.CurriculumGroup, error)
	GetGroup(ctx context.Context, id string) (*model.CurriculumGroup, model.GroupStatus, error)
	ChangeGroupStatus(ctx context.Context, groupID string, newStatus model.GroupStatus, override bool, actorID string) (*model.CurriculumGroup, error)
	AssignStudent(ctx context.Context, groupID, studentID, actorID string) (*model.CurriculumGroup, bool, error)
	RemoveStudent(ctx context.Context, groupID, studentID, actorID string) (*model.CurriculumGroup, error)
	RecordAttendance(ctx context.Context, groupID string, level, sessionNumber int, marks []model.AttendanceMark, actorID string) (*model.AttendanceSession, error)
	LevelProgress(ctx context.Context, subscriptionID string) (int, error)
	OverallProgress(ctx context.Context, subscriptionID string) (int, error)
}

// Handler реализует HTTP-обработчики API движка доступа.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

// writeDomainError транслирует ошибку бизнес-логики в HTTP-статус.
// Неизвестные ошибки логируются и отдаются как 500.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error, msg string) {
	var insufficient *ledger.InsufficientCreditError
	if errors.As(err, &insufficient) {
		http.Error(w, insufficient.Error(), http.StatusPaymentRequired)
		return
	}

	var status int
	switch {
	case errors.Is(err, service.ErrUnknownPlan),
		errors.Is(err, service.ErrInvalidAttendance),
		errors.Is(err, ledger.ErrNonPositiveDays),
		errors.Is(err, capacity.ErrInvalidBounds),
		errors.Is(err, capacity.ErrUnknownStatus):
		status = http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrStudentNotInGroup),
		errors.Is(err, access.ErrNoNextLevel):
		status = http.StatusNotFound
	case errors.Is(err, access.ErrNotPending),
		errors.Is(err, access.ErrNotActive),
		errors.Is(err, access.ErrNoLevels),
		errors.Is(err, repository.ErrVersionConflict),
		errors.Is(err, repository.ErrGroupNotActive),
		errors.Is(err, repository.ErrSessionExists),
		errors.Is(err, repository.ErrCurriculumExists),
		errors.Is(err, capacity.ErrGroupFull),
		errors.Is(err, capacity.ErrBelowMinimum):
		status = http.StatusConflict
	case errors.Is(err, access.ErrAccessExpired):
		status = http.StatusGone
	case errors.Is(err, capacity.ErrMissingTrainer):
		status = http.StatusPreconditionFailed
	default:
		h.logger.Error(msg, zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// actorFromContext возвращает идентификатор текущего пользователя как строку
// для записи в историю и журнал аудита.
func actorFromContext(ctx context.Context) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return "", false
	}
	return strconv.FormatInt(userID, 10), true
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.AuthenticateUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) || err.Error() == "invalid credentials" {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}

type levelRequest struct {
	Order         int    `json:"order"`
	Title         string `json:"title"`
	DurationDays  int    `json:"duration_days"`
	SessionsCount int    `json:"sessions_count"`
}

type curriculumRequest struct {
	Title  string         `json:"title"`
	Levels []levelRequest `json:"levels"`
	Plans  []string       `json:"plans"`
}

// CreateCurriculum добавляет учебную программу в каталог.
func (h *Handler) CreateCurriculum(w http.ResponseWriter, r *http.Request) {
	var req curriculumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.Title == "" || len(req.Levels) == 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	cur := &model.Curriculum{Title: req.Title}
	for _, l := range req.Levels {
		if l.Order < 1 || l.DurationDays < 1 || l.SessionsCount < 0 {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		cur.Levels = append(cur.Levels, model.Level{
			Order:         l.Order,
			Title:         l.Title,
			DurationDays:  l.DurationDays,
			SessionsCount: l.SessionsCount,
		})
	}
	for _, p := range req.Plans {
		cur.Plans = append(cur.Plans, model.SubscriptionPlan{Type: model.PlanType(p)})
	}

	if err := h.service.CreateCurriculum(r.Context(), cur); err != nil {
		h.writeDomainError(w, err, "create curriculum error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": cur.ID})
}

type curriculumResponse struct {
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Levels []levelRequest `json:"levels"`
	Plans  []string       `json:"plans"`
}

// GetCurriculum возвращает учебную программу из каталога.
func (h *Handler) GetCurriculum(w http.ResponseWriter, r *http.Request) {
	cur, err := h.service.GetCurriculum(r.Context(), chi.URLParam(r, "curriculumID"))
	if err != nil {
		h.writeDomainError(w, err, "get curriculum error")
		return
	}

	resp := curriculumResponse{
		ID:     cur.ID,
		Title:  cur.Title,
		Levels: make([]levelRequest, 0, len(cur.Levels)),
		Plans:  make([]string, 0, len(cur.Plans)),
	}
	for _, l := range cur.Levels {
		resp.Levels = append(resp.Levels, levelRequest{
			Order:         l.Order,
			Title:         l.Title,
			DurationDays:  l.DurationDays,
			SessionsCount: l.SessionsCount,
		})
	}
	for _, p := range cur.Plans {
		resp.Plans = append(resp.Plans, string(p.Type))
	}

	writeJSON(w, http.StatusOK, resp)
}

type createSubscriptionRequest struct {
	StudentID    string `json:"student_id"`
	CurriculumID string `json:"curriculum_id"`
	Plan         string `json:"plan"`
}

type subscriptionResponse struct {
	ID              string  `json:"id"`
	StudentID       string  `json:"student_id"`
	CurriculumID    string  `json:"curriculum_id"`
	Status          string  `json:"status"`
	CreditDays      int     `json:"credit_days"`
	CurrentLevel    int     `json:"current_level,omitempty"`
	LevelExpiresAt  *string `json:"level_expires_at,omitempty"`
	CompletedLevels []int   `json:"completed_levels"`
	Expired         bool    `json:"expired"`
	Version         int64   `json:"version"`
}

func toSubscriptionResponse(sub *model.Subscription, expired bool) subscriptionResponse {
	resp := subscriptionResponse{
		ID:              sub.ID,
		StudentID:       sub.StudentID,
		CurriculumID:    sub.CurriculumID,
		Status:          string(sub.Status),
		CreditDays:      sub.CreditDays,
		CurrentLevel:    sub.CurrentLevel,
		CompletedLevels: sub.CompletedLevels,
		Expired:         expired,
		Version:         sub.Version,
	}
	if resp.CompletedLevels == nil {
		resp.CompletedLevels = []int{}
	}
	if sub.LevelExpiresAt != nil {
		formatted := sub.LevelExpiresAt.Format(time.RFC3339)
		resp.LevelExpiresAt = &formatted
	}
	return resp
}

// CreateSubscription создаёт подписку на учебную программу.
func (h *Handler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req createSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.StudentID == "" || req.CurriculumID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	sub, err := h.service.CreateSubscription(r.Context(), req.StudentID, req.CurriculumID, model.PlanType(req.Plan), actorID)
	if err != nil {
		h.writeDomainError(w, err, "create subscription error")
		return
	}

	writeJSON(w, http.StatusCreated, toSubscriptionResponse(sub, false))
}

// GetSubscription возвращает подписку по идентификатору.
func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, expired, err := h.service.GetSubscription(r.Context(), chi.URLParam(r, "subscriptionID"))
	if err != nil {
		h.writeDomainError(w, err, "get subscription error")
		return
	}

	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub, expired))
}

type historyRecordResponse struct {
	OldCredit   int    `json:"old_credit"`
	NewCredit   int    `json:"new_credit"`
	AddedDays   int    `json:"added_days"`
	Reason      string `json:"reason"`
	IsPromotion bool   `json:"is_promotion"`
	ActorID     string `json:"actor_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// GetCreditHistory возвращает историю изменений баланса подписки.
func (h *Handler) GetCreditHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.GetCreditHistory(r.Context(), chi.URLParam(r, "subscriptionID"))
	if err != nil {
		h.writeDomainError(w, err, "get credit history error")
		return
	}

	if len(records) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]historyRecordResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, historyRecordResponse{
			OldCredit:   rec.OldCredit,
			NewCredit:   rec.NewCredit,
			AddedDays:   rec.AddedDays,
			Reason:      rec.Reason,
			IsPromotion: rec.IsPromotion,
			ActorID:     rec.ActorID,
			CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// Activate активирует подписку.
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	sub, err := h.service.Activate(r.Context(), chi.URLParam(r, "subscriptionID"), actorID)
	if err != nil {
		h.writeDomainError(w, err, "activate subscription error")
		return
	}

	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub, false))
}

// Reject отклоняет подписку.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	sub, err := h.service.Reject(r.Context(), chi.URLParam(r, "subscriptionID"), actorID)
	if err != nil {
		h.writeDomainError(w, err, "reject subscription error")
		return
	}

	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub, false))
}

type creditRequest struct {
	Days        int    `json:"days"`
	Reason      string `json:"reason"`
	IsPromotion bool   `json:"is_promotion"`
}

// AddCredit начисляет дни на баланс подписки.
func (h *Handler) AddCredit(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req creditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	sub, err := h.service.AddCredit(r.Context(), chi.URLParam(r, "subscriptionID"), req.Days, req.Reason, req.IsPromotion, actorID)
	if err != nil {
		h.writeDomainError(w, err, "add credit error")
		return
	}

	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub, false))
}

// AdvanceLevel переводит подписку на следующий уровень программы.
func (h *Handler) AdvanceLevel(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	sub, err := h.service.AdvanceLevel(r.Context(), chi.URLParam(r, "subscriptionID"), actorID)
	if err != nil {
		h.writeDomainError(w, err, "advance level error")
		return
	}

	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub, false))
}

// RenewCredit продлевает подписку: начисляет дни и возвращает её в active.
func (h *Handler) RenewCredit(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req creditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	sub, err := h.service.RenewCredit(r.Context(), chi.URLParam(r, "subscriptionID"), req.Days, req.Reason, req.IsPromotion, actorID)
	if err != nil {
		h.writeDomainError(w, err, "renew credit error")
		return
	}

	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub, false))
}

type coverageResponse struct {
	Levels        []coverage.LevelCoverage `json:"levels"`
	RemainingDays int                      `json:"remaining_days"`
}

// ProjectCoverage распределяет дни плана по уровням программы.
// Количество дней задаётся параметром days либо именем плана plan.
func (h *Handler) ProjectCoverage(w http.ResponseWriter, r *http.Request) {
	var planDays int
	switch {
	case r.URL.Query().Get("days") != "":
		parsed, err := strconv.Atoi(r.URL.Query().Get("days"))
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		planDays = parsed
	case r.URL.Query().Get("plan") != "":
		plan := model.PlanType(r.URL.Query().Get("plan"))
		if !plan.IsValid() {
			http.Error(w, service.ErrUnknownPlan.Error(), http.StatusBadRequest)
			return
		}
		planDays = plan.Days()
	default:
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	levels, remaining, err := h.service.ProjectCoverage(r.Context(), chi.URLParam(r, "curriculumID"), planDays)
	if err != nil {
		h.writeDomainError(w, err, "project coverage error")
		return
	}

	writeJSON(w, http.StatusOK, coverageResponse{Levels: levels, RemainingDays: remaining})
}

type createGroupRequest struct {
	CurriculumID string `json:"curriculum_id"`
	MinSize      int    `json:"min_size"`
	MaxSize      int    `json:"max_size"`
	TrainerID    string `json:"trainer_id"`
}

type groupResponse struct {
	ID           string   `json:"id"`
	CurriculumID string   `json:"curriculum_id"`
	Status       string   `json:"status"`
	RosterStatus string   `json:"roster_status,omitempty"`
	MinSize      int      `json:"min_size"`
	MaxSize      int      `json:"max_size"`
	TrainerID    string   `json:"trainer_id,omitempty"`
	Students     []string `json:"students"`
	CurrentLevel int      `json:"current_level"`
	Version      int64    `json:"version"`
}

func toGroupResponse(g *model.CurriculumGroup, rosterStatus model.GroupStatus) groupResponse {
	resp := groupResponse{
		ID:           g.ID,
		CurriculumID: g.CurriculumID,
		Status:       string(g.Status),
		RosterStatus: string(rosterStatus),
		MinSize:      g.MinSize,
		MaxSize:      g.MaxSize,
		TrainerID:    g.TrainerID,
		Students:     g.Students,
		CurrentLevel: g.CurrentLevel,
		Version:      g.Version,
	}
	if resp.Students == nil {
		resp.Students = []string{}
	}
	return resp
}

// CreateGroup создаёт учебную группу.
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.CurriculumID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	g, err := h.service.CreateGroup(r.Context(), req.CurriculumID, req.MinSize, req.MaxSize, req.TrainerID)
	if err != nil {
		h.writeDomainError(w, err, "create group error")
		return
	}

	writeJSON(w, http.StatusCreated, toGroupResponse(g, g.Status))
}

// GetGroup возвращает группу и вычисленный по набору статус.
func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	g, rosterStatus, err := h.service.GetGroup(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		h.writeDomainError(w, err, "get group error")
		return
	}

	writeJSON(w, http.StatusOK, toGroupResponse(g, rosterStatus))
}

type changeStatusRequest struct {
	Status   string `json:"status"`
	Override bool   `json:"override"`
}

// ChangeGroupStatus переводит группу в новый статус.
func (h *Handler) ChangeGroupStatus(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	g, err := h.service.ChangeGroupStatus(r.Context(), chi.URLParam(r, "groupID"), model.GroupStatus(req.Status), req.Override, actorID)
	if err != nil {
		h.writeDomainError(w, err, "change group status error")
		return
	}

	writeJSON(w, http.StatusOK, toGroupResponse(g, g.Status))
}

type assignStudentRequest struct {
	StudentID string `json:"student_id"`
}

// AssignStudent добавляет студента в группу.
func (h *Handler) AssignStudent(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req assignStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.StudentID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	g, already, err := h.service.AssignStudent(r.Context(), chi.URLParam(r, "groupID"), req.StudentID, actorID)
	if err != nil {
		h.writeDomainError(w, err, "assign student error")
		return
	}

	status := http.StatusCreated
	if already {
		status = http.StatusOK
	}
	writeJSON(w, status, toGroupResponse(g, g.Status))
}

// RemoveStudent убирает студента из группы.
func (h *Handler) RemoveStudent(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	g, err := h.service.RemoveStudent(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "studentID"), actorID)
	if err != nil {
		h.writeDomainError(w, err, "remove student error")
		return
	}

	writeJSON(w, http.StatusOK, toGroupResponse(g, g.Status))
}

type attendanceRequest struct {
	Level         int                    `json:"level"`
	SessionNumber int                    `json:"session_number"`
	Marks         []model.AttendanceMark `json:"marks"`
}

// RecordAttendance фиксирует занятие группы.
func (h *Handler) RecordAttendance(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req attendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	session, err := h.service.RecordAttendance(r.Context(), chi.URLParam(r, "groupID"), req.Level, req.SessionNumber, req.Marks, actorID)
	if err != nil {
		h.writeDomainError(w, err, "record attendance error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int64{"id": session.ID})
}

type progressResponse struct {
	Percent int `json:"percent"`
}

// LevelProgress возвращает прогресс студента по текущему уровню.
func (h *Handler) LevelProgress(w http.ResponseWriter, r *http.Request) {
	pct, err := h.service.LevelProgress(r.Context(), chi.URLParam(r, "subscriptionID"))
	if err != nil {
		h.writeDomainError(w, err, "level progress error")
		return
	}

	writeJSON(w, http.StatusOK, progressResponse{Percent: pct})
}

// OverallProgress возвращает общий прогресс по программе.
func (h *Handler) OverallProgress(w http.ResponseWriter, r *http.Request) {
	pct, err := h.service.OverallProgress(r.Context(), chi.URLParam(r, "subscriptionID"))
	if err != nil {
		h.writeDomainError(w, err, "overall progress error")
		return
	}

	writeJSON(w, http.StatusOK, progressResponse{Percent: pct})
}
