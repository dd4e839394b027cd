// Package service реализует бизнес-логику движка доступа eduaccess.
//
// Каждая изменяющая операция выполняется по схеме: чтение свежего снимка
// документа, чистый расчёт перехода, запись по compare-and-swap. Если документ
// изменился между чтением и записью, операция завершается конфликтом версий
// и может быть повторена вызывающим.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/eduaccess-system/internal/access"
	"github.com/mmeshcher/eduaccess-system/internal/capacity"
	"github.com/mmeshcher/eduaccess-system/internal/coverage"
	"github.com/mmeshcher/eduaccess-system/internal/ledger"
	"github.com/mmeshcher/eduaccess-system/internal/metrics"
	"github.com/mmeshcher/eduaccess-system/internal/model"
	"github.com/mmeshcher/eduaccess-system/internal/notifier"
	"github.com/mmeshcher/eduaccess-system/internal/progress"
	"github.com/mmeshcher/eduaccess-system/internal/repository"
)

// ErrUnknownPlan возвращается при создании подписки с неизвестным типом плана.
var (
	ErrUnknownPlan = errors.New("unknown plan type")
	// ErrInvalidAttendance возвращается при некорректных данных занятия.
	ErrInvalidAttendance = errors.New("invalid attendance data")
	// ErrStudentNotInGroup возвращается при удалении студента, не состоящего в группе.
	ErrStudentNotInGroup = errors.New("student is not in the group")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	CreateCurriculum(ctx context.Context, cur *model.Curriculum) error
	CreateSubscription(ctx context.Context, sub *model.Subscription, rec *model.CreditHistoryRecord) error
	GetSubscription(ctx context.Context, id string) (*model.Subscription, error)
	UpdateSubscription(ctx context.Context, sub *model.Subscription, expectedVersion int64, rec *model.CreditHistoryRecord) error
	GetCreditHistory(ctx context.Context, subscriptionID string) ([]model.CreditHistoryRecord, error)
	CreateGroup(ctx context.Context, g *model.CurriculumGroup) error
	GetGroup(ctx context.Context, id string) (*model.CurriculumGroup, error)
	GetGroupByStudent(ctx context.Context, studentID, curriculumID string) (*model.CurriculumGroup, error)
	UpdateGroup(ctx context.Context, g *model.CurriculumGroup, expectedVersion int64) error
	CreateAttendanceSession(ctx context.Context, s *model.AttendanceSession) error
	GetAttendanceSessions(ctx context.Context, groupID string) ([]model.AttendanceSession, error)
	GetExpiryCandidates(ctx context.Context, now time.Time, limit int) ([]repository.ExpiredSubscription, error)
	MarkExpirySeen(ctx context.Context, subscriptionID string, now time.Time) error
}

// Catalog описывает читающий доступ к каталогу учебных программ.
type Catalog interface {
	GetCurriculum(ctx context.Context, id string) (*model.Curriculum, error)
}

// Notifier описывает диспетчер уведомлений о событиях движка.
type Notifier interface {
	Send(ctx context.Context, e notifier.Event) error
}

// Service содержит бизнес-логику движка доступа.
type Service struct {
	repo    Repository
	catalog Catalog
	events  Notifier
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewService создаёт сервис с указанным репозиторием, каталогом и диспетчером
// уведомлений. events и m могут быть nil.
func NewService(repo Repository, catalog Catalog, events Notifier, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		catalog: catalog,
		events:  events,
		metrics: m,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

func (s *Service) observe(operation string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.ObserveOperation(operation, result, time.Since(start))
}

// notify отправляет событие диспетчеру уведомлений, не блокируя операцию.
// Ошибка доставки только логируется.
func (s *Service) notify(e notifier.Event) {
	if s.events == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.events.Send(ctx, e); err != nil {
			s.logger.Warn("notification delivery failed",
				zap.String("event", e.Type), zap.Error(err))
		}
	}()
}

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, login, password string) (int64, error) {
	hashed := hashPassword(login, password)
	id, err := s.repo.CreateUser(ctx, login, hashed)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// AuthenticateUser проверяет логин и пароль пользователя и возвращает его идентификатор.
func (s *Service) AuthenticateUser(ctx context.Context, login, password string) (int64, error) {
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		return 0, err
	}

	hashed := hashPassword(login, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(u.PasswordHash) {
		return 0, errors.New("invalid credentials")
	}

	return u.ID, nil
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

// CreateCurriculum добавляет учебную программу в каталог.
func (s *Service) CreateCurriculum(ctx context.Context, cur *model.Curriculum) error {
	if cur.ID == "" {
		cur.ID = uuid.NewString()
	}
	for _, p := range cur.Plans {
		if !p.Type.IsValid() {
			return ErrUnknownPlan
		}
	}
	return s.repo.CreateCurriculum(ctx, cur)
}

// GetCurriculum возвращает учебную программу из каталога.
func (s *Service) GetCurriculum(ctx context.Context, id string) (*model.Curriculum, error) {
	return s.catalog.GetCurriculum(ctx, id)
}

// Причина первой записи истории при создании подписки.
const reasonPurchase = "plan purchase"

// CreateSubscription создаёт подписку в статусе pending и зачисляет
// дни купленного плана первой записью истории.
func (s *Service) CreateSubscription(ctx context.Context, studentID, curriculumID string, plan model.PlanType, actorID string) (*model.Subscription, error) {
	start := s.now()
	sub, err := s.createSubscription(ctx, studentID, curriculumID, plan, actorID)
	s.observe("create_subscription", start, err)
	return sub, err
}

func (s *Service) createSubscription(ctx context.Context, studentID, curriculumID string, plan model.PlanType, actorID string) (*model.Subscription, error) {
	if !plan.IsValid() {
		return nil, ErrUnknownPlan
	}
	if _, err := s.catalog.GetCurriculum(ctx, curriculumID); err != nil {
		return nil, err
	}

	now := s.now()
	sub := &model.Subscription{
		ID:              uuid.NewString(),
		StudentID:       studentID,
		CurriculumID:    curriculumID,
		Status:          model.SubscriptionPending,
		CompletedLevels: []int{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	sub, rec, err := ledger.Credit(sub, plan.Days(), reasonPurchase, false, actorID, now)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateSubscription(ctx, sub, rec); err != nil {
		return nil, err
	}
	return sub, nil
}

// GetSubscription возвращает подписку и производный признак истечения доступа.
func (s *Service) GetSubscription(ctx context.Context, id string) (*model.Subscription, bool, error) {
	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return sub, sub.IsExpired(s.now()), nil
}

// GetCreditHistory возвращает историю изменений баланса подписки.
func (s *Service) GetCreditHistory(ctx context.Context, subscriptionID string) ([]model.CreditHistoryRecord, error) {
	if _, err := s.repo.GetSubscription(ctx, subscriptionID); err != nil {
		return nil, err
	}
	return s.repo.GetCreditHistory(ctx, subscriptionID)
}

// Activate активирует подписку: списывает стоимость первого уровня программы
// и открывает к нему доступ.
func (s *Service) Activate(ctx context.Context, subscriptionID, actorID string) (*model.Subscription, error) {
	start := s.now()
	sub, err := s.activate(ctx, subscriptionID, actorID)
	s.observe("activate", start, err)
	if err != nil {
		return nil, err
	}

	s.notify(notifier.Event{
		Type:           notifier.EventSubscriptionActivated,
		SubscriptionID: sub.ID,
		StudentID:      sub.StudentID,
		ActorID:        actorID,
		OccurredAt:     s.now(),
	})
	return sub, nil
}

func (s *Service) activate(ctx context.Context, subscriptionID, actorID string) (*model.Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	cur, err := s.catalog.GetCurriculum(ctx, sub.CurriculumID)
	if err != nil {
		return nil, err
	}

	updated, rec, err := access.Activate(sub, cur, actorID, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateSubscription(ctx, updated, sub.Version, rec); err != nil {
		return nil, err
	}
	return updated, nil
}

// Reject отклоняет подписку в статусе pending.
func (s *Service) Reject(ctx context.Context, subscriptionID, actorID string) (*model.Subscription, error) {
	start := s.now()
	sub, err := s.reject(ctx, subscriptionID)
	s.observe("reject", start, err)
	if err != nil {
		return nil, err
	}

	s.notify(notifier.Event{
		Type:           notifier.EventSubscriptionRejected,
		SubscriptionID: sub.ID,
		StudentID:      sub.StudentID,
		ActorID:        actorID,
		OccurredAt:     s.now(),
	})
	return sub, nil
}

func (s *Service) reject(ctx context.Context, subscriptionID string) (*model.Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	updated, err := access.Reject(sub, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateSubscription(ctx, updated, sub.Version, nil); err != nil {
		return nil, err
	}
	return updated, nil
}

// AddCredit начисляет дни на баланс подписки, не меняя её статус.
func (s *Service) AddCredit(ctx context.Context, subscriptionID string, days int, reason string, isPromotion bool, actorID string) (*model.Subscription, error) {
	start := s.now()
	sub, err := s.addCredit(ctx, subscriptionID, days, reason, isPromotion, actorID)
	s.observe("add_credit", start, err)
	if err != nil {
		return nil, err
	}

	s.notify(notifier.Event{
		Type:           notifier.EventCreditAdded,
		SubscriptionID: sub.ID,
		StudentID:      sub.StudentID,
		ActorID:        actorID,
		OccurredAt:     s.now(),
	})
	return sub, nil
}

func (s *Service) addCredit(ctx context.Context, subscriptionID string, days int, reason string, isPromotion bool, actorID string) (*model.Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	updated, rec, err := ledger.Credit(sub, days, reason, isPromotion, actorID, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateSubscription(ctx, updated, sub.Version, rec); err != nil {
		return nil, err
	}
	return updated, nil
}

// AdvanceLevel переводит активную подписку на следующий уровень программы.
func (s *Service) AdvanceLevel(ctx context.Context, subscriptionID, actorID string) (*model.Subscription, error) {
	start := s.now()
	sub, err := s.advanceLevel(ctx, subscriptionID, actorID)
	s.observe("advance_level", start, err)
	return sub, err
}

func (s *Service) advanceLevel(ctx context.Context, subscriptionID, actorID string) (*model.Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	cur, err := s.catalog.GetCurriculum(ctx, sub.CurriculumID)
	if err != nil {
		return nil, err
	}

	updated, rec, err := access.AdvanceLevel(sub, cur, actorID, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateSubscription(ctx, updated, sub.Version, rec); err != nil {
		return nil, err
	}
	return updated, nil
}

// RenewCredit начисляет дни и принудительно возвращает подписку в статус active.
func (s *Service) RenewCredit(ctx context.Context, subscriptionID string, days int, reason string, isPromotion bool, actorID string) (*model.Subscription, error) {
	start := s.now()
	sub, err := s.renewCredit(ctx, subscriptionID, days, reason, isPromotion, actorID)
	s.observe("renew_credit", start, err)
	if err != nil {
		return nil, err
	}

	s.notify(notifier.Event{
		Type:           notifier.EventCreditAdded,
		SubscriptionID: sub.ID,
		StudentID:      sub.StudentID,
		ActorID:        actorID,
		OccurredAt:     s.now(),
	})
	return sub, nil
}

func (s *Service) renewCredit(ctx context.Context, subscriptionID string, days int, reason string, isPromotion bool, actorID string) (*model.Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	updated, rec, err := access.RenewCredit(sub, days, reason, isPromotion, actorID, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateSubscription(ctx, updated, sub.Version, rec); err != nil {
		return nil, err
	}
	return updated, nil
}

// ProjectCoverage распределяет дни плана по уровням программы.
func (s *Service) ProjectCoverage(ctx context.Context, curriculumID string, planDays int) ([]coverage.LevelCoverage, int, error) {
	if planDays <= 0 {
		return nil, 0, ledger.ErrNonPositiveDays
	}
	cur, err := s.catalog.GetCurriculum(ctx, curriculumID)
	if err != nil {
		return nil, 0, err
	}

	levels, remaining := coverage.Project(planDays, cur.Levels)
	return levels, remaining, nil
}

// CreateGroup создаёт учебную группу с заданными границами размера.
func (s *Service) CreateGroup(ctx context.Context, curriculumID string, minSize, maxSize int, trainerID string) (*model.CurriculumGroup, error) {
	if err := capacity.ValidateBounds(minSize, maxSize); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetCurriculum(ctx, curriculumID); err != nil {
		return nil, err
	}

	g := &model.CurriculumGroup{
		ID:           uuid.NewString(),
		CurriculumID: curriculumID,
		Status:       capacity.DetermineStatus(0, minSize, maxSize),
		MinSize:      minSize,
		MaxSize:      maxSize,
		TrainerID:    trainerID,
		Students:     []string{},
		CurrentLevel: 1,
		CreatedAt:    s.now(),
	}

	if err := s.repo.CreateGroup(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// GetGroup возвращает группу и статус, вычисленный по текущему размеру набора.
func (s *Service) GetGroup(ctx context.Context, id string) (*model.CurriculumGroup, model.GroupStatus, error) {
	g, err := s.repo.GetGroup(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return g, capacity.DetermineStatus(len(g.Students), g.MinSize, g.MaxSize), nil
}

// ChangeGroupStatus переводит группу в новый статус.
func (s *Service) ChangeGroupStatus(ctx context.Context, groupID string, newStatus model.GroupStatus, override bool, actorID string) (*model.CurriculumGroup, error) {
	start := s.now()
	g, err := s.changeGroupStatus(ctx, groupID, newStatus, override)
	s.observe("change_group_status", start, err)
	return g, err
}

func (s *Service) changeGroupStatus(ctx context.Context, groupID string, newStatus model.GroupStatus, override bool) (*model.CurriculumGroup, error) {
	g, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	updated, err := capacity.ChangeStatus(g, newStatus, override)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateGroup(ctx, updated, g.Version); err != nil {
		return nil, err
	}
	return updated, nil
}

// AssignStudent добавляет студента в группу. Повторное добавление
// не является ошибкой: возвращается признак already.
func (s *Service) AssignStudent(ctx context.Context, groupID, studentID, actorID string) (*model.CurriculumGroup, bool, error) {
	start := s.now()
	g, already, err := s.assignStudent(ctx, groupID, studentID)
	s.observe("assign_student", start, err)
	if err != nil {
		return nil, false, err
	}

	if !already {
		s.notify(notifier.Event{
			Type:       notifier.EventStudentAssigned,
			GroupID:    g.ID,
			StudentID:  studentID,
			ActorID:    actorID,
			OccurredAt: s.now(),
		})
	}
	return g, already, nil
}

func (s *Service) assignStudent(ctx context.Context, groupID, studentID string) (*model.CurriculumGroup, bool, error) {
	g, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return nil, false, err
	}

	updated, already, err := capacity.AssignStudent(g, studentID)
	if err != nil {
		return nil, false, err
	}
	if already {
		return updated, true, nil
	}

	if err := s.repo.UpdateGroup(ctx, updated, g.Version); err != nil {
		return nil, false, err
	}
	return updated, false, nil
}

// RemoveStudent убирает студента из группы. Статус группы при этом
// не пересчитывается.
func (s *Service) RemoveStudent(ctx context.Context, groupID, studentID, actorID string) (*model.CurriculumGroup, error) {
	start := s.now()
	g, err := s.removeStudent(ctx, groupID, studentID)
	s.observe("remove_student", start, err)
	return g, err
}

func (s *Service) removeStudent(ctx context.Context, groupID, studentID string) (*model.CurriculumGroup, error) {
	g, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !g.HasStudent(studentID) {
		return nil, ErrStudentNotInGroup
	}

	updated, err := capacity.RemoveStudent(g, studentID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateGroup(ctx, updated, g.Version); err != nil {
		return nil, err
	}
	return updated, nil
}

// RecordAttendance фиксирует занятие группы. Принимается только для группы
// в статусе active.
func (s *Service) RecordAttendance(ctx context.Context, groupID string, level, sessionNumber int, marks []model.AttendanceMark, actorID string) (*model.AttendanceSession, error) {
	start := s.now()
	session, err := s.recordAttendance(ctx, groupID, level, sessionNumber, marks, actorID)
	s.observe("record_attendance", start, err)
	return session, err
}

func (s *Service) recordAttendance(ctx context.Context, groupID string, level, sessionNumber int, marks []model.AttendanceMark, actorID string) (*model.AttendanceSession, error) {
	if level < 1 || sessionNumber < 1 {
		return nil, ErrInvalidAttendance
	}
	seen := make(map[string]struct{}, len(marks))
	for _, m := range marks {
		if m.StudentID == "" || !m.Status.IsValid() {
			return nil, ErrInvalidAttendance
		}
		if _, ok := seen[m.StudentID]; ok {
			return nil, ErrInvalidAttendance
		}
		seen[m.StudentID] = struct{}{}
	}

	session := &model.AttendanceSession{
		GroupID:       groupID,
		Level:         level,
		SessionNumber: sessionNumber,
		Attendance:    marks,
		RecordedBy:    actorID,
		CreatedAt:     s.now(),
	}

	if err := s.repo.CreateAttendanceSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// LevelProgress возвращает прогресс студента по текущему уровню в процентах.
// Для неактивной подписки прогресс равен нулю.
func (s *Service) LevelProgress(ctx context.Context, subscriptionID string) (int, error) {
	sub, err := s.repo.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return 0, err
	}
	if sub.Status != model.SubscriptionActive {
		return 0, nil
	}

	cur, err := s.catalog.GetCurriculum(ctx, sub.CurriculumID)
	if err != nil {
		return 0, err
	}
	level, ok := cur.LevelByOrder(sub.CurrentLevel)
	if !ok {
		return 0, repository.ErrNotFound
	}

	var sessions []model.AttendanceSession
	group, err := s.repo.GetGroupByStudent(ctx, sub.StudentID, sub.CurriculumID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return 0, err
		}
		// Студент ещё не зачислен в группу — занятий нет.
	} else {
		sessions, err = s.repo.GetAttendanceSessions(ctx, group.ID)
		if err != nil {
			return 0, err
		}
	}

	return progress.LevelProgress(sub, level, sessions), nil
}

// OverallProgress возвращает общий прогресс по программе в процентах.
func (s *Service) OverallProgress(ctx context.Context, subscriptionID string) (int, error) {
	sub, err := s.repo.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return 0, err
	}
	cur, err := s.catalog.GetCurriculum(ctx, sub.CurriculumID)
	if err != nil {
		return 0, err
	}
	return progress.OverallProgress(sub, len(cur.Levels)), nil
}

// StartExpirySweep запускает периодический обход, отмечающий подписки с
// истёкшим доступом. Блокируется до отмены контекста. Обход идемпотентен и
// не требуется для корректности: истечение — производный признак,
// вычисляемый при чтении.
func (s *Service) StartExpirySweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.processExpiryBatch(ctx)
		}
	}
}

func (s *Service) processExpiryBatch(ctx context.Context) {
	now := s.now()
	candidates, err := s.repo.GetExpiryCandidates(ctx, now, 100)
	if err != nil {
		s.logger.Warn("expiry sweep failed", zap.Error(err))
		return
	}

	for _, c := range candidates {
		if err := s.repo.MarkExpirySeen(ctx, c.ID, now); err != nil {
			s.logger.Warn("mark expiry failed",
				zap.String("subscriptionID", c.ID), zap.Error(err))
			continue
		}

		s.metrics.IncExpiredTagged()
		s.notify(notifier.Event{
			Type:           notifier.EventAccessExpired,
			SubscriptionID: c.ID,
			StudentID:      c.StudentID,
			OccurredAt:     now,
		})
	}
}
