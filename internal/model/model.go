// Package model содержит доменные сущности сервиса eduaccess.
package model

import "time"

// User представляет действующее лицо системы (администратор или тренер).
type User struct {
	ID           int64
	Login        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// PlanType описывает тип подписочного плана.
type PlanType string

const (
	PlanMonthly    PlanType = "monthly"
	PlanQuarterly  PlanType = "quarterly"
	PlanSemiannual PlanType = "semiannual"
	PlanAnnual     PlanType = "annual"
)

// Days возвращает количество дней доступа, соответствующее типу плана.
func (p PlanType) Days() int {
	switch p {
	case PlanMonthly:
		return 30
	case PlanQuarterly:
		return 90
	case PlanSemiannual:
		return 180
	case PlanAnnual:
		return 365
	default:
		return 0
	}
}

// IsValid проверяет, что тип плана известен системе.
func (p PlanType) IsValid() bool {
	return p.Days() > 0
}

// SubscriptionPlan описывает покупаемый план доступа к учебной программе.
type SubscriptionPlan struct {
	Type       PlanType
	PriceCents int64
}

// Level описывает один уровень учебной программы.
type Level struct {
	Order         int
	Title         string
	DurationDays  int
	SessionsCount int
}

// Curriculum описывает учебную программу: упорядоченный список уровней и планы.
type Curriculum struct {
	ID     string
	Title  string
	Levels []Level // отсортированы по возрастанию Order
	Plans  []SubscriptionPlan
}

// LevelByOrder возвращает уровень с указанным порядковым номером.
func (c *Curriculum) LevelByOrder(order int) (Level, bool) {
	for _, l := range c.Levels {
		if l.Order == order {
			return l, true
		}
	}
	return Level{}, false
}

// SubscriptionStatus описывает статус подписки студента.
type SubscriptionStatus string

const (
	SubscriptionPending  SubscriptionStatus = "pending"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionRejected SubscriptionStatus = "rejected"
)

// IsValid проверяет, что статус подписки известен системе.
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionPending, SubscriptionActive, SubscriptionRejected:
		return true
	}
	return false
}

// Subscription описывает подписку студента на учебную программу.
type Subscription struct {
	ID              string
	StudentID       string
	CurriculumID    string
	Status          SubscriptionStatus
	CreditDays      int
	CurrentLevel    int
	LevelExpiresAt  *time.Time
	CompletedLevels []int
	ExpiredSeenAt   *time.Time
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsExpired сообщает, истёк ли доступ к текущему уровню.
// Истечение — производный признак, статус подписки при этом не меняется.
func (s *Subscription) IsExpired(now time.Time) bool {
	return s.Status == SubscriptionActive &&
		s.LevelExpiresAt != nil &&
		now.After(*s.LevelExpiresAt)
}

// HasCompleted сообщает, завершён ли уровень с указанным порядковым номером.
func (s *Subscription) HasCompleted(order int) bool {
	for _, l := range s.CompletedLevels {
		if l == order {
			return true
		}
	}
	return false
}

// Clone возвращает глубокую копию подписки.
func (s *Subscription) Clone() *Subscription {
	c := *s
	if s.LevelExpiresAt != nil {
		t := *s.LevelExpiresAt
		c.LevelExpiresAt = &t
	}
	if s.ExpiredSeenAt != nil {
		t := *s.ExpiredSeenAt
		c.ExpiredSeenAt = &t
	}
	c.CompletedLevels = append([]int(nil), s.CompletedLevels...)
	return &c
}

// CreditHistoryRecord описывает одно изменение баланса дней доступа.
// Записи неизменяемы и добавляются строго по одной на каждую операцию.
type CreditHistoryRecord struct {
	ID             string
	SubscriptionID string
	OldCredit      int
	NewCredit      int
	AddedDays      int
	Reason         string
	IsPromotion    bool
	ActorID        string
	CreatedAt      time.Time
}

// GroupStatus описывает статус учебной группы.
type GroupStatus string

const (
	GroupPending   GroupStatus = "pending"
	GroupReady     GroupStatus = "ready"
	GroupActive    GroupStatus = "active"
	GroupInactive  GroupStatus = "inactive"
	GroupCompleted GroupStatus = "completed"
	GroupOverfull  GroupStatus = "overfull"
)

// IsValid проверяет, что статус группы известен системе.
func (s GroupStatus) IsValid() bool {
	switch s {
	case GroupPending, GroupReady, GroupActive, GroupInactive, GroupCompleted, GroupOverfull:
		return true
	}
	return false
}

// CurriculumGroup описывает учебную группу с тренером и списком студентов.
type CurriculumGroup struct {
	ID           string
	CurriculumID string
	Status       GroupStatus
	MinSize      int
	MaxSize      int
	TrainerID    string // пустая строка — тренер не назначен
	Students     []string
	CurrentLevel int
	Version      int64
	CreatedAt    time.Time
}

// HasStudent сообщает, состоит ли студент в группе.
func (g *CurriculumGroup) HasStudent(studentID string) bool {
	for _, s := range g.Students {
		if s == studentID {
			return true
		}
	}
	return false
}

// Clone возвращает глубокую копию группы.
func (g *CurriculumGroup) Clone() *CurriculumGroup {
	c := *g
	c.Students = append([]string(nil), g.Students...)
	return &c
}

// AttendanceStatus описывает отметку посещаемости студента на занятии.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceAbsent  AttendanceStatus = "absent"
)

// IsValid проверяет, что отметка посещаемости известна системе.
func (s AttendanceStatus) IsValid() bool {
	switch s {
	case AttendancePresent, AttendanceLate, AttendanceAbsent:
		return true
	}
	return false
}

// CountsAsAttended сообщает, засчитывается ли отметка в прогресс студента.
func (s AttendanceStatus) CountsAsAttended() bool {
	return s == AttendancePresent || s == AttendanceLate
}

// AttendanceMark — отметка посещаемости одного студента.
type AttendanceMark struct {
	StudentID string           `json:"student_id"`
	Status    AttendanceStatus `json:"status"`
}

// AttendanceSession описывает проведённое занятие группы.
// Запись неизменяема после фиксации.
type AttendanceSession struct {
	ID            int64
	GroupID       string
	Level         int
	SessionNumber int
	Attendance    []AttendanceMark
	RecordedBy    string
	CreatedAt     time.Time
}

// MarkFor возвращает отметку посещаемости указанного студента.
func (s *AttendanceSession) MarkFor(studentID string) (AttendanceMark, bool) {
	for _, m := range s.Attendance {
		if m.StudentID == studentID {
			return m, true
		}
	}
	return AttendanceMark{}, false
}
