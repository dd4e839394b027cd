// Package capacity реализует правила вместимости и статусов учебной группы.
// Функции чистые и возвращают обновлённую копию группы.
package capacity

import (
	"errors"

	"github.com/mmeshcher/eduaccess-system/internal/model"
)

// Границы размеров группы.
const (
	MinGroupSize = 3
	MaxGroupSize = 50
)

// ErrInvalidBounds возвращается при некорректных границах размера группы.
var (
	ErrInvalidBounds = errors.New("invalid group size bounds")
	// ErrUnknownStatus возвращается при неизвестном целевом статусе группы.
	ErrUnknownStatus = errors.New("unknown group status")
	// ErrGroupFull возвращается при попытке добавить студента в заполненную группу.
	ErrGroupFull = errors.New("group is at maximum capacity")
	// ErrBelowMinimum возвращается при попытке активировать группу с недобором.
	ErrBelowMinimum = errors.New("group roster is below minimum size")
	// ErrMissingTrainer возвращается при активации группы без тренера и без явного подтверждения.
	ErrMissingTrainer = errors.New("group has no trainer assigned")
)

// ValidateBounds проверяет границы размера группы: 3 <= min < max <= 50.
func ValidateBounds(minSize, maxSize int) error {
	if minSize < MinGroupSize || maxSize > MaxGroupSize || minSize >= maxSize {
		return ErrInvalidBounds
	}
	return nil
}

// DetermineStatus вычисляет статус группы по размеру списка студентов.
// Наличие тренера на результат не влияет.
func DetermineStatus(studentCount, minSize, maxSize int) model.GroupStatus {
	switch {
	case studentCount < minSize:
		return model.GroupPending
	case studentCount <= maxSize:
		return model.GroupReady
	default:
		return model.GroupOverfull
	}
}

// ChangeStatus переводит группу в новый статус.
// Переход в active требует набора не меньше минимального размера,
// а при отсутствии тренера — явного подтверждения override.
func ChangeStatus(g *model.CurriculumGroup, newStatus model.GroupStatus, override bool) (*model.CurriculumGroup, error) {
	if !newStatus.IsValid() {
		return nil, ErrUnknownStatus
	}

	if newStatus == model.GroupActive {
		if len(g.Students) < g.MinSize {
			return nil, ErrBelowMinimum
		}
		if g.TrainerID == "" && !override {
			return nil, ErrMissingTrainer
		}
	}

	updated := g.Clone()
	updated.Status = newStatus
	return updated, nil
}

// AssignStudent добавляет студента в группу.
// Повторное добавление уже состоящего студента не является ошибкой:
// возвращается признак already. Добавление в активную группу разрешено
// как корректировка состава, предел вместимости действует всегда.
func AssignStudent(g *model.CurriculumGroup, studentID string) (*model.CurriculumGroup, bool, error) {
	if g.HasStudent(studentID) {
		return g.Clone(), true, nil
	}
	if len(g.Students) >= g.MaxSize {
		return nil, false, ErrGroupFull
	}

	updated := g.Clone()
	updated.Students = append(updated.Students, studentID)
	return updated, false, nil
}

// RemoveStudent убирает студента из группы.
// Статус группы при удалении не пересчитывается: активная группа может
// опуститься ниже минимального размера, и движок это не исправляет.
func RemoveStudent(g *model.CurriculumGroup, studentID string) (*model.CurriculumGroup, error) {
	updated := g.Clone()
	students := updated.Students[:0]
	for _, s := range updated.Students {
		if s != studentID {
			students = append(students, s)
		}
	}
	updated.Students = students
	return updated, nil
}
