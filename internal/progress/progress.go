// Package progress вычисляет прогресс студента по посещаемости занятий.
package progress

import "github.com/mmeshcher/eduaccess-system/internal/model"

// LevelProgress возвращает прогресс студента по текущему уровню в процентах.
// Учитываются занятия текущего уровня, на которых студент отмечен как
// присутствовавший или опоздавший. Уровень без занятий считается пройденным.
func LevelProgress(sub *model.Subscription, level model.Level, sessions []model.AttendanceSession) int {
	if level.SessionsCount <= 0 {
		return 100
	}

	attended := 0
	for _, s := range sessions {
		if s.Level != sub.CurrentLevel {
			continue
		}
		mark, ok := s.MarkFor(sub.StudentID)
		if ok && mark.Status.CountsAsAttended() {
			attended++
		}
	}

	percent := attended * 100 / level.SessionsCount
	if percent > 100 {
		percent = 100
	}
	return percent
}

// OverallProgress возвращает общий прогресс по программе в процентах:
// доля завершённых уровней от общего числа уровней.
func OverallProgress(sub *model.Subscription, totalLevels int) int {
	if totalLevels <= 0 {
		return 100
	}

	percent := len(sub.CompletedLevels) * 100 / totalLevels
	if percent > 100 {
		percent = 100
	}
	return percent
}
