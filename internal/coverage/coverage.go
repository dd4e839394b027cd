// Package coverage вычисляет покрытие уровней учебной программы днями плана.
package coverage

import "github.com/mmeshcher/eduaccess-system/internal/model"

// Kind описывает степень покрытия одного уровня.
type Kind string

const (
	Full    Kind = "full"
	Partial Kind = "partial"
	None    Kind = "none"
)

// LevelCoverage описывает покрытие одного уровня днями плана.
type LevelCoverage struct {
	Level       int  `json:"level"`
	Coverage    Kind `json:"coverage"`
	CoveredDays int  `json:"covered_days,omitempty"` // заполняется только при частичном покрытии
}

// Project распределяет дни плана по уровням в порядке возрастания.
// Функция чистая: не изменяет входные данные и не выполняет ввод-вывод.
// Возвращает покрытие каждого уровня и остаток дней после последнего уровня.
func Project(planDays int, levels []model.Level) ([]LevelCoverage, int) {
	res := make([]LevelCoverage, 0, len(levels))
	remaining := planDays
	if remaining < 0 {
		remaining = 0
	}

	for _, l := range levels {
		switch {
		case remaining >= l.DurationDays:
			res = append(res, LevelCoverage{Level: l.Order, Coverage: Full})
			remaining -= l.DurationDays
		case remaining > 0:
			res = append(res, LevelCoverage{Level: l.Order, Coverage: Partial, CoveredDays: remaining})
			remaining = 0
		default:
			res = append(res, LevelCoverage{Level: l.Order, Coverage: None})
		}
	}

	return res, remaining
}
