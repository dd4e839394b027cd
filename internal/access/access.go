// Package access реализует машину состояний подписки: активацию, отклонение,
// переход на следующий уровень и продление кредита.
// Функции чистые: они возвращают обновлённую копию подписки и запись истории,
// а запись изменений в хранилище выполняет вызывающий код одной транзакцией.
package access

import (
	"errors"
	"time"

	"github.com/mmeshcher/eduaccess-system/internal/ledger"
	"github.com/mmeshcher/eduaccess-system/internal/model"
)

// ErrNotPending возвращается при попытке активировать или отклонить подписку не в статусе pending.
var (
	ErrNotPending = errors.New("subscription is not pending")
	// ErrNotActive возвращается при попытке перейти на следующий уровень по неактивной подписке.
	ErrNotActive = errors.New("subscription is not active")
	// ErrNoLevels возвращается, если в учебной программе нет ни одного уровня.
	ErrNoLevels = errors.New("curriculum has no levels")
	// ErrNoNextLevel возвращается, если текущий уровень — последний в программе.
	ErrNoNextLevel = errors.New("no next level in curriculum")
	// ErrAccessExpired возвращается, если доступ к текущему уровню истёк.
	ErrAccessExpired = errors.New("current level access has expired")
)

// Причины изменения баланса, записываемые в историю.
const (
	ReasonActivation   = "activation"
	ReasonLevelAdvance = "level advance"
)

// Activate активирует подписку: списывает стоимость первого уровня
// и открывает доступ к нему до истечения его длительности.
func Activate(sub *model.Subscription, cur *model.Curriculum, actorID string, now time.Time) (*model.Subscription, *model.CreditHistoryRecord, error) {
	if sub.Status != model.SubscriptionPending {
		return nil, nil, ErrNotPending
	}
	if len(cur.Levels) == 0 {
		return nil, nil, ErrNoLevels
	}

	first := cur.Levels[0]
	updated, rec, err := ledger.Debit(sub, first.DurationDays, ReasonActivation, actorID, now)
	if err != nil {
		return nil, nil, err
	}

	expires := now.AddDate(0, 0, first.DurationDays)
	updated.Status = model.SubscriptionActive
	updated.CurrentLevel = first.Order
	updated.CompletedLevels = []int{}
	updated.LevelExpiresAt = &expires
	return updated, rec, nil
}

// Reject отклоняет подписку в статусе pending. Статус rejected терминальный.
func Reject(sub *model.Subscription, now time.Time) (*model.Subscription, error) {
	if sub.Status != model.SubscriptionPending {
		return nil, ErrNotPending
	}
	updated := sub.Clone()
	updated.Status = model.SubscriptionRejected
	updated.UpdatedAt = now
	return updated, nil
}

// AdvanceLevel переводит активную подписку на следующий уровень:
// списывает его стоимость и заново отсчитывает срок доступа.
// При истёкшем доступе или нехватке дней подписка не изменяется.
func AdvanceLevel(sub *model.Subscription, cur *model.Curriculum, actorID string, now time.Time) (*model.Subscription, *model.CreditHistoryRecord, error) {
	if sub.Status != model.SubscriptionActive {
		return nil, nil, ErrNotActive
	}
	if sub.IsExpired(now) {
		return nil, nil, ErrAccessExpired
	}

	next, ok := cur.LevelByOrder(sub.CurrentLevel + 1)
	if !ok {
		return nil, nil, ErrNoNextLevel
	}

	updated, rec, err := ledger.Debit(sub, next.DurationDays, ReasonLevelAdvance, actorID, now)
	if err != nil {
		return nil, nil, err
	}

	if !updated.HasCompleted(sub.CurrentLevel) {
		updated.CompletedLevels = append(updated.CompletedLevels, sub.CurrentLevel)
	}
	expires := now.AddDate(0, 0, next.DurationDays)
	updated.CurrentLevel = next.Order
	updated.LevelExpiresAt = &expires
	updated.ExpiredSeenAt = nil
	return updated, rec, nil
}

// RenewCredit начисляет дни и принудительно переводит подписку в статус active.
// Срок доступа к текущему уровню при этом не пересчитывается: новые дни
// становятся доступны только при следующем переходе на уровень.
// Продление принимается в любом статусе, включая rejected.
func RenewCredit(sub *model.Subscription, days int, reason string, isPromotion bool, actorID string, now time.Time) (*model.Subscription, *model.CreditHistoryRecord, error) {
	updated, rec, err := ledger.Credit(sub, days, reason, isPromotion, actorID, now)
	if err != nil {
		return nil, nil, err
	}
	updated.Status = model.SubscriptionActive
	return updated, rec, nil
}
