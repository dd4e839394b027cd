// Package ledger реализует правила изменения баланса дней доступа.
// Каждое изменение баланса порождает ровно одну запись истории;
// функции чистые и возвращают обновлённую копию подписки.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/eduaccess-system/internal/model"
)

// ErrNonPositiveDays возвращается при попытке начислить ноль или отрицательное число дней.
var ErrNonPositiveDays = errors.New("credit days must be positive")

// InsufficientCreditError возвращается при попытке списать больше дней, чем есть на балансе.
type InsufficientCreditError struct {
	Need int
	Have int
}

func (e *InsufficientCreditError) Error() string {
	return fmt.Sprintf("insufficient credit: need %d days, have %d", e.Need, e.Have)
}

// Credit начисляет дни на баланс подписки.
// Подписка на входе не изменяется; при ошибке возвращается nil без побочных эффектов.
func Credit(sub *model.Subscription, days int, reason string, isPromotion bool, actorID string, now time.Time) (*model.Subscription, *model.CreditHistoryRecord, error) {
	if days <= 0 {
		return nil, nil, ErrNonPositiveDays
	}
	return apply(sub, days, reason, isPromotion, actorID, now)
}

// Debit списывает дни с баланса подписки.
// Возвращает InsufficientCreditError, если баланс меньше списываемой суммы.
func Debit(sub *model.Subscription, days int, reason string, actorID string, now time.Time) (*model.Subscription, *model.CreditHistoryRecord, error) {
	if days <= 0 {
		return nil, nil, ErrNonPositiveDays
	}
	if sub.CreditDays < days {
		return nil, nil, &InsufficientCreditError{Need: days, Have: sub.CreditDays}
	}
	return apply(sub, -days, reason, false, actorID, now)
}

func apply(sub *model.Subscription, delta int, reason string, isPromotion bool, actorID string, now time.Time) (*model.Subscription, *model.CreditHistoryRecord, error) {
	updated := sub.Clone()
	updated.CreditDays = sub.CreditDays + delta
	updated.UpdatedAt = now

	rec := &model.CreditHistoryRecord{
		ID:             uuid.NewString(),
		SubscriptionID: sub.ID,
		OldCredit:      sub.CreditDays,
		NewCredit:      updated.CreditDays,
		AddedDays:      delta,
		Reason:         reason,
		IsPromotion:    isPromotion,
		ActorID:        actorID,
		CreatedAt:      now,
	}

	return updated, rec, nil
}
