package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/mmeshcher/eduaccess-system/internal/model"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestCredit(t *testing.T) {
	sub := &model.Subscription{ID: "sub-1", CreditDays: 10}

	updated, rec, err := Credit(sub, 30, "renewal", false, "admin", testNow)
	if err != nil {
		t.Fatalf("Credit error: %v", err)
	}

	if updated.CreditDays != 40 {
		t.Fatalf("CreditDays = %d, want 40", updated.CreditDays)
	}
	if sub.CreditDays != 10 {
		t.Fatalf("input subscription was mutated: %d", sub.CreditDays)
	}

	if rec.OldCredit != 10 || rec.NewCredit != 40 || rec.AddedDays != 30 {
		t.Fatalf("record balance mismatch: %+v", rec)
	}
	if rec.SubscriptionID != "sub-1" || rec.Reason != "renewal" || rec.ActorID != "admin" {
		t.Fatalf("record attributes mismatch: %+v", rec)
	}
	if rec.ID == "" {
		t.Fatalf("record must have an id")
	}
}

func TestCredit_NonPositiveDays(t *testing.T) {
	sub := &model.Subscription{CreditDays: 10}

	for _, days := range []int{0, -5} {
		_, _, err := Credit(sub, days, "renewal", false, "admin", testNow)
		if !errors.Is(err, ErrNonPositiveDays) {
			t.Fatalf("days=%d: expected ErrNonPositiveDays, got %v", days, err)
		}
	}
}

func TestCredit_PromotionFlag(t *testing.T) {
	sub := &model.Subscription{CreditDays: 0}

	_, rec, err := Credit(sub, 7, "birthday bonus", true, "", testNow)
	if err != nil {
		t.Fatalf("Credit error: %v", err)
	}
	if !rec.IsPromotion {
		t.Fatalf("record must carry the promotion flag")
	}
}

func TestDebit(t *testing.T) {
	sub := &model.Subscription{ID: "sub-1", CreditDays: 90}

	updated, rec, err := Debit(sub, 30, "activation", "admin", testNow)
	if err != nil {
		t.Fatalf("Debit error: %v", err)
	}

	if updated.CreditDays != 60 {
		t.Fatalf("CreditDays = %d, want 60", updated.CreditDays)
	}
	if rec.OldCredit != 90 || rec.NewCredit != 60 || rec.AddedDays != -30 {
		t.Fatalf("record balance mismatch: %+v", rec)
	}
}

func TestDebit_InsufficientCredit(t *testing.T) {
	sub := &model.Subscription{CreditDays: 25}

	_, _, err := Debit(sub, 30, "activation", "admin", testNow)

	var insufficient *InsufficientCreditError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientCreditError, got %v", err)
	}
	if insufficient.Need != 30 || insufficient.Have != 25 {
		t.Fatalf("error details = %+v, want need 30 have 25", insufficient)
	}
	if sub.CreditDays != 25 {
		t.Fatalf("failed debit must not change the balance: %d", sub.CreditDays)
	}
}

func TestDebit_ExactBalance(t *testing.T) {
	sub := &model.Subscription{CreditDays: 30}

	updated, _, err := Debit(sub, 30, "activation", "admin", testNow)
	if err != nil {
		t.Fatalf("Debit error: %v", err)
	}
	if updated.CreditDays != 0 {
		t.Fatalf("CreditDays = %d, want 0", updated.CreditDays)
	}
}

func TestRecordConservation(t *testing.T) {
	sub := &model.Subscription{CreditDays: 50}

	updated, rec, err := Credit(sub, 20, "renewal", false, "", testNow)
	if err != nil {
		t.Fatalf("Credit error: %v", err)
	}
	if rec.NewCredit-rec.OldCredit != rec.AddedDays {
		t.Fatalf("record does not balance: %+v", rec)
	}

	updated2, rec2, err := Debit(updated, 45, "level advance", "", testNow)
	if err != nil {
		t.Fatalf("Debit error: %v", err)
	}
	if rec2.NewCredit-rec2.OldCredit != rec2.AddedDays {
		t.Fatalf("record does not balance: %+v", rec2)
	}
	if updated2.CreditDays != 25 {
		t.Fatalf("CreditDays = %d, want 25", updated2.CreditDays)
	}
}
