package usecase

import (
	"context"
	"errors"
	"testing"

	"essaygenius/internal/domain"
	"essaygenius/internal/domain/model"
	"essaygenius/internal/domain/ports/adapter"
)

func newPaymentDeps() (*memPaymentRepo, *memProfileRepo, *stubGateway, PaymentUseCase) {
	payments := newMemPaymentRepo()
	profiles := newMemProfileRepo()
	gateway := &stubGateway{}
	uc := NewPaymentUseCase(payments, NewCreditUseCase(profiles, 2), gateway, memTxManager{}, newTestLogger())
	return payments, profiles, gateway, uc
}

func completedSession(sessionID string) *adapter.WebhookEvent {
	return &adapter.WebhookEvent{
		Type:         "checkout.session.completed",
		SessionID:    sessionID,
		UserID:       "u1",
		CreditAmount: 5,
		AmountCents:  500,
		Currency:     "usd",
	}
}

func TestCreateCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("records a pending payment and returns the redirect", func(t *testing.T) {
		payments, _, gateway, uc := newPaymentDeps()

		url, err := uc.CreateCheckout(ctx, "u1", 5)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if url == "" {
			t.Fatal("expected a redirect url")
		}
		if gateway.sessions != 1 {
			t.Errorf("expected one checkout session, got %d", gateway.sessions)
		}

		p, err := payments.FindBySessionID(ctx, nil, "cs_test_1")
		if err != nil {
			t.Fatalf("pending payment not recorded: %v", err)
		}
		if p.Status != model.PaymentStatusPending || p.CreditAmount != 5 || p.UserID != "u1" {
			t.Errorf("unexpected payment record: %+v", p)
		}
	})

	t.Run("rejects non-positive quantities", func(t *testing.T) {
		payments, _, gateway, uc := newPaymentDeps()

		for _, q := range []int{0, -3} {
			if _, err := uc.CreateCheckout(ctx, "u1", q); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("quantity %d: expected ErrInvalidArgument, got: %v", q, err)
			}
		}
		if gateway.sessions != 0 || len(payments.store) != 0 {
			t.Error("invalid quantity must not reach the provider")
		}
	})
}

func TestFulfill(t *testing.T) {
	ctx := context.Background()

	t.Run("grants credits and marks the payment succeeded", func(t *testing.T) {
		payments, profiles, _, uc := newPaymentDeps()
		profiles.store["u1"] = &model.UserProfile{ID: "u1", Credits: 1}
		if _, err := uc.CreateCheckout(ctx, "u1", 5); err != nil {
			t.Fatalf("checkout: %v", err)
		}

		if err := uc.Fulfill(ctx, completedSession("cs_test_1")); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if got := profiles.store["u1"].Credits; got != 6 {
			t.Errorf("expected balance 6, got %d", got)
		}
		p, _ := payments.FindBySessionID(ctx, nil, "cs_test_1")
		if p.Status != model.PaymentStatusSucceeded {
			t.Errorf("expected succeeded, got %s", p.Status)
		}
		if p.AmountCents != 500 || p.Currency != "usd" {
			t.Errorf("provider amounts not recorded: %+v", p)
		}
	})

	t.Run("webhook replay grants only once", func(t *testing.T) {
		payments, profiles, _, uc := newPaymentDeps()
		profiles.store["u1"] = &model.UserProfile{ID: "u1", Credits: 0}
		if _, err := uc.CreateCheckout(ctx, "u1", 5); err != nil {
			t.Fatalf("checkout: %v", err)
		}

		for i := 0; i < 3; i++ {
			if err := uc.Fulfill(ctx, completedSession("cs_test_1")); err != nil {
				t.Fatalf("delivery %d: %v", i, err)
			}
		}

		if got := profiles.store["u1"].Credits; got != 5 {
			t.Errorf("expected a single grant of 5, got %d", got)
		}
		p, _ := payments.FindBySessionID(ctx, nil, "cs_test_1")
		if p.Status != model.PaymentStatusSucceeded {
			t.Errorf("expected succeeded, got %s", p.Status)
		}
	})

	t.Run("redelivery racing a stale read grants only once", func(t *testing.T) {
		payments, profiles, _, uc := newPaymentDeps()
		profiles.store["u1"] = &model.UserProfile{ID: "u1", Credits: 0}
		if _, err := uc.CreateCheckout(ctx, "u1", 5); err != nil {
			t.Fatalf("checkout: %v", err)
		}

		// Both deliveries see the payment as pending before their
		// transaction runs, so only the guarded transition may decide.
		payments.stalePending = true
		for i := 0; i < 2; i++ {
			if err := uc.Fulfill(ctx, completedSession("cs_test_1")); err != nil {
				t.Fatalf("delivery %d: %v", i, err)
			}
		}

		if got := profiles.store["u1"].Credits; got != 5 {
			t.Errorf("expected a single grant of 5, got %d", got)
		}
		for _, p := range payments.store {
			if p.Status != model.PaymentStatusSucceeded {
				t.Errorf("expected succeeded, got %s", p.Status)
			}
		}
	})

	t.Run("ignores other event types", func(t *testing.T) {
		_, profiles, _, uc := newPaymentDeps()
		profiles.store["u1"] = &model.UserProfile{ID: "u1", Credits: 0}

		ev := completedSession("cs_test_1")
		ev.Type = "payment_intent.created"
		if err := uc.Fulfill(ctx, ev); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if got := profiles.store["u1"].Credits; got != 0 {
			t.Errorf("unrelated event granted credits: %d", got)
		}
	})

	t.Run("unknown sessions are an error", func(t *testing.T) {
		_, _, _, uc := newPaymentDeps()
		if err := uc.Fulfill(ctx, completedSession("cs_unknown")); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got: %v", err)
		}
	})
}
