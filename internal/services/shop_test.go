package services

import (
	"context"
	"errors"
	"testing"

	"guardian-backend/internal/models"
)

func grantExp(t *testing.T, env *testEnv, userID string, amount int) {
	t.Helper()
	if _, err := env.economy.AddExp(context.Background(), userID, amount, models.ReasonAdminAdjust); err != nil {
		t.Fatalf("AddExp(%s, %d) failed: %v", userID, amount, err)
	}
}

func TestConfirmBuyDebitsUpFront(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "U1")
	grantExp(t, env, "U1", 150)

	res, err := env.shop.ConfirmBuy(ctx, "U1", "game_30")
	if err != nil {
		t.Fatalf("ConfirmBuy failed: %v", err)
	}
	if res.NewBalance != 90 {
		t.Errorf("Expected balance 90 after debit, got %d", res.NewBalance)
	}
	if res.Request.Status != models.PurchasePending {
		t.Errorf("Expected PENDING request, got %s", res.Request.Status)
	}

	pending, _ := env.shop.PendingRequests(ctx)
	if len(pending) != 1 || pending[0].RequestID != res.Request.RequestID {
		t.Fatalf("Expected the request pending, got %v", pending)
	}
}

func TestConfirmBuyInsufficientBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "U1")
	grantExp(t, env, "U1", 50)

	_, err := env.shop.ConfirmBuy(ctx, "U1", "deluxe")
	if !errors.Is(err, models.ErrInsufficientBalance) {
		t.Fatalf("Expected ErrInsufficientBalance, got %v", err)
	}
	if got := env.balance(t, "U1"); got != 50 {
		t.Errorf("Expected balance unchanged at 50, got %d", got)
	}

	pending, _ := env.shop.PendingRequests(ctx)
	if len(pending) != 0 {
		t.Errorf("Expected no pending request, got %v", pending)
	}
}

func TestApproveDoesNotTouchBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "U1")
	grantExp(t, env, "U1", 100)

	res, _ := env.shop.ConfirmBuy(ctx, "U1", "game_30")

	req, err := env.shop.Approve(ctx, res.Request.RequestID)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if req.Status != models.PurchaseApproved {
		t.Errorf("Expected APPROVED, got %s", req.Status)
	}
	if got := env.balance(t, "U1"); got != 40 {
		t.Errorf("Expected balance to stay at 40, got %d", got)
	}
}

func TestDenyRefundsExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "U1")
	grantExp(t, env, "U1", 100)

	res, _ := env.shop.ConfirmBuy(ctx, "U1", "game_30")
	if got := env.balance(t, "U1"); got != 40 {
		t.Fatalf("Expected balance 40 after confirm, got %d", got)
	}

	refund, err := env.shop.Deny(ctx, res.Request.RequestID)
	if err != nil {
		t.Fatalf("Deny failed: %v", err)
	}
	if refund.NewBalance != 100 {
		t.Errorf("Expected refund back to 100, got %d", refund.NewBalance)
	}

	if _, err := env.shop.Deny(ctx, res.Request.RequestID); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState on second deny, got %v", err)
	}
	if got := env.balance(t, "U1"); got != 100 {
		t.Errorf("Expected balance still 100 after re-deny, got %d", got)
	}
}

func TestApprovedRequestCannotBeDenied(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "U1")
	grantExp(t, env, "U1", 100)

	res, _ := env.shop.ConfirmBuy(ctx, "U1", "game_30")
	env.shop.Approve(ctx, res.Request.RequestID)

	if _, err := env.shop.Deny(ctx, res.Request.RequestID); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState, got %v", err)
	}
	if got := env.balance(t, "U1"); got != 40 {
		t.Errorf("Expected no refund after approval, got %d", got)
	}
}

func TestBuyUnknownItem(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.shop.Buy("jetpack"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := env.shop.Deny(context.Background(), "no-such-request"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing request, got %v", err)
	}
}

func TestItemsSortedByKey(t *testing.T) {
	env := newTestEnv(t)

	items := env.shop.Items()
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items[0].Key != "deluxe" || items[1].Key != "game_30" {
		t.Errorf("Expected key-sorted catalog, got %v", items)
	}
}
