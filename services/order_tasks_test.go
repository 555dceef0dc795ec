package services

import (
	"context"
	"testing"

	"github.com/Hopium-Future/hackathon-be/models"
)

func seedOrder(t *testing.T, env *testEnv, userID, displayingID uint) {
	t.Helper()
	err := env.db.Create(&models.FutureOrder{
		DisplayingID: displayingID,
		UserID:       userID,
		Symbol:       "TONUSDT",
		OrderValue:   1200,
	}).Error
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
}

func TestClaimOncePaysPerOrder(t *testing.T) {
	env := newTestEnv(t)
	seedUser(t, env.db, 1)
	seedOrder(t, env, 1, 42)
	ctx := context.Background()

	result, err := env.tasks.ClaimOnce(ctx, 1, OtherTaskSharePnl, 42)
	if err != nil {
		t.Fatalf("claim once: %v", err)
	}
	if result.RewardAsset != AssetHOPIUM || result.RewardQuantity != 300 {
		t.Fatalf("expected 300 HOPIUM, got %v %v", result.RewardQuantity, result.RewardAsset)
	}
	if env.wallet.callCount() != 1 {
		t.Fatalf("expected 1 ledger credit, got %d", env.wallet.callCount())
	}

	claimed, err := env.tasks.IsOrderClaimed(ctx, 1, OtherTaskSharePnl, 42)
	if err != nil {
		t.Fatalf("is claimed: %v", err)
	}
	if !claimed {
		t.Fatal("expected order marked claimed")
	}

	// Same order again: rejected without a second payout.
	_, err = env.tasks.ClaimOnce(ctx, 1, OtherTaskSharePnl, 42)
	if !IsValidation(err) {
		t.Fatalf("expected validation rejection on re-claim, got %v", err)
	}
	if env.wallet.callCount() != 1 {
		t.Fatal("re-claim must not credit the ledger again")
	}
}

func TestClaimOnceRejectsForeignOrder(t *testing.T) {
	env := newTestEnv(t)
	seedUser(t, env.db, 1)
	seedUser(t, env.db, 2)
	seedOrder(t, env, 2, 42)

	_, err := env.tasks.ClaimOnce(context.Background(), 1, OtherTaskSharePnl, 42)
	if !IsValidation(err) {
		t.Fatalf("expected validation rejection for foreign order, got %v", err)
	}
	if env.wallet.callCount() != 0 {
		t.Fatal("foreign order must not be paid")
	}
}

func TestClaimOnceRejectsUnknownCode(t *testing.T) {
	env := newTestEnv(t)
	seedUser(t, env.db, 1)
	seedOrder(t, env, 1, 42)

	_, err := env.tasks.ClaimOnce(context.Background(), 1, OtherTaskCode("NOPE"), 42)
	if !IsValidation(err) {
		t.Fatalf("expected validation rejection for unknown code, got %v", err)
	}
}

func TestClaimOnceDistinctOrdersPaySeparately(t *testing.T) {
	env := newTestEnv(t)
	seedUser(t, env.db, 1)
	seedOrder(t, env, 1, 42)
	seedOrder(t, env, 1, 43)
	ctx := context.Background()

	if _, err := env.tasks.ClaimOnce(ctx, 1, OtherTaskSharePnl, 42); err != nil {
		t.Fatalf("claim order 42: %v", err)
	}
	if _, err := env.tasks.ClaimOnce(ctx, 1, OtherTaskSharePnl, 43); err != nil {
		t.Fatalf("claim order 43: %v", err)
	}
	if env.wallet.callCount() != 2 {
		t.Fatalf("expected 2 ledger credits, got %d", env.wallet.callCount())
	}
}
