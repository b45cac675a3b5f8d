package services

import (
	"context"
	"testing"
	"time"

	"guardian-backend/internal/models"
	"guardian-backend/internal/rowstore"
)

// testEnv wires every service over one in-memory row store, with "admin"
// on the allow-list and a deterministic clock.
type testEnv struct {
	store   *rowstore.Memory
	economy *EconomyService
	study   *StudyService
	jobs    *JobService
	shop    *ShopService
	now     time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := rowstore.NewMemory()
	if err := EnsureSheets(context.Background(), store); err != nil {
		t.Fatalf("EnsureSheets failed: %v", err)
	}

	env := &testEnv{
		store: store,
		now:   time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
	}

	env.economy = NewEconomyService(store, []string{"admin"})
	env.economy.now = func() time.Time { return env.now }

	env.study = NewStudyService(store, env.economy, time.UTC)
	env.study.now = func() time.Time { return env.now }

	env.jobs = NewJobService(store, env.economy)

	env.shop = NewShopService(store, env.economy, []models.ShopItem{
		{Key: "game_30", Name: "30 minutes of video games", Cost: 60},
		{Key: "deluxe", Name: "Theme park trip", Cost: 100},
	})
	env.shop.now = func() time.Time { return env.now }

	return env
}

func (e *testEnv) register(t *testing.T, userID string) {
	t.Helper()
	if _, err := e.economy.RegisterUser(context.Background(), userID, "Name "+userID); err != nil {
		t.Fatalf("RegisterUser(%s) failed: %v", userID, err)
	}
}

func (e *testEnv) balance(t *testing.T, userID string) int {
	t.Helper()
	user, err := e.economy.GetUserInfo(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetUserInfo(%s) failed: %v", userID, err)
	}
	return user.Exp
}
