package services

import (
	"context"
	"fmt"

	"guardian-backend/internal/models"
	"guardian-backend/internal/rowstore"
)

// Sheet schemas, version 1. Column positions are a fixed contract with the
// backing store; changing them is a breaking change and bumps the version.
var (
	userSchema = rowstore.NewSchema("users", 1,
		"user_id", "display_name", "exp", "level", "role", "total_study_minutes")

	ledgerSchema = rowstore.NewSchema("ledger", 1,
		"user_id", "delta", "reason", "timestamp")

	studyLogSchema = rowstore.NewSchema("study_log", 1,
		"user_id", "user_name", "date", "start_time", "end_time", "status",
		"duration_min", "subject", "comment")

	jobSchema = rowstore.NewSchema("jobs", 1,
		"job_id", "title", "reward", "status", "client_id", "worker_id", "deadline")

	purchaseSchema = rowstore.NewSchema("shop_requests", 1,
		"request_id", "user_id", "item_key", "cost", "status", "requested_at")
)

// EnsureSheets validates every sheet header against its schema, creating
// missing headers. Called once at startup so a shifted column fails fast.
func EnsureSheets(ctx context.Context, store rowstore.Store) error {
	for _, s := range []rowstore.Schema{userSchema, ledgerSchema, studyLogSchema, jobSchema, purchaseSchema} {
		if err := rowstore.Ensure(ctx, store, s); err != nil {
			return err
		}
	}
	return nil
}

// storeErr maps a backing-store failure into the StoreUnavailable class.
// Callers must treat the operation as not-applied.
func storeErr(err error) error {
	return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
}
