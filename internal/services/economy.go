package services

import (
	"context"
	"strconv"
	"time"

	"guardian-backend/internal/models"
	"guardian-backend/internal/rowstore"
)

// EconomyService owns user records, the materialized EXP balance and the
// append-only ledger behind it. Admin status comes from a static allow-list,
// never from stored rows.
type EconomyService struct {
	store  rowstore.Store
	admins map[string]struct{}
	now    func() time.Time
}

func NewEconomyService(store rowstore.Store, adminIDs []string) *EconomyService {
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &EconomyService{store: store, admins: admins, now: time.Now}
}

// RegisterUser creates the user on first contact. Idempotent: an existing
// user is left untouched and false is returned.
func (s *EconomyService) RegisterUser(ctx context.Context, userID, displayName string) (bool, error) {
	_, found, err := s.findUserRow(ctx, userID)
	if err != nil {
		return false, storeErr(err)
	}
	if found {
		return false, nil
	}

	role := models.RoleMember
	if s.IsAdmin(userID) {
		role = models.RoleAdmin
	}

	cells := make([]string, len(userSchema.Columns))
	cells[userSchema.Col("user_id")] = userID
	cells[userSchema.Col("display_name")] = displayName
	cells[userSchema.Col("exp")] = "0"
	cells[userSchema.Col("level")] = "1"
	cells[userSchema.Col("role")] = role
	cells[userSchema.Col("total_study_minutes")] = "0"

	if _, err := s.store.Append(ctx, userSchema.Sheet, cells); err != nil {
		return false, storeErr(err)
	}
	return true, nil
}

// AddExp applies a signed delta to the user's balance, appending a ledger
// entry and updating the materialized exp and derived level in the same
// operation. The ledger itself never forbids negative results; spending
// callers gate on CheckBalance first.
func (s *EconomyService) AddExp(ctx context.Context, userID string, delta int, reason string) (int, error) {
	row, found, err := s.findUserRow(ctx, userID)
	if err != nil {
		return 0, storeErr(err)
	}
	if !found {
		return 0, models.ErrNotFound
	}

	entry := make([]string, len(ledgerSchema.Columns))
	entry[ledgerSchema.Col("user_id")] = userID
	entry[ledgerSchema.Col("delta")] = strconv.Itoa(delta)
	entry[ledgerSchema.Col("reason")] = reason
	entry[ledgerSchema.Col("timestamp")] = s.now().Format(time.RFC3339)
	if _, err := s.store.Append(ctx, ledgerSchema.Sheet, entry); err != nil {
		return 0, storeErr(err)
	}

	balance := row.IntCell(userSchema.Col("exp")) + delta
	if err := s.store.UpdateCell(ctx, userSchema.Sheet, row.Index, userSchema.Col("exp"), strconv.Itoa(balance)); err != nil {
		return 0, storeErr(err)
	}
	if err := s.store.UpdateCell(ctx, userSchema.Sheet, row.Index, userSchema.Col("level"),
		strconv.Itoa(LevelForExp(balance))); err != nil {
		return 0, storeErr(err)
	}

	return balance, nil
}

// CheckBalance reports whether the user's current balance covers amount.
func (s *EconomyService) CheckBalance(ctx context.Context, userID string, amount int) (bool, error) {
	row, found, err := s.findUserRow(ctx, userID)
	if err != nil {
		return false, storeErr(err)
	}
	if !found {
		return false, models.ErrNotFound
	}
	return row.IntCell(userSchema.Col("exp")) >= amount, nil
}

// IsAdmin is a static allow-list lookup with no side effects.
func (s *EconomyService) IsAdmin(userID string) bool {
	_, ok := s.admins[userID]
	return ok
}

func (s *EconomyService) GetUserInfo(ctx context.Context, userID string) (*models.User, error) {
	row, found, err := s.findUserRow(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	if !found {
		return nil, models.ErrNotFound
	}
	return userFromRow(row), nil
}

// AddStudyMinutes adds capped session minutes to the lifetime total used by
// the rank policy.
func (s *EconomyService) AddStudyMinutes(ctx context.Context, userID string, minutes int) error {
	row, found, err := s.findUserRow(ctx, userID)
	if err != nil {
		return storeErr(err)
	}
	if !found {
		return models.ErrNotFound
	}
	total := row.IntCell(userSchema.Col("total_study_minutes")) + minutes
	if err := s.store.UpdateCell(ctx, userSchema.Sheet, row.Index,
		userSchema.Col("total_study_minutes"), strconv.Itoa(total)); err != nil {
		return storeErr(err)
	}
	return nil
}

// LedgerEntries returns the audit trail for one user in append order.
func (s *EconomyService) LedgerEntries(ctx context.Context, userID string) ([]models.LedgerEntry, error) {
	uidCol := ledgerSchema.Col("user_id")
	rows, err := rowstore.FindAll(ctx, s.store, ledgerSchema.Sheet, func(r rowstore.Row) bool {
		return r.Cell(uidCol) == userID
	})
	if err != nil {
		return nil, storeErr(err)
	}

	entries := make([]models.LedgerEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, models.LedgerEntry{
			UserID:    r.Cell(ledgerSchema.Col("user_id")),
			Delta:     r.IntCell(ledgerSchema.Col("delta")),
			Reason:    r.Cell(ledgerSchema.Col("reason")),
			Timestamp: r.Cell(ledgerSchema.Col("timestamp")),
		})
	}
	return entries, nil
}

func (s *EconomyService) findUserRow(ctx context.Context, userID string) (rowstore.Row, bool, error) {
	uidCol := userSchema.Col("user_id")
	return rowstore.FindLast(ctx, s.store, userSchema.Sheet, func(r rowstore.Row) bool {
		return r.Cell(uidCol) == userID
	})
}

func userFromRow(row rowstore.Row) *models.User {
	return &models.User{
		UserID:            row.Cell(userSchema.Col("user_id")),
		DisplayName:       row.Cell(userSchema.Col("display_name")),
		Exp:               row.IntCell(userSchema.Col("exp")),
		Level:             row.IntCell(userSchema.Col("level")),
		Role:              row.Cell(userSchema.Col("role")),
		TotalStudyMinutes: row.IntCell(userSchema.Col("total_study_minutes")),
	}
}
