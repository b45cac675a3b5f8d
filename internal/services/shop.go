package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"guardian-backend/internal/logger"
	"guardian-backend/internal/models"
	"guardian-backend/internal/rowstore"
)

// ShopService runs the purchase workflow over a static catalog. Cost is
// debited when the request is confirmed (pessimistic pre-pay); a denial
// refunds it exactly once, an approval changes nothing further.
type ShopService struct {
	store   rowstore.Store
	ledger  *EconomyService
	catalog map[string]models.ShopItem
	now     func() time.Time
}

func NewShopService(store rowstore.Store, ledger *EconomyService, items []models.ShopItem) *ShopService {
	catalog := make(map[string]models.ShopItem, len(items))
	for _, it := range items {
		catalog[it.Key] = it
	}
	return &ShopService{store: store, ledger: ledger, catalog: catalog, now: time.Now}
}

// PurchaseResult describes a confirmed purchase and the remaining balance.
type PurchaseResult struct {
	Request    models.PurchaseRequest `json:"request"`
	NewBalance int                    `json:"new_balance"`
}

// RefundResult describes a denied purchase and the refunded balance.
type RefundResult struct {
	Request    models.PurchaseRequest `json:"request"`
	NewBalance int                    `json:"new_balance"`
}

// Items returns the catalog in stable key order.
func (s *ShopService) Items() []models.ShopItem {
	items := make([]models.ShopItem, 0, len(s.catalog))
	for _, it := range s.catalog {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return items
}

// Buy is the preview step: it resolves the item without touching balances.
func (s *ShopService) Buy(itemKey string) (*models.ShopItem, error) {
	item, ok := s.catalog[itemKey]
	if !ok {
		return nil, fmt.Errorf("%w: unknown item %q", models.ErrNotFound, itemKey)
	}
	return &item, nil
}

// ConfirmBuy checks the balance, debits the cost and files a PENDING
// request. On insufficient balance nothing changes.
func (s *ShopService) ConfirmBuy(ctx context.Context, userID, itemKey string) (*PurchaseResult, error) {
	item, err := s.Buy(itemKey)
	if err != nil {
		return nil, err
	}

	enough, err := s.ledger.CheckBalance(ctx, userID, item.Cost)
	if err != nil {
		return nil, err
	}
	if !enough {
		return nil, fmt.Errorf("%w: %s costs %d", models.ErrInsufficientBalance, item.Name, item.Cost)
	}

	balance, err := s.ledger.AddExp(ctx, userID, -item.Cost, models.ReasonShopPurchase)
	if err != nil {
		return nil, err
	}

	req := models.PurchaseRequest{
		RequestID:   uuid.NewString(),
		UserID:      userID,
		ItemKey:     item.Key,
		Cost:        item.Cost,
		Status:      models.PurchasePending,
		RequestedAt: s.now().Format(time.RFC3339),
	}

	cells := make([]string, len(purchaseSchema.Columns))
	cells[purchaseSchema.Col("request_id")] = req.RequestID
	cells[purchaseSchema.Col("user_id")] = req.UserID
	cells[purchaseSchema.Col("item_key")] = req.ItemKey
	cells[purchaseSchema.Col("cost")] = strconv.Itoa(req.Cost)
	cells[purchaseSchema.Col("status")] = req.Status
	cells[purchaseSchema.Col("requested_at")] = req.RequestedAt

	rowID, err := s.store.Append(ctx, purchaseSchema.Sheet, cells)
	if err != nil {
		return nil, storeErr(err)
	}
	req.RowID = rowID

	return &PurchaseResult{Request: req, NewBalance: balance}, nil
}

// Approve closes a PENDING request; the money was already taken at confirm
// time so the balance is untouched.
func (s *ShopService) Approve(ctx context.Context, requestID string) (*models.PurchaseRequest, error) {
	row, req, err := s.pendingRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateCell(ctx, purchaseSchema.Sheet, row.Index, purchaseSchema.Col("status"), models.PurchaseApproved); err != nil {
		return nil, storeErr(err)
	}
	req.Status = models.PurchaseApproved
	return req, nil
}

// Deny moves a PENDING request to DENIED and refunds the cost. The PENDING
// guard makes the refund exactly-once.
func (s *ShopService) Deny(ctx context.Context, requestID string) (*RefundResult, error) {
	row, req, err := s.pendingRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateCell(ctx, purchaseSchema.Sheet, row.Index, purchaseSchema.Col("status"), models.PurchaseDenied); err != nil {
		return nil, storeErr(err)
	}
	req.Status = models.PurchaseDenied

	balance, err := s.ledger.AddExp(ctx, req.UserID, req.Cost, models.ReasonShopRefund)
	if err != nil {
		// The request is already DENIED, so a retry cannot re-refund. An
		// operator applies the missing refund through an admin adjustment.
		logger.Log.Error("purchase denied but refund not applied",
			zap.String("user_id", req.UserID), zap.String("request_id", req.RequestID),
			zap.Int("cost", req.Cost), zap.Error(err))
		return nil, err
	}

	return &RefundResult{Request: *req, NewBalance: balance}, nil
}

// PendingRequests lists requests awaiting admin review, in scan order.
func (s *ShopService) PendingRequests(ctx context.Context) ([]models.PurchaseRequest, error) {
	statusCol := purchaseSchema.Col("status")
	rows, err := rowstore.FindAll(ctx, s.store, purchaseSchema.Sheet, func(r rowstore.Row) bool {
		return r.Cell(statusCol) == models.PurchasePending
	})
	if err != nil {
		return nil, storeErr(err)
	}

	reqs := make([]models.PurchaseRequest, 0, len(rows))
	for _, r := range rows {
		reqs = append(reqs, requestFromRow(r))
	}
	return reqs, nil
}

func (s *ShopService) pendingRequest(ctx context.Context, requestID string) (rowstore.Row, *models.PurchaseRequest, error) {
	idCol := purchaseSchema.Col("request_id")
	row, found, err := rowstore.FindLast(ctx, s.store, purchaseSchema.Sheet, func(r rowstore.Row) bool {
		return r.Cell(idCol) == requestID
	})
	if err != nil {
		return rowstore.Row{}, nil, storeErr(err)
	}
	if !found {
		return rowstore.Row{}, nil, models.ErrNotFound
	}

	req := requestFromRow(row)
	if req.Status != models.PurchasePending {
		return rowstore.Row{}, nil, fmt.Errorf("%w: request is %s", models.ErrInvalidState, req.Status)
	}
	return row, &req, nil
}

func requestFromRow(r rowstore.Row) models.PurchaseRequest {
	return models.PurchaseRequest{
		RowID:       r.Index,
		RequestID:   r.Cell(purchaseSchema.Col("request_id")),
		UserID:      r.Cell(purchaseSchema.Col("user_id")),
		ItemKey:     r.Cell(purchaseSchema.Col("item_key")),
		Cost:        r.IntCell(purchaseSchema.Col("cost")),
		Status:      r.Cell(purchaseSchema.Col("status")),
		RequestedAt: r.Cell(purchaseSchema.Col("requested_at")),
	}
}
