package models

// Purchase request statuses. Cost is debited when the request is created
// (pessimistic pre-pay); DENIED refunds it exactly once, APPROVED changes
// nothing further.
const (
	PurchasePending  = "PENDING"
	PurchaseApproved = "APPROVED"
	PurchaseDenied   = "DENIED"
)

// ShopItem is a static catalog entry loaded from configuration.
type ShopItem struct {
	Key  string `json:"key" validate:"required"`
	Name string `json:"name" validate:"required"`
	Cost int    `json:"cost" validate:"required,gt=0"`
}

type PurchaseRequest struct {
	RowID       int    `json:"row_id"`
	RequestID   string `json:"request_id"`
	UserID      string `json:"user_id"`
	ItemKey     string `json:"item_key"`
	Cost        int    `json:"cost"`
	Status      string `json:"status"`
	RequestedAt string `json:"requested_at"`
}
