package models

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

type User struct {
	UserID            string `json:"user_id"`
	DisplayName       string `json:"display_name"`
	Exp               int    `json:"exp"`
	Level             int    `json:"level"`
	Role              string `json:"role"`
	TotalStudyMinutes int    `json:"total_study_minutes"`
}

// LedgerEntry is one row of the append-only audit trail. Balances are the
// running sum of deltas per user; the materialized User.Exp is updated in the
// same operation that appends the entry.
type LedgerEntry struct {
	UserID    string `json:"user_id"`
	Delta     int    `json:"delta"`
	Reason    string `json:"reason"`
	Timestamp string `json:"timestamp"`
}

// Ledger reason codes.
const (
	ReasonStudyApproved = "study_approved"
	ReasonJobReward     = "job_reward"
	ReasonShopPurchase  = "shop_purchase"
	ReasonShopRefund    = "shop_refund"
	ReasonAdminAdjust   = "admin_adjust"
)
