package models

// PendingItem kinds.
const (
	PendingStudy    = "study"
	PendingJob      = "job"
	PendingPurchase = "purchase"
)

// PendingItem is a tagged union over the three approval queues. Exactly one
// of the variant pointers is non-nil, matching Kind.
type PendingItem struct {
	Kind     string           `json:"kind"`
	Study    *StudySession    `json:"study,omitempty"`
	Job      *Job             `json:"job,omitempty"`
	Purchase *PurchaseRequest `json:"purchase,omitempty"`
}
