package services

import (
	"context"

	"guardian-backend/internal/models"
)

// ApprovalService is the read-only fan-in over the three approval queues.
type ApprovalService struct {
	study *StudyService
	jobs  *JobService
	shop  *ShopService
}

func NewApprovalService(study *StudyService, jobs *JobService, shop *ShopService) *ApprovalService {
	return &ApprovalService{study: study, jobs: jobs, shop: shop}
}

// GetAllPending concatenates pending studies, finished jobs and pending
// purchases into one list: studies first, then jobs, then purchases, each
// group stable in underlying scan order. No mutation happens here.
func (s *ApprovalService) GetAllPending(ctx context.Context) ([]models.PendingItem, error) {
	var items []models.PendingItem

	studies, err := s.study.PendingSessions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range studies {
		items = append(items, models.PendingItem{Kind: models.PendingStudy, Study: &studies[i]})
	}

	jobs, err := s.jobs.PendingReviews(ctx)
	if err != nil {
		return nil, err
	}
	for i := range jobs {
		items = append(items, models.PendingItem{Kind: models.PendingJob, Job: &jobs[i]})
	}

	purchases, err := s.shop.PendingRequests(ctx)
	if err != nil {
		return nil, err
	}
	for i := range purchases {
		items = append(items, models.PendingItem{Kind: models.PendingPurchase, Purchase: &purchases[i]})
	}

	return items, nil
}
