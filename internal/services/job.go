package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"guardian-backend/internal/logger"
	"guardian-backend/internal/models"
	"guardian-backend/internal/rowstore"
)

// JobService is the chore state machine over the jobs sheet. Lifecycle is
// strictly linear: OPEN → ACCEPTED → FINISHED → APPROVED. There is no deny
// transition; a posted job stays open until someone takes it.
type JobService struct {
	store  rowstore.Store
	ledger *EconomyService
}

func NewJobService(store rowstore.Store, ledger *EconomyService) *JobService {
	return &JobService{store: store, ledger: ledger}
}

// JobApproval describes an approved job and the worker's resulting balance.
type JobApproval struct {
	Job        models.Job `json:"job"`
	NewBalance int        `json:"new_balance"`
}

// CreateJob posts a new OPEN job and returns its id.
func (s *JobService) CreateJob(ctx context.Context, title string, reward int, clientID, deadline string) (string, error) {
	if reward <= 0 {
		return "", fmt.Errorf("%w: reward must be positive", models.ErrInvalidState)
	}

	jobID := uuid.NewString()
	cells := make([]string, len(jobSchema.Columns))
	cells[jobSchema.Col("job_id")] = jobID
	cells[jobSchema.Col("title")] = title
	cells[jobSchema.Col("reward")] = strconv.Itoa(reward)
	cells[jobSchema.Col("status")] = models.JobOpen
	cells[jobSchema.Col("client_id")] = clientID
	cells[jobSchema.Col("deadline")] = deadline

	if _, err := s.store.Append(ctx, jobSchema.Sheet, cells); err != nil {
		return "", storeErr(err)
	}
	return jobID, nil
}

// AcceptJob binds the job to a worker. Only OPEN jobs can be accepted.
func (s *JobService) AcceptJob(ctx context.Context, jobID, userID string) (*models.Job, error) {
	row, found, err := s.findJobRow(ctx, jobID)
	if err != nil {
		return nil, storeErr(err)
	}
	if !found {
		return nil, models.ErrNotFound
	}
	if row.Cell(jobSchema.Col("status")) != models.JobOpen {
		return nil, fmt.Errorf("%w: job is %s", models.ErrInvalidState, row.Cell(jobSchema.Col("status")))
	}

	if err := s.store.UpdateCell(ctx, jobSchema.Sheet, row.Index, jobSchema.Col("worker_id"), userID); err != nil {
		return nil, storeErr(err)
	}
	if err := s.store.UpdateCell(ctx, jobSchema.Sheet, row.Index, jobSchema.Col("status"), models.JobAccepted); err != nil {
		return nil, storeErr(err)
	}

	job := jobFromRow(row)
	job.WorkerID = userID
	job.Status = models.JobAccepted
	return &job, nil
}

// FinishJob reports the job done. Only the assigned worker may finish it.
func (s *JobService) FinishJob(ctx context.Context, jobID, userID string) (*models.Job, error) {
	row, found, err := s.findJobRow(ctx, jobID)
	if err != nil {
		return nil, storeErr(err)
	}
	if !found {
		return nil, models.ErrNotFound
	}
	if row.Cell(jobSchema.Col("status")) != models.JobAccepted {
		return nil, fmt.Errorf("%w: job is %s", models.ErrInvalidState, row.Cell(jobSchema.Col("status")))
	}
	if row.Cell(jobSchema.Col("worker_id")) != userID {
		return nil, fmt.Errorf("%w: job is assigned to another worker", models.ErrForbidden)
	}

	if err := s.store.UpdateCell(ctx, jobSchema.Sheet, row.Index, jobSchema.Col("status"), models.JobFinished); err != nil {
		return nil, storeErr(err)
	}

	job := jobFromRow(row)
	job.Status = models.JobFinished
	return &job, nil
}

// ApproveJob credits the reward to the worker and closes the job. The
// FINISHED check makes the credit exactly-once: a second approval fails
// before any balance change.
func (s *JobService) ApproveJob(ctx context.Context, jobID string) (*JobApproval, error) {
	row, found, err := s.findJobRow(ctx, jobID)
	if err != nil {
		return nil, storeErr(err)
	}
	if !found {
		return nil, models.ErrNotFound
	}
	if row.Cell(jobSchema.Col("status")) != models.JobFinished {
		return nil, fmt.Errorf("%w: job is %s", models.ErrInvalidState, row.Cell(jobSchema.Col("status")))
	}

	if err := s.store.UpdateCell(ctx, jobSchema.Sheet, row.Index, jobSchema.Col("status"), models.JobApproved); err != nil {
		return nil, storeErr(err)
	}

	job := jobFromRow(row)
	job.Status = models.JobApproved

	balance, err := s.ledger.AddExp(ctx, job.WorkerID, job.Reward, models.ReasonJobReward)
	if err != nil {
		// The job is already APPROVED, so a retry cannot re-credit. An
		// operator applies the missing reward through an admin adjustment.
		logger.Log.Error("job approved but reward not applied",
			zap.String("worker_id", job.WorkerID), zap.String("job_id", job.JobID),
			zap.Int("reward", job.Reward), zap.Error(err))
		return nil, err
	}

	return &JobApproval{Job: job, NewBalance: balance}, nil
}

// OpenJobs lists jobs waiting for a worker.
func (s *JobService) OpenJobs(ctx context.Context) ([]models.Job, error) {
	return s.jobsWhere(ctx, func(r rowstore.Row) bool {
		return r.Cell(jobSchema.Col("status")) == models.JobOpen
	})
}

// UserActiveJobs lists the user's in-flight jobs (accepted or finished).
func (s *JobService) UserActiveJobs(ctx context.Context, userID string) ([]models.Job, error) {
	return s.jobsWhere(ctx, func(r rowstore.Row) bool {
		status := r.Cell(jobSchema.Col("status"))
		return r.Cell(jobSchema.Col("worker_id")) == userID &&
			(status == models.JobAccepted || status == models.JobFinished)
	})
}

// PendingReviews lists finished jobs awaiting admin approval.
func (s *JobService) PendingReviews(ctx context.Context) ([]models.Job, error) {
	return s.jobsWhere(ctx, func(r rowstore.Row) bool {
		return r.Cell(jobSchema.Col("status")) == models.JobFinished
	})
}

func (s *JobService) jobsWhere(ctx context.Context, pred func(rowstore.Row) bool) ([]models.Job, error) {
	rows, err := rowstore.FindAll(ctx, s.store, jobSchema.Sheet, pred)
	if err != nil {
		return nil, storeErr(err)
	}
	jobs := make([]models.Job, 0, len(rows))
	for _, r := range rows {
		jobs = append(jobs, jobFromRow(r))
	}
	return jobs, nil
}

func (s *JobService) findJobRow(ctx context.Context, jobID string) (rowstore.Row, bool, error) {
	idCol := jobSchema.Col("job_id")
	return rowstore.FindLast(ctx, s.store, jobSchema.Sheet, func(r rowstore.Row) bool {
		return r.Cell(idCol) == jobID
	})
}

func jobFromRow(r rowstore.Row) models.Job {
	return models.Job{
		RowID:    r.Index,
		JobID:    r.Cell(jobSchema.Col("job_id")),
		Title:    r.Cell(jobSchema.Col("title")),
		Reward:   r.IntCell(jobSchema.Col("reward")),
		Status:   r.Cell(jobSchema.Col("status")),
		ClientID: r.Cell(jobSchema.Col("client_id")),
		WorkerID: r.Cell(jobSchema.Col("worker_id")),
		Deadline: r.Cell(jobSchema.Col("deadline")),
	}
}
