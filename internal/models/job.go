package models

// Job statuses form a linear lifecycle: OPEN → ACCEPTED → FINISHED → APPROVED.
// WorkerID is set exactly while the job is in ACCEPTED, FINISHED or APPROVED.
const (
	JobOpen     = "OPEN"
	JobAccepted = "ACCEPTED"
	JobFinished = "FINISHED"
	JobApproved = "APPROVED"
)

type Job struct {
	RowID    int    `json:"row_id"`
	JobID    string `json:"job_id"`
	Title    string `json:"title"`
	Reward   int    `json:"reward"`
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
	WorkerID string `json:"worker_id"`
	Deadline string `json:"deadline"`
}
