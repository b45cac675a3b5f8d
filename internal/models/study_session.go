package models

// Study session statuses. APPROVED, REJECTED and CANCELLED are terminal.
const (
	SessionStarted   = "STARTED"
	SessionPending   = "PENDING"
	SessionApproved  = "APPROVED"
	SessionRejected  = "REJECTED"
	SessionCancelled = "CANCELLED"
)

type StudySession struct {
	RowID           int    `json:"row_id"`
	UserID          string `json:"user_id"`
	UserName        string `json:"user_name"`
	Date            string `json:"date"`       // YYYY-MM-DD
	StartTime       string `json:"start_time"` // HH:MM:SS
	EndTime         string `json:"end_time"`   // empty while STARTED
	Status          string `json:"status"`
	DurationMinutes int    `json:"duration_minutes"`
	Subject         string `json:"subject"`
	Comment         string `json:"comment"`
}

// ExpiredSession describes a session force-closed by the timeout sweep.
type ExpiredSession struct {
	UserID    string `json:"user_id"`
	RowID     int    `json:"row_id"`
	Minutes   int    `json:"minutes"`
	Subject   string `json:"subject"`
	StartTime string `json:"start_time"`
}
