package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"guardian-backend/internal/logger"
	"guardian-backend/internal/models"
	"guardian-backend/internal/rowstore"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// StudyService is the study-session state machine over the study_log sheet.
// Rows are searched newest-first, so when duplicates exist only the most
// recent session is ever acted on.
type StudyService struct {
	store  rowstore.Store
	ledger *EconomyService
	loc    *time.Location
	now    func() time.Time
}

func NewStudyService(store rowstore.Store, ledger *EconomyService, loc *time.Location) *StudyService {
	if loc == nil {
		loc = time.Local
	}
	return &StudyService{store: store, ledger: ledger, loc: loc, now: time.Now}
}

// FinishResult describes the session closed by Finish.
type FinishResult struct {
	RowID     int    `json:"row_id"`
	StartTime string `json:"start_time"`
	Subject   string `json:"subject"`
	Minutes   int    `json:"minutes"`
}

// StudyApproval describes an approved session and the resulting balance.
type StudyApproval struct {
	UserID     string `json:"user_id"`
	Minutes    int    `json:"minutes"`
	NewBalance int    `json:"new_balance"`
}

// Start opens a new session in STARTED. A user may have at most one active
// session; starting while one is open fails with InvalidState.
func (s *StudyService) Start(ctx context.Context, userID, userName, date, startTime, subject string) error {
	_, active, err := s.activeRow(ctx, userID)
	if err != nil {
		return storeErr(err)
	}
	if active {
		return fmt.Errorf("%w: session already started", models.ErrInvalidState)
	}

	cells := make([]string, len(studyLogSchema.Columns))
	cells[studyLogSchema.Col("user_id")] = userID
	cells[studyLogSchema.Col("user_name")] = userName
	cells[studyLogSchema.Col("date")] = date
	cells[studyLogSchema.Col("start_time")] = startTime
	cells[studyLogSchema.Col("status")] = models.SessionStarted

	cells[studyLogSchema.Col("subject")] = subject

	if _, err := s.store.Append(ctx, studyLogSchema.Sheet, cells); err != nil {
		return storeErr(err)
	}
	return nil
}

// Finish closes the user's active session: sets the end time, computes the
// capped duration and moves the row to PENDING for admin review.
func (s *StudyService) Finish(ctx context.Context, userID, endTime string) (*FinishResult, error) {
	row, found, err := s.activeRow(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	if !found {
		return nil, fmt.Errorf("%w: no active session", models.ErrNotFound)
	}

	startTime := row.Cell(studyLogSchema.Col("start_time"))
	minutes, err := sessionMinutes(startTime, endTime)
	if err != nil {
		return nil, err
	}

	updates := []struct {
		col   string
		value string
	}{
		{"end_time", endTime},
		{"status", models.SessionPending},
		{"duration_min", strconv.Itoa(minutes)},
	}
	for _, u := range updates {
		if err := s.store.UpdateCell(ctx, studyLogSchema.Sheet, row.Index, studyLogSchema.Col(u.col), u.value); err != nil {
			return nil, storeErr(err)
		}
	}

	return &FinishResult{
		RowID:     row.Index,
		StartTime: startTime,
		Subject:   row.Cell(studyLogSchema.Col("subject")),
		Minutes:   minutes,
	}, nil
}

// Approve moves a PENDING row to APPROVED and credits EXP for the capped
// duration. Terminal rows are rejected, so re-approving cannot double-pay.
func (s *StudyService) Approve(ctx context.Context, rowID int) (*StudyApproval, error) {
	row, found, err := rowstore.RowAt(ctx, s.store, studyLogSchema.Sheet, rowID)
	if err != nil {
		return nil, storeErr(err)
	}
	if !found {
		return nil, models.ErrNotFound
	}
	if row.Cell(studyLogSchema.Col("status")) != models.SessionPending {
		return nil, fmt.Errorf("%w: session is %s", models.ErrInvalidState, row.Cell(studyLogSchema.Col("status")))
	}

	if err := s.store.UpdateCell(ctx, studyLogSchema.Sheet, rowID, studyLogSchema.Col("status"), models.SessionApproved); err != nil {
		return nil, storeErr(err)
	}

	userID := row.Cell(studyLogSchema.Col("user_id"))
	minutes := row.IntCell(studyLogSchema.Col("duration_min"))

	balance, err := s.ledger.AddExp(ctx, userID, minutes*ExpPerMinute, models.ReasonStudyApproved)
	if err != nil {
		// The row is already APPROVED, so a retry cannot re-credit. An
		// operator applies the missing EXP through an admin adjustment.
		logger.Log.Error("session approved but credit not applied",
			zap.String("user_id", userID), zap.Int("row_id", rowID),
			zap.Int("minutes", minutes), zap.Error(err))
		return nil, err
	}
	if err := s.ledger.AddStudyMinutes(ctx, userID, minutes); err != nil {
		logger.Log.Error("session approved but study minutes not applied",
			zap.String("user_id", userID), zap.Int("row_id", rowID),
			zap.Int("minutes", minutes), zap.Error(err))
		return nil, err
	}

	return &StudyApproval{UserID: userID, Minutes: minutes, NewBalance: balance}, nil
}

// Reject moves a PENDING row to REJECTED without crediting anything.
// Approved rows cannot be rejected.
func (s *StudyService) Reject(ctx context.Context, rowID int) error {
	row, found, err := rowstore.RowAt(ctx, s.store, studyLogSchema.Sheet, rowID)
	if err != nil {
		return storeErr(err)
	}
	if !found {
		return models.ErrNotFound
	}
	if row.Cell(studyLogSchema.Col("status")) != models.SessionPending {
		return fmt.Errorf("%w: session is %s", models.ErrInvalidState, row.Cell(studyLogSchema.Col("status")))
	}
	if err := s.store.UpdateCell(ctx, studyLogSchema.Sheet, rowID, studyLogSchema.Col("status"), models.SessionRejected); err != nil {
		return storeErr(err)
	}
	return nil
}

// Cancel marks the user's active STARTED session CANCELLED.
func (s *StudyService) Cancel(ctx context.Context, userID string) error {
	row, found, err := s.activeRow(ctx, userID)
	if err != nil {
		return storeErr(err)
	}
	if !found {
		return models.ErrNotFound
	}
	if err := s.store.UpdateCell(ctx, studyLogSchema.Sheet, row.Index, studyLogSchema.Col("status"), models.SessionCancelled); err != nil {
		return storeErr(err)
	}
	return nil
}

// PendingSessions returns all rows awaiting admin review, in scan order.
func (s *StudyService) PendingSessions(ctx context.Context) ([]models.StudySession, error) {
	statusCol := studyLogSchema.Col("status")
	rows, err := rowstore.FindAll(ctx, s.store, studyLogSchema.Sheet, func(r rowstore.Row) bool {
		return r.Cell(statusCol) == models.SessionPending
	})
	if err != nil {
		return nil, storeErr(err)
	}

	sessions := make([]models.StudySession, 0, len(rows))
	for _, r := range rows {
		sessions = append(sessions, sessionFromRow(r))
	}
	return sessions, nil
}

// SweepTimeouts force-closes every STARTED session whose elapsed wall-clock
// time has reached limitMinutes: the end time is pinned to start+limit and
// the row moves to PENDING. Re-running the sweep on already-swept rows is a
// no-op. This is the only path that closes a session without user action.
func (s *StudyService) SweepTimeouts(ctx context.Context, limitMinutes int) ([]models.ExpiredSession, error) {
	rows, err := s.store.Rows(ctx, studyLogSchema.Sheet)
	if err != nil {
		return nil, storeErr(err)
	}

	now := s.now().In(s.loc)
	var expired []models.ExpiredSession

	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if row.Cell(studyLogSchema.Col("status")) != models.SessionStarted ||
			row.Cell(studyLogSchema.Col("end_time")) != "" {
			continue
		}

		startDT, err := time.ParseInLocation(dateLayout+" "+timeLayout,
			row.Cell(studyLogSchema.Col("date"))+" "+row.Cell(studyLogSchema.Col("start_time")), s.loc)
		if err != nil {
			logger.Log.Warn("sweep: unparseable start timestamp",
				zap.Int("row", row.Index), zap.Error(err))
			continue
		}

		if int(now.Sub(startDT).Minutes()) < limitMinutes {
			continue
		}

		forceEnd := startDT.Add(time.Duration(limitMinutes) * time.Minute).Format(timeLayout)
		updates := []struct {
			col   string
			value string
		}{
			{"end_time", forceEnd},
			{"status", models.SessionPending},
			{"duration_min", strconv.Itoa(limitMinutes)},
		}
		for _, u := range updates {
			if err := s.store.UpdateCell(ctx, studyLogSchema.Sheet, row.Index, studyLogSchema.Col(u.col), u.value); err != nil {
				return expired, storeErr(err)
			}
		}

		expired = append(expired, models.ExpiredSession{
			UserID:    row.Cell(studyLogSchema.Col("user_id")),
			RowID:     row.Index,
			Minutes:   limitMinutes,
			Subject:   row.Cell(studyLogSchema.Col("subject")),
			StartTime: row.Cell(studyLogSchema.Col("start_time")),
		})
	}

	return expired, nil
}

// activeRow finds the user's newest STARTED row with no end time.
func (s *StudyService) activeRow(ctx context.Context, userID string) (rowstore.Row, bool, error) {
	uidCol := studyLogSchema.Col("user_id")
	endCol := studyLogSchema.Col("end_time")
	statusCol := studyLogSchema.Col("status")
	return rowstore.FindLast(ctx, s.store, studyLogSchema.Sheet, func(r rowstore.Row) bool {
		return r.Cell(uidCol) == userID && r.Cell(endCol) == "" && r.Cell(statusCol) == models.SessionStarted
	})
}

// sessionMinutes computes the session length in whole minutes. An end before
// the start means the clock crossed midnight, so a day is added before the
// difference; the result is capped at MaxSessionMinutes.
func sessionMinutes(startTime, endTime string) (int, error) {
	start, err := time.Parse(timeLayout, startTime)
	if err != nil {
		return 0, fmt.Errorf("bad start time %q: %w", startTime, err)
	}
	end, err := time.Parse(timeLayout, endTime)
	if err != nil {
		return 0, fmt.Errorf("bad end time %q: %w", endTime, err)
	}

	if end.Before(start) {
		end = end.Add(24 * time.Hour)
	}

	minutes := int(end.Sub(start).Minutes())
	if minutes > MaxSessionMinutes {
		minutes = MaxSessionMinutes
	}
	return minutes, nil
}

func sessionFromRow(r rowstore.Row) models.StudySession {
	return models.StudySession{
		RowID:           r.Index,
		UserID:          r.Cell(studyLogSchema.Col("user_id")),
		UserName:        r.Cell(studyLogSchema.Col("user_name")),
		Date:            r.Cell(studyLogSchema.Col("date")),
		StartTime:       r.Cell(studyLogSchema.Col("start_time")),
		EndTime:         r.Cell(studyLogSchema.Col("end_time")),
		Status:          r.Cell(studyLogSchema.Col("status")),
		DurationMinutes: r.IntCell(studyLogSchema.Col("duration_min")),
		Subject:         r.Cell(studyLogSchema.Col("subject")),
		Comment:         r.Cell(studyLogSchema.Col("comment")),
	}
}
