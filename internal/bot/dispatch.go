package bot

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"guardian-backend/internal/logger"
	"guardian-backend/internal/models"
	"guardian-backend/internal/services"
)

// Debounce windows, matching the platform button cadence: structured taps
// are locked longer than typed messages.
const (
	PostbackWindow = 5 * time.Second
	MessageWindow  = 3 * time.Second
)

// Result is what a dispatched action produces. The presentation layer turns
// it into cards or text; the core only guarantees the ok/code contract.
type Result struct {
	OK      bool   `json:"ok"`
	Action  string `json:"action"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Dispatcher routes a decoded postback into exactly one state machine
// method.
type Dispatcher struct {
	economy  *services.EconomyService
	study    *services.StudyService
	jobs     *services.JobService
	shop     *services.ShopService
	approval *services.ApprovalService
	loc      *time.Location
	now      func() time.Time
}

func NewDispatcher(
	economy *services.EconomyService,
	study *services.StudyService,
	jobs *services.JobService,
	shop *services.ShopService,
	approval *services.ApprovalService,
	loc *time.Location,
) *Dispatcher {
	if loc == nil {
		loc = time.Local
	}
	return &Dispatcher{
		economy:  economy,
		study:    study,
		jobs:     jobs,
		shop:     shop,
		approval: approval,
		loc:      loc,
		now:      time.Now,
	}
}

// Dispatch executes the postback carried by ev and returns its result.
// Admin actions are refused for non-admins and inside group chats.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) Result {
	data, err := DecodePostback(ev.Data)
	if err != nil {
		return fail("postback", "bad_request", err.Error())
	}

	action := data["action"]
	now := d.now().In(d.loc)

	switch action {
	case "start_study":
		err := d.study.Start(ctx, ev.UserID, ev.DisplayName,
			now.Format("2006-01-02"), now.Format("15:04:05"), data["subject"])
		return d.result(action, nil, err)

	case "end_study":
		res, err := d.study.Finish(ctx, ev.UserID, now.Format("15:04:05"))
		return d.result(action, res, err)

	case "cancel_study":
		err := d.study.Cancel(ctx, ev.UserID)
		return d.result(action, nil, err)

	case "buy":
		item, err := d.shop.Buy(data["item"])
		return d.result(action, item, err)

	case "confirm_buy":
		res, err := d.shop.ConfirmBuy(ctx, ev.UserID, data["item"])
		return d.result(action, res, err)

	case "approve", "deny":
		if !d.adminAllowed(ev) {
			return fail(action, "forbidden", "admin only")
		}
		return d.review(ctx, action, data)

	case "job_accept":
		job, err := d.jobs.AcceptJob(ctx, data["id"], ev.UserID)
		return d.result(action, job, err)

	case "job_finish":
		job, err := d.jobs.FinishJob(ctx, data["id"], ev.UserID)
		return d.result(action, job, err)

	case "job_approve":
		if !d.adminAllowed(ev) {
			return fail(action, "forbidden", "admin only")
		}
		res, err := d.jobs.ApproveJob(ctx, data["id"])
		return d.result(action, res, err)

	case "job_deny":
		// Jobs have no deny transition: a finished chore stays in review
		// until approved. Surfaced as an invalid state, not silence.
		return fail(action, "invalid_state", "jobs cannot be denied")

	case "job_create":
		if !d.adminAllowed(ev) {
			return fail(action, "forbidden", "admin only")
		}
		reward, _ := strconv.Atoi(data["reward"])
		jobID, err := d.jobs.CreateJob(ctx, data["title"], reward, ev.UserID, data["deadline"])
		return d.result(action, map[string]string{"job_id": jobID}, err)

	case "adjust":
		if !d.adminAllowed(ev) {
			return fail(action, "forbidden", "admin only")
		}
		delta, err := strconv.Atoi(data["delta"])
		if err != nil || delta == 0 {
			return fail(action, "bad_request", "bad delta")
		}
		balance, err := d.economy.AddExp(ctx, data["user"], delta, models.ReasonAdminAdjust)
		return d.result(action, map[string]int{"new_balance": balance}, err)

	case "pending":
		if !d.adminAllowed(ev) {
			return fail(action, "forbidden", "admin only")
		}
		items, err := d.approval.GetAllPending(ctx)
		return d.result(action, items, err)

	default:
		logger.Log.Info("unhandled postback", zap.String("action", action), zap.String("user_id", ev.UserID))
		return fail(action, "bad_request", "unknown action")
	}
}

// review handles the generic approve/deny postbacks, which carry a target
// queue and the row or request identifier.
func (d *Dispatcher) review(ctx context.Context, action string, data map[string]string) Result {
	target := data["target"]

	switch target {
	case "study":
		rowID, err := strconv.Atoi(data["id"])
		if err != nil {
			return fail(action, "bad_request", "bad row id")
		}
		if action == "approve" {
			res, err := d.study.Approve(ctx, rowID)
			return d.result(action, res, err)
		}
		return d.result(action, nil, d.study.Reject(ctx, rowID))

	case "shop":
		if action == "approve" {
			req, err := d.shop.Approve(ctx, data["id"])
			return d.result(action, req, err)
		}
		res, err := d.shop.Deny(ctx, data["id"])
		return d.result(action, res, err)

	case "job":
		if action == "approve" {
			res, err := d.jobs.ApproveJob(ctx, data["id"])
			return d.result(action, res, err)
		}
		return fail(action, "invalid_state", "jobs cannot be denied")

	default:
		return fail(action, "bad_request", "unknown target")
	}
}

func (d *Dispatcher) adminAllowed(ev Event) bool {
	return ev.Source != "group" && d.economy.IsAdmin(ev.UserID)
}

func (d *Dispatcher) result(action string, payload any, err error) Result {
	if err != nil {
		code := errorCode(err)
		if code == "store_unavailable" {
			logger.Log.Error("action failed on row store", zap.String("action", action), zap.Error(err))
		}
		return fail(action, code, err.Error())
	}
	return Result{OK: true, Action: action, Payload: payload}
}

func fail(action, code, message string) Result {
	return Result{OK: false, Action: action, Code: code, Message: message}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, models.ErrForbidden):
		return "forbidden"
	case errors.Is(err, models.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, models.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal_error"
	}
}
