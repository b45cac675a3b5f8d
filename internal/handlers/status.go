package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"guardian-backend/internal/models"
	"guardian-backend/internal/services"
)

// StatusHandler serves the read-side JSON APIs used by the household
// dashboard.
type StatusHandler struct {
	economy  *services.EconomyService
	approval *services.ApprovalService
	shop     *services.ShopService
	jobs     *services.JobService
}

func NewStatusHandler(economy *services.EconomyService, approval *services.ApprovalService, shop *services.ShopService, jobs *services.JobService) *StatusHandler {
	return &StatusHandler{economy: economy, approval: approval, shop: shop, jobs: jobs}
}

func (h *StatusHandler) UserStatus(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	user, err := h.economy.GetUserInfo(r.Context(), userID)
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found", r)
		return
	}
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Could not load user", r)
		return
	}

	rank := services.RankForMinutes(user.TotalStudyMinutes)
	writeJSON(w, http.StatusOK, map[string]any{
		"user": user,
		"rank": rank,
	})
}

func (h *StatusHandler) UserLedger(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	entries, err := h.economy.LedgerEntries(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Could not load ledger", r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// Pending returns the aggregated approval queue. Admin only; the requester
// identifies itself with the X-User-ID header.
func (h *StatusHandler) Pending(w http.ResponseWriter, r *http.Request) {
	requester := r.Header.Get("X-User-ID")
	if !h.economy.IsAdmin(requester) {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Admin only", r)
		return
	}

	items, err := h.approval.GetAllPending(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Could not load pending items", r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pending": items})
}

func (h *StatusHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": h.shop.Items()})
}

func (h *StatusHandler) OpenJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.OpenJobs(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Could not load jobs", r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}
