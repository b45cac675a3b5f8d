package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"guardian-backend/internal/bot"
	"guardian-backend/internal/debounce"
	"guardian-backend/internal/models"
	"guardian-backend/internal/rowstore"
	"guardian-backend/internal/services"
)

const testSecret = "test-channel-secret"

type webhookFixture struct {
	handler *WebhookHandler
	economy *services.EconomyService
	store   *rowstore.Memory
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()

	store := rowstore.NewMemory()
	if err := services.EnsureSheets(context.Background(), store); err != nil {
		t.Fatalf("EnsureSheets failed: %v", err)
	}

	economy := services.NewEconomyService(store, []string{"admin"})
	study := services.NewStudyService(store, economy, time.UTC)
	jobs := services.NewJobService(store, economy)
	shop := services.NewShopService(store, economy, []models.ShopItem{
		{Key: "snack", Name: "Snack", Cost: 40},
	})
	approval := services.NewApprovalService(study, jobs, shop)
	dispatcher := bot.NewDispatcher(economy, study, jobs, shop, approval, time.UTC)

	return &webhookFixture{
		handler: NewWebhookHandler(testSecret, economy, dispatcher, debounce.NewMemory()),
		economy: economy,
		store:   store,
	}
}

func (f *webhookFixture) post(t *testing.T, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/callback", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}
	rec := httptest.NewRecorder()
	f.handler.Callback(rec, req)
	return rec
}

func envelope(t *testing.T, events ...bot.Event) []byte {
	t.Helper()
	body, err := json.Marshal(bot.Envelope{Events: events})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	return body
}

func decodeReplies(t *testing.T, rec *httptest.ResponseRecorder) []bot.Result {
	t.Helper()
	var resp struct {
		Replies []bot.Result `json:"replies"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal response failed: %v", err)
	}
	return resp.Replies
}

func TestCallbackRejectsBadSignature(t *testing.T) {
	f := newWebhookFixture(t)
	body := envelope(t, bot.Event{Type: bot.EventMessage, UserID: "U1", Text: "hi"})

	tests := []struct {
		name      string
		signature string
	}{
		{"missing header", ""},
		{"no prefix", "deadbeef"},
		{"wrong digest", "sha256=deadbeef"},
		{"signed with wrong secret", SignBody([]byte("other-secret"), body)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.post(t, body, tc.signature)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Expected 401, got %d", rec.Code)
			}
		})
	}

	// Nothing was registered.
	if _, err := f.economy.GetUserInfo(context.Background(), "U1"); err == nil {
		t.Error("User was registered despite rejected signature")
	}
}

func TestCallbackRejectsBadEnvelope(t *testing.T) {
	f := newWebhookFixture(t)
	body := []byte("{not json")

	rec := f.post(t, body, SignBody([]byte(testSecret), body))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestCallbackRegistersAndDispatches(t *testing.T) {
	f := newWebhookFixture(t)
	body := envelope(t,
		bot.Event{Type: bot.EventMessage, UserID: "U1", DisplayName: "Hana", Source: "user", Text: "hello"},
		bot.Event{Type: bot.EventPostback, UserID: "U2", DisplayName: "Taro", Source: "user", Data: "action=start_study&subject=math"},
		bot.Event{Type: bot.EventPostback, UserID: "", Data: "action=pending"},
	)

	rec := f.post(t, body, SignBody([]byte(testSecret), body))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Message events register but produce no reply; the anonymous event is
	// skipped entirely.
	replies := decodeReplies(t, rec)
	if len(replies) != 1 {
		t.Fatalf("Expected 1 reply, got %d", len(replies))
	}
	if !replies[0].OK || replies[0].Action != "start_study" {
		t.Errorf("Unexpected reply: %+v", replies[0])
	}

	for _, id := range []string{"U1", "U2"} {
		if _, err := f.economy.GetUserInfo(context.Background(), id); err != nil {
			t.Errorf("User %s was not registered: %v", id, err)
		}
	}
}

func TestCallbackNameFallback(t *testing.T) {
	f := newWebhookFixture(t)
	body := envelope(t, bot.Event{Type: bot.EventMessage, UserID: "U9", Text: "yo"})

	f.post(t, body, SignBody([]byte(testSecret), body))

	user, err := f.economy.GetUserInfo(context.Background(), "U9")
	if err != nil {
		t.Fatalf("GetUserInfo failed: %v", err)
	}
	if user.DisplayName != "User" {
		t.Errorf("Expected fallback display name, got %q", user.DisplayName)
	}
}

// brokenStore fails every operation, standing in for an unreachable backing
// sheet.
type brokenStore struct{}

func (brokenStore) Append(context.Context, string, []string) (int, error) {
	return 0, errors.New("sheet offline")
}
func (brokenStore) Rows(context.Context, string) ([]rowstore.Row, error) {
	return nil, errors.New("sheet offline")
}
func (brokenStore) UpdateCell(context.Context, string, int, int, string) error {
	return errors.New("sheet offline")
}

func TestCallbackReportsFailedRegistration(t *testing.T) {
	store := brokenStore{}
	economy := services.NewEconomyService(store, nil)
	study := services.NewStudyService(store, economy, time.UTC)
	jobs := services.NewJobService(store, economy)
	shop := services.NewShopService(store, economy, nil)
	approval := services.NewApprovalService(study, jobs, shop)
	dispatcher := bot.NewDispatcher(economy, study, jobs, shop, approval, time.UTC)
	handler := NewWebhookHandler(testSecret, economy, dispatcher, debounce.NewMemory())

	body := envelope(t, bot.Event{Type: bot.EventMessage, UserID: "U1", Text: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/callback", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", SignBody([]byte(testSecret), body))
	rec := httptest.NewRecorder()
	handler.Callback(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	replies := decodeReplies(t, rec)
	if len(replies) != 1 {
		t.Fatalf("Expected 1 reply for the failed registration, got %d", len(replies))
	}
	if replies[0].OK || replies[0].Code != "store_unavailable" {
		t.Errorf("Expected store_unavailable reply, got %+v", replies[0])
	}
}

func TestCallbackDebouncesDuplicates(t *testing.T) {
	f := newWebhookFixture(t)
	body := envelope(t, bot.Event{
		Type: bot.EventPostback, UserID: "U1", DisplayName: "Hana", Source: "user",
		Data: "action=start_study&subject=math",
	})
	sig := SignBody([]byte(testSecret), body)

	rec := f.post(t, body, sig)
	if replies := decodeReplies(t, rec); len(replies) != 1 {
		t.Fatalf("Expected 1 reply on first delivery, got %d", len(replies))
	}

	// Immediate redelivery of the same payload is swallowed.
	rec = f.post(t, body, sig)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 on redelivery, got %d", rec.Code)
	}
	if replies := decodeReplies(t, rec); len(replies) != 0 {
		t.Errorf("Expected duplicate to be suppressed, got %v", replies)
	}
}
