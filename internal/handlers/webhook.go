package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"guardian-backend/internal/bot"
	"guardian-backend/internal/debounce"
	"guardian-backend/internal/logger"
	"guardian-backend/internal/services"
)

const signatureHeader = "X-Hub-Signature-256"

// WebhookHandler receives the chat platform's event envelope, verifies its
// signature and hands each event to the dispatcher. Reply payloads go back
// in the response body; rendering them is the platform side's job.
type WebhookHandler struct {
	secret     []byte
	economy    *services.EconomyService
	dispatcher *bot.Dispatcher
	guard      debounce.Guard
}

func NewWebhookHandler(channelSecret string, economy *services.EconomyService, dispatcher *bot.Dispatcher, guard debounce.Guard) *WebhookHandler {
	return &WebhookHandler{
		secret:     []byte(channelSecret),
		economy:    economy,
		dispatcher: dispatcher,
		guard:      guard,
	}
}

func (h *WebhookHandler) Callback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Unreadable body", r)
		return
	}

	if !h.validSignature(body, r.Header.Get(signatureHeader)) {
		writeError(w, http.StatusUnauthorized, "BAD_SIGNATURE", "Signature verification failed", r)
		return
	}

	var envelope bot.Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid event envelope", r)
		return
	}

	replies := make([]bot.Result, 0, len(envelope.Events))

	for _, ev := range envelope.Events {
		if ev.UserID == "" {
			continue
		}

		window := bot.MessageWindow
		if ev.Type == bot.EventPostback {
			window = bot.PostbackWindow
		}
		fresh, err := h.guard.Acquire(r.Context(), ev.UserID, ev.Signature(), window)
		if err != nil {
			logger.Log.Warn("debounce guard degraded", zap.Error(err))
		}
		if !fresh {
			continue
		}

		// Every contact upserts the user before any action runs.
		name := ev.DisplayName
		if name == "" {
			name = "User"
		}
		if _, err := h.economy.RegisterUser(r.Context(), ev.UserID, name); err != nil {
			logger.Log.Error("user registration failed", zap.String("user_id", ev.UserID), zap.Error(err))
			replies = append(replies, bot.Result{
				OK:      false,
				Action:  "register",
				Code:    "store_unavailable",
				Message: "please try again later",
			})
			continue
		}

		if ev.Type != bot.EventPostback {
			// Plain messages are classified upstream; only registration
			// happens here.
			continue
		}

		replies = append(replies, h.dispatcher.Dispatch(r.Context(), ev))
	}

	writeJSON(w, http.StatusOK, map[string]any{"replies": replies})
}

func (h *WebhookHandler) validSignature(body []byte, header string) bool {
	digest, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}

	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(digest), []byte(want))
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": requestID,
		},
	})
}

// SignBody computes the webhook signature for a payload. Exposed for tests
// and local tooling that replays envelopes.
func SignBody(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
