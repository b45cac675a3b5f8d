package bot

import (
	"fmt"
	"strings"
)

// Event types delivered by the chat platform webhook.
const (
	EventMessage  = "message"
	EventPostback = "postback"
)

// Event is one inbound action. Message events carry free text; postback
// events carry an ampersand-joined key=value data string produced by the
// platform's structured buttons.
type Event struct {
	Type        string `json:"type"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	Source      string `json:"source,omitempty"` // "user" or "group"
	Text        string `json:"text,omitempty"`
	Data        string `json:"data,omitempty"`
}

// Envelope is the webhook request body.
type Envelope struct {
	Events []Event `json:"events"`
}

// Signature returns the debounce key material for the event: the raw payload
// that would be identical on a duplicate tap or resend.
func (e Event) Signature() string {
	if e.Type == EventPostback {
		return e.Data
	}
	return e.Text
}

// DecodePostback splits "action=buy&item=game_30" style data into a flat
// map. Malformed pairs (no "=") are an error; values are not re-decoded
// beyond the split, matching the platform encoding.
func DecodePostback(data string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(data, "&") {
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("malformed postback pair %q", pair)
		}
		out[k] = v
	}
	return out, nil
}
