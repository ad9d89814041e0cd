package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-commerce-checkout.git/internal/events"
)

// ErrBadSignature is surfaced to the webhook endpoint before any event
// reaches the processor.
var ErrBadSignature = errors.New("invalid webhook signature")

// ConstructEvent verifies the provider's HMAC-SHA256 hex signature over the
// raw payload and decodes it. Verification runs on the raw bytes, before any
// parsing.
func ConstructEvent(payload []byte, signature, secret string) (*events.ProviderEvent, error) {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	given, err := hex.DecodeString(signature)
	if err != nil || !hmac.Equal(given, mac.Sum(nil)) {
		return nil, ErrBadSignature
	}

	var ev events.ProviderEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode provider event: %w", err)
	}
	if ev.ID == "" || ev.OrderID == "" {
		return nil, fmt.Errorf("provider event missing id or order_id")
	}
	switch ev.Kind {
	case events.KindCaptureSucceeded, events.KindCaptureFailed, events.KindRefundIssued:
	default:
		return nil, fmt.Errorf("unknown provider event kind %q", ev.Kind)
	}
	return &ev, nil
}

// Sign computes the signature a provider would attach; used by tests and
// local tooling.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
