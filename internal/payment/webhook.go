package payment

import (
	"fmt"
	"time"

	"github.com/makkenzo/license-checkout-service/internal/ierr"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const SignatureHeader = "Stripe-Signature"

type WebhookVerifier struct {
	secret    string
	tolerance time.Duration
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{
		secret:    secret,
		tolerance: webhook.DefaultTolerance,
	}
}

// Verify checks the signature header against the exact request bytes and
// returns the decoded event. Events pinned to another API version are still
// accepted; only the fields the license flow reads are decoded.
func (v *WebhookVerifier) Verify(payload []byte, signature string) (stripe.Event, error) {
	if signature == "" {
		return stripe.Event{}, ierr.ErrSignatureMissing
	}

	evt, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ierr.ErrSignatureInvalid, err)
	}
	return evt, nil
}
