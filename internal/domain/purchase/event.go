// Package purchase narrows verified Stripe events into the variants the
// license flow acts on.
package purchase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
)

// Event is either SessionCompleted or Unhandled.
type Event interface {
	ID() string
	Type() string
	isEvent()
}

// SessionCompleted is a checkout.session.completed event. Email is empty when
// Stripe did not collect one.
type SessionCompleted struct {
	EventID   string
	SessionID string
	Email     string
	Name      string
}

func (e SessionCompleted) ID() string   { return e.EventID }
func (e SessionCompleted) Type() string { return string(stripe.EventTypeCheckoutSessionCompleted) }
func (SessionCompleted) isEvent()       {}

func (e SessionCompleted) HasEmail() bool { return e.Email != "" }

// Unhandled is any other event type. It is acknowledged and dropped.
type Unhandled struct {
	EventID   string
	EventType string
}

func (e Unhandled) ID() string   { return e.EventID }
func (e Unhandled) Type() string { return e.EventType }
func (Unhandled) isEvent()       {}

// Narrow converts a verified stripe event. Only the completed-session variant
// decodes its payload; a malformed payload for that type is an error.
func Narrow(evt stripe.Event) (Event, error) {
	if evt.Type != stripe.EventTypeCheckoutSessionCompleted {
		return Unhandled{EventID: evt.ID, EventType: string(evt.Type)}, nil
	}
	if evt.Data == nil || len(evt.Data.Raw) == 0 {
		return nil, fmt.Errorf("event %s has no data object", evt.ID)
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session in event %s: %w", evt.ID, err)
	}

	completed := SessionCompleted{
		EventID:   evt.ID,
		SessionID: session.ID,
	}
	if session.CustomerDetails != nil {
		completed.Email = strings.TrimSpace(session.CustomerDetails.Email)
		completed.Name = strings.TrimSpace(session.CustomerDetails.Name)
	}
	if completed.Email == "" {
		completed.Email = strings.TrimSpace(session.CustomerEmail)
	}

	return completed, nil
}
