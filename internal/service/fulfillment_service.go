package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/makkenzo/license-checkout-service/internal/domain/license"
	"github.com/makkenzo/license-checkout-service/internal/domain/purchase"
	"github.com/makkenzo/license-checkout-service/internal/ierr"
	"github.com/makkenzo/license-checkout-service/internal/metrics"
	"go.uber.org/zap"
)

// keyAttempts bounds regeneration after a unique-constraint hit on license_key.
const keyAttempts = 3

type LicenseMailer interface {
	SendLicense(ctx context.Context, lic *license.License) (string, error)
}

// EventLedger deduplicates webhook deliveries by Stripe event id.
type EventLedger interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type FulfillmentOutcome string

const (
	OutcomeIgnored      FulfillmentOutcome = "ignored"
	OutcomeMissingEmail FulfillmentOutcome = "missing_email"
	OutcomeDuplicate    FulfillmentOutcome = "duplicate"
	OutcomeIssued       FulfillmentOutcome = "issued"
	// OutcomeUndelivered means the license row exists but the email failed.
	// It is acknowledged; the key is re-sent through the license API.
	OutcomeUndelivered FulfillmentOutcome = "undelivered"
)

type FulfillmentResult struct {
	Outcome FulfillmentOutcome
	License *license.License
}

type FulfillmentService struct {
	repo       license.Repository
	mailer     LicenseMailer
	ledger     EventLedger
	maxDevices int
	newKey     func() (string, error)
	logger     *zap.Logger
}

// NewFulfillmentService wires the completion processor. ledger may be nil, in
// which case duplicates are only detected through the session id.
func NewFulfillmentService(repo license.Repository, mailer LicenseMailer, ledger EventLedger, maxDevices int, logger *zap.Logger) *FulfillmentService {
	if maxDevices <= 0 {
		maxDevices = license.DefaultMaxDevices
	}
	return &FulfillmentService{
		repo:       repo,
		mailer:     mailer,
		ledger:     ledger,
		maxDevices: maxDevices,
		newKey:     license.GenerateKey,
		logger:     logger.Named("FulfillmentService"),
	}
}

// Process runs a verified event through the license flow. A non-nil error
// wrapping ierr.ErrPersistFailed means nothing was stored and the delivery
// should be retried by Stripe.
func (s *FulfillmentService) Process(ctx context.Context, evt purchase.Event) (*FulfillmentResult, error) {
	completed, ok := evt.(purchase.SessionCompleted)
	if !ok {
		s.logger.Debug("Ignoring stripe event", zap.String("event_id", evt.ID()), zap.String("type", evt.Type()))
		return s.done(OutcomeIgnored, nil), nil
	}

	log := s.logger.With(zap.String("event_id", completed.EventID), zap.String("session_id", completed.SessionID))

	if !completed.HasEmail() {
		log.Error("No email found in completed checkout session")
		return s.done(OutcomeMissingEmail, nil), nil
	}

	if s.ledger != nil {
		claimed, err := s.ledger.Claim(ctx, completed.EventID)
		switch {
		case err != nil:
			log.Warn("Event ledger unavailable, relying on session lookup", zap.Error(err))
		case !claimed:
			log.Info("Stripe event already processed or in progress")
			return s.done(OutcomeDuplicate, nil), nil
		}
	}

	existing, err := s.repo.FindBySessionID(ctx, completed.SessionID)
	if err == nil {
		log.Info("License already issued for checkout session", zap.String("license_id", existing.ID.String()))
		return s.done(OutcomeDuplicate, existing), nil
	}
	if !errors.Is(err, license.ErrNotFound) {
		log.Error("Failed to look up license by session", zap.Error(err))
		return nil, s.fail(ctx, completed.EventID, err)
	}

	lic, err := s.issue(ctx, completed)
	if errors.Is(err, license.ErrDuplicateSession) {
		// A concurrent delivery of the same session won the insert.
		log.Info("License issued concurrently for checkout session")
		existing, findErr := s.repo.FindBySessionID(ctx, completed.SessionID)
		if findErr != nil {
			log.Warn("Failed to load concurrently issued license", zap.Error(findErr))
		}
		return s.done(OutcomeDuplicate, existing), nil
	}
	if err != nil {
		log.Error("Failed to persist license", zap.Error(err))
		return nil, s.fail(ctx, completed.EventID, err)
	}
	log.Info("License issued", zap.String("license_key", lic.LicenseKey), zap.String("email", lic.PurchaseEmail))

	if _, err := s.mailer.SendLicense(ctx, lic); err != nil {
		metrics.LicenseEmails.WithLabelValues("failed").Inc()
		log.Error("License persisted but email failed, needs manual resend",
			zap.String("license_key", lic.LicenseKey),
			zap.String("email", lic.PurchaseEmail),
			zap.Error(err),
		)
		return s.done(OutcomeUndelivered, lic), nil
	}
	metrics.LicenseEmails.WithLabelValues("sent").Inc()

	return s.done(OutcomeIssued, lic), nil
}

func (s *FulfillmentService) issue(ctx context.Context, completed purchase.SessionCompleted) (*license.License, error) {
	lic := &license.License{
		PurchaseEmail: completed.Email,
		IsActive:      true,
		MaxDevices:    s.maxDevices,
		Notes:         sql.NullString{String: completed.SessionID, Valid: completed.SessionID != ""},
		CustomerName:  sql.NullString{String: completed.Name, Valid: completed.Name != ""},
	}

	var lastErr error
	for attempt := 0; attempt < keyAttempts; attempt++ {
		key, err := s.newKey()
		if err != nil {
			return nil, fmt.Errorf("%w: key generation: %v", ierr.ErrPersistFailed, err)
		}
		lic.LicenseKey = key

		if _, err := s.repo.Create(ctx, lic); err != nil {
			if errors.Is(err, license.ErrDuplicateSession) {
				return nil, err
			}
			if errors.Is(err, license.ErrDuplicateKey) {
				s.logger.Warn("License key collision, regenerating", zap.Int("attempt", attempt+1))
				lastErr = err
				continue
			}
			return nil, fmt.Errorf("%w: %v", ierr.ErrPersistFailed, err)
		}
		return lic, nil
	}
	return nil, fmt.Errorf("%w: %v", ierr.ErrPersistFailed, lastErr)
}

// fail releases the event claim so Stripe's retry is not mistaken for a duplicate.
func (s *FulfillmentService) fail(ctx context.Context, eventID string, cause error) error {
	metrics.WebhookEvents.WithLabelValues("persist_failed").Inc()
	if s.ledger != nil {
		if err := s.ledger.Release(context.WithoutCancel(ctx), eventID); err != nil {
			s.logger.Warn("Failed to release stripe event claim", zap.String("event_id", eventID), zap.Error(err))
		}
	}
	if errors.Is(cause, ierr.ErrPersistFailed) {
		return cause
	}
	return fmt.Errorf("%w: %v", ierr.ErrPersistFailed, cause)
}

func (s *FulfillmentService) done(outcome FulfillmentOutcome, lic *license.License) *FulfillmentResult {
	metrics.WebhookEvents.WithLabelValues(string(outcome)).Inc()
	return &FulfillmentResult{Outcome: outcome, License: lic}
}
